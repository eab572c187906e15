// Command mantrify composes guided meditations, submits them for audio
// generation and follows each job through the generation pipeline.
//
// Drafts are TOML files with a title, optional description and visibility,
// and an ordered list of [[segment]] tables (text, pause or sound). Run
// "mantrify validate -f draft.toml" to check a draft locally and
// "mantrify create -f draft.toml --wait" to submit it and follow progress.
package main
