// Package meditation models a guided meditation while it is being authored.
//
// A Draft carries the title, description, visibility and an ordered Sequence
// of segments. Segments are a closed sum type (TextSegment, PauseSegment,
// SoundSegment) sealed by unexported interface methods so validation and wire
// encoding can switch over them exhaustively. Sequence keeps positions dense
// after every structural edit and hands out deep copies so callers never
// mutate rows behind its back.
//
// The package also owns the sound Catalog and the TOML draft file format used
// by the CLI.
package meditation
