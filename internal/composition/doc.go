// Package composition validates meditation drafts before they are submitted.
//
// Validation is pure: it reads the draft, the configured Rules and the sound
// catalog, and reports every problem keyed by field path ("title",
// "segments[2].speed"). Server-side rejections are folded into the same
// Result with Merge so callers have a single error surface.
package composition
