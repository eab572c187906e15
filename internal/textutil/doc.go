// Package textutil provides text helpers shared by the composition model and
// the CLI renderers.
//
// The primary use cases are:
//   - Truncating user text on rune boundaries for one-line summaries
//   - Formatting speeds, pause lengths and listen counts for display
//   - Converting titles into filesystem-safe tokens for lock file names
package textutil
