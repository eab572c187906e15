// Package watchui renders a live terminal view of one generation job while
// pipeline.Watch polls it.
package watchui
