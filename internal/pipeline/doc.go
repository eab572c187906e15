// Package pipeline follows a submitted job through the backend's generation
// stages (queued, started, elevenlabs, concatenator, done).
//
// Status is treated as a checkpoint in a total order rather than a strict
// sequence: a poll may jump over stages, and an earlier status reported after
// a later one is ignored instead of rewinding. Lack of progress is exposed as
// a stall flag, never as an error. A record that disappears before reaching
// done, or a job that exceeds the optional give-up budget, ends the watch with
// a "did not complete" outcome.
//
// Tracker is the pure state machine with an injected clock; Watch and Wait
// drive it from a Source on the configured poll cadence.
package pipeline
