// Package logging assembles structured slog loggers and formatting helpers used
// across the Mantrify client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, masks sensitive attribute values such as access tokens, and
// exposes context-aware helpers so API and tracking code can tag log lines
// with queue record IDs and correlation IDs. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
