// Package api is the HTTP client for the Mantrify generation backend.
//
// Client covers the meditation endpoints (create, list, favorite, update,
// delete, stream URLs), the operator endpoints under /admin and login.
// Credentials are supplied by the caller through the Credentials capability;
// the client attaches the bearer token when one is available and reports 401
// responses back through OnUnauthorized, but never stores or parses tokens.
//
// Every failure is an *Error tagged with one sentinel (ErrValidation,
// ErrUnauthorized, ErrTransient, ...) so callers branch with errors.Is.
// Submitter layers draft validation and a single-flight guard on top of the
// create endpoint; it never retries.
package api
