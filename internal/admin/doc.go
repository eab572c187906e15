// Package admin implements the operator view over every generation job.
//
// List returns all queue records with a per-stage summary. Delete removes a
// record and distinguishes a record that was already gone from a malformed
// request. Removing a record only drops the backend's tracking entry; it does
// not stop generation that is already running, and DeletionNotice says so for
// display.
package admin
