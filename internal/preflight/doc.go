// Package preflight provides readiness checks for the local state directory
// and the backend that mantrify depends on.
//
// The CLI "mantrify doctor" command runs RunAll and prints each Result.
// The create command runs CheckDirectoryAccess on the state directory before
// it takes a submission lock.
package preflight
