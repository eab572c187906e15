package queue

import "errors"

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrInvalidStatus is returned when a caller stores a status outside the pipeline enum.
var ErrInvalidStatus = errors.New("invalid queue status")
