package store

import "errors"

// Domain-specific errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned by Get when the path has no value.
	ErrNotFound = errors.New("store: entry not found")

	// ErrConflict is returned by SetIfVersion when the entry's current
	// version does not match the expected one.
	ErrConflict = errors.New("store: version conflict")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("store: closed")
)
