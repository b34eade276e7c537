package store

import "errors"

var (
	// ErrNotFound is returned by conditional writes when no record exists.
	// Plain lookups report absence through their found flag instead.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict means the stored state no longer matches the expected prior state.
	ErrStateConflict = errors.New("state conflict")

	ErrUnknownBackend = errors.New("unknown store backend")
)
