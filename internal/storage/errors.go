package storage

import "errors"

// Errors shared by the sample, catalog, score and run stores.
// Stored records are never updated in place: a detection run or score series
// is written once under its key and re-runs with the same key are rejected.
var (
	// ErrNotFound is returned when no run, window or score series matches the key.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicateKey is returned when a run ID, catalog ID or (run, window)
	// score key is already stored.
	ErrDuplicateKey = errors.New("storage: key already stored")

	// ErrInvalidInput is returned for nil records or records missing their key.
	ErrInvalidInput = errors.New("storage: invalid record")
)
