package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSameStore is returned when source and destination are the same
	// store. The destination must be a separate, freshly opened corpus.
	ErrSameStore = errors.New("source and destination must be different stores")
)
