package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a passage store is not provided.
	ErrStoreRequired = errors.New("passage store required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrSourceRequired is returned when the source identifier is empty.
	ErrSourceRequired = errors.New("source identifier required")

	// ErrNoUsableText is returned when a document yields no passage that
	// meets the minimum length. Nothing is registered for such a document.
	ErrNoUsableText = errors.New("no usable text in document")

	// ErrEmbeddingFailed wraps embedding provider failures during ingestion.
	ErrEmbeddingFailed = errors.New("embedding failed")
)
