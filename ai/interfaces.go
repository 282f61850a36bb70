package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// Embedding calls may block on network or model-inference latency; callers
// must not hold storage or index locks while waiting on them.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates a vector embedding for a search query.
	// Some models embed queries differently from documents; implementations
	// backed by symmetric models may delegate to EmbedText.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingProvider manages the lifecycle of an Embedder.
// A provider creates the embedder and releases its resources on Close.
type EmbeddingProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its embedder should not be used.
	Close() error
}
