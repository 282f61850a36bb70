// Package mock provides test double implementations of the embedding
// interfaces.
//
// The mocks allow tests to run without an external embedding service and
// enable controlled, deterministic behavior: the default embedder derives a
// unit vector from an FNV hash of the text, so identical text always embeds
// identically.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vec, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("provider unavailable")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
