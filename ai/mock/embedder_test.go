package mock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	embedder := NewMockEmbedder()
	ctx := context.Background()

	first, err := embedder.EmbedText(ctx, "some passage text")
	require.NoError(t, err)
	second, err := embedder.EmbedText(ctx, "some passage text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 384)

	other, err := embedder.EmbedText(ctx, "different passage text")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestMockEmbedder_CallCountUnderConcurrency(t *testing.T) {
	embedder := NewMockEmbedderWithDimension(8)
	ctx := context.Background()

	const goroutines = 16
	const callsPer = 25

	errs := make([]error, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < callsPer; i++ {
				if _, err := embedder.EmbedTexts(ctx, []string{"text"}); err != nil {
					errs[g] = err
					return
				}
			}
		}(g)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, goroutines*callsPer, embedder.CallCount())
}

func TestMockEmbedder_Reset(t *testing.T) {
	embedder := NewMockEmbedder()
	ctx := context.Background()

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, context.Canceled
	}
	_, err := embedder.EmbedTexts(ctx, []string{"text"})
	require.Error(t, err)
	require.Equal(t, 1, embedder.CallCount())

	embedder.Reset()
	assert.Equal(t, 0, embedder.CallCount())

	_, err = embedder.EmbedTexts(ctx, []string{"text"})
	assert.NoError(t, err)
}
