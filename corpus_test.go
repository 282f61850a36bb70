package corpusdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/corpusdb/ai"
	"github.com/veldtlabs/corpusdb/ai/mock"
	"github.com/veldtlabs/corpusdb/chunk"
	"github.com/veldtlabs/corpusdb/ingestion"
)

func mockOptions(backend Backend) []CorpusOption {
	return []CorpusOption{
		WithBackend(backend),
		WithProvider(mock.NewMockProvider()),
		WithAIConfig(ai.NewConfig(ai.WithDimension(384))),
	}
}

func TestOpen(t *testing.T) {
	t.Run("create new corpus", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "corpus_db")
		corpus, err := Open(dir, mockOptions(BackendBadger)...)
		require.NoError(t, err)
		require.NotNil(t, corpus)
		defer corpus.Close()

		assert.NotNil(t, corpus.Store())
		assert.NotNil(t, corpus.Index())
		assert.Equal(t, 0, corpus.Index().Size())
	})

	t.Run("snapshot backend", func(t *testing.T) {
		corpus, err := Open(t.TempDir(), mockOptions(BackendSnapshot)...)
		require.NoError(t, err)
		defer corpus.Close()

		assert.Equal(t, 384, corpus.Index().Dimension())
	})

	t.Run("unknown backend", func(t *testing.T) {
		corpus, err := Open(t.TempDir(), WithBackend(Backend("tape")))
		require.Error(t, err)
		assert.Nil(t, corpus)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		corpus, err := Open(tmpFile, mockOptions(BackendBadger)...)
		assert.Error(t, err)
		assert.Nil(t, corpus)
	})
}

func TestCorpus_FactoryMethods(t *testing.T) {
	corpus, err := Open(filepath.Join(t.TempDir(), "corpus_db"), mockOptions(BackendBadger)...)
	require.NoError(t, err)
	defer corpus.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := corpus.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create query engine", func(t *testing.T) {
		engine, err := corpus.NewEngine()
		require.NoError(t, err)
		require.NotNil(t, engine)
	})
}

func TestCorpus_ConcurrentPipelines(t *testing.T) {
	corpus, err := Open(filepath.Join(t.TempDir(), "corpus_db"), mockOptions(BackendBadger)...)
	require.NoError(t, err)
	defer corpus.Close()

	// Two pipelines against one corpus share its writer lock, so their
	// appends serialize instead of racing the index size check.
	first, err := corpus.NewIngestionPipeline(ingestion.WithChunker(chunk.New(10)))
	require.NoError(t, err)
	defer first.Release()
	second, err := corpus.NewIngestionPipeline(ingestion.WithChunker(chunk.New(10)))
	require.NoError(t, err)
	defer second.Release()

	const sourcesPer = 6
	ctx := context.Background()
	errs := make([]error, 2*sourcesPer)

	var wg sync.WaitGroup
	for i, pipeline := range []*ingestion.Pipeline{first, second} {
		for s := 0; s < sourcesPer; s++ {
			wg.Add(1)
			go func(slot int, p *ingestion.Pipeline, source string) {
				defer wg.Done()
				_, errs[slot] = p.Ingest(ctx, source, "A paragraph with enough text to keep.")
			}(i*sourcesPer+s, pipeline, fmt.Sprintf("doc-%d-%d", i, s))
		}
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	size, err := corpus.Store().Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*sourcesPer, size)
	assert.Equal(t, size, corpus.Index().Size())
}

func TestCorpus_IngestQueryReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	corpus, err := Open(dir, mockOptions(BackendSnapshot)...)
	require.NoError(t, err)

	pipeline, err := corpus.NewIngestionPipeline(ingestion.WithChunker(chunk.New(10)))
	require.NoError(t, err)

	added, err := pipeline.Ingest(ctx, "doc-1", "Alpha passage body.\n\nBeta passage body.")
	require.NoError(t, err)
	require.Equal(t, 2, added)
	pipeline.Release()

	engine, err := corpus.NewEngine()
	require.NoError(t, err)

	// The deterministic mock embeds identical text identically, so the
	// exact stored text is its own best match.
	result, err := engine.Query(ctx, "Alpha passage body.")
	require.NoError(t, err)
	assert.Equal(t, "Alpha passage body.", result.Passage.Text)
	assert.InDelta(t, 1.0, result.Score, 1e-3)

	require.NoError(t, corpus.Close())

	// Reopen: the index is rebuilt from the persisted vectors and the
	// corpus answers the same query without re-ingesting.
	reopened, err := Open(dir, mockOptions(BackendSnapshot)...)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.Index().Size())

	engine, err = reopened.NewEngine()
	require.NoError(t, err)

	result, err = engine.Query(ctx, "Beta passage body.")
	require.NoError(t, err)
	assert.Equal(t, "Beta passage body.", result.Passage.Text)
	assert.Equal(t, "doc-1", result.Passage.Source)
}
