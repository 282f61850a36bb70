package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/corpusdb/ai/mock"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/index"
	"github.com/veldtlabs/corpusdb/storage"
	"github.com/veldtlabs/corpusdb/storage/badger"
)

const testDimension = 4

func newTestStore(t *testing.T) storage.PassageStore {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedSource appends one source's passages with hand-built unit vectors so
// scores are exact instead of depending on hashed embeddings.
func seedSource(t *testing.T, store storage.PassageStore, idx *index.Flat, source string, texts []string, vectors [][]float32) {
	t.Helper()
	require.Equal(t, len(texts), len(vectors))

	base := idx.Size()
	passages := make([]*core.Passage, len(texts))
	for i, text := range texts {
		passages[i] = &core.Passage{
			Id:         core.PassageID(source, base+i, text),
			Text:       text,
			Source:     source,
			Row:        base + i,
			InsertedAt: time.Now(),
		}
	}

	require.NoError(t, store.AppendSource(context.Background(), source, passages, vectors))
	for _, vector := range vectors {
		_, err := idx.Append(vector)
		require.NoError(t, err)
	}
}

func unitVector(axis int) []float32 {
	v := make([]float32, testDimension)
	v[axis] = 1
	return v
}

func queryEmbedder(vector []float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedderWithDimension(testDimension)
	embedder.EmbedQueryFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return embedder
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)
	provider := mock.NewMockProvider()

	tests := []struct {
		name    string
		build   func() (*Engine, error)
		wantErr error
	}{
		{
			name:    "nil store",
			build:   func() (*Engine, error) { return NewEngine(nil, idx, provider) },
			wantErr: ErrStoreRequired,
		},
		{
			name:    "nil index",
			build:   func() (*Engine, error) { return NewEngine(store, nil, provider) },
			wantErr: ErrIndexRequired,
		},
		{
			name:    "nil provider",
			build:   func() (*Engine, error) { return NewEngine(store, idx, nil) },
			wantErr: ErrProviderRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := tt.build()
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, engine)
		})
	}
}

func TestNewEngine_OptionValidation(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)
	provider := mock.NewMockProvider()

	_, err = NewEngine(store, idx, provider, WithThreshold(1.5))
	require.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = NewEngine(store, idx, provider, WithTopK(0))
	require.ErrorIs(t, err, ErrInvalidTopK)

	engine, err := NewEngine(store, idx, provider, WithThreshold(0.5), WithTopK(3))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), engine.Threshold())
	assert.Equal(t, 3, engine.TopK())
}

func TestQuery_ReturnsBestPassage(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)

	seedSource(t, store, idx, "doc-1",
		[]string{"Alpha text.", "Beta text."},
		[][]float32{unitVector(0), unitVector(1)})

	// Query leans toward the first axis: 0.8 against Alpha, 0.6 against Beta.
	embedder := queryEmbedder([]float32{0.8, 0.6, 0, 0})
	engine, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)

	result, err := engine.Query(context.Background(), "which passage?")
	require.NoError(t, err)
	assert.Equal(t, "Alpha text.", result.Passage.Text)
	assert.Equal(t, "doc-1", result.Passage.Source)
	assert.InDelta(t, 0.8, result.Score, 1e-5)
}

func TestQuery_ExactTextScoresOne(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(384)
	require.NoError(t, err)

	// The deterministic mock maps identical text to identical unit vectors,
	// so querying with a stored passage's exact text scores 1.0.
	embedder := mock.NewMockEmbedder()
	ctx := context.Background()

	texts := []string{"The first stored passage.", "A second, unrelated one."}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], err = embedder.EmbedText(ctx, text)
		require.NoError(t, err)
	}
	seedSource(t, store, idx, "doc-1", texts, vectors)

	engine, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)

	result, err := engine.Query(ctx, "The first stored passage.")
	require.NoError(t, err)
	assert.Equal(t, "The first stored passage.", result.Passage.Text)
	assert.InDelta(t, 1.0, result.Score, 1e-3)
}

func TestQuery_NoMatchOnEmptyCorpus(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)

	engine, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(
		mock.NewMockEmbedderWithDimension(testDimension)))
	require.NoError(t, err)

	result, err := engine.Query(context.Background(), "anything at all")
	require.ErrorIs(t, err, ErrNoMatch)
	assert.Nil(t, result)
}

func TestQuery_ThresholdGate(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)

	seedSource(t, store, idx, "doc-1",
		[]string{"Stored passage."},
		[][]float32{unitVector(0)})

	// Query is nearly orthogonal to the stored vector: score 0.1.
	embedder := queryEmbedder([]float32{0.1, 0.99498744, 0, 0})
	engine, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)

	_, err = engine.Query(context.Background(), "something unrelated")
	require.ErrorIs(t, err, ErrNoMatch)

	// The same query passes once the threshold drops below its score.
	lenient, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(embedder),
		WithThreshold(0.05))
	require.NoError(t, err)

	result, err := lenient.Query(context.Background(), "something unrelated")
	require.NoError(t, err)
	assert.Equal(t, "Stored passage.", result.Passage.Text)
}

func TestSearch_RankedByScore(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)

	seedSource(t, store, idx, "doc-1",
		[]string{"Axis zero.", "Axis one.", "Axis two."},
		[][]float32{unitVector(0), unitVector(1), unitVector(2)})

	// Unit-length query: component squares sum to 1.
	embedder := queryEmbedder([]float32{0.5, 0.7, 0.2, 0.46904158})
	engine, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), "ranked", 3)
	require.NoError(t, err)

	// Axis two scores 0.2, below the default threshold.
	require.Len(t, results, 2)
	assert.Equal(t, "Axis one.", results[0].Passage.Text)
	assert.InDelta(t, 0.7, results[0].Score, 1e-5)
	assert.Equal(t, "Axis zero.", results[1].Passage.Text)
	assert.InDelta(t, 0.5, results[1].Score, 1e-5)
}

func TestSearch_InputValidation(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)

	engine, err := NewEngine(store, idx, mock.NewMockProvider())
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), "   ", 1)
	require.ErrorIs(t, err, ErrEmptyQuery)

	_, err = engine.Search(context.Background(), "fine", 0)
	require.ErrorIs(t, err, ErrInvalidTopK)
}

// recordingMonitor captures callback order for monitor tests.
type recordingMonitor struct {
	stages []string
}

func (r *recordingMonitor) Start(_ string)              { r.stages = append(r.stages, "start") }
func (r *recordingMonitor) AfterEmbedding(_ int)        { r.stages = append(r.stages, "embed") }
func (r *recordingMonitor) AfterIndexSearch(_ []core.Match) {
	r.stages = append(r.stages, "index")
}
func (r *recordingMonitor) BelowThreshold(match core.Match, threshold float32) {
	r.stages = append(r.stages, fmt.Sprintf("below:%d", match.Row))
}
func (r *recordingMonitor) Finish(results []*core.QueryResult) {
	r.stages = append(r.stages, fmt.Sprintf("finish:%d", len(results)))
}

func TestSearchWithMonitor_ReportsStages(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.NewFlat(testDimension)
	require.NoError(t, err)

	seedSource(t, store, idx, "doc-1",
		[]string{"Relevant.", "Irrelevant."},
		[][]float32{unitVector(0), unitVector(1)})

	embedder := queryEmbedder([]float32{0.9, 0.1, 0, 0})
	engine, err := NewEngine(store, idx, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := engine.SearchWithMonitor(context.Background(), "relevant", 2, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{"start", "embed", "index", "below:1", "finish:1"}, monitor.stages)
}
