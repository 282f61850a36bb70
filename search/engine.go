package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veldtlabs/corpusdb/ai"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/index"
	"github.com/veldtlabs/corpusdb/storage"
)

// DefaultThreshold is the minimum inner-product score a passage must reach
// to count as relevant to a query.
const DefaultThreshold float32 = 0.30

// Engine answers queries over the ingested corpus.
//
// A query is embedded, normalized, and matched against the vector index;
// matching rows are resolved to passages through the store. The index and
// the store are positionally synchronized by the ingestion pipeline, so
// every index hit resolves.
type Engine struct {
	store     storage.PassageStore
	index     *index.Flat
	embedder  ai.Embedder
	threshold float32
	topK      int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithThreshold sets the relevance threshold.
// Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(e *Engine) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		e.threshold = threshold
		return nil
	}
}

// WithTopK sets the number of results Query considers.
// Default is 1.
func WithTopK(k int) Option {
	return func(e *Engine) error {
		if k < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidTopK, k)
		}
		e.topK = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new query engine.
func NewEngine(
	store storage.PassageStore,
	idx *index.Flat,
	provider ai.EmbeddingProvider,
	opts ...Option,
) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	e := &Engine{
		store:     store,
		index:     idx,
		embedder:  provider.Embedder(),
		threshold: DefaultThreshold,
		topK:      1,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Query returns the single most relevant passage for the query text.
// Returns ErrNoMatch if nothing scores at or above the threshold, which
// includes the empty-corpus case. WithTopK widens the candidate pool the
// engine considers; the best surviving candidate is returned.
func (e *Engine) Query(ctx context.Context, query string) (*core.QueryResult, error) {
	results, err := e.SearchWithMonitor(ctx, query, e.topK, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoMatch
	}
	return results[0], nil
}

// Search returns up to maxHits passages relevant to the query, ranked by
// descending score. Only passages at or above the threshold are returned;
// an empty slice means nothing relevant was found.
func (e *Engine) Search(ctx context.Context, query string, maxHits int) ([]*core.QueryResult, error) {
	return e.SearchWithMonitor(ctx, query, maxHits, nil)
}

// SearchWithMonitor searches with monitoring.
// The monitor receives callbacks at each stage of the query process.
func (e *Engine) SearchWithMonitor(ctx context.Context, query string, maxHits int, monitor QueryMonitor) ([]*core.QueryResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, maxHits)
	}

	monitor.Start(query)

	embedding, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		e.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	embedding = index.Normalize(embedding)
	monitor.AfterEmbedding(len(embedding))

	matches, err := e.index.Search(embedding, maxHits)
	if err != nil {
		e.logger.Error("error searching vector index", "err", err)
		return nil, err
	}
	monitor.AfterIndexSearch(matches)

	results := make([]*core.QueryResult, 0, len(matches))
	for _, match := range matches {
		if match.Score < e.threshold {
			monitor.BelowThreshold(match, e.threshold)
			e.logger.Debug("match below threshold",
				"row", match.Row, "score", match.Score, "threshold", e.threshold)
			continue
		}

		passage, err := e.store.GetByRow(ctx, match.Row)
		if err != nil {
			e.logger.Error("error resolving matched row", "row", match.Row, "err", err)
			return nil, err
		}

		results = append(results, &core.QueryResult{
			Passage: passage,
			Score:   match.Score,
		})
	}
	monitor.Finish(results)

	return results, nil
}

// Threshold returns the engine's relevance threshold.
func (e *Engine) Threshold() float32 {
	return e.threshold
}

// TopK returns the number of results Query considers.
func (e *Engine) TopK() int {
	return e.topK
}
