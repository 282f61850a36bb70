package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/veldtlabs/corpusdb/ai"
	"github.com/veldtlabs/corpusdb/chunk"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/index"
	"github.com/veldtlabs/corpusdb/storage"
)

// Pipeline orchestrates the ingestion of source documents: chunking,
// embedding, and the synchronized append to the passage store and the
// vector index.
//
// All mutation of the store/index pair goes through a single writer mutex.
// Embedding happens before the mutex is taken, so slow model calls never
// block concurrent readers, and the store is written before the index grows,
// so a search hit always resolves to stored metadata.
//
// Pipelines sharing a store/index pair must also share a writer mutex via
// WithWriteLock, otherwise their appends can interleave.
type Pipeline struct {
	store    storage.PassageStore
	index    *index.Flat
	embedder ai.Embedder
	chunker  *chunk.Chunker
	pool     *ants.Pool
	writeMu  *sync.Mutex
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunker sets the chunker used to split documents.
// Default is chunk.New(chunk.IndexMinChars).
func WithChunker(chunker *chunk.Chunker) Option {
	return func(p *Pipeline) error {
		if chunker == nil {
			chunker = chunk.New(chunk.IndexMinChars)
		}
		p.chunker = chunker
		return nil
	}
}

// WithPoolSize sets the worker pool size for bulk document processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithWriteLock shares a writer mutex between pipelines that append to the
// same store/index pair. Default is a mutex private to the pipeline.
func WithWriteLock(mu *sync.Mutex) Option {
	return func(p *Pipeline) error {
		if mu == nil {
			mu = &sync.Mutex{}
		}
		p.writeMu = mu
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	store storage.PassageStore,
	idx *index.Flat,
	provider ai.EmbeddingProvider,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:    store,
		index:    idx,
		embedder: provider.Embedder(),
		chunker:  chunk.New(chunk.IndexMinChars),
		pool:     pool,
		writeMu:  &sync.Mutex{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest chunks, embeds, and appends one source document.
// Returns the number of passages added.
//
// Ingestion is idempotent: a source already in the document registry is a
// no-op returning 0. Any failure rolls the whole call back; the store and
// the index never disagree in length after Ingest returns.
func (p *Pipeline) Ingest(ctx context.Context, sourceID, rawText string) (int, error) {
	if sourceID == "" {
		return 0, ErrSourceRequired
	}

	registered, err := p.store.Registered(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if registered {
		p.logger.Debug("source already ingested", "source", sourceID)
		return 0, nil
	}

	texts := p.chunker.Chunk(rawText)
	if len(texts) == 0 {
		return 0, fmt.Errorf("%w: source %s", ErrNoUsableText, sourceID)
	}

	// Embed before taking the writer mutex. Embedding may block on model
	// inference and must not stall readers or other writers.
	vectors, err := p.embedTexts(ctx, texts)
	if err != nil {
		return 0, err
	}

	return p.appendSource(ctx, sourceID, texts, vectors)
}

// embedTexts embeds a batch of passages and unit-normalizes the result.
func (p *Pipeline) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, received %d", ErrEmbeddingFailed, len(texts), len(vectors))
	}

	for i, vector := range vectors {
		if len(vector) != p.index.Dimension() {
			return nil, fmt.Errorf("%w: passage %d: expected %d, received %d",
				index.ErrDimensionMismatch, i, p.index.Dimension(), len(vector))
		}
		vectors[i] = index.Normalize(vector)
	}
	return vectors, nil
}

// appendSource performs the synchronized append of one source.
// Vectors must already be normalized and dimension-checked, so the index
// appends after the store commit cannot fail and the pair stays aligned.
func (p *Pipeline) appendSource(ctx context.Context, sourceID string, texts []string, vectors [][]float32) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	// Re-check under the writer mutex: a concurrent ingest of the same
	// source may have won the race while we were embedding.
	registered, err := p.store.Registered(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if registered {
		return 0, nil
	}

	base := p.index.Size()
	passages := make([]*core.Passage, len(texts))
	for i, text := range texts {
		passages[i] = &core.Passage{
			Id:     core.PassageID(sourceID, base+i, text),
			Text:   text,
			Source: sourceID,
			Row:    base + i,
		}
	}

	// Durable first: if the store append fails nothing was added anywhere.
	if err := p.store.AppendSource(ctx, sourceID, passages, vectors); err != nil {
		return 0, err
	}

	for _, vector := range vectors {
		if _, err := p.index.Append(vector); err != nil {
			// Unreachable for pre-validated vectors; surfaced for safety.
			return 0, err
		}
	}

	p.logger.Info("ingested source", "source", sourceID, "passages", len(passages))
	return len(passages), nil
}

// Document is one input to bulk ingestion.
type Document struct {
	Source string
	Text   string
}

// BulkResult reports the outcome of a bulk ingestion run.
type BulkResult struct {
	Added  int              // passages appended across all documents
	Failed map[string]error // per-source failures, keyed by source ID
}

// IngestDocuments ingests many documents concurrently using the worker pool.
//
// Bulk ingestion recovers locally from per-passage embedding failures: the
// affected passage is skipped and logged, the rest of the document goes in.
// Document-level failures (no usable text, store errors) are collected in
// the result rather than aborting the run.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []Document) *BulkResult {
	result := &BulkResult{Failed: make(map[string]error)}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			added, err := p.ingestLenient(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			result.Added += added
			if err != nil {
				result.Failed[doc.Source] = err
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.Failed[doc.Source] = submitErr
			mu.Unlock()
		}
	}
	wg.Wait()

	return result
}

// ingestLenient ingests one document, skipping passages whose embedding
// fails instead of aborting the document. A skipped passage is absent from
// both the store and the index, so alignment is preserved.
func (p *Pipeline) ingestLenient(ctx context.Context, doc Document) (int, error) {
	if doc.Source == "" {
		return 0, ErrSourceRequired
	}

	registered, err := p.store.Registered(ctx, doc.Source)
	if err != nil {
		return 0, err
	}
	if registered {
		return 0, nil
	}

	texts := p.chunker.Chunk(doc.Text)
	if len(texts) == 0 {
		return 0, fmt.Errorf("%w: source %s", ErrNoUsableText, doc.Source)
	}

	kept := make([]string, 0, len(texts))
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := p.embedder.EmbedText(ctx, text)
		if err != nil {
			p.logger.Warn("skipping passage, embedding failed", "source", doc.Source, "err", err)
			continue
		}
		if len(vector) != p.index.Dimension() {
			p.logger.Warn("skipping passage, dimension mismatch",
				"source", doc.Source, "expected", p.index.Dimension(), "received", len(vector))
			continue
		}
		kept = append(kept, text)
		vectors = append(vectors, index.Normalize(vector))
	}

	if len(kept) == 0 {
		return 0, fmt.Errorf("%w: source %s: every passage failed to embed", ErrEmbeddingFailed, doc.Source)
	}

	return p.appendSource(ctx, doc.Source, kept, vectors)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
