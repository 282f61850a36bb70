// Copyright 2025 Veldt Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package corpusdb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/veldtlabs/corpusdb/ai"
	"github.com/veldtlabs/corpusdb/ai/openai"
	"github.com/veldtlabs/corpusdb/index"
	"github.com/veldtlabs/corpusdb/ingestion"
	"github.com/veldtlabs/corpusdb/search"
	"github.com/veldtlabs/corpusdb/storage"
	"github.com/veldtlabs/corpusdb/storage/badger"
	"github.com/veldtlabs/corpusdb/storage/snapshot"
)

// DefaultDimension is the embedding dimension assumed for a fresh corpus
// when the configuration does not specify one. It matches the default
// embedding model.
const DefaultDimension = 768

// Backend selects the persistence layer for a Corpus.
type Backend string

const (
	// BackendBadger stores passages in a BadgerDB database.
	BackendBadger Backend = "badger"

	// BackendSnapshot stores passages in versioned snapshot files swapped
	// atomically through a manifest.
	BackendSnapshot Backend = "snapshot"
)

// Corpus assembles the passage store, the vector index, and the embedding
// provider into one retrieval unit. The index is rebuilt from the stored
// vectors on open, so store and index start aligned.
type Corpus struct {
	store    storage.PassageStore
	index    *index.Flat
	provider ai.EmbeddingProvider
	writeMu  sync.Mutex
	logger   *slog.Logger
}

// CorpusOption configures a Corpus.
type CorpusOption func(*corpusOptions)

type corpusOptions struct {
	aiConfig *ai.Config
	backend  Backend
	provider ai.EmbeddingProvider
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) CorpusOption {
	return func(o *corpusOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithBackend selects the persistence backend.
// Default is BackendBadger.
func WithBackend(backend Backend) CorpusOption {
	return func(o *corpusOptions) {
		o.backend = backend
	}
}

// WithProvider injects a pre-built embedding provider instead of the
// OpenAI-compatible default. The corpus takes ownership and closes it.
func WithProvider(provider ai.EmbeddingProvider) CorpusOption {
	return func(o *corpusOptions) {
		o.provider = provider
	}
}

// Open opens or creates a corpus at the given path.
func Open(path string, opts ...CorpusOption) (*Corpus, error) {
	options := &corpusOptions{
		aiConfig: ai.DefaultConfig(),
		backend:  BackendBadger,
	}
	for _, opt := range opts {
		opt(options)
	}

	var store storage.PassageStore
	var err error
	switch options.backend {
	case BackendBadger:
		store, err = badger.NewPassageStore(path)
	case BackendSnapshot:
		store, err = snapshot.Open(path)
	default:
		return nil, fmt.Errorf("unknown backend %q", options.backend)
	}
	if err != nil {
		return nil, err
	}

	vectors, err := store.Vectors(context.Background())
	if err != nil {
		store.Close()
		return nil, err
	}

	// Configured dimension wins; otherwise follow whatever the store
	// already holds, or the model default for a fresh corpus.
	dimension := options.aiConfig.Dimension
	if dimension <= 0 {
		if len(vectors) > 0 {
			dimension = len(vectors[0])
		} else {
			dimension = DefaultDimension
		}
	}

	idx, err := index.NewFlat(dimension)
	if err != nil {
		store.Close()
		return nil, err
	}

	// Rebuild the index from persisted vectors. Vectors() returns row
	// order, so index rows land on their store rows.
	for _, vector := range vectors {
		if _, err := idx.Append(vector); err != nil {
			store.Close()
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return &Corpus{
		store:    store,
		index:    idx,
		provider: provider,
		logger:   slog.Default(),
	}, nil
}

// Close closes the embedding provider and the passage store.
func (c *Corpus) Close() error {
	if err := c.provider.Close(); err != nil {
		c.logger.Error("error closing embedding provider", "err", err)
	}

	if err := c.store.Close(); err != nil {
		c.logger.Error("error closing passage store", "err", err)
		return err
	}
	return nil
}

// Store returns the passage store.
func (c *Corpus) Store() storage.PassageStore {
	return c.store
}

// Index returns the vector index.
func (c *Corpus) Index() *index.Flat {
	return c.index
}

// NewIngestionPipeline creates a pipeline writing into this corpus.
// All pipelines from one corpus share a writer lock, so they can run
// concurrently without interleaving their appends.
func (c *Corpus) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithWriteLock(&c.writeMu)}, opts...)
	return ingestion.NewPipeline(c.store, c.index, c.provider, opts...)
}

// NewEngine creates a query engine reading from this corpus.
func (c *Corpus) NewEngine(opts ...search.Option) (*search.Engine, error) {
	return search.NewEngine(c.store, c.index, c.provider, opts...)
}
