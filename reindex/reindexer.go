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


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/veldtlabs/corpusdb/ai"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/index"
	"github.com/veldtlabs/corpusdb/storage"
)

// Config holds configuration for a reindexing run.
type Config struct {
	// ReportInterval is how often to report progress (number of passages)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer migrates a corpus to a new embedding model.
//
// The passage store is append-only, so vectors cannot be rewritten in
// place. Reindexing instead reads every source document from the source
// store, embeds its passage texts with the new model, and appends the
// source into a separate destination store. Sources already present in the
// destination are skipped, so an interrupted run can be resumed.
type Reindexer struct {
	src      storage.PassageStore
	dst      storage.PassageStore
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(src, dst storage.PassageStore, embedder ai.Embedder, config *Config, progress io.Writer) (*Reindexer, error) {
	if src == dst {
		return nil, ErrSameStore
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reindexer{
		src:      src,
		dst:      dst,
		embedder: embedder,
		config:   config,
		progress: progress,
	}, nil
}

// Run executes the reindexing run.
// Every source document in the source store is re-embedded and appended to
// the destination. Progress is reported to the configured writer.
func (r *Reindexer) Run(ctx context.Context) error {
	total, err := r.src.Size(ctx)
	if err != nil {
		return fmt.Errorf("failed to size source corpus: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No passages found in source corpus\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d passages\n", total)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	skipped := 0

	iterator := NewSourceIterator(r.src)
	err = iterator.ForEach(ctx, func(source string, passages []*core.Passage) error {
		registered, err := r.dst.Registered(ctx, source)
		if err != nil {
			return err
		}
		if registered {
			skipped += len(passages)
			processed += len(passages)
			tracker.Update(processed)
			return nil
		}

		if err := r.migrateSource(ctx, source, passages); err != nil {
			return fmt.Errorf("failed to migrate source %s: %w", source, err)
		}

		processed += len(passages)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d passages in %v (%.1f passages/sec)",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())
	if skipped > 0 {
		fmt.Fprintf(r.progress, ", %d already present", skipped)
	}
	fmt.Fprintln(r.progress)

	return nil
}

// migrateSource embeds one source's passages with the new model and appends
// them to the destination store with fresh row positions.
func (r *Reindexer) migrateSource(ctx context.Context, source string, passages []*core.Passage) error {
	texts := make([]string, len(passages))
	for i, passage := range passages {
		texts[i] = passage.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(embeddings) != len(passages) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(passages), len(embeddings))
	}

	base, err := r.dst.Size(ctx)
	if err != nil {
		return err
	}

	migrated := make([]*core.Passage, len(passages))
	for i, passage := range passages {
		embeddings[i] = index.Normalize(embeddings[i])
		// IDs are derived from (source, row, text), so a passage landing on a
		// new row gets its ID re-derived for the destination.
		migrated[i] = &core.Passage{
			Id:         core.PassageID(passage.Source, base+i, passage.Text),
			Text:       passage.Text,
			Source:     passage.Source,
			Row:        base + i,
			InsertedAt: passage.InsertedAt,
		}
	}

	return r.dst.AppendSource(ctx, source, migrated, embeddings)
}
