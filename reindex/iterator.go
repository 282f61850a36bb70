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

	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/storage"
)

// SourceIterator walks a passage store in row order, yielding one source
// document at a time.
//
// A source's passages occupy a contiguous row range because every ingest
// appends one whole source, so grouping by consecutive source changes
// reconstructs the original documents.
type SourceIterator struct {
	store storage.PassageStore
}

// NewSourceIterator creates an iterator over the given store.
func NewSourceIterator(store storage.PassageStore) *SourceIterator {
	return &SourceIterator{store: store}
}

// ForEach calls fn once per source document, with its passages in row order.
// Iteration stops on the first error from fn. Context cancellation is
// checked between sources.
func (it *SourceIterator) ForEach(ctx context.Context, fn func(source string, passages []*core.Passage) error) error {
	size, err := it.store.Size(ctx)
	if err != nil {
		return err
	}

	var group []*core.Passage
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := fn(group[0].Source, group)
		group = nil
		return err
	}

	for row := 0; row < size; row++ {
		passage, err := it.store.GetByRow(ctx, row)
		if err != nil {
			return err
		}

		if len(group) > 0 && group[0].Source != passage.Source {
			if err := flush(); err != nil {
				return err
			}
		}
		group = append(group, passage)
	}

	return flush()
}
