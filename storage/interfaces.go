package storage

import (
	"context"

	"github.com/veldtlabs/corpusdb/core"
)

// PassageStore persists the metadata store, the per-row vectors, and the
// document registry. The three structures always change together: every
// append covers one whole source document, and a source is visible either
// completely or not at all.
//
// Implementations must be thread-safe and support concurrent access. The
// ingestion pipeline is the only writer; readers may run concurrently with
// an in-flight append and must observe a consistent state taken before the
// append began.
type PassageStore interface {
	// AppendSource atomically persists the passages and vectors of one
	// source document and marks the source as ingested. passages[i] owns
	// vectors[i]; passages must carry their final sequential rows.
	// Returns ErrAlreadyIngested if the source is registered,
	// ErrMisalignedAppend if passages and vectors disagree.
	AppendSource(ctx context.Context, source string, passages []*core.Passage, vectors [][]float32) error

	// GetByRow retrieves the passage at the given row position.
	// Returns ErrNotFound if the row is out of range.
	GetByRow(ctx context.Context, row int) (*core.Passage, error)

	// GetByID retrieves a passage by its derived ID.
	// Returns ErrNotFound if the passage doesn't exist.
	GetByID(ctx context.Context, id core.ID) (*core.Passage, error)

	// Size returns the number of stored passages.
	Size(ctx context.Context) (int, error)

	// Registered reports whether a source document has already been ingested.
	Registered(ctx context.Context, source string) (bool, error)

	// Sources returns all registered source identifiers.
	Sources(ctx context.Context) ([]string, error)

	// Vectors returns every stored vector in row order.
	// Used to rebuild the in-memory vector index on startup.
	Vectors(ctx context.Context) ([][]float32, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
