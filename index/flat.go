// Package index provides the append-only vector index used for passage
// retrieval.
//
// The Flat index stores unit-normalized embedding vectors in append order and
// searches them by exact brute-force inner product. Since stored vectors are
// unit length, the inner product equals cosine similarity in [-1, 1].
// Exactness and reproducible ordering matter more than scale at
// document-corpus size; an approximate structure can replace Flat behind the
// same contract if scale ever demands it.
package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/veldtlabs/corpusdb/core"
)

// Flat is an append-only brute-force inner-product index.
// It is safe for concurrent use: appends are serialized, searches may run
// concurrently and observe a consistent prefix of the appended rows.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dimension int) (*Flat, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidDimension, dimension)
	}
	return &Flat{dimension: dimension}, nil
}

// Dimension returns the vector dimension accepted by the index.
func (f *Flat) Dimension() int {
	return f.dimension
}

// Size returns the number of stored vectors.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Append stores a vector at the next sequential row and returns that row.
// Rows are never reordered, skipped, or reassigned; deletion is not
// supported. Fails only on a dimension mismatch.
func (f *Flat) Append(vector []float32) (int, error) {
	if len(vector) != f.dimension {
		return 0, fmt.Errorf("%w: expected %d, received %d", ErrDimensionMismatch, f.dimension, len(vector))
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, stored)
	return len(f.vectors) - 1, nil
}

// Search returns the top-k rows by descending inner product with the query.
// Ties are broken by the lowest row, so earliest-inserted wins and result
// ordering is deterministic. Returns fewer than k results if fewer vectors
// exist and an empty slice on an empty index.
func (f *Flat) Search(query []float32, k int) ([]core.Match, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrDimensionMismatch, f.dimension, len(query))
	}
	if k <= 0 {
		return []core.Match{}, nil
	}

	f.mu.RLock()
	matches := make([]core.Match, len(f.vectors))
	for row, vector := range f.vectors {
		matches[row] = core.Match{Row: row, Score: dotProduct(query, vector)}
	}
	f.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Row < matches[j].Row
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
