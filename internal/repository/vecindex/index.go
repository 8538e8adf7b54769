// Package vecindex is an exact inner-product nearest-neighbour index over unit vectors.
package vecindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/eventrank/internal/domain"
)

// Hit is a search result. Position is the insertion index of the vector in Build.
type Hit struct {
	Position int
	ID       string
	Score    float64
}

// Flat scans every vector on search. Safe for concurrent use.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	ids     []string
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of the given dimension.
// A zero dimension is taken from the first Build.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Build replaces the index contents. ids[i] labels vectors[i].
func (f *Flat) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: %d ids for %d vectors", domain.ErrVectorCountMismatch, len(ids), len(vectors))
	}

	dim := f.Dim()
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d",
				domain.ErrVectorDimMismatch, i, len(v), dim)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.dim = dim
	f.ids = append([]string(nil), ids...)
	f.vectors = append([][]float32(nil), vectors...)
	return nil
}

// Reset drops all vectors and keeps the dimension.
func (f *Flat) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids, f.vectors = nil, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dim returns the index dimension, 0 if not yet known.
func (f *Flat) Dim() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

// Search returns up to k hits ordered by inner product descending.
// Equal scores keep insertion order. k <= 0 returns every vector.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(query), f.dim)
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: i, ID: f.ids[i], Score: domain.Dot(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
