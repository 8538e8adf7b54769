package ranking

import (
	"context"

	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	"github.com/kailas-cloud/eventrank/internal/repository/embcache"
	"github.com/kailas-cloud/eventrank/internal/repository/vecindex"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorCache resolves cache keys to vectors, computing misses on demand.
type VectorCache interface {
	GetOrCompute(ctx context.Context, key string, fn embcache.ComputeFunc) ([]float32, error)
	GetOrComputeMany(ctx context.Context, keys []string, fn embcache.ComputeManyFunc) ([][]float32, error)
}

// MajorLookup returns the descriptive context for an academic major.
type MajorLookup interface {
	Context(major string) (string, bool)
}

// Scorer computes and orders ranked results.
type Scorer interface {
	Score(query []float32, vectors [][]float32, events []event.Event,
		p profile.Profile, w weights.Weights) ([]result.Result, error)
}

// Sanitizer turns raw feed records into canonical events.
type Sanitizer interface {
	Sanitize(records []event.RawRecord) ([]event.Event, sanitize.Stats)
}

// Index is a nearest-neighbour index used to pre-filter large batches.
type Index interface {
	Build(ids []string, vectors [][]float32) error
	Search(query []float32, k int) ([]vecindex.Hit, error)
}
