// Package embcache is the in-process embedding cache shared by ranking requests.
package embcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain"
)

// DefaultCapacity is used when a non-positive capacity is configured.
const DefaultCapacity = 10000

// ComputeFunc produces the vector for a single missing key.
type ComputeFunc func(ctx context.Context, key string) ([]float32, error)

// ComputeManyFunc produces vectors for all missing keys in one call.
// The result must be aligned with misses.
type ComputeManyFunc func(ctx context.Context, misses []string) ([][]float32, error)

// Cache is a bounded LRU map from cache key to embedding vector.
// Entries are only dropped by LRU eviction or explicit Evict/Purge.
// Safe for concurrent use; concurrent misses on one key may compute twice.
type Cache struct {
	entries    *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a cache holding at most capacity vectors.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly; may be nil.
func New(capacity int, cacheTotal *prometheus.CounterVec, logger *zap.Logger) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{entries: entries, cacheTotal: cacheTotal, logger: logger}, nil
}

// Get returns the cached vector for key.
func (c *Cache) Get(key string) ([]float32, bool) {
	return c.entries.Get(key)
}

// Put stores vec under key, evicting the least recently used entry when full.
func (c *Cache) Put(key string, vec []float32) {
	if c.entries.Add(key, vec) {
		c.logger.Debug("Embedding cache evicted entry", zap.Int("len", c.entries.Len()))
	}
}

// Evict removes key and reports whether it was present.
func (c *Cache) Evict(key string) bool {
	return c.entries.Remove(key)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every entry.
func (c *Cache) Purge() { c.entries.Purge() }

// GetOrCompute returns the cached vector for key, or computes and stores it.
// A compute error is returned and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) ([]float32, error) {
	if vec, ok := c.entries.Get(key); ok {
		c.inc("hit", 1)
		return vec, nil
	}
	c.inc("miss", 1)

	vec, err := fn(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("compute %q: %w", key, err)
	}
	c.Put(key, vec)
	return vec, nil
}

// GetOrComputeMany resolves keys positionally. All distinct misses are passed
// to fn in a single call, in first-seen order; fn is not called when every key hits.
// The computed vectors are stored before returning.
func (c *Cache) GetOrComputeMany(ctx context.Context, keys []string, fn ComputeManyFunc) ([][]float32, error) {
	out := make([][]float32, len(keys))
	missPos := make(map[string][]int)
	var misses []string

	for i, key := range keys {
		if vec, ok := c.entries.Get(key); ok {
			out[i] = vec
			continue
		}
		if _, seen := missPos[key]; !seen {
			misses = append(misses, key)
		}
		missPos[key] = append(missPos[key], i)
	}

	c.inc("hit", len(keys)-countPositions(missPos))
	if len(misses) == 0 {
		return out, nil
	}
	c.inc("miss", len(misses))

	vecs, err := fn(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("compute %d misses: %w", len(misses), err)
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("%w: got %d vectors for %d keys",
			domain.ErrEmbeddingProviderError, len(vecs), len(misses))
	}

	for j, key := range misses {
		c.Put(key, vecs[j])
		for _, i := range missPos[key] {
			out[i] = vecs[j]
		}
	}
	return out, nil
}

func (c *Cache) inc(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func countPositions(m map[string][]int) int {
	n := 0
	for _, p := range m {
		n += len(p)
	}
	return n
}
