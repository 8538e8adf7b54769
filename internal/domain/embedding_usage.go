package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding activity for a single ranking request.
// The transport puts it into the context, the ranking service records into it,
// and the transport reads it back for response headers.
type EmbeddingUsage struct {
	mu        sync.Mutex
	tokens    int
	computed  int
	cacheHits int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records provider tokens spent on n freshly computed vectors.
func (u *EmbeddingUsage) AddTokens(tokens, n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens += tokens
	u.computed += n
	u.mu.Unlock()
}

// AddCacheHits records vectors served from the cache.
func (u *EmbeddingUsage) AddCacheHits(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.cacheHits += n
	u.mu.Unlock()
}

// Snapshot returns tokens spent, vectors computed and vectors served from cache.
func (u *EmbeddingUsage) Snapshot() (tokens, computed, cacheHits int) {
	if u == nil {
		return 0, 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens, u.computed, u.cacheHits
}
