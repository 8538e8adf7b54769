// Package hashing is a deterministic, dependency-free embedding provider.
// It maps words and character trigrams into a fixed number of buckets
// (feature hashing) and returns unit-length vectors, so ranking works
// offline and in tests without an embedding API.
package hashing

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/eventrank/internal/domain"
)

// DefaultDimensions is used when a non-positive dimension is configured.
const DefaultDimensions = 384

// trigramWeight scales character trigram features relative to whole words.
const trigramWeight = 0.5

// Embedder implements domain.Embedder and domain.BatchEmbedder locally.
// Safe for concurrent use.
type Embedder struct {
	dims int
}

// New creates a hashing embedder producing vectors of dims dimensions.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return e.dims }

// Embed vectorizes a single text. Text without any word yields a zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // caller context
	}
	return domain.EmbeddingResult{Embedding: e.vectorize(text)}, nil
}

// BatchEmbed vectorizes texts in order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, err //nolint:wrapcheck // caller context
		}
		out[i] = e.vectorize(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(_ context.Context) error { return nil }

func (e *Embedder) vectorize(text string) []float32 {
	vec := make([]float32, e.dims)
	for _, w := range tokenize(text) {
		e.add(vec, w, 1)

		padded := "#" + w + "#"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			e.add(vec, string(runes[i:i+3]), trigramWeight)
		}
	}
	return domain.NormalizeL2(vec)
}

// add hashes feature into a bucket; one hash bit picks the sign so
// collisions cancel out on average.
func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
