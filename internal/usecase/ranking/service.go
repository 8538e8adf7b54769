// Package ranking orchestrates a ranking request: query building, cached
// embedding, optional pre-filtering and scoring.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	"github.com/kailas-cloud/eventrank/internal/repository/vecindex"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
)

// DefaultFallbackQuery is embedded when a profile yields no query text.
const DefaultFallbackQuery = "general"

// Cache key prefixes. Events without an id are keyed by their text so two
// anonymous events never share a vector.
const (
	queryKeyPrefix     = "query:"
	eventKeyPrefix     = "event:"
	eventTextKeyPrefix = "event-text:"
)

// Service ranks events for a profile. Build it once and share it; all state
// lives in the injected cache.
type Service struct {
	queries   Embedder
	documents Embedder
	cache     VectorCache
	scorer    Scorer
	sanitizer Sanitizer
	majors    MajorLookup
	logger    *zap.Logger

	defaults      weights.Weights
	fallbackQuery string

	prefilterTopK      int
	prefilterMinEvents int
	newIndex           func() Index

	duration prometheus.Observer
}

// New creates a ranking service. queries embeds profile query text and
// documents embeds event text; they may be the same embedder.
func New(
	queries, documents Embedder, cache VectorCache,
	scorer Scorer, sanitizer Sanitizer, logger *zap.Logger,
) *Service {
	return &Service{
		queries:       queries,
		documents:     documents,
		cache:         cache,
		scorer:        scorer,
		sanitizer:     sanitizer,
		logger:        logger,
		defaults:      weights.Default(),
		fallbackQuery: DefaultFallbackQuery,
		newIndex:      func() Index { return vecindex.NewFlat(0) },
	}
}

// WithMajors enables major-description enrichment of the query text.
func (s *Service) WithMajors(m MajorLookup) *Service {
	s.majors = m
	return s
}

// WithDefaultWeights sets the weights used when a request carries none.
func (s *Service) WithDefaultWeights(w weights.Weights) *Service {
	s.defaults = w
	return s
}

// WithFallbackQuery sets the text embedded for an empty profile.
func (s *Service) WithFallbackQuery(q string) *Service {
	if strings.TrimSpace(q) != "" {
		s.fallbackQuery = q
	}
	return s
}

// WithPrefilter scores only the topK most similar events when a batch has at
// least minEvents events. topK <= 0 disables the pre-filter.
func (s *Service) WithPrefilter(topK, minEvents int) *Service {
	s.prefilterTopK = topK
	s.prefilterMinEvents = minEvents
	return s
}

// WithIndexFactory overrides the index built per request for pre-filtering.
func (s *Service) WithIndexFactory(f func() Index) *Service {
	if f != nil {
		s.newIndex = f
	}
	return s
}

// WithDurationObserver records the wall time of every Rank call.
func (s *Service) WithDurationObserver(o prometheus.Observer) *Service {
	s.duration = o
	return s
}

// DefaultWeights returns the weights applied when a request carries none.
func (s *Service) DefaultWeights() weights.Weights { return s.defaults }

// Sanitize runs the configured sanitizer over raw feed records.
func (s *Service) Sanitize(records []event.RawRecord) ([]event.Event, sanitize.Stats) {
	return s.sanitizer.Sanitize(records)
}

// Rank scores events for p. Components of w that are nil fall back to the
// configured defaults. Any embedding failure fails the whole request.
func (s *Service) Rank(
	ctx context.Context, p profile.Profile, events []event.Event, w *weights.Partial,
) ([]result.Result, error) {
	if len(events) == 0 {
		return []result.Result{}, nil
	}

	resolved := w.Over(s.defaults)
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("resolve weights: %w", err)
	}

	start := time.Now()
	defer func() {
		if s.duration != nil {
			s.duration.Observe(time.Since(start).Seconds())
		}
	}()

	queryText := s.QueryText(p)
	query, err := s.queryVector(ctx, queryText)
	if err != nil {
		return nil, err
	}

	vectors, err := s.eventVectors(ctx, events)
	if err != nil {
		return nil, err
	}

	events, vectors, err = s.prefilter(query, events, vectors)
	if err != nil {
		return nil, err
	}

	results, err := s.scorer.Score(query, vectors, events, p, resolved)
	if err != nil {
		return nil, fmt.Errorf("score events: %w", err)
	}

	s.logger.Debug("Ranked events",
		zap.String("query", queryText),
		zap.Int("events", len(events)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// QueryText builds the text embedded for p: major, major description, year
// and interests, falling back to a generic query when all are empty.
func (s *Service) QueryText(p profile.Profile) string {
	major := strings.TrimSpace(p.Major)
	var majorContext string
	if s.majors != nil && major != "" {
		majorContext, _ = s.majors.Context(major)
	}

	text := strings.TrimSpace(strings.Join(
		[]string{major, majorContext, p.Year, strings.Join(p.Interests, " ")}, " ",
	))
	if text == "" {
		return s.fallbackQuery
	}
	return text
}

// EventKey returns the cache key of an event vector.
func EventKey(e *event.Event) string {
	if e.ID == "" {
		return eventTextKeyPrefix + e.EmbeddingText()
	}
	return eventKeyPrefix + e.ID
}

func (s *Service) queryVector(ctx context.Context, text string) ([]float32, error) {
	usage := domain.UsageFromContext(ctx)
	computed := false

	vec, err := s.cache.GetOrCompute(ctx, queryKeyPrefix+text, func(ctx context.Context, _ string) ([]float32, error) {
		res, err := s.queries.Embed(ctx, text)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by the cache and classified below
		}
		computed = true
		usage.AddTokens(res.TotalTokens, 1)
		return res.Embedding, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", classify(err))
	}
	if !computed {
		usage.AddCacheHits(1)
	}
	return vec, nil
}

func (s *Service) eventVectors(ctx context.Context, events []event.Event) ([][]float32, error) {
	keys := make([]string, len(events))
	texts := make(map[string]string, len(events))
	for i := range events {
		keys[i] = EventKey(&events[i])
		if _, ok := texts[keys[i]]; !ok {
			texts[keys[i]] = events[i].EmbeddingText()
		}
	}

	usage := domain.UsageFromContext(ctx)
	computed := 0

	vectors, err := s.cache.GetOrComputeMany(ctx, keys, func(ctx context.Context, misses []string) ([][]float32, error) {
		batch := make([]string, len(misses))
		for i, k := range misses {
			batch[i] = texts[k]
		}
		res, err := domain.EmbedMany(ctx, s.documents, batch)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by the cache and classified below
		}
		computed = len(misses)
		usage.AddTokens(res.TotalTokens, len(misses))
		return res.Embeddings, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vectorize events: %w", classify(err))
	}
	usage.AddCacheHits(len(events) - computed)
	return vectors, nil
}

// prefilter keeps the prefilterTopK events most similar to query, in input order.
func (s *Service) prefilter(
	query []float32, events []event.Event, vectors [][]float32,
) ([]event.Event, [][]float32, error) {
	if s.prefilterTopK <= 0 || len(events) < s.prefilterMinEvents || len(events) <= s.prefilterTopK {
		return events, vectors, nil
	}

	ids := make([]string, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}

	idx := s.newIndex()
	if err := idx.Build(ids, vectors); err != nil {
		return nil, nil, fmt.Errorf("build prefilter index: %w", err)
	}
	hits, err := idx.Search(query, s.prefilterTopK)
	if err != nil {
		return nil, nil, fmt.Errorf("search prefilter index: %w", err)
	}

	positions := make([]int, len(hits))
	for i, h := range hits {
		positions[i] = h.Position
	}
	sort.Ints(positions)

	keptEvents := make([]event.Event, len(positions))
	keptVectors := make([][]float32, len(positions))
	for i, pos := range positions {
		keptEvents[i] = events[pos]
		keptVectors[i] = vectors[pos]
	}

	s.logger.Debug("Pre-filtered events",
		zap.Int("candidates", len(events)),
		zap.Int("kept", len(keptEvents)),
	)
	return keptEvents, keptVectors, nil
}

// classify maps unclassified embedding failures to ErrEmbeddingProviderError.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
}
