// Package scoring computes the composite relevance score of events for a profile.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
)

// DefaultHorizonDays is the window over which recency decays linearly to zero.
const DefaultHorizonDays = 30

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for recency.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithHorizonDays sets the recency decay window. Non-positive values are ignored.
func WithHorizonDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.horizonDays = float64(days)
		}
	}
}

// Engine scores and orders events. It holds no mutable state.
type Engine struct {
	logger      *zap.Logger
	now         func() time.Time
	horizonDays float64
}

// New creates a scoring engine.
func New(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:      logger,
		now:         time.Now,
		horizonDays: DefaultHorizonDays,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Score returns one result per event, rounded to two decimals and sorted by
// rounded score descending. Ties keep input order.
// vectors[i] must be the embedding of events[i], with the query's dimension.
func (e *Engine) Score(
	query []float32, vectors [][]float32, events []event.Event,
	p profile.Profile, w weights.Weights,
) ([]result.Result, error) {
	if len(vectors) != len(events) {
		return nil, fmt.Errorf("%w: %d vectors for %d events",
			domain.ErrVectorCountMismatch, len(vectors), len(events))
	}

	interests := p.InterestSet()
	now := e.now()
	results := make([]result.Result, len(events))

	for i := range events {
		ev := &events[i]
		if len(vectors[i]) != len(query) {
			return nil, fmt.Errorf("%w: event %q has %d dimensions, query has %d",
				domain.ErrVectorDimMismatch, ev.ID, len(vectors[i]), len(query))
		}

		d := result.Details{
			Sim:     Similarity(query, vectors[i]),
			Label:   LabelOverlap(interests, ev.Tags),
			Recency: e.recency(ev, now),
		}
		score := w.Sim*d.Sim + w.Label*d.Label + w.Recency*d.Recency
		results[i] = result.New(ev.ID, score, d)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
	return results, nil
}

// Similarity is the inner product of two unit vectors clamped to [0, 1].
func Similarity(a, b []float32) float64 {
	return clamp01(domain.Dot(a, b))
}

// LabelOverlap is the fraction of distinct interests that occur as a substring
// of at least one tag, case-insensitively. interests must already be distinct
// and lower-cased (see profile.InterestSet); no interests yields 0.
func LabelOverlap(interests, tags []string) float64 {
	if len(interests) == 0 {
		return 0
	}

	lowered := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(t)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		lowered = append(lowered, t)
	}

	matches := 0
	for _, u := range interests {
		for _, t := range lowered {
			if strings.Contains(t, u) {
				matches++
				break
			}
		}
	}
	return math.Min(1, float64(matches)/float64(len(interests)))
}

// Recency decays linearly from 1 for an event starting within the next day to
// 0 at horizonDays. Past events score 0.
func Recency(start, now time.Time, horizonDays float64) float64 {
	days := math.Floor(start.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return math.Max(0, 1-days/horizonDays)
}

func (e *Engine) recency(ev *event.Event, now time.Time) float64 {
	start, err := ev.StartTime()
	if err != nil {
		e.logger.Warn("Unparseable event start, recency set to 0",
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
		return 0
	}
	return Recency(start, now, e.horizonDays)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
