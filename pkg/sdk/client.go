package eventrank

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	"github.com/kailas-cloud/eventrank/internal/repository/embcache"
	"github.com/kailas-cloud/eventrank/internal/repository/majors"
	"github.com/kailas-cloud/eventrank/internal/repository/vecindex"
	healthuc "github.com/kailas-cloud/eventrank/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/eventrank/internal/usecase/ranking"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
	"github.com/kailas-cloud/eventrank/internal/usecase/scoring"
)

// Internal interfaces for substitution in tests.
type rankingUseCase interface {
	Rank(ctx context.Context, p profile.Profile, events []event.Event, w *weights.Partial) ([]result.Result, error)
	Sanitize(records []event.RawRecord) ([]event.Event, sanitize.Stats)
	DefaultWeights() weights.Weights
}

// Client is the eventrank SDK entry point. It is safe for concurrent use;
// the embedding cache is shared by all calls.
type Client struct {
	rankSvc   rankingUseCase
	healthSvc healthUseCase
	cache     *embcache.Cache
	obs       *observer
}

// New creates a Client. It performs no network calls.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.weights != nil {
		if err := toDomainWeights(*cfg.weights).Validate(); err != nil {
			return nil, fmt.Errorf("eventrank: %w", err)
		}
	}

	table, err := loadMajors(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(cfg, table, obs)
}

func loadMajors(cfg *clientConfig) (*majors.Table, error) {
	if cfg.majorsPath != "" {
		t, err := majors.Load(cfg.majorsPath)
		if err != nil {
			return nil, fmt.Errorf("eventrank: %w", err)
		}
		return t, nil
	}
	if cfg.majors != nil {
		return majors.FromMap(cfg.majors), nil
	}
	return majors.Empty(), nil
}

func wireClient(cfg *clientConfig, table *majors.Table, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	embedder := cfg.embedder
	if embedder == nil {
		embedder = HashingEmbedder(0)
	}
	var documents domain.Embedder = domain.NewNormalizingEmbedder(adaptEmbedder(embedder))
	queries := documents
	if cfg.queryEmbedder != nil {
		queries = domain.NewNormalizingEmbedder(adaptEmbedder(cfg.queryEmbedder))
	}

	cache, err := embcache.New(cfg.cacheSize, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("eventrank: %w", err)
	}

	var scoringOpts []scoring.Option
	if cfg.horizonDays > 0 {
		scoringOpts = append(scoringOpts, scoring.WithHorizonDays(cfg.horizonDays))
	}
	if cfg.clock != nil {
		scoringOpts = append(scoringOpts, scoring.WithClock(cfg.clock))
	}

	rankSvc := rankinguc.New(queries, documents, cache, scoring.New(logger, scoringOpts...), sanitize.New(logger), logger).
		WithMajors(table).
		WithPrefilter(cfg.prefilterTopK, cfg.prefilterMinEvents).
		WithIndexFactory(func() rankinguc.Index { return vecindex.NewFlat(0) })
	if cfg.weights != nil {
		rankSvc = rankSvc.WithDefaultWeights(toDomainWeights(*cfg.weights))
	}

	var checker healthuc.EmbeddingChecker
	if hc, ok := documents.(domain.HealthChecker); ok {
		checker = hc
	}

	return &Client{
		rankSvc:   rankSvc,
		healthSvc: healthuc.New(checker, table),
		cache:     cache,
		obs:       obs,
	}, nil
}

// Rank scores events for p with the client's default weights and returns them
// best first. Any embedding failure fails the whole call.
func (c *Client) Rank(ctx context.Context, p Profile, events []Event) ([]Result, error) {
	return c.rank(ctx, "rank", p, events, nil)
}

// RankWeighted is Rank with explicit weights for this call only.
func (c *Client) RankWeighted(ctx context.Context, p Profile, events []Event, w Weights) ([]Result, error) {
	return c.rank(ctx, "rank_weighted", p, events, &weights.Partial{
		Sim:     &w.Sim,
		Label:   &w.Label,
		Recency: &w.Recency,
	})
}

func (c *Client) rank(
	ctx context.Context, op string, p Profile, events []Event, w *weights.Partial,
) (out []Result, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() {
		tokens, computed, hits := usage.Snapshot()
		c.obs.observe(op, start, err,
			"events", len(events), "tokens", tokens, "computed", computed, "cache_hits", hits)
	}()

	results, err := c.rankSvc.Rank(ctx, toDomainProfile(p), toDomainEvents(events), w)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fromDomainResults(results), nil
}

// Sanitize validates, deduplicates and normalizes raw feed records.
// Records with an unparseable start date are dropped.
func (c *Client) Sanitize(records []RawRecord) ([]Event, SanitizeStats) {
	start := time.Now()
	events, stats := c.rankSvc.Sanitize(toDomainRecords(records))
	c.obs.observe("sanitize", start, nil, "total_raw", stats.TotalRaw, "final_count", stats.FinalCount)
	return fromDomainEvents(events), fromDomainStats(stats)
}

// DefaultWeights returns the weights applied by Rank.
func (c *Client) DefaultWeights() Weights {
	return fromDomainWeights(c.rankSvc.DefaultWeights())
}

// CacheLen returns the number of cached vectors.
func (c *Client) CacheLen() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// PurgeCache drops every cached vector.
func (c *Client) PurgeCache() {
	if c.cache != nil {
		c.cache.Purge()
	}
}
