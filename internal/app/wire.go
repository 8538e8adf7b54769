// Package app is the composition root shared by the server and the CLI: it
// turns a Config into a wired ranking service.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/config"
	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/metrics"
	"github.com/kailas-cloud/eventrank/internal/repository/embcache"
	"github.com/kailas-cloud/eventrank/internal/repository/majors"
	"github.com/kailas-cloud/eventrank/internal/repository/vecindex"
	"github.com/kailas-cloud/eventrank/internal/transport/hashing"
	openaiEmb "github.com/kailas-cloud/eventrank/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/eventrank/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/eventrank/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/eventrank/internal/usecase/ranking"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
	"github.com/kailas-cloud/eventrank/internal/usecase/scoring"
)

// Components are the long-lived services built from a Config.
type Components struct {
	Ranking *rankinguc.Service
	Health  *healthuc.Service
	Cache   *embcache.Cache
	Majors  *majors.Table
}

// Build wires the ranking service, its cache and the health service.
// A majors file that cannot be read is logged and replaced by an empty table.
func Build(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	queries, documents := BuildEmbedders(&cfg.Embedding, logger)

	cache, err := embcache.New(cfg.Cache.Capacity, metrics.EmbeddingCacheTotal, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	table := LoadMajors(cfg.Majors.Path, logger)
	engine := scoring.New(logger, scoring.WithHorizonDays(cfg.Ranking.HorizonDays))
	sanitizer := sanitize.New(logger).WithOutcomeCounter(metrics.SanitizeRecordsTotal)

	dims := cfg.Embedding.Dimensions
	ranking := rankinguc.New(queries, documents, cache, engine, sanitizer, logger).
		WithMajors(table).
		WithDefaultWeights(*cfg.Ranking.Weights).
		WithFallbackQuery(cfg.Ranking.FallbackQuery).
		WithPrefilter(cfg.Index.PrefilterTopK, cfg.Index.PrefilterMinEvents).
		WithIndexFactory(func() rankinguc.Index { return vecindex.NewFlat(dims) }).
		WithDurationObserver(metrics.RankingDuration)

	var checker healthuc.EmbeddingChecker
	if hc, ok := documents.(domain.HealthChecker); ok {
		checker = hc
	}
	health := healthuc.New(checker, table)

	return &Components{Ranking: ranking, Health: health, Cache: cache, Majors: table}, nil
}

// BuildEmbedders assembles the decorator chain for query and document text:
// provider -> Instrumented -> Normalizing -> Instruction.
// Both chains share the same provider client.
func BuildEmbedders(cfg *config.EmbeddingConfig, logger *zap.Logger) (queries, documents domain.Embedder) {
	var base domain.Embedder
	model := cfg.Model
	switch cfg.Provider {
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	default:
		h := hashing.New(cfg.Dimensions)
		base = h
		model = fmt.Sprintf("hashing-%d", h.Dimensions())
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(base, cfg.Provider, model, logger).
		WithMaxBatchSize(cfg.MaxBatchSize).
		WithTimeout(time.Duration(cfg.TimeoutSec) * time.Second)
	var normalized domain.Embedder = domain.NewNormalizingEmbedder(instrumented)

	return withInstruction(normalized, cfg.QueryInstruction), withInstruction(normalized, cfg.DocumentInstruction)
}

// withInstruction is outermost so the instruction is part of the embedded text.
func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// LoadMajors reads the majors table at path. An empty path or a read failure
// yields an empty table; enrichment is optional.
func LoadMajors(path string, logger *zap.Logger) *majors.Table {
	if path == "" {
		return majors.Empty()
	}
	table, err := majors.Load(path)
	if err != nil {
		logger.Warn("Majors table unavailable, query enrichment disabled",
			zap.String("path", path), zap.Error(err))
		return majors.Empty()
	}
	logger.Info("Loaded majors table", zap.String("path", path), zap.Int("majors", table.Len()))
	return table
}
