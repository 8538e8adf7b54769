package eventrank

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	embedder      Embedder
	queryEmbedder Embedder

	majors      map[string]string
	majorsPath  string
	weights     *Weights
	cacheSize   int
	horizonDays int

	prefilterTopK      int
	prefilterMinEvents int

	logger     *slog.Logger
	metricsReg prometheus.Registerer

	clock func() time.Time
}

// WithEmbedder sets the embedding provider for profile and event text.
// Defaults to HashingEmbedder(0).
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryEmbedder sets a separate provider for profile query text, e.g. one
// that prepends a query instruction. Defaults to the WithEmbedder provider.
func WithQueryEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryEmbedder = e
	})
}

// WithMajors sets the major → description table used to enrich queries.
// Keys match case-insensitively.
func WithMajors(m map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.majors = m
	})
}

// WithMajorsFile loads the majors table from a JSON file shaped
// {"<category>": {"programs": [{"major": ..., "description": ...}]}}.
func WithMajorsFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.majorsPath = path
	})
}

// WithWeights sets the default scoring weights.
// Default: sim 0.7, label 0.1, recency 0.2.
func WithWeights(w Weights) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = &w
	})
}

// WithCacheCapacity bounds the number of cached vectors.
// Default: 10000.
func WithCacheCapacity(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = n
	})
}

// WithHorizonDays sets the number of days over which recency decays to 0.
// Default: 30.
func WithHorizonDays(days int) Option {
	return optionFunc(func(c *clientConfig) {
		c.horizonDays = days
	})
}

// WithPrefilter scores only the topK events most similar to the profile when
// a batch has at least minEvents events.
func WithPrefilter(topK, minEvents int) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefilterTopK = topK
		c.prefilterMinEvents = minEvents
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
