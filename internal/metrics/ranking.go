package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ranking and sanitization Prometheus metrics.
var (
	SanitizeRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sanitize_records_total",
			Help:      "Raw event records by sanitization outcome",
		},
		[]string{"outcome"},
	)

	RankingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Wall time of a ranking request including embedding",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	RankedEvents = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ranked_events",
			Help:      "Number of events per ranking request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

var rankMetricsRegistered bool

// RegisterRankingMetrics registers ranking and sanitization metrics. Must be called once from main.
func RegisterRankingMetrics() {
	if rankMetricsRegistered {
		return
	}
	prometheus.MustRegister(SanitizeRecordsTotal)
	prometheus.MustRegister(RankingDuration)
	prometheus.MustRegister(RankedEvents)
	rankMetricsRegistered = true
}
