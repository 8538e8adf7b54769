package health

import "context"

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// MajorCounter reports how many majors are available for query enrichment.
type MajorCounter interface {
	Len() int
}
