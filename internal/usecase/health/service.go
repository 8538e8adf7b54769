// Package health aggregates the readiness of the ranking service's collaborators.
package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Majors is the number of majors loaded for query enrichment.
	Majors int
}

// Service coordinates health checks.
type Service struct {
	embedding EmbeddingChecker
	majors    MajorCounter
	timeout   time.Duration
}

// New creates a Service. Both collaborators can be nil.
func New(embedding EmbeddingChecker, majors MajorCounter) *Service {
	return &Service{embedding: embedding, majors: majors, timeout: DefaultCheckTimeout}
}

// WithTimeout overrides the per-check deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all components. A missing majors table
// is reported but does not degrade the service.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.embedding != nil {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.embedding.HealthCheck(cctx)
		cancel()
		if err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	majors := 0
	if s.majors != nil {
		majors = s.majors.Len()
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Majors: majors}
}
