package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	logpkg "github.com/kailas-cloud/eventrank/internal/logger"
	"github.com/kailas-cloud/eventrank/internal/metrics"
	healthuc "github.com/kailas-cloud/eventrank/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/eventrank/internal/usecase/ranking"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes returned to clients.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeEmbeddingTimeout       ErrorCode = "embedding_timeout"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RankRequest is the body of POST /rank.
type RankRequest struct {
	UserProfile *profile.Profile `json:"user_profile"`
	Events      []event.Event    `json:"events"`
	Weights     *weights.Partial `json:"weights,omitempty"`
}

// RankedEvent is one element of the POST /rank response.
type RankedEvent struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Details result.Details `json:"details"`
}

// SanitizeRequest is the body of POST /sanitize.
type SanitizeRequest struct {
	Events []event.RawRecord `json:"events"`
}

// SanitizeResponse is the body of a successful POST /sanitize.
type SanitizeResponse struct {
	Events []event.Event  `json:"events"`
	Stats  sanitize.Stats `json:"stats"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
	Majors int                             `json:"majors"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the ranking HTTP API.
type Server struct {
	ranking       *rankinguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ranking *rankinguc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		ranking:      ranking,
		health:       health,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidWeights, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusUnprocessableEntity, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrVectorCountMismatch, http.StatusUnprocessableEntity, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeEmbeddingTimeout),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// WithMaxBodyBytes caps the size of request bodies.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/rank", s.Rank)
	r.Post("/sanitize", s.Sanitize)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Rank handles POST /rank.
func (s *Server) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.UserProfile == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_profile is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.ranking.Rank(ctx, *req.UserProfile, req.Events, req.Weights)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	metrics.RankedEvents.Observe(float64(len(results)))
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, rankedEvents(results))
}

// Sanitize handles POST /sanitize.
func (s *Server) Sanitize(w http.ResponseWriter, r *http.Request) {
	var req SanitizeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	events, stats := s.ranking.Sanitize(req.Events)
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, http.StatusOK, SanitizeResponse{Events: events, Stats: stats})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
		Majors: report.Majors,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v) //nolint:wrapcheck // reported verbatim as a bad request
}

func rankedEvents(results []result.Result) []RankedEvent {
	out := make([]RankedEvent, len(results))
	for i := range results {
		out[i] = RankedEvent{
			ID:      results[i].ID(),
			Score:   results[i].Score(),
			Details: results[i].Details(),
		}
	}
	return out
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	tokens, computed, hits := usage.Snapshot()
	if computed > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
	if computed+hits > 0 {
		w.Header().Set("X-Embedding-Cache-Hits", strconv.Itoa(hits))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Weight errors carry the offending component and are safe to echo.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidWeights) || errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrVectorDimMismatch,
		domain.ErrVectorCountMismatch,
		domain.ErrRateLimited,
		context.DeadlineExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the response.
		log.Debug("request canceled", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "request canceled")
		return
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
