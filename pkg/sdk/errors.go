package eventrank

import "github.com/kailas-cloud/eventrank/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidWeights         = domain.ErrInvalidWeights
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrVectorCountMismatch    = domain.ErrVectorCountMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
