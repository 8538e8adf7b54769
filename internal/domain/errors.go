package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed ranking or sanitize request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidWeights signals a negative or non-finite weight.
	ErrInvalidWeights = errors.New("invalid weights")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrVectorCountMismatch signals that vectors and events are not aligned.
	ErrVectorCountMismatch = errors.New("vector count mismatch")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
