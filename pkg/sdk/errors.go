package askdex

import "github.com/kailas-cloud/askdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuestion        = domain.ErrInvalidQuestion
	ErrUnknownPartition       = domain.ErrUnknownPartition
	ErrInvalidTuning          = domain.ErrInvalidTuning
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrSynthesisFailed        = domain.ErrSynthesisFailed
	ErrTokenBudgetExceeded    = domain.ErrTokenBudgetExceeded
)
