package domain

import (
	"errors"
)

// KeyPrefix namespaces every key askdex reads or writes in the store.
const KeyPrefix = "askdex:"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuestion signals a blank or unusable question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrUnknownPartition signals a partition tag outside the configured set.
	ErrUnknownPartition = errors.New("unknown partition")
	// ErrMissingWeight signals a partition without a configured weight.
	ErrMissingWeight = errors.New("missing partition weight")
	// ErrInvalidTuning signals incoherent ranking thresholds.
	ErrInvalidTuning = errors.New("invalid ranking tuning")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSynthesisFailed signals an answer synthesis failure.
	ErrSynthesisFailed = errors.New("answer synthesis failed")
	// ErrTokenBudgetExceeded signals that the embedding token budget is spent.
	ErrTokenBudgetExceeded = errors.New("token budget exceeded")
)
