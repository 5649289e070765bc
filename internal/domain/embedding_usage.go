package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single question.
// The HTTP handler installs it before asking; the instrumented embedder records into it;
// the handler reports it back in response headers.
type EmbeddingUsage struct {
	PromptTokens int
	TotalTokens  int
	Calls        int
	CacheHits    int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record adds one embedding call. A call with zero total tokens counts as a cache hit.
func (u *EmbeddingUsage) Record(res EmbeddingResult) {
	if u == nil {
		return
	}
	u.Calls++
	u.PromptTokens += res.PromptTokens
	u.TotalTokens += res.TotalTokens
	if res.TotalTokens == 0 {
		u.CacheHits++
	}
}

// Used reports whether any embedding call was made.
func (u *EmbeddingUsage) Used() bool {
	return u != nil && u.Calls > 0
}
