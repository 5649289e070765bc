package askdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/synthesis"
)

// Embedder converts a question to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Source is one passage handed to a Synthesizer. The first source is the primary one.
type Source struct {
	Partition   string
	Description string
	Score       float64
	Attributes  map[string]string
	ConceptName string // empty when the passage has no resolved concept
}

// SynthesisRequest is everything a Synthesizer needs to write one answer.
type SynthesisRequest struct {
	Question        string
	ConfidenceLevel string
	Sources         []Source
}

// Synthesizer writes answer text from retrieved sources.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// synthesizerAdapter wraps public Synthesizer to satisfy the answer use case.
type synthesizerAdapter struct {
	inner    Synthesizer
	describe func(p string) string
}

func (a *synthesizerAdapter) Synthesize(ctx context.Context, req synthesis.Request) (string, error) {
	out := SynthesisRequest{
		Question:        req.Question,
		ConfidenceLevel: string(req.Verdict.Level),
		Sources:         make([]Source, 0, len(req.Sources)),
	}
	for i := range req.Sources {
		src := &req.Sources[i]
		p := src.Match.Partition().String()
		out.Sources = append(out.Sources, Source{
			Partition:   p,
			Description: a.describe(p),
			Score:       src.Match.WeightedScore(),
			Attributes:  src.Match.Attributes(),
			ConceptName: src.Related.Name,
		})
	}
	text, err := a.inner.Synthesize(ctx, out)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	return text, nil
}
