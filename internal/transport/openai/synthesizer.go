package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/synthesis"
	"github.com/kailas-cloud/askdex/internal/metrics"
)

// Default chat completion parameters.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 600
)

// SynthesizerConfig holds the chat completion settings.
type SynthesizerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// Synthesizer writes the final answer through an OpenAI-compatible chat completions API.
type Synthesizer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewSynthesizer creates a chat completion based synthesizer.
func NewSynthesizer(cfg *SynthesizerConfig) *Synthesizer {
	s := &Synthesizer{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
	if s.temperature <= 0 {
		s.temperature = DefaultTemperature
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Synthesize implements usecase/answer.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, req synthesis.Request) (string, error) {
	if _, ok := req.Primary(); !ok {
		return "", fmt.Errorf("no sources to synthesize from: %w", domain.ErrSynthesisFailed)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(&req)},
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = "timeout"
		}
		metrics.SynthesisRequestsTotal.WithLabelValues(s.model, status).Inc()
		s.logger.Warn("Synthesis request failed",
			zap.String("model", s.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseAPIError("synthesis", err, domain.ErrSynthesisFailed)
	}

	if len(resp.Choices) == 0 {
		metrics.SynthesisRequestsTotal.WithLabelValues(s.model, "empty").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrSynthesisFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		metrics.SynthesisRequestsTotal.WithLabelValues(s.model, "empty").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrSynthesisFailed)
	}

	metrics.SynthesisRequestsTotal.WithLabelValues(s.model, "success").Inc()
	metrics.SynthesisRequestDuration.WithLabelValues(s.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.SynthesisTokensTotal.WithLabelValues(s.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.SynthesisTokensTotal.WithLabelValues(s.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	s.logger.Debug("Synthesis request completed",
		zap.String("model", s.model),
		zap.Duration("duration", duration),
		zap.Int("sources", len(req.Sources)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return text, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Synthesizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
