package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/synthesis"
)

func chatServer(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if capture != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, capture)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 40, "total_tokens": 140},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestSynthesizer(url string) *Synthesizer {
	return NewSynthesizer(&SynthesizerConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-chat",
		Logger:  zap.NewNop(),
	})
}

func testRequest() synthesis.Request {
	return synthesis.Request{
		Question: "What is photosynthesis?",
		Verdict:  confidence.Verdict{Level: confidence.High, Score: 0.92},
		Sources: []synthesis.Source{
			{Match: match.New(partition.FAQ, match.Hit{ID: "q1", Score: 0.8, Attributes: map[string]string{
				"question": "What is photosynthesis?",
				"answer":   "Plants make food from light.",
			}}, 1.2)},
		},
	}
}

func TestSynthesizer_Synthesize(t *testing.T) {
	var body map[string]any
	server := chatServer(t, "  Plants use sunlight to make sugar.  ", &body)

	text, err := newTestSynthesizer(server.URL).Synthesize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Plants use sunlight to make sugar." {
		t.Errorf("text = %q", text)
	}

	if body["model"] != "test-chat" {
		t.Errorf("model = %v", body["model"])
	}
	if body["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if !strings.Contains(user["content"].(string), "Q: What is photosynthesis?") {
		t.Errorf("user prompt missing primary content: %v", user["content"])
	}
}

func TestSynthesizer_EmptyCompletion(t *testing.T) {
	server := chatServer(t, "   ", nil)

	_, err := newTestSynthesizer(server.URL).Synthesize(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestSynthesizer_NoSources(t *testing.T) {
	s := newTestSynthesizer("http://127.0.0.1:1")
	_, err := s.Synthesize(context.Background(), synthesis.Request{Question: "q"})
	if !errors.Is(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestSynthesizer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "overloaded", "type": "server_error"},
		})
	}))
	defer server.Close()

	_, err := newTestSynthesizer(server.URL).Synthesize(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestNewSynthesizer_Defaults(t *testing.T) {
	s := NewSynthesizer(&SynthesizerConfig{Model: "m"})
	if s.temperature != DefaultTemperature || s.maxTokens != DefaultMaxTokens {
		t.Errorf("defaults not applied: %+v", s)
	}
	if s.logger == nil {
		t.Error("logger should default to nop")
	}
}
