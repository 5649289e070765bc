package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	domanswer "github.com/kailas-cloud/askdex/internal/domain/answer"
	logpkg "github.com/kailas-cloud/askdex/internal/logger"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
)

const (
	maxRequestBytes   = 64 << 10
	maxQuestionLength = 2000
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// answerService is the consumer interface for the question answering use case.
type answerService interface {
	Ask(ctx context.Context, question string) (domanswer.Answer, error)
	Partitions() []answeruc.PartitionSpec
}

// healthService is the consumer interface for health checks.
type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// usageService is the consumer interface for embedding token usage reports.
type usageService interface {
	GetReport(ctx context.Context, period usageuc.Period) usageuc.Report
}

// Server exposes the HTTP API on a chi router.
type Server struct {
	answers       answerService
	health        healthService
	usage         usageService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(answers answerService, health healthService, usage usageService, logger *zap.Logger) *Server {
	s := &Server{
		answers: answers,
		health:  health,
		usage:   usage,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuestion, http.StatusBadRequest, ErrorResponseCodeInvalidQuestion),
		sentinelHandler(context.Canceled, statusClientClosedRequest, ErrorResponseCodeRequestCancelled),
		sentinelHandler(context.DeadlineExceeded, http.StatusServiceUnavailable, ErrorResponseCodeServiceUnavailable),
	}
	return s
}

// statusClientClosedRequest is the de facto status for a client that went away.
const statusClientClosedRequest = 499

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorResponseCodeRouteNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponseCodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Get("/partitions", s.ListPartitions)
		r.Get("/usage", s.GetUsage)
	})
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusUnsupportedMediaType, ErrorResponseCodeUnsupportedMedia,
			"content type must be application/json")
		return
	}

	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorResponseCodeRequestTooLarge, "request body too large")
			return
		}
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "request body is required")
			return
		}
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid JSON body")
		return
	}

	if utf8.RuneCountInString(req.Question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeInvalidQuestion,
			"question must be at most "+strconv.Itoa(maxQuestionLength)+" characters")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	a, err := s.answers.Ask(ctx, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set("X-Answer-ID", a.ID)
	writeJSON(w, http.StatusOK, answerToResponse(&a))
}

// ListPartitions handles GET /v1/partitions.
func (s *Server) ListPartitions(w http.ResponseWriter, _ *http.Request) {
	specs := s.answers.Partitions()
	items := make([]PartitionResponse, 0, len(specs))
	for _, ps := range specs {
		items = append(items, partitionToResponse(ps))
	}
	writeJSON(w, http.StatusOK, PartitionListResponse{Partitions: items})
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "period must be \"day\" or \"month\"")
		return
	}
	writeJSON(w, http.StatusOK, usageToResponse(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if !usage.Used() {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	if usage.CacheHits > 0 {
		w.Header().Set("X-Embedding-Cache", "hit")
	} else {
		w.Header().Set("X-Embedding-Cache", "miss")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuestion,
		context.Canceled,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
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
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
