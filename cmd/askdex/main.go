package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/config"
	"github.com/kailas-cloud/askdex/internal/db"
	dbRedis "github.com/kailas-cloud/askdex/internal/db/redis"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	logpkg "github.com/kailas-cloud/askdex/internal/logger"
	"github.com/kailas-cloud/askdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/askdex/internal/repository/budget"
	conceptrepo "github.com/kailas-cloud/askdex/internal/repository/concept"
	"github.com/kailas-cloud/askdex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/askdex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/askdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/askdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/askdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
	"github.com/kailas-cloud/askdex/internal/usecase/ranking"
	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
	"github.com/kailas-cloud/askdex/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting askdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAnswerMetrics()

	if cfg.Index.EnsureOnStart {
		ensureIndexes(ctx, store, &cfg, logger)
	}

	// Single BudgetTracker shared by the embedder chain and the usage report.
	budget := buildBudget(ctx, &cfg, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	embedder := buildEmbedder(&cfg, store, budgetChecker, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	synthesizer := openaiTransport.NewSynthesizer(&openaiTransport.SynthesizerConfig{
		APIKey:      cfg.Synthesis.APIKey,
		BaseURL:     cfg.Synthesis.BaseURL,
		Model:       cfg.Synthesis.Model,
		Temperature: cfg.Synthesis.Temperature,
		MaxTokens:   cfg.Synthesis.MaxTokens,
		Logger:      logger,
	})

	searchRepo := searchrepo.New(store, searchrepo.WithEFRuntime(cfg.Retrieval.EFRuntime))
	conceptRepo := conceptrepo.New(store)

	answerSvc, err := answeruc.New(
		answerConfig(&cfg), embedder, searchRepo, synthesizer, logger,
		answeruc.WithConceptResolver(conceptRepo),
	)
	if err != nil {
		logger.Fatal("Invalid answer pipeline configuration", zap.Error(err))
	}
	defer answerSvc.Close()

	healthSvc := healthuc.New(store,
		healthuc.WithEmbedding(newEmbeddingHealthChecker(embedder)),
		healthuc.WithSynthesis(synthesizer),
	)
	usageSvc := usageuc.New(budgetReader)

	server := chiTransport.NewServer(answerSvc, healthSvc, usageSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// answerConfig maps the file configuration onto the pipeline configuration.
func answerConfig(cfg *config.Config) answeruc.Config {
	specs := make([]answeruc.PartitionSpec, 0, len(cfg.Partitions))
	for _, pc := range cfg.Partitions {
		specs = append(specs, answeruc.PartitionSpec{
			Partition:   partition.Partition(pc.Name),
			Weight:      pc.Weight,
			TopK:        pc.TopK,
			Description: pc.Description,
		})
	}

	rc := cfg.Ranking
	return answeruc.Config{
		Partitions: specs,
		Tuning: ranking.Tuning{
			HighThreshold:      deref(rc.HighThreshold),
			MediumThreshold:    deref(rc.MediumThreshold),
			LowThreshold:       deref(rc.LowThreshold),
			ClusterWindow:      deref(rc.ClusterWindow),
			ClusterStdDevBound: deref(rc.ClusterStdDevBound),
			ClusterBonus:       deref(rc.ClusterBonus),
			CandidateRatio:     deref(rc.CandidateRatio),
			PartitionCap:       deref(rc.PartitionCap),
			MaxResults:         deref(rc.MaxResults),
		},
		PartitionTimeout: cfg.PartitionTimeout(),
		Workers:          cfg.Retrieval.Workers,
		SummaryMaxChars:  cfg.Answer.SummaryMaxChars,
	}
}

// deref reads a defaulted config value. ApplyDefaults leaves no ranking field nil.
func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ensureIndexes creates missing partition indexes. Failures are logged, not fatal:
// a missing index only makes its partition come back empty.
func ensureIndexes(ctx context.Context, store db.IndexManager, cfg *config.Config, logger *zap.Logger) {
	statuses, err := searchrepo.EnsureIndexes(ctx, store, cfg.PartitionNames(), cfg.Embedding.Dimensions,
		searchrepo.HNSW{M: cfg.Index.HNSWM, EFConstruction: cfg.Index.HNSWEFConstruct}, false)
	for _, st := range statuses {
		logger.Info("Partition index ready",
			zap.String("partition", st.Partition.String()),
			zap.String("index", st.Index),
			zap.Bool("created", st.Created),
		)
	}
	if err != nil {
		logger.Error("Failed to ensure partition indexes", zap.Error(err))
	}
}

// embeddingHealthChecker adapts domain.Embedder to health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildBudget returns nil when no limit is configured.
func buildBudget(
	ctx context.Context, cfg *config.Config, store db.KVStore, logger *zap.Logger,
) *embeddinguc.BudgetTracker {
	bc := cfg.Embedding.Budget
	if bc.DailyTokenLimit <= 0 && bc.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := embeddinguc.BudgetActionWarn
	if bc.Action == "reject" {
		action = embeddinguc.BudgetActionReject
	}
	budget := embeddinguc.NewBudgetTracker(
		cfg.Embedding.Provider, bc.DailyTokenLimit, bc.MonthlyTokenLimit, action, logger,
	)
	// Connect persistence store, loads current counters from DB.
	budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	return budget
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg *config.Config, store db.KVStore, budget embeddinguc.BudgetChecker, logger *zap.Logger,
) domain.Embedder {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		User:       ec.User,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if ec.Cache.Enabled {
		embedder = embcache.New(base, store, ec.Model,
			time.Duration(ec.Cache.TTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, budget, logger)

	// Instruction prefix (outermost, cache key includes instruction)
	if ec.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logpkg.FromContextOr(r.Context(), logger).Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if id := ww.Header().Get("X-Answer-ID"); id != "" {
				fields = append(fields, zap.String("answer_id", id))
			}
			if tokens := ww.Header().Get("X-Embedding-Tokens"); tokens != "" {
				fields = append(fields, zap.String("embedding_tokens", tokens))
			}

			// Canonical log line, one per request
			reqLogger.Info("http_request", fields...)
		})
	}
}
