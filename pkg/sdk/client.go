package askdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/db"
	dbRedis "github.com/kailas-cloud/askdex/internal/db/redis"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	conceptrepo "github.com/kailas-cloud/askdex/internal/repository/concept"
	searchrepo "github.com/kailas-cloud/askdex/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/askdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/askdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
	"github.com/kailas-cloud/askdex/internal/usecase/ranking"
	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultDimensions       = 1536
	defaultChatModel        = "gpt-4o-mini"
	defaultHNSWM            = 16
	defaultHNSWEF           = 200
)

// Client is the askdex SDK entry point.
type Client struct {
	store     db.Store
	indexes   db.IndexManager
	answers   answerUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	vectorDim int
	hnsw      searchrepo.HNSW
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	cfg.applyDefaults()

	if len(cfg.addrs) == 0 {
		return nil, errors.New("askdex: database address required (use WithRedis)")
	}
	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("askdex: embedding provider required (use WithOpenAI or WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("askdex: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("askdex: database not ready: %w", err)
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func (cfg *clientConfig) applyDefaults() {
	if cfg.embeddingModel == "" {
		cfg.embeddingModel = defaultEmbeddingModel
	}
	if cfg.vectorDimensions <= 0 {
		cfg.vectorDimensions = defaultDimensions
	}
	if cfg.chatModel == "" {
		cfg.chatModel = defaultChatModel
	}
	if cfg.hnswM <= 0 {
		cfg.hnswM = defaultHNSWM
	}
	if cfg.hnswEF <= 0 {
		cfg.hnswEF = defaultHNSWEF
	}
}

// partitionSpecs converts the configured partitions, falling back to the stock set.
func (cfg *clientConfig) partitionSpecs() ([]answeruc.PartitionSpec, error) {
	if len(cfg.partitions) == 0 {
		return answeruc.DefaultPartitions(), nil
	}
	specs := make([]answeruc.PartitionSpec, 0, len(cfg.partitions))
	for _, pc := range cfg.partitions {
		p, err := partition.Parse(pc.Name)
		if err != nil {
			return nil, fmt.Errorf("askdex: %w", err)
		}
		desc := pc.Description
		if desc == "" {
			desc = pc.Name
		}
		specs = append(specs, answeruc.PartitionSpec{
			Partition:   p,
			Weight:      pc.Weight,
			TopK:        pc.TopK,
			Description: desc,
		})
	}
	return specs, nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	specs, err := cfg.partitionSpecs()
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()

	action := embeddinguc.BudgetActionWarn
	if cfg.rejectOver {
		action = embeddinguc.BudgetActionReject
	}
	budget := embeddinguc.NewBudgetTracker("sdk", cfg.dailyTokens, cfg.monthlyTokens, action, logger)

	var base domain.Embedder
	if cfg.embedder != nil {
		base = &embedderAdapter{inner: cfg.embedder}
	} else {
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.vectorDimensions,
			Provider:   "openai",
			Logger:     logger,
		})
	}
	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		base, "sdk", cfg.embeddingModel, budget, logger,
	)
	if cfg.queryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.queryInstruction)
	}

	healthOpts := []healthuc.Option{}
	if hc, ok := base.(domain.HealthChecker); ok {
		healthOpts = append(healthOpts, healthuc.WithEmbedding(hc))
	}

	var synth answeruc.Synthesizer
	if cfg.synthesizer != nil {
		synth = &synthesizerAdapter{inner: cfg.synthesizer, describe: describer(specs)}
	} else {
		s := openaiTransport.NewSynthesizer(&openaiTransport.SynthesizerConfig{
			APIKey:      cfg.apiKey,
			BaseURL:     cfg.baseURL,
			Model:       cfg.chatModel,
			Temperature: cfg.temperature,
			MaxTokens:   cfg.maxTokens,
			Logger:      logger,
		})
		synth = s
		healthOpts = append(healthOpts, healthuc.WithSynthesis(s))
	}

	answers, err := answeruc.New(
		answeruc.Config{Partitions: specs, Tuning: ranking.DefaultTuning()},
		embedder,
		searchrepo.New(store, searchrepo.WithEFRuntime(cfg.efRuntime)),
		synth,
		logger,
		answeruc.WithConceptResolver(conceptrepo.New(store)),
	)
	if err != nil {
		return nil, fmt.Errorf("askdex: %w", err)
	}

	return &Client{
		store:     store,
		indexes:   store,
		answers:   answers,
		healthSvc: healthuc.New(store, healthOpts...),
		usageSvc:  usageuc.New(budget),
		vectorDim: cfg.vectorDimensions,
		hnsw:      searchrepo.HNSW{M: cfg.hnswM, EFConstruction: cfg.hnswEF},
		obs:       obs,
	}, nil
}

func describer(specs []answeruc.PartitionSpec) func(string) string {
	labels := make(map[string]string, len(specs))
	for _, ps := range specs {
		labels[ps.Partition.String()] = ps.Description
	}
	return func(p string) string {
		if d, ok := labels[p]; ok {
			return d
		}
		return p
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.answers != nil {
		c.answers.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
