package askdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// PartitionConfig configures one searched partition.
type PartitionConfig struct {
	Name        string
	Weight      float64
	TopK        int
	Description string
}

type clientConfig struct {
	addrs    []string
	username string
	password string

	apiKey  string
	baseURL string

	embedder         Embedder
	embeddingModel   string
	vectorDimensions int
	queryInstruction string

	synthesizer Synthesizer
	chatModel   string
	temperature float32
	maxTokens   int

	dailyTokens   int64
	monthlyTokens int64
	rejectOver    bool

	partitions []PartitionConfig
	hnswM      int
	hnswEF     int
	efRuntime  int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis or Valkey instance
// with the search module loaded.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithACLUser sets the ACL username used with the password from WithRedis.
func WithACLUser(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithOpenAI sets credentials for the OpenAI-compatible API used for
// embeddings and synthesis. An empty baseURL means api.openai.com.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithEmbeddingModel sets the embedding model and its vector dimension.
// Defaults to text-embedding-3-small with 1536 dimensions.
func WithEmbeddingModel(model string, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
		c.vectorDimensions = dim
	})
}

// WithQueryInstruction prefixes every question before it is embedded.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithEmbedder replaces the OpenAI embedder with a custom provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithChatModel sets the model that writes answers. Defaults to gpt-4o-mini.
func WithChatModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.chatModel = model
	})
}

// WithGeneration tunes sampling temperature and the answer token cap.
// Zero values keep the defaults (0.7 and 600).
func WithGeneration(temperature float32, maxTokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	})
}

// WithSynthesizer replaces the OpenAI chat synthesizer with a custom one.
func WithSynthesizer(s Synthesizer) Option {
	return optionFunc(func(c *clientConfig) {
		c.synthesizer = s
	})
}

// WithTokenBudget caps embedding tokens per UTC day and month. Zero disables a window.
// With reject set, questions over budget come back not found; otherwise a warning is logged.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
		c.rejectOver = reject
	})
}

// WithPartition adds a searched partition. Order of calls is the tie-break order.
// When never called, the stock faq, glossary, concept and textbook set is used.
func WithPartition(p PartitionConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.partitions = append(c.partitions, p)
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction) used by EnsureIndexes.
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEF = efConstruct
	})
}

// WithEFRuntime sets the HNSW query-time candidate list size. 0 keeps the index default.
func WithEFRuntime(ef int) Option {
	return optionFunc(func(c *clientConfig) {
		c.efRuntime = ef
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
