package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/askdex/internal/domain/partition"
)

// Config holds the askdex configuration.
type Config struct {
	HTTP       HTTPConfig        `yaml:"http"`
	Database   DatabaseConfig    `yaml:"database"`
	Embedding  EmbeddingConfig   `yaml:"embedding"`
	Synthesis  SynthesisConfig   `yaml:"synthesis"`
	Partitions []PartitionConfig `yaml:"partitions"`
	Ranking    RankingConfig     `yaml:"ranking"`
	Retrieval  RetrievalConfig   `yaml:"retrieval"`
	Answer     AnswerConfig      `yaml:"answer"`
	Index      IndexConfig       `yaml:"index"`
	Auth       AuthConfig        `yaml:"auth"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // must cover embedding + search + synthesis
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds connection settings for the Redis-compatible store.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds question embedding settings.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"` // label for metrics and budget keys
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	User             string       `yaml:"user"`
	Cache            CacheConfig  `yaml:"cache"`
	Budget           BudgetConfig `yaml:"budget"`
}

// CacheConfig holds the query embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// SynthesisConfig holds chat completion settings.
type SynthesisConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// PartitionConfig configures one searched partition. List order is the tie-break order.
type PartitionConfig struct {
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	TopK        int     `yaml:"top_k"`
	Description string  `yaml:"description"`
}

// RankingConfig holds classification and selection thresholds. Unset keys take the
// default; an explicit 0 is kept.
type RankingConfig struct {
	HighThreshold      *float64 `yaml:"high_threshold"`
	MediumThreshold    *float64 `yaml:"medium_threshold"`
	LowThreshold       *float64 `yaml:"low_threshold"`
	ClusterWindow      *int     `yaml:"cluster_window"`
	ClusterStdDevBound *float64 `yaml:"cluster_std_dev_bound"`
	ClusterBonus       *float64 `yaml:"cluster_bonus"`
	CandidateRatio     *float64 `yaml:"candidate_ratio"`
	PartitionCap       *int     `yaml:"partition_cap"`
	MaxResults         *int     `yaml:"max_results"`
}

// RetrievalConfig holds partition fan-out settings.
type RetrievalConfig struct {
	PartitionTimeoutMs int `yaml:"partition_timeout_ms"`
	Workers            int `yaml:"workers"`    // 0 = unbounded
	EFRuntime          int `yaml:"ef_runtime"` // 0 = index default
}

// AnswerConfig holds answer packaging settings.
type AnswerConfig struct {
	SummaryMaxChars int `yaml:"summary_max_chars"`
}

// IndexConfig holds HNSW vector index settings.
type IndexConfig struct {
	HNSWM           int  `yaml:"hnsw_m"`
	HNSWEFConstruct int  `yaml:"hnsw_ef_construction"`
	EnsureOnStart   bool `yaml:"ensure_on_start"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = "warn"
	}
	if c.Synthesis.APIKey == "" {
		c.Synthesis.APIKey = c.Embedding.APIKey
	}
	if c.Synthesis.BaseURL == "" {
		c.Synthesis.BaseURL = c.Embedding.BaseURL
	}
	for i := range c.Partitions {
		if c.Partitions[i].TopK <= 0 {
			c.Partitions[i].TopK = 3
		}
		if c.Partitions[i].Description == "" {
			c.Partitions[i].Description = c.Partitions[i].Name
		}
	}
	c.Ranking.applyDefaults()
	if c.Retrieval.PartitionTimeoutMs <= 0 {
		c.Retrieval.PartitionTimeoutMs = 5000
	}
	if c.Answer.SummaryMaxChars <= 0 {
		c.Answer.SummaryMaxChars = 150
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
}

func (r *RankingConfig) applyDefaults() {
	setF := func(v **float64, d float64) {
		if *v == nil {
			*v = &d
		}
	}
	setI := func(v **int, d int) {
		if *v == nil {
			*v = &d
		}
	}
	setF(&r.HighThreshold, 0.8)
	setF(&r.MediumThreshold, 0.6)
	setF(&r.LowThreshold, 0.4)
	setI(&r.ClusterWindow, 3)
	setF(&r.ClusterStdDevBound, 0.1)
	setF(&r.ClusterBonus, 0.05)
	setF(&r.CandidateRatio, 0.8)
	setI(&r.PartitionCap, 2)
	setI(&r.MaxResults, 3)
}

// validate rejects negative or non-finite values. Ordering and limits are checked by
// the ranking tuning when the answer service is built.
func (r *RankingConfig) validate() error {
	floats := []struct {
		key string
		v   *float64
	}{
		{"high_threshold", r.HighThreshold},
		{"medium_threshold", r.MediumThreshold},
		{"low_threshold", r.LowThreshold},
		{"cluster_std_dev_bound", r.ClusterStdDevBound},
		{"cluster_bonus", r.ClusterBonus},
		{"candidate_ratio", r.CandidateRatio},
	}
	for _, f := range floats {
		if f.v == nil {
			continue
		}
		if !(*f.v >= 0) || math.IsInf(*f.v, 0) {
			return fmt.Errorf("ranking.%s must be a non-negative number, got %g", f.key, *f.v)
		}
	}

	ints := []struct {
		key string
		v   *int
	}{
		{"cluster_window", r.ClusterWindow},
		{"partition_cap", r.PartitionCap},
		{"max_results", r.MaxResults},
	}
	for _, i := range ints {
		if i.v != nil && *i.v < 0 {
			return fmt.Errorf("ranking.%s must be non-negative, got %d", i.key, *i.v)
		}
	}
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Embedding.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	if c.Synthesis.Model == "" {
		return errors.New("synthesis.model is required")
	}
	if c.Synthesis.Temperature < 0 || c.Synthesis.Temperature > 2 {
		return fmt.Errorf("synthesis.temperature must be in [0,2], got %g", c.Synthesis.Temperature)
	}
	if err := c.Ranking.validate(); err != nil {
		return err
	}
	return c.validatePartitions()
}

func (c *Config) validatePartitions() error {
	if len(c.Partitions) == 0 {
		return errors.New("partitions: at least one partition is required")
	}
	seen := make(map[partition.Partition]bool, len(c.Partitions))
	for i, pc := range c.Partitions {
		p, err := partition.Parse(pc.Name)
		if err != nil {
			return fmt.Errorf("partitions[%d]: %w", i, err)
		}
		if seen[p] {
			return fmt.Errorf("partitions[%d]: duplicate partition %q", i, p)
		}
		seen[p] = true
		if !(pc.Weight > 0) || math.IsInf(pc.Weight, 0) {
			return fmt.Errorf("partitions[%d]: weight for %q must be positive, got %g", i, p, pc.Weight)
		}
	}
	return nil
}

// PartitionTimeout returns the per-partition search timeout.
func (c *Config) PartitionTimeout() time.Duration {
	return time.Duration(c.Retrieval.PartitionTimeoutMs) * time.Millisecond
}

// PartitionNames returns the configured partitions in order. Call after Validate.
func (c *Config) PartitionNames() []partition.Partition {
	out := make([]partition.Partition, 0, len(c.Partitions))
	for _, pc := range c.Partitions {
		out = append(out, partition.Partition(pc.Name))
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
