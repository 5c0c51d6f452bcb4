package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Search backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

// Config holds the ragquery service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
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
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Redis connection used for history, the embedding
// cache and (with the redis backend) vector search.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig selects the vector search backend.
type SearchConfig struct {
	Backend        string         `yaml:"backend"` // redis (default), postgres, qdrant
	DistanceMetric string         `yaml:"distance_metric"`
	Postgres       PostgresConfig `yaml:"postgres"`
	Qdrant         QdrantConfig   `yaml:"qdrant"`
}

// PostgresConfig holds pgvector settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	ChunksTable  string `yaml:"chunks_table"`
	DocsTable    string `yaml:"documents_table"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// QdrantConfig holds Qdrant gRPC settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// IndexConfig holds Redis HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider         string      `yaml:"provider"` // metrics label
	BaseURL          string      `yaml:"base_url"`
	APIKey           string      `yaml:"api_key"`
	Model            string      `yaml:"model"`
	Dimensions       int         `yaml:"dimensions"`
	QueryInstruction string      `yaml:"query_instruction"`
	Cache            CacheConfig `yaml:"cache"`
}

// CacheConfig controls the query embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// RerankerConfig holds the reranker service settings.
type RerankerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	API        string `yaml:"api"` // tei (default) or cohere request format
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
	BatchSize  int    `yaml:"batch_size"` // 0 = one request per query
}

// LLMConfig holds the OpenAI-compatible chat completion settings.
type LLMConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Provider   string `yaml:"provider"` // derived from base_url when empty
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// RAGConfig holds pipeline defaults and scoring policy.
type RAGConfig struct {
	TopKInitial        int      `yaml:"top_k_initial"`
	TopKFinal          int      `yaml:"top_k_final"`
	MinConfidence      *float64 `yaml:"min_confidence"`
	Temperature        *float64 `yaml:"temperature"`
	RelevanceFloor     *float64 `yaml:"relevance_floor"`
	RerankWeight       float64  `yaml:"rerank_weight"`
	CitationWeight     float64  `yaml:"citation_weight"`
	UncertaintyPenalty float64  `yaml:"uncertainty_penalty"`
	BaseConfidence     float64  `yaml:"base_confidence"`
	UncertaintyPhrases []string `yaml:"uncertainty_phrases"`
	Workers            int      `yaml:"workers"`
}

// HistoryConfig holds query history settings.
type HistoryConfig struct {
	TTLSec          int `yaml:"ttl_sec"` // 0 = keep forever
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
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

func floatPtr(v float64) *float64 { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// generation alone may take the full LLM timeout
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.Backend == "" {
		c.Search.Backend = BackendRedis
	}
	if c.Search.DistanceMetric == "" {
		c.Search.DistanceMetric = "cosine"
	}
	if c.Search.Postgres.ChunksTable == "" {
		c.Search.Postgres.ChunksTable = "chunks"
	}
	if c.Search.Postgres.DocsTable == "" {
		c.Search.Postgres.DocsTable = "documents"
	}
	if c.Search.Postgres.MaxOpenConns <= 0 {
		c.Search.Postgres.MaxOpenConns = 10
	}
	if c.Search.Qdrant.Port <= 0 {
		c.Search.Qdrant.Port = 6334
	}
	if c.Search.Qdrant.Collection == "" {
		c.Search.Qdrant.Collection = "chunks"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-m3"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Reranker.TimeoutSec <= 0 {
		c.Reranker.TimeoutSec = 30
	}
	if c.Reranker.API == "" {
		c.Reranker.API = "tei"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 90
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DetectLLMProvider(c.LLM.BaseURL)
	}
	c.applyRAGDefaults()
	if c.History.DefaultPageSize <= 0 {
		c.History.DefaultPageSize = 10
	}
	if c.History.MaxPageSize <= 0 {
		c.History.MaxPageSize = 100
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "ragquery"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragq:"
	}
}

func (c *Config) applyRAGDefaults() {
	r := &c.RAG
	if r.TopKInitial <= 0 {
		r.TopKInitial = 30
	}
	if r.TopKFinal <= 0 {
		r.TopKFinal = 7
	}
	if r.MinConfidence == nil {
		r.MinConfidence = floatPtr(0.70)
	}
	if r.Temperature == nil {
		r.Temperature = floatPtr(0.3)
	}
	if r.RelevanceFloor == nil {
		r.RelevanceFloor = floatPtr(0.7)
	}
	if r.RerankWeight == 0 && r.CitationWeight == 0 {
		r.RerankWeight, r.CitationWeight = 0.6, 0.4
	}
	if r.UncertaintyPenalty == 0 {
		r.UncertaintyPenalty = 0.4
	}
	if r.BaseConfidence == 0 {
		r.BaseConfidence = 0.3
	}
	if len(r.UncertaintyPhrases) == 0 {
		r.UncertaintyPhrases = []string{"not found", "не найдено", "недостаточно информации"}
	}
	if r.Workers <= 0 {
		r.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Search.Backend {
	case BackendRedis:
	case BackendPostgres:
		if c.Search.Postgres.DSN == "" {
			return fmt.Errorf("search.postgres.dsn is required for the postgres backend")
		}
	case BackendQdrant:
		if c.Search.Qdrant.Host == "" {
			return fmt.Errorf("search.qdrant.host is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("search.backend must be redis, postgres or qdrant, got %q", c.Search.Backend)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		return fmt.Errorf("llm.base_url and llm.model are required")
	}
	if c.Reranker.Enabled && c.Reranker.URL == "" {
		return fmt.Errorf("reranker.url is required when reranker.enabled is true")
	}
	if c.Reranker.API != "tei" && c.Reranker.API != "cohere" {
		return fmt.Errorf("reranker.api must be tei or cohere, got %q", c.Reranker.API)
	}
	if c.Reranker.BatchSize < 0 {
		return fmt.Errorf("reranker.batch_size must be >= 0, got %d", c.Reranker.BatchSize)
	}
	return c.RAG.validate()
}

func (r *RAGConfig) validate() error {
	if r.TopKInitial > 100 {
		return fmt.Errorf("rag.top_k_initial must be between 1 and 100, got %d", r.TopKInitial)
	}
	if r.TopKFinal > 20 {
		return fmt.Errorf("rag.top_k_final must be between 1 and 20, got %d", r.TopKFinal)
	}
	for name, v := range map[string]float64{
		"rag.min_confidence":  deref(r.MinConfidence),
		"rag.temperature":     deref(r.Temperature),
		"rag.relevance_floor": deref(r.RelevanceFloor),
		"rag.base_confidence": r.BaseConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
	}
	if math.Abs(r.RerankWeight+r.CitationWeight-1) > 1e-9 {
		return fmt.Errorf("rag.rerank_weight + rag.citation_weight must equal 1, got %g",
			r.RerankWeight+r.CitationWeight)
	}
	if r.UncertaintyPenalty < 0 {
		return fmt.Errorf("rag.uncertainty_penalty must be >= 0, got %g", r.UncertaintyPenalty)
	}
	return nil
}

// DetectLLMProvider names the provider from the API base URL.
func DetectLLMProvider(baseURL string) string {
	if strings.Contains(baseURL, "openrouter") {
		return "openrouter"
	}
	return "lmstudio"
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
