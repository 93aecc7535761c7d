package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the jobmatch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Index      IndexConfig      `yaml:"index"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
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

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	WriteTimeoutSec  int      `yaml:"write_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and its decorators.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"` // metrics label
	APIKey              string      `yaml:"api_key"`
	BaseURL             string      `yaml:"base_url"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"`
	DocumentInstruction string      `yaml:"document_instruction"`
	QueryInstruction    string      `yaml:"query_instruction"`
	TimeoutSec          int         `yaml:"timeout_sec"`
	MaxBatchSize        int         `yaml:"max_batch_size"`
	Cache               CacheConfig `yaml:"cache"`
}

// CacheConfig controls the Redis embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 keeps entries forever
}

// Classifier types.
const (
	ClassifierCentroid = "centroid"
	ClassifierHTTP     = "http"
	ClassifierNone     = "none"
)

// ClassifierConfig selects the domain classifier.
type ClassifierConfig struct {
	Type        string  `yaml:"type"` // centroid (default), http, none
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	Temperature float64 `yaml:"temperature"`
}

// RankingConfig tunes hybrid retrieval and re-ranking. Alpha and Beta are
// pointers so an explicit 0 survives ApplyDefaults.
type RankingConfig struct {
	KLex                 int      `yaml:"k_lex"`
	KVec                 int      `yaml:"k_vec"`
	PoolSize             int      `yaml:"pool_size"`
	Alpha                *float64 `yaml:"alpha"`
	Beta                 *float64 `yaml:"beta"`
	MaxPerDomain         int      `yaml:"max_per_domain"`
	RetrievalTimeoutMs   int      `yaml:"retrieval_timeout_ms"`
	MinDomainScore       float64  `yaml:"min_domain_score"`
	BonusMode            string   `yaml:"bonus_mode"` // primary, distribution
	Results              int      `yaml:"results"`
	LexicalQueryMaxChars int      `yaml:"lexical_query_max_chars"`
	MaxResumeBytes       int      `yaml:"max_resume_bytes"`
}

// Index backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// IndexConfig selects the corpus index backend.
type IndexConfig struct {
	Backend            string `yaml:"backend"` // memory (default), redis
	RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
	HNSWM              int    `yaml:"hnsw_m"`
	HNSWEFConstruct    int    `yaml:"hnsw_ef_construction"`
}

// IngestConfig paces corpus ingestion.
type IngestConfig struct {
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unpaced
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration for an environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func defaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	defaultInt(&c.HTTP.ReadTimeoutSec, 10)
	defaultInt(&c.HTTP.WriteTimeoutSec, 30)
	defaultInt(&c.HTTP.ShutdownSec, 10)
	defaultInt(&c.Database.ReadinessTimeout, 10)

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	defaultInt(&c.Embedding.Dimensions, 1536)
	defaultInt(&c.Embedding.TimeoutSec, 10)
	defaultInt(&c.Embedding.MaxBatchSize, 256)

	if c.Classifier.Type == "" {
		c.Classifier.Type = ClassifierCentroid
	}
	defaultInt(&c.Classifier.TimeoutMs, 300)
	if c.Classifier.Temperature <= 0 {
		c.Classifier.Temperature = 0.05
	}

	r := &c.Ranking
	defaultInt(&r.KLex, 50)
	defaultInt(&r.KVec, 50)
	defaultInt(&r.PoolSize, 30)
	defaultInt(&r.MaxPerDomain, 4)
	defaultInt(&r.RetrievalTimeoutMs, 500)
	defaultInt(&r.Results, 10)
	defaultInt(&r.LexicalQueryMaxChars, 500)
	defaultInt(&r.MaxResumeBytes, 64<<10)
	if r.Alpha == nil {
		r.Alpha = ptr(0.5)
	}
	if r.Beta == nil {
		r.Beta = ptr(0.2)
	}
	if r.BonusMode == "" {
		r.BonusMode = "primary"
	}

	if c.Index.Backend == "" {
		c.Index.Backend = BackendMemory
	}
	defaultInt(&c.Index.RefreshIntervalSec, 30)
	defaultInt(&c.Index.HNSWM, 16)
	defaultInt(&c.Index.HNSWEFConstruct, 200)

	defaultInt(&c.Ingest.BatchSize, 64)

	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "jobmatch:"
	}
}

func ptr[T any](v T) *T { return &v }

// Validate checks the configuration for correctness.
// Ranking ranges are checked again by the pipeline services.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Classifier.Type {
	case ClassifierCentroid, ClassifierNone:
	case ClassifierHTTP:
		if c.Classifier.BaseURL == "" {
			return fmt.Errorf("classifier.base_url is required for type %q", ClassifierHTTP)
		}
	default:
		return fmt.Errorf("classifier.type must be centroid, http or none, got %q", c.Classifier.Type)
	}
	switch c.Index.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("index.backend must be memory or redis, got %q", c.Index.Backend)
	}
	if a := *c.Ranking.Alpha; a < 0 || a > 1 {
		return fmt.Errorf("ranking.alpha must be in [0,1], got %v", a)
	}
	if b := *c.Ranking.Beta; b < 0 {
		return fmt.Errorf("ranking.beta must be non-negative, got %v", b)
	}
	switch c.Ranking.BonusMode {
	case "primary", "distribution":
	default:
		return fmt.Errorf("ranking.bonus_mode must be primary or distribution, got %q", c.Ranking.BonusMode)
	}
	if c.Ingest.RequestsPerSecond < 0 {
		return fmt.Errorf("ingest.requests_per_second must be non-negative")
	}
	return nil
}

// RetrievalTimeout is the per-channel retrieval deadline.
func (r RankingConfig) RetrievalTimeout() time.Duration {
	return time.Duration(r.RetrievalTimeoutMs) * time.Millisecond
}

// RefreshInterval is the corpus version polling period.
func (i IndexConfig) RefreshInterval() time.Duration {
	return time.Duration(i.RefreshIntervalSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and go run
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
