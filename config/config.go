package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the query service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string  `yaml:"host"`
	Port            int     `yaml:"port"`
	ReadTimeoutSec  int     `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int     `yaml:"write_timeout_seconds"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // 0 disables limiting
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// StoreConfig selects the chunk store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory", "bolt", "sqlite"
	Path    string `yaml:"path"`    // database file for bolt/sqlite, relative to the data dir
	Seed    string `yaml:"seed"`    // optional YAML chunk file loaded at startup
}

// RetrieveConfig holds ranking configuration.
type RetrieveConfig struct {
	DefaultMaxSources int `yaml:"default_max_sources"`
	CacheSize         int `yaml:"cache_size"` // 0 disables the evidence cache
	CacheTTLSeconds   int `yaml:"cache_ttl_seconds"`
}

// SynthesisConfig holds answer generator configuration.
type SynthesisConfig struct {
	Provider       string  `yaml:"provider"` // "ollama", "anthropic", "echo"
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"` // Environment variable for API key
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"` // used when a request does not set maxTokens
	Temperature    float64 `yaml:"temperature"`
}

// IngestConfig holds document ingestion configuration.
type IngestConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkTokens  int      `yaml:"chunk_tokens"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	BaseURL      string   `yaml:"base_url"` // prefix for chunk URLs; empty leaves URLs absent
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 30,
			RateLimitRPS:    0,
			RateLimitBurst:  10,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Path:    "chunks.db",
		},
		Retrieve: RetrieveConfig{
			DefaultMaxSources: 10,
			CacheSize:         100,
			CacheTTLSeconds:   300,
		},
		Synthesis: SynthesisConfig{
			Provider:       "ollama",
			Model:          "llama3.2:1b",
			BaseURL:        "http://localhost:11434",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			TimeoutSeconds: 10,
		},
		Ingest: IngestConfig{
			Includes:     []string{"**/*.md", "**/*.txt", "**/*.html", "**/*.htm", "**/*.pdf"},
			Excludes:     []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/.ragquery/**"},
			ChunkTokens:  256,
			ChunkOverlap: 32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragquery.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragquery.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragquery", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SynthesisTimeout returns the generator call budget.
func (c *Config) SynthesisTimeout() time.Duration {
	if c.Synthesis.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Synthesis.TimeoutSeconds) * time.Second
}

// CacheTTL returns the evidence cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Retrieve.CacheTTLSeconds) * time.Second
}

// DataDir returns the directory holding store files.
func DataDir(dir string) string {
	return filepath.Join(dir, ".ragquery")
}

// StorePath resolves the configured store file against the data directory.
func StorePath(dir string, cfg *Config) string {
	if filepath.IsAbs(cfg.Store.Path) {
		return cfg.Store.Path
	}
	return filepath.Join(DataDir(dir), cfg.Store.Path)
}

// EnsureDataDir ensures the .ragquery directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}
