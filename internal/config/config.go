package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultChunkSize     = 5
	DefaultMaxRetryCount = 2
	DefaultChunkDelay    = 500 * time.Millisecond
	DefaultRetryDelay    = time.Second
	DefaultDelimiter     = ";"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultLogLevel      = "info"
)

type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Categorizer CategorizerConfig `yaml:"categorizer"`
	Audit       AuditConfig       `yaml:"audit"`
	Log         LogConfig         `yaml:"log"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Temperature float64 `yaml:"temperature"`
	JSONFormat  bool    `yaml:"json_format"`
}

type CategorizerConfig struct {
	ChunkSize     int           `yaml:"chunk_size"`
	MaxRetryCount int           `yaml:"max_retry_count"`
	ChunkDelay    time.Duration `yaml:"chunk_delay"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	Delimiter     string        `yaml:"delimiter"`
}

// AuditConfig enables persisting diagnostic events to Postgres when DSN is set.
type AuditConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderOllama,
			BaseURL:  DefaultOllamaURL,
		},
		Categorizer: CategorizerConfig{
			ChunkSize:     DefaultChunkSize,
			MaxRetryCount: DefaultMaxRetryCount,
			ChunkDelay:    DefaultChunkDelay,
			RetryDelay:    DefaultRetryDelay,
			Delimiter:     DefaultDelimiter,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults.
// Environment references like ${OPENROUTER_KEY} are expanded first.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like LoadConfig but falls back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	if c.Categorizer.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1, got %d", c.Categorizer.ChunkSize)
	}
	if c.Categorizer.MaxRetryCount < 1 {
		return fmt.Errorf("max_retry_count must be at least 1, got %d", c.Categorizer.MaxRetryCount)
	}
	if c.Categorizer.ChunkDelay < 0 || c.Categorizer.RetryDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if c.Categorizer.Delimiter == "" {
		return errors.New("delimiter must not be empty")
	}
	if c.Audit.DSN != "" {
		u, err := url.Parse(c.Audit.DSN)
		if err != nil {
			return fmt.Errorf("invalid audit dsn: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("audit dsn must use the postgres scheme, got %q", u.Scheme)
		}
	}
	return nil
}
