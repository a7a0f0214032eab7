package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	Dimension         int     `yaml:"dimension"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects the text embedder: "hashing" (local) or "openai".
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig sets the character window and overlap used to split documents.
// An absent overlap defaults to a tenth of the window.
type ChunkerConfig struct {
	Window  int `yaml:"window"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// OpenAIChatConfig configures the OpenAI-compatible chat completions generator.
type OpenAIChatConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
}

// GenerationConfig selects the answer generator: "extractive" (offline) or "openai".
type GenerationConfig struct {
	Type         string            `yaml:"type"`
	MaxSentences int               `yaml:"max_sentences"`
	OpenAI       *OpenAIChatConfig `yaml:"openai,omitempty"`
	Retry        RetryConfig       `yaml:"retry"`
}

type CoordinatorConfig struct {
	MaxInFlight      int `yaml:"max_in_flight"`
	TraceTimeoutSecs int `yaml:"trace_timeout_secs"`
}

// IngestConfig controls batch file ingestion.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Generation  GenerationConfig  `yaml:"generation"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Log         LogConfig         `yaml:"log"`
}

// TraceTimeout returns the coordinator trace timeout as a duration.
func (c *AppConfig) TraceTimeout() time.Duration {
	return time.Duration(c.Coordinator.TraceTimeoutSecs) * time.Second
}

// Validate reports settings that cannot work together.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Chunker.Window <= 0 {
		errs = append(errs, fmt.Errorf("chunker.window must be positive, got %d", c.Chunker.Window))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Window {
		errs = append(errs, fmt.Errorf("chunker.overlap must be in [0, window), got %d", c.Chunker.Overlap))
	}
	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedder.type %q is not one of hashing, openai", c.Embedder.Type))
	}
	switch c.Generation.Type {
	case "extractive", "openai":
	default:
		errs = append(errs, fmt.Errorf("generation.type %q is not one of extractive, openai", c.Generation.Type))
	}
	if c.Coordinator.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("coordinator.max_in_flight must be positive, got %d", c.Coordinator.MaxInFlight))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// overlap: 0 is meaningful, so only an absent key gets the default.
	var present struct {
		Chunker struct {
			Overlap *int `yaml:"overlap"`
		} `yaml:"chunker"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if present.Chunker.Overlap == nil {
		cfg.Chunker.Overlap = defaultOverlap(cfg.Chunker.Window)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/agentrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/agentrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "agentrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	cfg.Chunker.Overlap = defaultOverlap(cfg.Chunker.Window)
	return cfg
}

// defaultOverlap is a tenth of the window: 100 for the default window of 1000.
func defaultOverlap(window int) int {
	return window / 10
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.Dimension == 0 {
			o.Dimension = 1536
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
	}

	if cfg.Chunker.Window == 0 {
		cfg.Chunker.Window = 1000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}

	if cfg.Generation.Type == "" {
		cfg.Generation.Type = "extractive"
	}
	if cfg.Generation.MaxSentences == 0 {
		cfg.Generation.MaxSentences = 3
	}
	if cfg.Generation.Type == "openai" {
		if cfg.Generation.OpenAI == nil {
			cfg.Generation.OpenAI = &OpenAIChatConfig{}
		}
		o := cfg.Generation.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-3.5-turbo"
		}
		if o.Temperature == 0 {
			o.Temperature = 0.7
		}
		if o.MaxTokens == 0 {
			o.MaxTokens = 500
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 120
		}
	}
	r := &cfg.Generation.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialDelayMs == 0 {
		r.InitialDelayMs = 500
	}
	if r.MaxDelayMs == 0 {
		r.MaxDelayMs = 10000
	}

	if cfg.Coordinator.MaxInFlight == 0 {
		cfg.Coordinator.MaxInFlight = 16
	}
	if cfg.Coordinator.TraceTimeoutSecs == 0 {
		cfg.Coordinator.TraceTimeoutSecs = 120
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}
