// Package config loads the sidebot configuration: YAML file, defaults, then
// environment overrides, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"sidebot/internal/provider"
)

// Config holds all sidebot configuration.
type Config struct {
	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Dataset loading
	Dataset DatasetConfig `yaml:"dataset"`

	// Offline evaluation
	Eval EvalConfig `yaml:"eval"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the chat provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // anthropic, gemini, openai
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DatasetConfig configures the CSV dataset load.
type DatasetConfig struct {
	Path  string `yaml:"path"`
	Table string `yaml:"table"`
}

// EvalConfig configures the offline evaluation run.
type EvalConfig struct {
	CasesPath   string `yaml:"cases_path"`
	Concurrency int    `yaml:"concurrency"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "anthropic",
			Timeout:   "2m",
			MaxTokens: 4096,
		},
		Dataset: DatasetConfig{
			Path:  "alabama_birds_demo.csv",
			Table: "birds",
		},
		Eval: EvalConfig{
			CasesPath:   "eval-datasets/update_dashboard.csv",
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("SIDEBOT_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if m := os.Getenv("SIDEBOT_MODEL"); m != "" {
		c.LLM.Model = m
	}
	if u := os.Getenv("SIDEBOT_BASE_URL"); u != "" {
		c.LLM.BaseURL = u
	}
	if p := os.Getenv("SIDEBOT_DATASET"); p != "" {
		c.Dataset.Path = p
	}
	if n := os.Getenv("SIDEBOT_EVAL_CONCURRENCY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			c.Eval.Concurrency = v
		}
	}

	c.ResolveAPIKey()
}

// ResolveAPIKey fills the key from the environment variable matching the
// selected provider. An explicit key, from file or flag, wins. Called again
// after flag overrides change the provider.
func (c *Config) ResolveAPIKey() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "anthropic":
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	case "openai":
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// GetLLMTimeout parses the configured timeout, defaulting to 2 minutes.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// ProviderOptions maps the LLM section to provider client options.
func (c *Config) ProviderOptions() provider.Options {
	return provider.Options{
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		Timeout:     c.GetLLMTimeout(),
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
	}
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "gemini", "openai":
	default:
		return fmt.Errorf("unknown provider: %s", c.LLM.Provider)
	}
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset path is required")
	}
	if c.Dataset.Table == "" {
		return fmt.Errorf("dataset table name is required")
	}
	return nil
}
