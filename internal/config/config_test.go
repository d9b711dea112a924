package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "birds", cfg.Dataset.Table)
	assert.Equal(t, 4, cfg.Eval.Concurrency)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  model: gpt-4.1-mini
  timeout: 30s
dataset:
  path: /data/birds.csv
  table: sightings
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, "/data/birds.csv", cfg.Dataset.Path)
	assert.Equal(t, "sightings", cfg.Dataset.Table)
	// Unset sections keep defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIDEBOT_PROVIDER", "gemini")
	t.Setenv("SIDEBOT_MODEL", "gemini-2.5-flash")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.applyEnvOverrides()
	assert.Equal(t, "openai-key", cfg.LLM.APIKey)
}

func TestFileKeyBeatsEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "file-key"
	cfg.applyEnvOverrides()
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
}

func TestGetLLMTimeoutFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "not a duration"
	assert.Equal(t, 2*time.Minute, cfg.GetLLMTimeout())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "cohere"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Dataset.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestProviderOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.LLM.Model = "m"
	cfg.LLM.MaxTokens = 1024

	opts := cfg.ProviderOptions()
	assert.Equal(t, "k", opts.APIKey)
	assert.Equal(t, "m", opts.Model)
	assert.Equal(t, 1024, opts.MaxTokens)
	assert.Equal(t, 2*time.Minute, opts.Timeout)
}
