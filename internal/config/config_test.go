package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Categorizer.ChunkSize)
	assert.Equal(t, 2, cfg.Categorizer.MaxRetryCount)
	assert.Equal(t, 500*time.Millisecond, cfg.Categorizer.ChunkDelay)
	assert.Equal(t, time.Second, cfg.Categorizer.RetryDelay)
	assert.Equal(t, ";", cfg.Categorizer.Delimiter)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SURVEY_TEST_KEY", "secret")
	path := writeConfig(t, `
llm:
  provider: openai
  base_url: https://openrouter.ai/api/v1
  key: ${SURVEY_TEST_KEY}
categorizer:
  chunk_size: 10
  retry_delay: 250ms
audit:
  dsn: postgres://localhost/survey
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "secret", cfg.LLM.Key)
	assert.Equal(t, 10, cfg.Categorizer.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Categorizer.RetryDelay)
	// unset keys keep their defaults
	assert.Equal(t, 2, cfg.Categorizer.MaxRetryCount)
	assert.Equal(t, 500*time.Millisecond, cfg.Categorizer.ChunkDelay)
	assert.Equal(t, "postgres://localhost/survey", cfg.Audit.DSN)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown provider", body: "llm:\n  provider: bard\n"},
		{name: "zero chunk size", body: "categorizer:\n  chunk_size: 0\n"},
		{name: "zero retries", body: "categorizer:\n  max_retry_count: 0\n"},
		{name: "negative delay", body: "categorizer:\n  chunk_delay: -1s\n"},
		{name: "empty delimiter", body: "categorizer:\n  delimiter: \"\"\n"},
		{name: "malformed yaml", body: "llm: [\n"},
		{name: "audit dsn without scheme", body: "audit:\n  dsn: localhost:5432/survey\n"},
		{name: "audit dsn wrong scheme", body: "audit:\n  dsn: mysql://root@localhost/survey\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, found, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Default(), cfg)

	cfg, found, err = LoadOrDefault(writeConfig(t, "categorizer:\n  chunk_size: 3\n"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, cfg.Categorizer.ChunkSize)
}
