package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 10, cfg.Corpus.MaxDocs)
	assert.Equal(t, 5, cfg.Memory.Window)
	assert.Equal(t, 2, cfg.Retrieval.ContextDocs)
	assert.Equal(t, "Data about cricket", cfg.Retrieval.ContentDescription)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())
	require.NoError(t, cfg.Validate())
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/cricketbot.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "cohere", cfg.Embedding.Provider)
}

func TestLoad_ValidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cricketbot.yaml")
	content := `
chunking:
  size: 400
  overlap: 40
llm:
  provider: gemini
  model: gemini-2.5-flash
  timeout: 15s
store:
  backend: chroma
memory:
  backend: bolt
  path: /tmp/sessions.db
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 400, cfg.Chunking.Size)
	assert.Equal(t, 40, cfg.Chunking.Overlap)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "chroma", cfg.Store.Backend)
	assert.Equal(t, "bolt", cfg.Memory.Backend)
	// Unset keys keep their defaults.
	assert.Equal(t, 5, cfg.Memory.Window)
	assert.Equal(t, "Cricket and everything related to cricket", cfg.Corpus.Query)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cricketbot.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("chunking: [oops"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero memory window", func(c *Config) { c.Memory.Window = 0 }},
		{"zero max sessions", func(c *Config) { c.Memory.MaxSessions = 0 }},
		{"zero context docs", func(c *Config) { c.Retrieval.ContextDocs = 0 }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "voyage" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "claude" }},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "pgvector" }},
		{"unknown memory backend", func(c *Config) { c.Memory.Backend = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_OverlapLargerThanChunkIsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunking.Size = 10
	cfg.Chunking.Overlap = 20
	assert.NoError(t, cfg.Validate())
}

func TestSecret(t *testing.T) {
	t.Setenv("CRICKETBOT_TEST_KEY", "s3cret")
	assert.Equal(t, "s3cret", Secret("CRICKETBOT_TEST_KEY"))
	assert.Equal(t, "", Secret(""))
	assert.Equal(t, "", Secret("CRICKETBOT_TEST_KEY_UNSET"))
}
