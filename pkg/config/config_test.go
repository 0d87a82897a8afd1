package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, 0.82, cfg.InferenceThreshold)
	assert.False(t, cfg.SimilarityEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mentat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/mentat
storage_backend: badger
inference_threshold: 0.9
cache:
  similarity_threshold: 0.95
  keyword_threshold: 0.8
mcp:
  address: "0.0.0.0:9100"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/mentat", cfg.DataDir)
	assert.Equal(t, "badger", cfg.StorageBackend)
	assert.Equal(t, 0.9, cfg.InferenceThreshold)
	assert.Equal(t, 0.95, cfg.Cache.SimilarityThreshold)
	assert.Equal(t, "0.0.0.0:9100", cfg.MCP.Address)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().StorageBackend, cfg.StorageBackend)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MENTAT_DATA_DIR", "/tmp/env-data")
	t.Setenv("MENTAT_STORAGE_BACKEND", "badger")
	t.Setenv("MENTAT_SIMILARITY_ENABLED", "true")
	t.Setenv("MENTAT_EMBEDDING_PROVIDER", "openai")
	t.Setenv("MENTAT_EMBEDDING_API_URL", "https://api.example.com")
	t.Setenv("MENTAT_CACHE_DEFAULT_TTL", "36h")
	t.Setenv("MENTAT_MCP_ADDRESS", "127.0.0.1:9901")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-data", cfg.DataDir)
	assert.Equal(t, "badger", cfg.StorageBackend)
	assert.True(t, cfg.SimilarityEnabled)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 36*time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, "127.0.0.1:9901", cfg.MCP.Address)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"unknown backend", func(c *Config) { c.StorageBackend = "sqlite" }},
		{"threshold out of range", func(c *Config) { c.InferenceThreshold = 1.2 }},
		{"similarity without provider", func(c *Config) {
			c.SimilarityEnabled = true
			c.Embedding.Provider = "local"
		}},
		{"similarity without url", func(c *Config) {
			c.SimilarityEnabled = true
			c.Embedding.Provider = "ollama"
			c.Embedding.APIURL = ""
		}},
		{"non-positive ttl", func(c *Config) { c.Cache.DefaultTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
