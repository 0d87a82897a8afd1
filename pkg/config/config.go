// Package config loads engine configuration from a YAML file and MENTAT_*
// environment variables.
//
// Precedence: defaults, then the YAML file (if any), then environment
// variables. Every scoring threshold the metrics engine uses is exposed
// here rather than hard-coded, since the exact cut points are tuning
// choices, not invariants.
//
// Example Usage:
//
//	cfg, err := config.Load("./mentat.yaml")
//	if err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	db, err := mentat.Open(cfg.DataDir, cfg)
//
// Environment Variables:
//   - MENTAT_DATA_DIR=./data
//   - MENTAT_STORAGE_BACKEND=file|badger
//   - MENTAT_SIMILARITY_ENABLED=true
//   - MENTAT_EMBEDDING_PROVIDER=ollama|openai
//   - MENTAT_EMBEDDING_API_URL=http://localhost:11434
//   - MENTAT_EMBEDDING_API_KEY=sk-...
//   - MENTAT_EMBEDDING_MODEL=mxbai-embed-large
//   - MENTAT_CACHE_DEFAULT_TTL=24h
//   - MENTAT_CACHE_CLEANUP_INTERVAL=5m
//   - MENTAT_MCP_ADDRESS=localhost:9072
//   - MENTAT_MCP_TOKEN_HASH=<bcrypt hash>
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orvandel/mentat/pkg/metrics"
	"github.com/orvandel/mentat/pkg/similarity"
	"github.com/orvandel/mentat/pkg/vcache"
)

// Config is the full engine configuration.
type Config struct {
	// DataDir is where persisted JSON documents (or the Badger database)
	// live.
	DataDir string `yaml:"data_dir"`

	// StorageBackend selects "file" (JSON snapshots, atomic rename) or
	// "badger" (single durable KV directory).
	StorageBackend string `yaml:"storage_backend"`

	// SimilarityEnabled wires the embedding provider into the graph and
	// cache. Disabled, everything degrades to keyword heuristics.
	SimilarityEnabled bool `yaml:"similarity_enabled"`

	// InferenceThreshold is the minimum similarity for InferRelations to
	// create an associates connection.
	InferenceThreshold float64 `yaml:"inference_threshold"`

	Embedding *similarity.EmbedderConfig `yaml:"embedding"`
	Scoring   *metrics.Config            `yaml:"scoring"`
	Cache     *vcache.Config             `yaml:"cache"`

	MCP MCPConfig `yaml:"mcp"`
}

// MCPConfig configures the optional MCP tool server.
type MCPConfig struct {
	Address string `yaml:"address"`

	// TokenHash is a bcrypt hash of the bearer token required on every
	// request. Empty disables auth.
	TokenHash string `yaml:"token_hash"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		DataDir:            "./data",
		StorageBackend:     "file",
		SimilarityEnabled:  false,
		InferenceThreshold: 0.82,
		Embedding:          similarity.DefaultEmbedderConfig(),
		Scoring:            metrics.DefaultConfig(),
		Cache:              vcache.DefaultConfig(),
		MCP: MCPConfig{
			Address: "localhost:9072",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty or missing), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DataDir, "MENTAT_DATA_DIR")
	setString(&c.StorageBackend, "MENTAT_STORAGE_BACKEND")
	setBool(&c.SimilarityEnabled, "MENTAT_SIMILARITY_ENABLED")
	setFloat(&c.InferenceThreshold, "MENTAT_INFERENCE_THRESHOLD")

	setString(&c.Embedding.Provider, "MENTAT_EMBEDDING_PROVIDER")
	setString(&c.Embedding.APIURL, "MENTAT_EMBEDDING_API_URL")
	setString(&c.Embedding.APIPath, "MENTAT_EMBEDDING_API_PATH")
	setString(&c.Embedding.APIKey, "MENTAT_EMBEDDING_API_KEY")
	setString(&c.Embedding.Model, "MENTAT_EMBEDDING_MODEL")
	setInt(&c.Embedding.Dimensions, "MENTAT_EMBEDDING_DIMENSIONS")
	setDuration(&c.Embedding.Timeout, "MENTAT_EMBEDDING_TIMEOUT")

	setDuration(&c.Cache.DefaultTTL, "MENTAT_CACHE_DEFAULT_TTL")
	setDuration(&c.Cache.CleanupInterval, "MENTAT_CACHE_CLEANUP_INTERVAL")
	setFloat(&c.Cache.SimilarityThreshold, "MENTAT_CACHE_SIMILARITY_THRESHOLD")

	setString(&c.MCP.Address, "MENTAT_MCP_ADDRESS")
	setString(&c.MCP.TokenHash, "MENTAT_MCP_TOKEN_HASH")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	switch c.StorageBackend {
	case "file", "badger":
	default:
		return fmt.Errorf("storage_backend must be file or badger, got %q", c.StorageBackend)
	}
	if c.InferenceThreshold < 0 || c.InferenceThreshold > 1 {
		return fmt.Errorf("inference_threshold must be in [0,1], got %v", c.InferenceThreshold)
	}
	if c.SimilarityEnabled {
		switch c.Embedding.Provider {
		case "ollama", "openai":
		default:
			return fmt.Errorf("embedding provider must be ollama or openai, got %q", c.Embedding.Provider)
		}
		if c.Embedding.APIURL == "" {
			return fmt.Errorf("embedding api_url must not be empty when similarity is enabled")
		}
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache default_ttl must be positive, got %v", c.Cache.DefaultTTL)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
