// Package config loads the service configuration from a YAML file with
// environment-variable overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Store struct {
		// Path overrides the default <data_dir>/messages.db location.
		Path string `yaml:"path"`
	} `yaml:"store"`

	Vector struct {
		// Dir overrides the default <data_dir>/vectors location.
		Dir string `yaml:"dir"`
		// CacheSize is the in-memory embedding LRU capacity.
		CacheSize int `yaml:"cache_size"`
		// CompactInterval is how often the deleted fraction is checked.
		CompactInterval time.Duration `yaml:"compact_interval"`

		Embedding struct {
			// Provider selects the embedder: "local" (default, offline
			// feature hashing) or "openai" (OpenAI-compatible HTTP API).
			Provider string `yaml:"provider"`
			APIKey   string `yaml:"api_key"`
			APIBase  string `yaml:"api_base"`
			Model    string `yaml:"model"`
		} `yaml:"embedding"`
	} `yaml:"vector"`

	WhatsApp struct {
		Enabled bool `yaml:"enabled"`
		// SessionPath overrides the default <data_dir>/session.db location.
		SessionPath string `yaml:"session_path"`
	} `yaml:"whatsapp"`

	Tools struct {
		// RateLimitPerHour caps tool calls per caller; 0 disables.
		RateLimitPerHour int `yaml:"rate_limit_per_hour"`
	} `yaml:"tools"`

	Log struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{DataDir: "data"}
	cfg.Vector.CacheSize = 4096
	cfg.Vector.CompactInterval = 10 * time.Minute
	cfg.Log.Level = "info"
	return cfg
}

// Load reads path if it exists, applies defaults for everything unset,
// then environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	cfg.normalize()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WAINDEX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("WAINDEX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("WAINDEX_EMBEDDING_API_KEY"); v != "" {
		cfg.Vector.Embedding.APIKey = v
	}
}

func (c *Config) normalize() {
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "messages.db")
	}
	if c.Vector.Dir == "" {
		c.Vector.Dir = filepath.Join(c.DataDir, "vectors")
	}
	if c.WhatsApp.SessionPath == "" {
		c.WhatsApp.SessionPath = filepath.Join(c.DataDir, "session.db")
	}
	if c.Vector.CacheSize <= 0 {
		c.Vector.CacheSize = 4096
	}
	if c.Vector.CompactInterval <= 0 {
		c.Vector.CompactInterval = 10 * time.Minute
	}
	if c.Vector.Embedding.Provider == "" {
		c.Vector.Embedding.Provider = "local"
	}
}
