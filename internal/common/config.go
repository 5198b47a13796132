// Package common provides shared utilities for tradeclient
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for tradeclient
type Config struct {
	Environment string          `toml:"environment"`
	Backend     BackendConfig   `toml:"backend"`
	Storage     StorageConfig   `toml:"storage"`
	Portfolio   PortfolioConfig `toml:"portfolio"`
	Logging     LoggingConfig   `toml:"logging"`
}

// BackendConfig holds the trading backend connection settings
type BackendConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`    // per-request ceiling, duration string
	RateLimit int    `toml:"rate_limit"` // requests per second
}

// GetTimeout parses and returns the timeout duration
func (c *BackendConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// StorageConfig selects the persisted key-value backend.
type StorageConfig struct {
	Backend string `toml:"backend"` // "badger", "sqlite" or "memory"
	Path    string `toml:"path"`
}

// PortfolioConfig holds portfolio refresh settings
type PortfolioConfig struct {
	RefreshInterval  string `toml:"refresh_interval"`
	QuoteConcurrency int    `toml:"quote_concurrency"`
}

// GetRefreshInterval parses and returns the periodic refresh interval
func (c *PortfolioConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "console" or "json"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Backend: BackendConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   "15s",
			RateLimit: 10,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data/session",
		},
		Portfolio: PortfolioConfig{
			RefreshInterval:  "30s",
			QuoteConcurrency: 4,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/tradeclient.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TRADECLIENT_ENV"); env != "" {
		config.Environment = env
	}

	if url := os.Getenv("TRADECLIENT_BACKEND_URL"); url != "" {
		config.Backend.BaseURL = url
	}

	if timeout := os.Getenv("TRADECLIENT_BACKEND_TIMEOUT"); timeout != "" {
		config.Backend.Timeout = timeout
	}

	if rl := os.Getenv("TRADECLIENT_RATE_LIMIT"); rl != "" {
		if n, err := strconv.Atoi(rl); err == nil {
			config.Backend.RateLimit = n
		}
	}

	if backend := os.Getenv("TRADECLIENT_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if path := os.Getenv("TRADECLIENT_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "session")
	}

	if interval := os.Getenv("TRADECLIENT_REFRESH_INTERVAL"); interval != "" {
		config.Portfolio.RefreshInterval = interval
	}

	if level := os.Getenv("TRADECLIENT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	switch c.Storage.Backend {
	case "badger", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q (want badger, sqlite or memory)", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
	}
	if c.Portfolio.QuoteConcurrency <= 0 {
		c.Portfolio.QuoteConcurrency = 1
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
