// Package config loads startupscout configuration: yaml file, .env file,
// then environment overrides, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all startupscout configuration.
type Config struct {
	// Oracle configuration
	Oracle OracleConfig `yaml:"oracle"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Research settings
	Research ResearchConfig `yaml:"research"`

	// Retry policy for oracle/persistence calls
	Retry RetryConfig `yaml:"retry"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the research oracle.
type OracleConfig struct {
	Provider string `yaml:"provider" validate:"oneof=perplexity gemini nim"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// ReportAPIKey is the NIM key used by report --ask; falls back to APIKey.
	ReportAPIKey string `yaml:"report_api_key"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ResearchConfig configures the discovery stage.
type ResearchConfig struct {
	MaxNames    int `yaml:"max_names" validate:"gte=1,lte=100"`
	Concurrency int `yaml:"concurrency" validate:"gte=1,lte=32"`
}

// RetryConfig configures the retry policy around network calls.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay   string `yaml:"base_delay"`
	MaxDelay    string `yaml:"max_delay"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Oracle: OracleConfig{
			Provider: "perplexity",
			Timeout:  "120s",
		},
		Database: DatabaseConfig{
			Path: "scout.db",
		},
		Research: ResearchConfig{
			MaxNames:    10,
			Concurrency: 4,
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   "1s",
			MaxDelay:    "16s",
		},
	}
}

// Load reads the yaml file at path (when non-empty), merges a .env file if
// one exists, applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Credentials usually live in a .env next to the binary; absence is fine.
	_ = godotenv.Load()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides maps well-known environment variables onto the config.
// A provider-specific key also selects that provider when none is set
// explicitly.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		if c.Oracle.APIKey == "" {
			c.Oracle.APIKey = v
			if c.Oracle.Provider == "" {
				c.Oracle.Provider = "perplexity"
			}
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Oracle.Provider == "gemini" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("NVIDIA_API_KEY"); v != "" {
		if c.Oracle.ReportAPIKey == "" {
			c.Oracle.ReportAPIKey = v
		}
		if c.Oracle.Provider == "nim" && c.Oracle.APIKey == "" {
			c.Oracle.APIKey = v
		}
	}
	if v := os.Getenv("SCOUT_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if os.Getenv("SCOUT_DEBUG") == "1" {
		c.Logging.Debug = true
	}
}

var validate = validator.New()

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.OracleTimeout(); err != nil {
		return err
	}
	if _, _, err := c.RetryDelays(); err != nil {
		return err
	}
	return nil
}

// OracleTimeout parses the oracle timeout.
func (c *Config) OracleTimeout() (time.Duration, error) {
	if c.Oracle.Timeout == "" {
		return 120 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid oracle timeout %q: %w", c.Oracle.Timeout, err)
	}
	return d, nil
}

// RetryDelays parses the retry backoff bounds.
func (c *Config) RetryDelays() (base, max time.Duration, err error) {
	base, max = time.Second, 16*time.Second
	if c.Retry.BaseDelay != "" {
		if base, err = time.ParseDuration(c.Retry.BaseDelay); err != nil {
			return 0, 0, fmt.Errorf("invalid retry base_delay %q: %w", c.Retry.BaseDelay, err)
		}
	}
	if c.Retry.MaxDelay != "" {
		if max, err = time.ParseDuration(c.Retry.MaxDelay); err != nil {
			return 0, 0, fmt.Errorf("invalid retry max_delay %q: %w", c.Retry.MaxDelay, err)
		}
	}
	return base, max, nil
}
