// Package config loads scanner configuration from a YAML file, applies
// environment overrides and converts it into the settings of each package.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/range-scanner/pkg/logging"
	"github.com/Sternrassler/range-scanner/pkg/scan"
	"github.com/Sternrassler/range-scanner/pkg/source"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the complete scanner configuration.
// Maps config file fields through YAML tags.
type Config struct {
	Source struct {
		BaseURL        string        `yaml:"base_url"`
		UserAgent      string        `yaml:"user_agent"`
		MaxRetries     int           `yaml:"max_retries"`
		InitialBackoff time.Duration `yaml:"initial_backoff"`
	} `yaml:"source"`

	Scan struct {
		BatchSize      int64         `yaml:"batch_size"`
		CohortSize     int           `yaml:"cohort_size"`
		MarkerField    string        `yaml:"marker_field"`
		Start          int64         `yaml:"start"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		CancelInFlight bool          `yaml:"cancel_in_flight"`
	} `yaml:"scan"`

	Redis struct {
		Addr string        `yaml:"addr"` // empty disables the cache
		DB   int           `yaml:"db"`
		TTL  time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the metrics server
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.Source.UserAgent = "range-scanner/0.1.0"
	c.Source.InitialBackoff = 500 * time.Millisecond

	sc := scan.DefaultConfig()
	c.Scan.BatchSize = sc.BatchSize
	c.Scan.CohortSize = sc.CohortSize
	c.Scan.MarkerField = sc.MarkerField
	c.Scan.RequestTimeout = sc.RequestTimeout

	c.Redis.TTL = 5 * time.Minute
	c.Log.Level = string(logging.LevelInfo)
	return c
}

// Load reads path on top of the defaults and applies environment
// overrides. An empty path only applies the overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Source.BaseURL = getEnv("SCAN_BASE_URL", c.Source.BaseURL)
	c.Scan.MarkerField = getEnv("SCAN_MARKER_FIELD", c.Scan.MarkerField)
	c.Redis.Addr = getEnv("REDIS_URL", c.Redis.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)

	if v := os.Getenv("SCAN_BATCH_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SCAN_BATCH_SIZE: %w", err)
		}
		c.Scan.BatchSize = n
	}
	if v := os.Getenv("SCAN_COHORT_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCAN_COHORT_SIZE: %w", err)
		}
		c.Scan.CohortSize = n
	}
	return nil
}

// Validate checks the values that cannot be defaulted silently.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("%w: source.base_url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: source.base_url %q is not an absolute http(s) url", ErrInvalidConfig, c.Source.BaseURL)
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("%w: scan.batch_size must be positive (got %d)", ErrInvalidConfig, c.Scan.BatchSize)
	}
	if c.Scan.CohortSize <= 0 {
		return fmt.Errorf("%w: scan.cohort_size must be positive (got %d)", ErrInvalidConfig, c.Scan.CohortSize)
	}
	if c.Scan.Start < 0 {
		return fmt.Errorf("%w: scan.start must not be negative (got %d)", ErrInvalidConfig, c.Scan.Start)
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("%w: source.max_retries must not be negative (got %d)", ErrInvalidConfig, c.Source.MaxRetries)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ScanConfig converts to the orchestrator settings.
func (c Config) ScanConfig() scan.Config {
	return scan.Config{
		BatchSize:      c.Scan.BatchSize,
		CohortSize:     c.Scan.CohortSize,
		Start:          c.Scan.Start,
		MarkerField:    c.Scan.MarkerField,
		RequestTimeout: c.Scan.RequestTimeout,
		CancelInFlight: c.Scan.CancelInFlight,
	}
}

// SourceConfig converts to the client settings. The connection pool is
// sized to the cohort and the HTTP client shares scan.request_timeout, so
// 0 leaves requests unbounded. The cache is attached by the caller.
func (c Config) SourceConfig() source.Config {
	cfg := source.DefaultConfig(c.Source.BaseURL)
	cfg.Timeout = c.Scan.RequestTimeout
	if c.Source.UserAgent != "" {
		cfg.UserAgent = c.Source.UserAgent
	}
	cfg.MaxConnsPerHost = c.Scan.CohortSize
	cfg.Retry.MaxAttempts = c.Source.MaxRetries + 1
	if c.Source.InitialBackoff > 0 {
		cfg.Retry.InitialBackoff = c.Source.InitialBackoff
	}
	return cfg
}

// LoggingConfig converts to the logger settings. Call after Validate.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
