package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/range-scanner/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(1000), cfg.Scan.BatchSize)
	assert.Equal(t, 10, cfg.Scan.CohortSize)
	assert.Equal(t, "flag", cfg.Scan.MarkerField)
	assert.Equal(t, int64(0), cfg.Scan.Start)
	assert.Equal(t, 15*time.Second, cfg.Scan.RequestTimeout)
	assert.False(t, cfg.Scan.CancelInFlight)
	assert.Equal(t, 0, cfg.Source.MaxRetries)
	assert.Equal(t, "range-scanner/0.1.0", cfg.Source.UserAgent)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
source:
  base_url: http://localhost:5000/level2
  max_retries: 2
  initial_backoff: 250ms
scan:
  batch_size: 500
  cohort_size: 4
  marker_field: secret
  start: 2000
  request_timeout: 3s
  cancel_in_flight: true
redis:
  addr: localhost:6379
  db: 3
  ttl: 1m
log:
  level: debug
  pretty: true
metrics:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:5000/level2", cfg.Source.BaseURL)
	assert.Equal(t, 2, cfg.Source.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Source.InitialBackoff)
	assert.Equal(t, int64(500), cfg.Scan.BatchSize)
	assert.Equal(t, 4, cfg.Scan.CohortSize)
	assert.Equal(t, "secret", cfg.Scan.MarkerField)
	assert.Equal(t, int64(2000), cfg.Scan.Start)
	assert.Equal(t, 3*time.Second, cfg.Scan.RequestTimeout)
	assert.True(t, cfg.Scan.CancelInFlight)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	// Unset keys keep their defaults.
	assert.Equal(t, "range-scanner/0.1.0", cfg.Source.UserAgent)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "scan: [1, 2")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  base_url: http://file.example/level2
scan:
  batch_size: 500
`)
	t.Setenv("SCAN_BASE_URL", "http://env.example/level2")
	t.Setenv("SCAN_BATCH_SIZE", "250")
	t.Setenv("SCAN_COHORT_SIZE", "3")
	t.Setenv("SCAN_MARKER_FIELD", "secret")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example/level2", cfg.Source.BaseURL)
	assert.Equal(t, int64(250), cfg.Scan.BatchSize)
	assert.Equal(t, 3, cfg.Scan.CohortSize)
	assert.Equal(t, "secret", cfg.Scan.MarkerField)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_EnvInvalidNumber(t *testing.T) {
	t.Setenv("SCAN_COHORT_SIZE", "ten")

	_, err := Load("")
	assert.ErrorContains(t, err, "SCAN_COHORT_SIZE")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Source.BaseURL = "http://localhost:5000/level2"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.Source.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Source.BaseURL = "/level2" }},
		{"wrong scheme", func(c *Config) { c.Source.BaseURL = "ftp://host/level2" }},
		{"zero batch size", func(c *Config) { c.Scan.BatchSize = 0 }},
		{"negative cohort size", func(c *Config) { c.Scan.CohortSize = -1 }},
		{"negative start", func(c *Config) { c.Scan.Start = -5 }},
		{"negative retries", func(c *Config) { c.Source.MaxRetries = -1 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Source.BaseURL = "http://localhost:5000/level2"
	cfg.Source.MaxRetries = 2
	cfg.Scan.CohortSize = 7
	cfg.Scan.Start = 3000
	cfg.Scan.CancelInFlight = true
	cfg.Log.Level = "debug"
	cfg.Log.Pretty = true

	sc := cfg.ScanConfig()
	assert.Equal(t, int64(1000), sc.BatchSize)
	assert.Equal(t, 7, sc.CohortSize)
	assert.Equal(t, int64(3000), sc.Start)
	assert.Equal(t, "flag", sc.MarkerField)
	assert.True(t, sc.CancelInFlight)

	src := cfg.SourceConfig()
	assert.Equal(t, "http://localhost:5000/level2", src.BaseURL)
	assert.Equal(t, 7, src.MaxConnsPerHost)
	assert.Equal(t, 3, src.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, src.Retry.InitialBackoff)
	assert.Nil(t, src.Cache)

	lc := cfg.LoggingConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.True(t, lc.Pretty)
}

func TestSourceConfig_NoRetryByDefault(t *testing.T) {
	cfg := Default()
	cfg.Source.BaseURL = "http://localhost:5000/level2"

	assert.Equal(t, 1, cfg.SourceConfig().Retry.MaxAttempts)
}

func TestSourceConfig_RequestTimeout(t *testing.T) {
	cfg := Default()
	cfg.Source.BaseURL = "http://localhost:5000/level2"

	assert.Equal(t, 15*time.Second, cfg.SourceConfig().Timeout)

	cfg.Scan.RequestTimeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, cfg.SourceConfig().Timeout)

	cfg.Scan.RequestTimeout = 0
	assert.Equal(t, time.Duration(0), cfg.ScanConfig().RequestTimeout)
	assert.Equal(t, time.Duration(0), cfg.SourceConfig().Timeout, "0 disables the bound end to end")
}
