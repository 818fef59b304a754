package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, AnalysisConfig{BandPercent: 3, MinTraders: 3, RiskThreshold: 5, TopN: 10}, cfg.Analysis)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Price.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Price.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Price.PaceDelay)
	assert.Equal(t, 60*time.Second, cfg.Price.RedisTTL)
	assert.Empty(t, cfg.Price.RedisAddr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "lens.snapshots", cfg.Kafka.Topic)
	assert.Equal(t, "lens.reports", cfg.Kafka.ReportTopic)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "lens.snapshots", cfg.NATS.SnapshotSubject)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  band_percent: 2.5
  top_n: 5
price:
  pace_delay: 0s
  redis_addr: localhost:6379
kafka:
  brokers: ["k1:9092", "k2:9092"]
nats:
  url: nats://localhost:4222
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Analysis.BandPercent)
	assert.Equal(t, 5, cfg.Analysis.TopN)
	assert.Equal(t, 3, cfg.Analysis.MinTraders) // 未覆盖的保持默认
	assert.Zero(t, cfg.Price.PaceDelay)
	assert.Equal(t, "localhost:6379", cfg.Price.RedisAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LENS_ANALYSIS_TOP_N", "20")
	t.Setenv("LENS_PRICE_TIMEOUT", "2s")
	t.Setenv("LENS_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LENS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Analysis.TopN)
	assert.Equal(t, 2*time.Second, cfg.Price.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LENS_ANALYSIS_MIN_TRADERS=4\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LENS_ANALYSIS_MIN_TRADERS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Analysis.MinTraders)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  band_percent: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "band_percent")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Analysis: AnalysisConfig{BandPercent: 3, MinTraders: 3, RiskThreshold: 5, TopN: 10}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"band", func(c *Config) { c.Analysis.BandPercent = -1 }, true},
		{"min traders", func(c *Config) { c.Analysis.MinTraders = 0 }, true},
		{"threshold", func(c *Config) { c.Analysis.RiskThreshold = 0 }, true},
		{"top n", func(c *Config) { c.Analysis.TopN = 0 }, true},
		{"negative timeout", func(c *Config) { c.Price.Timeout = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
