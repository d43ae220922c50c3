package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
environment: test

logging:
  level: debug
  format: console
  output: stdout

trading:
  pairs: [XBTUSD, ETHUSD]
  interval: 60s
  error_backoff: 90s
  min_quote_balance: 10
  ohlc_days: 30
  dry_run: true

kraken:
  rest_url: https://api.kraken.com
  quote_asset: ZUSD
  timeout: 10s

redis:
  host: localhost
  port: 6379
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, []string{"XBTUSD", "ETHUSD"}, cfg.Trading.Pairs)
	assert.Equal(t, 60*time.Second, cfg.Trading.Interval)
	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, "ZUSD", cfg.Kraken.QuoteAsset)
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KRAKEN_API_KEY", "env-key")
	t.Setenv("KRAKEN_API_SECRET", "env-secret")
	t.Setenv("PAIRS", "SOLUSD,DOTUSD")
	t.Setenv("DRY_RUN", "false")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := LoadWithEnv(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Kraken.APIKey)
	assert.Equal(t, "env-secret", cfg.Kraken.APISecret)
	assert.Equal(t, []string{"SOLUSD", "DOTUSD"}, cfg.Trading.Pairs)
	assert.False(t, cfg.Trading.DryRun)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := Load(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		return cfg
	}

	t.Run("environment required", func(t *testing.T) {
		cfg := base(t)
		cfg.Environment = ""
		assert.ErrorContains(t, cfg.Validate(), "environment")
	})

	t.Run("pairs required", func(t *testing.T) {
		cfg := base(t)
		cfg.Trading.Pairs = nil
		assert.ErrorContains(t, cfg.Validate(), "pairs")
	})

	t.Run("negative interval rejected", func(t *testing.T) {
		cfg := base(t)
		cfg.Trading.Interval = -time.Second
		assert.ErrorContains(t, cfg.Validate(), "interval")
	})

	t.Run("live trading needs credentials", func(t *testing.T) {
		cfg := base(t)
		cfg.Trading.DryRun = false
		assert.ErrorContains(t, cfg.Validate(), "api_key")

		cfg.Kraken.APIKey = "key"
		cfg.Kraken.APISecret = "secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("enabled advisor needs key", func(t *testing.T) {
		cfg := base(t)
		cfg.Advisor.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "advisor")

		cfg.Advisor.APIKey = "key"
		assert.NoError(t, cfg.Validate())
	})
}
