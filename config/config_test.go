package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"LINKPOOL_DATABASE_PATH", "CHECK_INTERVAL_MINUTES", "LINKPOOL_BATCH_SIZE",
		"LINKPOOL_ADVANCE_ON_FAILURE", "LINKPOOL_FANOUT_WORKERS", "LINKPOOL_LINK_DELAY_SECONDS",
		"SCRAPE_TIMEOUT_SECONDS", "SCRAPE_RATE_PER_SECOND", "SENTRY_DSN", "METRICS_ADDR",
		"LOG_LEVEL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_RequiresDatabasePath(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINKPOOL_DATABASE_PATH", "/tmp/linkpool.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/linkpool.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.False(t, cfg.AdvanceOnFailure)
	assert.Equal(t, 1, cfg.FanOutWorkers)
	assert.Equal(t, 2*time.Second, cfg.LinkDelay)
	assert.Equal(t, 30*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 1.0, cfg.ScrapeRatePerSecond)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.TelegramChatID)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINKPOOL_DATABASE_PATH", "/data/pool.db")
	t.Setenv("CHECK_INTERVAL_MINUTES", "10")
	t.Setenv("LINKPOOL_BATCH_SIZE", "20")
	t.Setenv("LINKPOOL_ADVANCE_ON_FAILURE", "true")
	t.Setenv("LINKPOOL_FANOUT_WORKERS", "8")
	t.Setenv("LINKPOOL_LINK_DELAY_SECONDS", "0")
	t.Setenv("SCRAPE_RATE_PER_SECOND", "0.5")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.True(t, cfg.AdvanceOnFailure)
	assert.Equal(t, 8, cfg.FanOutWorkers)
	assert.Zero(t, cfg.LinkDelay)
	assert.Equal(t, 0.5, cfg.ScrapeRatePerSecond)
	assert.Equal(t, int64(-100123), cfg.TelegramChatID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_IgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINKPOOL_DATABASE_PATH", "/data/pool.db")
	t.Setenv("LINKPOOL_BATCH_SIZE", "-3")
	t.Setenv("CHECK_INTERVAL_MINUTES", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.CheckInterval)
}
