package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		for _, key := range []string{
			"SERVER_PORT", "SERVER_HOST", "DB_PATH", "CORS_ORIGINS", "PRICE_TIMEOUT",
			"PRICE_CACHE_TTL", "BROKER_TIMEOUT", "LOG_PRETTY", "SCHEDULER_ENABLED",
		} {
			t.Setenv(key, "")
		}

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "localhost:8085", cfg.Server.Addr)
		assert.Equal(t, 10*time.Second, cfg.Price.Timeout)
		assert.Equal(t, 60*time.Second, cfg.Price.CacheTTL)
		assert.Equal(t, 30*time.Second, cfg.Broker.Timeout)
		assert.True(t, cfg.Scheduler.Enabled)
		assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("SERVER_HOST", "0.0.0.0")
		t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
		t.Setenv("PRICE_CACHE_TTL", "2m")
		t.Setenv("SCHEDULER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, 2*time.Minute, cfg.Price.CacheTTL)
		assert.False(t, cfg.Scheduler.Enabled)
	})

	t.Run("rejects invalid duration", func(t *testing.T) {
		t.Setenv("BROKER_TIMEOUT", "soon")

		_, err := Load()
		assert.ErrorContains(t, err, "BROKER_TIMEOUT")
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		t.Setenv("PRICE_TIMEOUT", "0s")

		_, err := Load()
		assert.Error(t, err)
	})
}
