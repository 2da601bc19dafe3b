package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/config"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "nested", "ledger.db")},
		Price: config.PriceConfig{
			BaseURL:  "http://127.0.0.1:0",
			Timeout:  time.Second,
			CacheTTL: time.Minute,
		},
		Scheduler: config.SchedulerConfig{
			Enabled:              true,
			PriceRefreshSchedule: "0 */5 * * * *",
			AutoImportSchedule:   "0 0 */6 * * *",
		},
		API: config.APIConfig{DefaultUserID: model.DefaultUserID},
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and migrates the database", func(t *testing.T) {
		a, err := New(ctx, testConfig(t), zerolog.Nop())
		require.NoError(t, err)
		defer a.Close()

		info, err := a.Services.System.CheckVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, info.LatestDbVersion, info.DbVersion)
		assert.False(t, info.Features["broker_connections"])
		assert.True(t, info.Features["scheduler"])
	})

	t.Run("enables stored connections with a key", func(t *testing.T) {
		var k fernet.Key
		require.NoError(t, k.Generate())
		cfg := testConfig(t)
		cfg.Security.EncryptionKey = k.Encode()

		a, err := New(ctx, cfg, zerolog.Nop())
		require.NoError(t, err)
		defer a.Close()

		assert.True(t, a.Services.Connections.Enabled())
	})

	t.Run("rejects a malformed key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Security.EncryptionKey = "not-a-key"

		_, err := New(ctx, cfg, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestApp_Scheduler(t *testing.T) {
	ctx := context.Background()

	t.Run("registers jobs", func(t *testing.T) {
		a, err := New(ctx, testConfig(t), zerolog.Nop())
		require.NoError(t, err)
		defer a.Close()

		s, err := a.Scheduler()
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("rejects an invalid schedule", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Scheduler.PriceRefreshSchedule = "whenever"
		a, err := New(ctx, cfg, zerolog.Nop())
		require.NoError(t, err)
		defer a.Close()

		_, err = a.Scheduler()
		assert.Error(t, err)
	})
}
