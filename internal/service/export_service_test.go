package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/testutil"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExportService(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	prices := testutil.NewFakePriceSource().WithPrice("BTC", "40000").WithPrice("ETH", "2500")
	svc := testutil.NewTestServices(t, db, prices)

	testutil.NewTransaction().WithDate(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)).Build(t, db)
	testutil.NewTransaction().WithSymbol("ETH").WithCoins("2").WithValue("4000").
		WithDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)).Build(t, db)
	testutil.NewTransaction().WithStatus(model.StatusDeleted).Build(t, db)

	t.Run("transactions", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, svc.Export.ExportTransactionsCSV(ctx, model.DefaultUserID, &buf))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Date", "Symbol", "Name", "Type", "Coins", "Price", "Value (USD)", "Source", "Status"}, rows[0])
		assert.Equal(t, []string{"2024-02-01", "ETH", "Ethereum", "buy", "2", "2000.00", "4000.00", "manual", "active"}, rows[1])
		assert.Equal(t, "2024-01-05", rows[2][0])
	})

	t.Run("portfolio", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, svc.Export.ExportPortfolioCSV(ctx, model.DefaultUserID, &buf))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"BTC", "1", "30000.00", "40000.00", "10000.00", "33.33", "40000.00"}, rows[1])
		assert.Equal(t, "ETH", rows[2][0])
	})

	t.Run("write failures", func(t *testing.T) {
		err := svc.Export.ExportTransactionsCSV(ctx, model.DefaultUserID, failingWriter{})

		assert.ErrorIs(t, err, apperrors.ErrFailedToExport)
	})
}

func TestSystemService(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	features := map[string]bool{"broker_connections": true}
	svc := service.NewSystemService(db, features)

	require.NoError(t, svc.CheckHealth())

	info, err := svc.CheckVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.DbVersion)
	assert.Equal(t, int64(2), info.LatestDbVersion)
	assert.False(t, info.MigrationNeeded)
	assert.True(t, info.Features["broker_connections"])

	// WHY: the report holds a copy of the feature set
	info.Features["broker_connections"] = false
	again, err := svc.CheckVersion(ctx)
	require.NoError(t, err)
	assert.True(t, again.Features["broker_connections"])
}
