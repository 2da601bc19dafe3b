package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/testutil"
)

func TestTransactionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips every column", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)

		date := time.Date(2024, 3, 1, 9, 30, 15, 123456789, time.UTC)
		fees := decimal.RequireFromString("1.5")
		tx := testutil.NewTransaction().
			WithSymbol("ETH").
			WithCoins("0.123456789012345678").
			WithValue("400").
			WithDate(date).
			WithSource(model.SourceCoinbase).
			WithExternalID("fill-1").
			Value()
		tx.Fees = &fees
		require.NoError(t, repo.Insert(ctx, tx))

		got, err := repo.GetByID(ctx, tx.ID)
		require.NoError(t, err)

		// WHY: decimals are stored as text so no precision is lost
		assert.Equal(t, "0.123456789012345678", got.Coins.String())
		assert.True(t, got.Date.Equal(date))
		assert.Equal(t, "Ethereum", got.Name)
		require.NotNil(t, got.ExternalID)
		assert.Equal(t, "fill-1", *got.ExternalID)
		require.NotNil(t, got.Fees)
		assert.Equal(t, "1.5", got.Fees.String())
	})

	t.Run("nullable columns read back as nil", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		tx := testutil.CreateBuy(t, db, "BTC", "1", "30000")

		got, err := repo.GetByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ExternalID)
		assert.Nil(t, got.Fees)
	})

	t.Run("find orders newest first and filters", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, symbol := range []string{"BTC", "ETH", "BTC"} {
			testutil.NewTransaction().WithSymbol(symbol).WithDate(base.AddDate(0, 0, i)).Build(t, db)
		}
		testutil.NewTransaction().WithUser("alice").WithDate(base.AddDate(0, 0, 10)).Build(t, db)
		testutil.NewTransaction().WithStatus(model.StatusDeleted).Build(t, db)

		all, err := repo.Find(ctx, model.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "alice", all[0].UserID)

		btc, err := repo.Find(ctx, model.TransactionFilter{UserID: model.DefaultUserID, Symbol: "BTC"})
		require.NoError(t, err)
		require.Len(t, btc, 2)
		assert.True(t, btc[0].Date.After(btc[1].Date))

		limited, err := repo.Find(ctx, model.TransactionFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		deleted, err := repo.Find(ctx, model.TransactionFilter{Statuses: []string{model.StatusDeleted}})
		require.NoError(t, err)
		assert.Len(t, deleted, 1)
	})

	t.Run("date range comparisons stay chronological", func(t *testing.T) {
		// WHY: fixed-width timestamps sort lexically in date order even across
		// whole and fractional seconds
		a := repository.FormatTime(time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))
		b := repository.FormatTime(time.Date(2024, 1, 1, 0, 0, 1, 500, time.UTC))
		assert.Less(t, a, b)
		assert.Len(t, a, len(b))
	})

	t.Run("update and soft delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		tx := testutil.CreateBuy(t, db, "BTC", "1", "30000")

		tx.Coins = decimal.RequireFromString("2")
		require.NoError(t, repo.Update(ctx, tx))
		got, err := repo.GetByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, "2", got.Coins.String())

		require.NoError(t, repo.SoftDelete(ctx, tx.ID))
		testutil.AssertRowCount(t, db, `"transaction"`, 1)

		_, err = repo.GetByID(ctx, tx.ID)
		assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
		assert.ErrorIs(t, repo.SoftDelete(ctx, tx.ID), apperrors.ErrTransactionNotFound)
		assert.ErrorIs(t, repo.Update(ctx, tx), apperrors.ErrTransactionNotFound)
	})

	t.Run("distinct symbols skip deleted rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		testutil.CreateBuy(t, db, "SOL", "1", "100")
		testutil.CreateBuy(t, db, "BTC", "1", "100")
		testutil.CreateBuy(t, db, "BTC", "1", "100")
		testutil.NewTransaction().WithSymbol("DOGE").WithStatus(model.StatusDeleted).Build(t, db)

		symbols, err := repo.DistinctSymbols(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC", "SOL"}, symbols)
	})
}

func TestBrokerConnectionRepository(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	db := testutil.SetupTestDB(t)
	repo := repository.NewBrokerConnectionRepository(db)

	newConnection := func(user string, auto bool) model.BrokerConnection {
		return model.BrokerConnection{
			ID:                   testutil.MakeID(),
			UserID:               user,
			Broker:               model.SourceCoinbase,
			CredentialsEncrypted: "token",
			AutoImportEnabled:    auto,
			CreatedAt:            created,
		}
	}

	t.Run("insert, list and lookup", func(t *testing.T) {
		testutil.CleanDatabase(t, db)
		c := newConnection("alice", true)
		require.NoError(t, repo.Insert(ctx, c))
		require.NoError(t, repo.Insert(ctx, newConnection("bob", false)))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "token", got.CredentialsEncrypted)
		assert.Nil(t, got.LastImportAt)
		assert.True(t, got.CreatedAt.Equal(created))

		alice, err := repo.List(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, alice, 1)

		everyone, err := repo.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, everyone, 2)

		auto, err := repo.ListAutoImport(ctx)
		require.NoError(t, err)
		require.Len(t, auto, 1)
		assert.Equal(t, c.ID, auto[0].ID)
	})

	t.Run("mark imported", func(t *testing.T) {
		testutil.CleanDatabase(t, db)
		c := newConnection("alice", true)
		require.NoError(t, repo.Insert(ctx, c))

		at := created.Add(6 * time.Hour)
		require.NoError(t, repo.MarkImported(ctx, c.ID, at))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastImportAt)
		assert.True(t, got.LastImportAt.Equal(at))

		assert.ErrorIs(t, repo.MarkImported(ctx, testutil.MakeID(), at), apperrors.ErrBrokerConnectionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		testutil.CleanDatabase(t, db)
		c := newConnection("alice", false)
		require.NoError(t, repo.Insert(ctx, c))

		require.NoError(t, repo.Delete(ctx, c.ID))
		testutil.AssertRowCount(t, db, "broker_connection", 0)
		assert.ErrorIs(t, repo.Delete(ctx, c.ID), apperrors.ErrBrokerConnectionNotFound)

		_, err := repo.GetByID(ctx, c.ID)
		assert.ErrorIs(t, err, apperrors.ErrBrokerConnectionNotFound)
	})
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"2024-03-01T12:00:00+02:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"2024-03-01T10:00:00.250Z", time.Date(2024, 3, 1, 10, 0, 0, 250000000, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := repository.ParseTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}
}
