package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/testutil"
)

func newFernetKey(t *testing.T) string {
	t.Helper()
	var k fernet.Key
	require.NoError(t, k.Generate())
	return k.Encode()
}

func newConnectionService(t *testing.T, imports *service.ImportService, key string) (*service.BrokerConnectionService, *repository.BrokerConnectionRepository) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repo := repository.NewBrokerConnectionRepository(db)
	svc, err := service.NewBrokerConnectionService(repo, imports, key, zerolog.Nop())
	require.NoError(t, err)
	return svc, repo
}

func TestBrokerConnectionService_Create(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	imports := testutil.NewTestServices(t, db, testutil.NewFakePriceSource()).Imports

	t.Run("credentials are stored encrypted", func(t *testing.T) {
		svc, repo := newConnectionService(t, imports, newFernetKey(t))

		c, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{Broker: "Coinbase", Credentials: creds})

		require.NoError(t, err)
		assert.Equal(t, model.SourceCoinbase, c.Broker)
		assert.Equal(t, model.DefaultUserID, c.UserID)
		assert.True(t, c.AutoImportEnabled)

		stored, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.NotContains(t, stored.CredentialsEncrypted, "apiKeys")
		assert.NotEqual(t, string(creds), stored.CredentialsEncrypted)
	})

	t.Run("auto import can be disabled", func(t *testing.T) {
		svc, _ := newConnectionService(t, imports, newFernetKey(t))
		off := false

		c, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{
			Broker: "robinhood", Credentials: json.RawMessage(`{"access_token":"t"}`), AutoImportEnabled: &off,
		})

		require.NoError(t, err)
		assert.False(t, c.AutoImportEnabled)
	})

	t.Run("without a key nothing can be stored", func(t *testing.T) {
		svc, _ := newConnectionService(t, imports, "")

		_, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{Broker: "coinbase", Credentials: creds})

		assert.ErrorIs(t, err, apperrors.ErrEncryptionUnavailable)
		assert.False(t, svc.Enabled())
	})

	t.Run("credentials the connector cannot read", func(t *testing.T) {
		svc, _ := newConnectionService(t, imports, newFernetKey(t))

		_, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{Broker: "coinbase", Credentials: json.RawMessage(`{"foo":1}`)})

		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unsupported broker", func(t *testing.T) {
		svc, _ := newConnectionService(t, imports, newFernetKey(t))

		_, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{Broker: "kraken", Credentials: creds})

		assert.ErrorIs(t, err, apperrors.ErrUnsupportedBroker)
	})

	t.Run("malformed key", func(t *testing.T) {
		repo := repository.NewBrokerConnectionRepository(db)

		_, err := service.NewBrokerConnectionService(repo, imports, "not-a-key", zerolog.Nop())

		assert.Error(t, err)
	})
}

func TestBrokerConnectionService_Delete(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	imports := testutil.NewTestServices(t, db, testutil.NewFakePriceSource()).Imports
	svc, _ := newConnectionService(t, imports, newFernetKey(t))

	c, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{UserID: "alice", Broker: "coinbase", Credentials: creds})
	require.NoError(t, err)

	err = svc.Delete(ctx, c.ID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, svc.Delete(ctx, c.ID, "alice"))

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = svc.Delete(ctx, c.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrBrokerConnectionNotFound)
}

func TestBrokerConnectionService_AutoImport(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	db := testutil.SetupTestDB(t)
	services := testutil.NewTestServices(t, db, testutil.NewFakePriceSource())
	calls := &factoryCalls{}
	fake := &fakeBroker{name: model.SourceCoinbase, records: fills(model.SourceCoinbase, model.TypeBuy, 3)}
	imports := services.Imports.WithFactory(fakeFactory(fake, &fakeBroker{name: model.SourceCoinbase}, calls))

	repo := repository.NewBrokerConnectionRepository(db)
	svc, err := service.NewBrokerConnectionService(repo, imports, newFernetKey(t), zerolog.Nop())
	require.NoError(t, err)
	svc.WithClock(clock.Now)

	c, err := svc.Create(ctx, request.CreateBrokerConnectionRequest{UserID: "alice", Broker: "coinbase", Credentials: creds})
	require.NoError(t, err)

	// WHY: a connection whose credentials cannot be decrypted is skipped, not fatal
	require.NoError(t, repo.Insert(ctx, model.BrokerConnection{
		ID:                   testutil.MakeID(),
		UserID:               "bob",
		Broker:               model.SourceCoinbase,
		CredentialsEncrypted: "garbage",
		AutoImportEnabled:    true,
		CreatedAt:            clock.Now(),
	}))

	n, err := svc.AutoImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ledger, err := services.Transactions.Ledger(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, ledger, 3)

	stored, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastImportAt)
	assert.True(t, stored.LastImportAt.Equal(clock.Now()))

	t.Run("next run only covers the time since the last import", func(t *testing.T) {
		clock.Advance(time.Hour)

		n, err := svc.AutoImport(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
		ledger, err := services.Transactions.Ledger(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, ledger, 3)
		// WHY: scheduled imports never substitute mock records
		assert.Equal(t, int32(0), calls.mock.Load())
	})
}
