package price_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/price"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/testutil"
)

var start = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCoinID(t *testing.T) {
	assert.Equal(t, "bitcoin", price.CoinID("BTC"))
	assert.Equal(t, "avalanche-2", price.CoinID("avax"))
	assert.Equal(t, "matic-network", price.CoinID(" MATIC "))
	assert.Equal(t, "pepe", price.CoinID("PEPE"))
}

func TestOracle_Fetch(t *testing.T) {
	setup := func() (*price.Oracle, *testutil.MockCoinGeckoClient, *testutil.FakeClock) {
		client := testutil.NewMockCoinGeckoClient().
			WithPrice("bitcoin", 40000).
			WithPrice("ethereum", 2500)
		clock := testutil.NewFakeClock(start)
		return price.NewOracle(client, price.WithClock(clock.Now)), client, clock
	}

	t.Run("maps symbols to prices", func(t *testing.T) {
		oracle, client, _ := setup()

		prices := oracle.Fetch(context.Background(), []string{"BTC", "eth"})

		assert.Equal(t, "40000", prices["BTC"].String())
		assert.Equal(t, "2500", prices["ETH"].String())
		assert.Equal(t, []string{"bitcoin", "ethereum"}, client.LastIDs())
	})

	t.Run("serves cache within ttl", func(t *testing.T) {
		oracle, client, clock := setup()

		oracle.Fetch(context.Background(), []string{"BTC"})
		clock.Advance(59 * time.Second)
		prices := oracle.Fetch(context.Background(), []string{"BTC"})

		assert.Equal(t, 1, client.QueryCount())
		assert.Equal(t, "40000", prices["BTC"].String())
	})

	t.Run("refetches after ttl", func(t *testing.T) {
		oracle, client, clock := setup()

		oracle.Fetch(context.Background(), []string{"BTC"})
		clock.Advance(61 * time.Second)
		oracle.Fetch(context.Background(), []string{"BTC"})

		assert.Equal(t, 2, client.QueryCount())
	})

	t.Run("cache key ignores symbol order", func(t *testing.T) {
		oracle, client, _ := setup()

		oracle.Fetch(context.Background(), []string{"ETH", "BTC"})
		oracle.Fetch(context.Background(), []string{"BTC", "ETH", "BTC"})

		assert.Equal(t, 1, client.QueryCount())
	})

	t.Run("different coin sets use different entries", func(t *testing.T) {
		oracle, client, _ := setup()

		oracle.Fetch(context.Background(), []string{"BTC"})
		oracle.Fetch(context.Background(), []string{"BTC", "ETH"})

		assert.Equal(t, 2, client.QueryCount())
	})

	t.Run("serves stale entry when rate limited", func(t *testing.T) {
		oracle, client, clock := setup()

		oracle.Fetch(context.Background(), []string{"BTC"})
		clock.Advance(10 * time.Minute)
		client.WithError(apperrors.NewUpstreamError("CoinGecko", apperrors.ErrUpstreamRateLimited, 429, "Too Many Requests"))

		prices := oracle.Fetch(context.Background(), []string{"BTC"})

		assert.Equal(t, 2, client.QueryCount())
		assert.Equal(t, "40000", prices["BTC"].String())
	})

	t.Run("stale entry is refetched once upstream recovers", func(t *testing.T) {
		oracle, client, clock := setup()

		oracle.Fetch(context.Background(), []string{"BTC"})
		clock.Advance(2 * time.Minute)
		client.WithError(apperrors.ErrUpstreamUnavailable)
		oracle.Fetch(context.Background(), []string{"BTC"})

		client.WithError(nil).WithPrice("bitcoin", 41000)
		prices := oracle.Fetch(context.Background(), []string{"BTC"})

		assert.Equal(t, "41000", prices["BTC"].String())
		assert.Equal(t, 3, client.QueryCount())
	})

	t.Run("returns empty map when nothing cached and upstream fails", func(t *testing.T) {
		oracle, client, _ := setup()
		client.WithError(apperrors.ErrUpstreamUnavailable)

		prices := oracle.Fetch(context.Background(), []string{"BTC"})

		require.NotNil(t, prices)
		assert.Empty(t, prices)
	})

	t.Run("empty symbol list makes no upstream call", func(t *testing.T) {
		oracle, client, _ := setup()

		prices := oracle.Fetch(context.Background(), nil)

		assert.Empty(t, prices)
		assert.Equal(t, 0, client.QueryCount())
	})

	t.Run("unknown symbols are omitted", func(t *testing.T) {
		oracle, _, _ := setup()

		prices := oracle.Fetch(context.Background(), []string{"BTC", "NOPE"})

		assert.Len(t, prices, 1)
		_, ok := prices["NOPE"]
		assert.False(t, ok)
	})

	t.Run("custom ttl", func(t *testing.T) {
		client := testutil.NewMockCoinGeckoClient().WithPrice("bitcoin", 1)
		clock := testutil.NewFakeClock(start)
		oracle := price.NewOracle(client, price.WithClock(clock.Now), price.WithTTL(5*time.Second))

		oracle.Fetch(context.Background(), []string{"BTC"})
		clock.Advance(6 * time.Second)
		oracle.Fetch(context.Background(), []string{"BTC"})

		assert.Equal(t, 2, client.QueryCount())
	})

	t.Run("safe for concurrent use", func(t *testing.T) {
		oracle, _, clock := setup()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%10 == 0 {
					clock.Advance(time.Minute)
				}
				prices := oracle.Fetch(context.Background(), []string{"BTC", "ETH"})
				assert.Len(t, prices, 2)
			}(i)
		}
		wg.Wait()
	})
}
