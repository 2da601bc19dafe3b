package service

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

func tx(symbol, typ, coins, value string, date time.Time) model.Transaction {
	return model.Transaction{
		Symbol:   symbol,
		Type:     typ,
		Coins:    decimal.RequireFromString(coins),
		ValueUSD: decimal.RequireFromString(value),
		Date:     date,
		Status:   model.StatusActive,
	}
}

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestAggregateHoldings(t *testing.T) {
	t.Run("signed accumulation per symbol", func(t *testing.T) {
		ledger := []model.Transaction{
			tx("BTC", model.TypeBuy, "1", "30000", day),
			tx("btc", model.TypeBuy, "0.5", "20000", day.AddDate(0, 0, 1)),
			tx("BTC", model.TypeSell, "0.25", "10000", day.AddDate(0, 0, 2)),
			tx("ETH", model.TypeBuy, "2", "4000", day),
		}

		h := AggregateHoldings(ledger, time.Time{})

		assert.Equal(t, "1.25", h.Get("BTC").Coins.String())
		assert.Equal(t, "40000", h.Get("BTC").TotalCost.String())
		assert.Equal(t, "2", h.Get("ETH").Coins.String())
		assert.Len(t, h, 2)
	})

	t.Run("result does not depend on order", func(t *testing.T) {
		ledger := []model.Transaction{
			tx("BTC", model.TypeBuy, "1", "30000", day),
			tx("ETH", model.TypeBuy, "3", "6000", day),
			tx("BTC", model.TypeSell, "0.3", "12000", day),
			tx("SOL", model.TypeBuy, "10", "1000", day),
			tx("ETH", model.TypeSell, "1", "2500", day),
			tx("BTC", model.TypeBuy, "0.1", "4100", day),
		}
		want := AggregateHoldings(ledger, time.Time{})

		rng := rand.New(rand.NewPCG(7, 11))
		for i := 0; i < 20; i++ {
			shuffled := append([]model.Transaction{}, ledger...)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

			got := AggregateHoldings(shuffled, time.Time{})

			for symbol, h := range want {
				assert.True(t, h.Coins.Equal(got.Get(symbol).Coins), symbol)
				assert.True(t, h.TotalCost.Equal(got.Get(symbol).TotalCost), symbol)
			}
		}
	})

	t.Run("cutoff is inclusive", func(t *testing.T) {
		ledger := []model.Transaction{
			tx("BTC", model.TypeBuy, "1", "30000", day),
			tx("BTC", model.TypeBuy, "1", "35000", day.Add(time.Second)),
		}

		h := AggregateHoldings(ledger, day)

		assert.Equal(t, "1", h.Get("BTC").Coins.String())
	})

	t.Run("only active and pending participate", func(t *testing.T) {
		pending := tx("BTC", model.TypeBuy, "2", "60000", day)
		pending.Status = model.StatusPending
		deleted := tx("BTC", model.TypeBuy, "5", "150000", day)
		deleted.Status = model.StatusDeleted

		h := AggregateHoldings([]model.Transaction{pending, deleted}, time.Time{})

		assert.Equal(t, "2", h.Get("BTC").Coins.String())
	})

	t.Run("unknown symbol reads as zero", func(t *testing.T) {
		h := AggregateHoldings(nil, time.Time{})

		assert.True(t, h.Get("DOGE").Coins.IsZero())
		assert.True(t, h.Get("DOGE").TotalCost.IsZero())
	})
}

func TestDeduplicate(t *testing.T) {
	keyed := func(id, source string) model.Transaction {
		r := tx("BTC", model.TypeBuy, "1", "1", day)
		r.Source = source
		r.ExternalID = &id
		return r
	}

	t.Run("partitions against existing entries", func(t *testing.T) {
		existing := []model.Transaction{keyed("a", "coinbase"), keyed("b", "coinbase")}
		records := []model.Transaction{
			keyed("a", "coinbase"), keyed("b", "coinbase"),
			keyed("c", "coinbase"), keyed("d", "coinbase"), keyed("e", "coinbase"),
		}

		res := Deduplicate(records, existing)

		assert.Len(t, res.ToInsert, 3)
		assert.Len(t, res.Duplicates, 2)
		assert.Empty(t, res.Unkeyed)
	})

	t.Run("same id from another source is new", func(t *testing.T) {
		res := Deduplicate([]model.Transaction{keyed("a", "robinhood")}, []model.Transaction{keyed("a", "coinbase")})

		assert.Len(t, res.ToInsert, 1)
	})

	t.Run("deleted entries do not block re-import", func(t *testing.T) {
		gone := keyed("a", "coinbase")
		gone.Status = model.StatusDeleted

		res := Deduplicate([]model.Transaction{keyed("a", "coinbase")}, []model.Transaction{gone})

		assert.Len(t, res.ToInsert, 1)
	})

	t.Run("repeats within a batch are duplicates", func(t *testing.T) {
		res := Deduplicate([]model.Transaction{keyed("a", "coinbase"), keyed("a", "coinbase")}, nil)

		assert.Len(t, res.ToInsert, 1)
		assert.Len(t, res.Duplicates, 1)
	})

	t.Run("records without external id are inserted and flagged", func(t *testing.T) {
		unkeyed := tx("ETH", model.TypeBuy, "1", "1", day)
		unkeyed.Source = "coinbase"

		res := Deduplicate([]model.Transaction{unkeyed, unkeyed}, nil)

		assert.Len(t, res.ToInsert, 2)
		assert.Len(t, res.Unkeyed, 2)
		assert.Empty(t, res.Duplicates)
	})
}

func TestRankPerformers(t *testing.T) {
	snapshot := model.EmptySnapshot()
	for symbol, pct := range map[string]string{"AAA": "50", "BBB": "-20", "CCC": "5"} {
		snapshot.Coins[symbol] = model.AssetValuation{Symbol: symbol, GainPercent: decimal.RequireFromString(pct)}
	}

	report := rankPerformers(snapshot, 1)

	assert.Equal(t, 3, report.TotalAssets)
	assert.Len(t, report.Best, 1)
	assert.Equal(t, "AAA", report.Best[0].Symbol)
	assert.Len(t, report.Worst, 1)
	assert.Equal(t, "BBB", report.Worst[0].Symbol)

	all := rankPerformers(snapshot, 10)
	assert.Equal(t, []string{"AAA", "CCC", "BBB"}, symbolsOf(all.Best))
	assert.Equal(t, []string{"BBB", "CCC", "AAA"}, symbolsOf(all.Worst))
}

func symbolsOf(list []model.AssetValuation) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Symbol
	}
	return out
}

func TestPercentOf(t *testing.T) {
	assert.True(t, percentOf(decimal.NewFromInt(5), decimal.Zero).IsZero())
	assert.True(t, percentOf(decimal.NewFromInt(5), decimal.NewFromInt(-1)).IsZero())
	assert.Equal(t, "33.33", round(percentOf(decimal.NewFromInt(10000), decimal.NewFromInt(30000))).String())
}
