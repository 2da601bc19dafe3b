package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// PriceSource resolves current USD prices keyed by upper-case symbol.
// Implementations fail soft: a missing symbol simply has no entry.
type PriceSource interface {
	Fetch(ctx context.Context, symbols []string) map[string]decimal.Decimal
}

// ValuationEngine turns a ledger into a valued portfolio snapshot.
type ValuationEngine struct {
	prices PriceSource
	log    zerolog.Logger
}

// NewValuationEngine creates a ValuationEngine backed by prices.
func NewValuationEngine(prices PriceSource, log zerolog.Logger) *ValuationEngine {
	return &ValuationEngine{
		prices: prices,
		log:    log.With().Str("component", "valuation").Logger(),
	}
}

// Valuate values the holdings as of cutoff (zero means no bound) at current prices.
//
// Symbols with no positive coin balance are dropped. Prices for the remaining symbols
// are resolved in one batched lookup, skipped entirely when nothing is held. A symbol
// without a price is valued at zero.
func (e *ValuationEngine) Valuate(ctx context.Context, transactions []model.Transaction, cutoff time.Time) model.PortfolioSnapshot {
	holdings := AggregateHoldings(transactions, cutoff)
	held := heldSymbols(holdings)
	if len(held) == 0 {
		return model.EmptySnapshot()
	}

	prices := e.prices.Fetch(ctx, held)

	return buildSnapshot(holdings, held, func(symbol string, h model.Holding) (decimal.Decimal, decimal.Decimal) {
		p, ok := prices[symbol]
		if !ok {
			e.log.Warn().Str("symbol", symbol).Msg("no price available, valuing at zero")
			p = decimal.Zero
		}
		return p, h.Coins.Mul(p)
	})
}

// ValuateAtCost values the holdings as of cutoff at their cost basis.
// It approximates historical portfolio value without historical prices:
// value equals cost, gain is zero and price is reported as zero.
func ValuateAtCost(transactions []model.Transaction, cutoff time.Time) model.PortfolioSnapshot {
	holdings := AggregateHoldings(transactions, cutoff)
	held := heldSymbols(holdings)
	if len(held) == 0 {
		return model.EmptySnapshot()
	}

	return buildSnapshot(holdings, held, func(_ string, h model.Holding) (decimal.Decimal, decimal.Decimal) {
		return decimal.Zero, h.TotalCost
	})
}

type valueFunc func(symbol string, h model.Holding) (price, value decimal.Decimal)

func buildSnapshot(holdings model.Holdings, held []string, valueOf valueFunc) model.PortfolioSnapshot {
	snapshot := model.EmptySnapshot()
	totalCost := decimal.Zero
	totalValue := decimal.Zero

	for _, symbol := range held {
		h := holdings.Get(symbol)
		price, value := valueOf(symbol, h)
		gain := value.Sub(h.TotalCost)

		snapshot.Coins[symbol] = model.AssetValuation{
			Symbol:      symbol,
			Coins:       h.Coins,
			Cost:        round(h.TotalCost),
			Value:       round(value),
			Gain:        round(gain),
			GainPercent: round(percentOf(gain, h.TotalCost)),
			Price:       price,
		}

		totalCost = totalCost.Add(h.TotalCost)
		totalValue = totalValue.Add(value)
	}

	gain := totalValue.Sub(totalCost)
	snapshot.TotalCost = round(totalCost)
	snapshot.TotalValue = round(totalValue)
	snapshot.Gain = round(gain)
	snapshot.GainPercent = round(percentOf(gain, totalCost))

	return snapshot
}

// heldSymbols returns symbols with a positive coin balance, sorted.
func heldSymbols(holdings model.Holdings) []string {
	symbols := make([]string, 0, len(holdings))
	for symbol, h := range holdings {
		if h.Coins.IsPositive() {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}
