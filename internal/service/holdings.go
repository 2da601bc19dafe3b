package service

import (
	"strings"
	"time"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// AggregateHoldings folds a ledger into per-symbol holdings.
//
// Only active and pending transactions dated at or before cutoff participate; a zero
// cutoff means no bound. Buys add coins and value_usd to the symbol, sells subtract
// them. Accumulation is a signed sum, so the result does not depend on the order of
// transactions. A symbol seen for the first time starts from the zero Holding.
func AggregateHoldings(transactions []model.Transaction, cutoff time.Time) model.Holdings {
	holdings := make(model.Holdings)

	for _, t := range transactions {
		if !t.IsLive() {
			continue
		}
		if !cutoff.IsZero() && t.Date.After(cutoff) {
			continue
		}

		symbol := strings.ToUpper(t.Symbol)
		h := holdings.Get(symbol)

		switch t.Type {
		case model.TypeBuy:
			h.Coins = h.Coins.Add(t.Coins)
			h.TotalCost = h.TotalCost.Add(t.ValueUSD)
		case model.TypeSell:
			h.Coins = h.Coins.Sub(t.Coins)
			h.TotalCost = h.TotalCost.Sub(t.ValueUSD)
		default:
			continue
		}

		holdings[symbol] = h
	}

	return holdings
}
