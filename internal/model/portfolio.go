package model

import "github.com/shopspring/decimal"

// Holding is the running position in one symbol.
// The zero value (no coins, no cost) is the position of a symbol never traded.
type Holding struct {
	Coins     decimal.Decimal `json:"coins"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// Holdings maps an upper-case symbol to its position.
type Holdings map[string]Holding

// Get returns the holding for symbol, or the zero Holding when the symbol is absent.
func (h Holdings) Get(symbol string) Holding {
	return h[symbol]
}

// AssetValuation is one symbol's line in a portfolio snapshot.
type AssetValuation struct {
	Symbol      string          `json:"symbol"`
	Coins       decimal.Decimal `json:"coins"`
	Cost        decimal.Decimal `json:"cost"`
	Value       decimal.Decimal `json:"value"`
	Gain        decimal.Decimal `json:"gain"`
	GainPercent decimal.Decimal `json:"gain_percent"`
	Price       decimal.Decimal `json:"price"`
}

// PortfolioSnapshot is the valued state of a set of holdings at one instant.
type PortfolioSnapshot struct {
	TotalCost   decimal.Decimal           `json:"total_cost"`
	TotalValue  decimal.Decimal           `json:"total_value"`
	Gain        decimal.Decimal           `json:"gain"`
	GainPercent decimal.Decimal           `json:"gain_percent"`
	Coins       map[string]AssetValuation `json:"coins"`
}

// EmptySnapshot returns the all-zero snapshot of an empty ledger.
func EmptySnapshot() PortfolioSnapshot {
	return PortfolioSnapshot{
		TotalCost:   decimal.Zero,
		TotalValue:  decimal.Zero,
		Gain:        decimal.Zero,
		GainPercent: decimal.Zero,
		Coins:       map[string]AssetValuation{},
	}
}
