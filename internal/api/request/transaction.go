package request

import "github.com/shopspring/decimal"

// CreateTransactionRequest is the body of a manual transaction entry.
// Amounts are pointers so a missing field can be told apart from zero.
type CreateTransactionRequest struct {
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Type           string           `json:"type"`
	Coins          *decimal.Decimal `json:"coins"`
	ValueUSD       *decimal.Decimal `json:"value_usd"`
	PurchasedPrice *decimal.Decimal `json:"purchased_price"`
	Date           string           `json:"date"`
	Status         string           `json:"status"`
	Source         string           `json:"source"`
	ExternalID     *string          `json:"external_id"`
	Fees           *decimal.Decimal `json:"fees"`
	CreatedBy      string           `json:"created_by"`
}

// UpdateTransactionRequest carries the fields to change. Nil fields are left untouched.
type UpdateTransactionRequest struct {
	Name           *string          `json:"name,omitempty"`
	Symbol         *string          `json:"symbol,omitempty"`
	Type           *string          `json:"type,omitempty"`
	Coins          *decimal.Decimal `json:"coins,omitempty"`
	ValueUSD       *decimal.Decimal `json:"value_usd,omitempty"`
	PurchasedPrice *decimal.Decimal `json:"purchased_price,omitempty"`
	Date           *string          `json:"date,omitempty"`
	Status         *string          `json:"status,omitempty"`
	Fees           *decimal.Decimal `json:"fees,omitempty"`
}
