// Package model holds the domain types shared by the repository, service and API layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are emitted as JSON numbers, matching what API clients already parse.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transaction types.
const (
	TypeBuy  = "buy"
	TypeSell = "sell"
)

// Transaction statuses. StatusDeleted marks a soft-deleted row.
const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusDeleted = "delete"
)

// Transaction sources.
const (
	SourceManual    = "manual"
	SourceCoinbase  = "coinbase"
	SourceRobinhood = "robinhood"
)

// DefaultUserID is used when a request does not name a user.
const DefaultUserID = "default"

// Transaction is a single buy or sell ledger entry.
// Soft-deleted transactions (StatusDeleted) are never returned by reads.
type Transaction struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Type           string           `json:"type"`
	Coins          decimal.Decimal  `json:"coins"`
	ValueUSD       decimal.Decimal  `json:"value_usd"`
	PurchasedPrice decimal.Decimal  `json:"purchased_price"`
	Date           time.Time        `json:"date"`
	Status         string           `json:"status"`
	Source         string           `json:"source"`
	ExternalID     *string          `json:"external_id"`
	Fees           *decimal.Decimal `json:"fees,omitempty"`
	CreatedBy      string           `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IsLive reports whether the transaction participates in holdings.
func (t Transaction) IsLive() bool {
	return t.Status == StatusActive || t.Status == StatusPending
}

// DedupKey returns the (external_id, source) identity of an imported transaction.
// ok is false when the transaction carries no external id.
func (t Transaction) DedupKey() (key DedupKey, ok bool) {
	if t.ExternalID == nil || *t.ExternalID == "" {
		return DedupKey{}, false
	}
	return DedupKey{ExternalID: *t.ExternalID, Source: t.Source}, true
}

// DedupKey is the logical uniqueness key of imported transactions.
type DedupKey struct {
	ExternalID string
	Source     string
}

// TransactionFilter narrows a ledger query. Zero values mean "no constraint";
// an empty Statuses slice means active and pending.
type TransactionFilter struct {
	UserID    string
	Symbol    string
	Source    string
	Statuses  []string
	ExcludeID string
	Limit     int
}
