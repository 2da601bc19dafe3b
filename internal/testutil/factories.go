package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
)

// TransactionBuilder provides a fluent interface for creating test transactions.
// Build writes through the repository, so holdings checks are not applied.
//
// Example usage:
//
//	// 1 BTC bought for 30000 by the default user
//	tx := testutil.NewTransaction().Build(t, db)
//
//	// Customized transaction
//	tx := testutil.NewTransaction().
//	    WithSymbol("ETH").
//	    WithType(model.TypeSell).
//	    WithCoins("0.5").
//	    WithValue("1500").
//	    Build(t, db)
type TransactionBuilder struct {
	tx model.Transaction
}

// NewTransaction creates a TransactionBuilder with sensible defaults.
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{tx: model.Transaction{
		ID:             MakeID(),
		UserID:         model.DefaultUserID,
		Name:           "Bitcoin",
		Symbol:         "BTC",
		Type:           model.TypeBuy,
		Coins:          decimal.NewFromInt(1),
		ValueUSD:       decimal.NewFromInt(30000),
		PurchasedPrice: decimal.NewFromInt(30000),
		Date:           time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:         model.StatusActive,
		Source:         model.SourceManual,
		CreatedAt:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.tx.ID = id
	return b
}

// WithUser sets the owning user.
func (b *TransactionBuilder) WithUser(userID string) *TransactionBuilder {
	b.tx.UserID = userID
	return b
}

// WithSymbol sets the symbol and its display name.
func (b *TransactionBuilder) WithSymbol(symbol string) *TransactionBuilder {
	b.tx.Symbol = symbol
	b.tx.Name = model.AssetName(symbol)
	return b
}

// WithType sets buy or sell.
func (b *TransactionBuilder) WithType(typ string) *TransactionBuilder {
	b.tx.Type = typ
	return b
}

// WithCoins sets the quantity from a decimal string.
func (b *TransactionBuilder) WithCoins(coins string) *TransactionBuilder {
	b.tx.Coins = decimal.RequireFromString(coins)
	return b
}

// WithValue sets value_usd from a decimal string and derives the unit price.
func (b *TransactionBuilder) WithValue(value string) *TransactionBuilder {
	b.tx.ValueUSD = decimal.RequireFromString(value)
	if b.tx.Coins.IsPositive() {
		b.tx.PurchasedPrice = b.tx.ValueUSD.Div(b.tx.Coins)
	}
	return b
}

// WithDate sets the trade date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.tx.Date = date
	return b
}

// WithStatus sets the status.
func (b *TransactionBuilder) WithStatus(status string) *TransactionBuilder {
	b.tx.Status = status
	return b
}

// WithSource sets the source.
func (b *TransactionBuilder) WithSource(source string) *TransactionBuilder {
	b.tx.Source = source
	return b
}

// WithExternalID sets the broker trade id.
func (b *TransactionBuilder) WithExternalID(id string) *TransactionBuilder {
	b.tx.ExternalID = &id
	return b
}

// Value returns the transaction without storing it.
func (b *TransactionBuilder) Value() model.Transaction {
	return b.tx
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	if err := repository.NewTransactionRepository(db).Insert(context.Background(), b.tx); err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	return b.tx
}

// Convenience functions

// CreateBuy stores a buy of coins symbol for value USD.
func CreateBuy(t *testing.T, db *sql.DB, symbol, coins, value string) model.Transaction {
	t.Helper()
	return NewTransaction().WithSymbol(symbol).WithCoins(coins).WithValue(value).Build(t, db)
}
