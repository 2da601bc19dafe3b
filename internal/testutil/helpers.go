package testutil

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/broker"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
)

// MakeID returns a new random UUID string.
func MakeID() string {
	return uuid.New().String()
}

// Dec parses a decimal string, panicking on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr is Dec returning a pointer, for optional request fields.
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// FakePriceSource is a fixed price table implementing service.PriceSource.
type FakePriceSource struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	calls  int
}

// NewFakePriceSource creates an empty price table.
func NewFakePriceSource() *FakePriceSource {
	return &FakePriceSource{prices: map[string]decimal.Decimal{}}
}

// WithPrice sets the price of an upper-case symbol.
func (f *FakePriceSource) WithPrice(symbol, price string) *FakePriceSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = Dec(price)
	return f
}

func (f *FakePriceSource) Fetch(_ context.Context, symbols []string) map[string]decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		}
	}
	return out
}

// Calls returns the number of Fetch calls.
func (f *FakePriceSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Services bundles the services built over one test database.
type Services struct {
	Transactions *service.TransactionService
	Valuation    *service.ValuationEngine
	Portfolio    *service.PortfolioService
	Analytics    *service.AnalyticsService
	Imports      *service.ImportService
	Export       *service.ExportService
}

// NewTestServices wires the services over db with prices as the price source.
func NewTestServices(t *testing.T, db *sql.DB, prices service.PriceSource) Services {
	t.Helper()

	log := zerolog.Nop()
	txService := NewTestTransactionService(t, db)
	valuation := service.NewValuationEngine(prices, log)
	portfolio := service.NewPortfolioService(txService, valuation)

	return Services{
		Transactions: txService,
		Valuation:    valuation,
		Portfolio:    portfolio,
		Analytics:    service.NewAnalyticsService(txService, valuation, log),
		Imports:      service.NewImportService(txService, broker.Options{Log: log}, log),
		Export:       service.NewExportService(txService, portfolio),
	}
}

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		repository.NewTransactionRepository(db),
		zerolog.Nop(),
	)
}
