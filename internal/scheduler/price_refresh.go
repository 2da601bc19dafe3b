package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SymbolSource lists the symbols held anywhere in the ledger.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// PriceFetcher is the price oracle.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbols []string) map[string]decimal.Decimal
}

// PriceRefreshJob keeps the price cache warm for every symbol in the ledger.
type PriceRefreshJob struct {
	symbols SymbolSource
	prices  PriceFetcher
	timeout time.Duration
	log     zerolog.Logger
}

// NewPriceRefreshJob creates a new price refresh job. timeout bounds one run.
func NewPriceRefreshJob(symbols SymbolSource, prices PriceFetcher, timeout time.Duration, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		symbols: symbols,
		prices:  prices,
		timeout: timeout,
		log:     log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run fetches prices for every held symbol.
func (j *PriceRefreshJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	symbols, err := j.symbols.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	prices := j.prices.Fetch(ctx, symbols)
	j.log.Debug().Int("symbols", len(symbols)).Int("priced", len(prices)).Msg("prices refreshed")
	return nil
}
