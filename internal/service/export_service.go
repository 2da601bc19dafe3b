package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
)

var (
	transactionCSVHeader = []string{"Date", "Symbol", "Name", "Type", "Coins", "Price", "Value (USD)", "Source", "Status"}
	portfolioCSVHeader   = []string{"Symbol", "Coins", "Cost Basis", "Current Value", "Gain/Loss", "Gain %", "Current Price"}
)

// ExportService writes ledger and portfolio data as CSV.
type ExportService struct {
	transactionService *TransactionService
	portfolioService   *PortfolioService
}

// NewExportService creates a new ExportService.
func NewExportService(transactionService *TransactionService, portfolioService *PortfolioService) *ExportService {
	return &ExportService{
		transactionService: transactionService,
		portfolioService:   portfolioService,
	}
}

// ExportTransactionsCSV writes a user's live transactions, newest first.
func (s *ExportService) ExportTransactionsCSV(ctx context.Context, userID string, w io.Writer) error {
	ledger, err := s.transactionService.Ledger(ctx, userID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(transactionCSVHeader); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToExport, err)
	}
	for _, t := range ledger {
		row := []string{
			t.Date.UTC().Format("2006-01-02"),
			t.Symbol,
			t.Name,
			t.Type,
			t.Coins.String(),
			t.PurchasedPrice.StringFixed(2),
			t.ValueUSD.StringFixed(2),
			t.Source,
			t.Status,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrFailedToExport, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToExport, err)
	}
	return nil
}

// ExportPortfolioCSV writes the current holdings of a user, ordered by symbol.
func (s *ExportService) ExportPortfolioCSV(ctx context.Context, userID string, w io.Writer) error {
	snapshot, err := s.portfolioService.GetPortfolio(ctx, userID)
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(snapshot.Coins))
	for symbol := range snapshot.Coins {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	cw := csv.NewWriter(w)
	if err := cw.Write(portfolioCSVHeader); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToExport, err)
	}
	for _, symbol := range symbols {
		a := snapshot.Coins[symbol]
		row := []string{
			a.Symbol,
			a.Coins.String(),
			a.Cost.StringFixed(2),
			a.Value.StringFixed(2),
			a.Gain.StringFixed(2),
			a.GainPercent.StringFixed(2),
			a.Price.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrFailedToExport, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToExport, err)
	}
	return nil
}
