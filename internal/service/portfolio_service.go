package service

import (
	"context"
	"time"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// PortfolioService values a user's current holdings.
type PortfolioService struct {
	transactionService *TransactionService
	valuation          *ValuationEngine
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(transactionService *TransactionService, valuation *ValuationEngine) *PortfolioService {
	return &PortfolioService{
		transactionService: transactionService,
		valuation:          valuation,
	}
}

// GetPortfolio returns the current snapshot of a user's holdings at live prices.
// Price failures degrade to stale or zero prices; only ledger read errors are returned.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) (model.PortfolioSnapshot, error) {
	ledger, err := s.transactionService.Ledger(ctx, userID)
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}
	return s.valuation.Valuate(ctx, ledger, time.Time{}), nil
}
