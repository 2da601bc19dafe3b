package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

const (
	// DefaultListLimit is the page size of ListTransactions when none is given.
	DefaultListLimit = 50
	// MaxListLimit caps the page size of ListTransactions.
	MaxListLimit = 1000
)

// TransactionService handles ledger write and read operations.
//
// Writes are serialized so the holdings check of a sell and its insert happen
// atomically with respect to other writes in this process.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
	now             func() time.Time
	log             zerolog.Logger

	writeMu sync.Mutex
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(transactionRepo *repository.TransactionRepository, log zerolog.Logger) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		now:             time.Now,
		log:             log.With().Str("component", "transaction_service").Logger(),
	}
}

// WithClock replaces the time source used for default dates and created_at.
func (s *TransactionService) WithClock(now func() time.Time) *TransactionService {
	s.now = now
	return s
}

// AddTransaction records a manual transaction. The request must already have passed
// validation.ValidateCreateTransaction.
//
// Defaults: date now, status active, source manual, user "default", name from the asset table.
// A sell larger than the user's current holdings of the symbol fails with a validation
// error wrapping ErrInsufficientHoldings, and nothing is written.
func (s *TransactionService) AddTransaction(ctx context.Context, req request.CreateTransactionRequest) (model.Transaction, error) {
	now := s.now().UTC()

	date := now
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := validation.ParseTime(req.Date)
		if err != nil {
			return model.Transaction{}, validation.NewError(apperrors.ErrValidation, "date", err.Error())
		}
		date = parsed
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	t := model.Transaction{
		UserID:     firstNonEmpty(req.UserID, model.DefaultUserID),
		Name:       firstNonEmpty(strings.TrimSpace(req.Name), model.AssetName(symbol)),
		Symbol:     symbol,
		Type:       strings.ToLower(req.Type),
		Date:       date,
		Status:     firstNonEmpty(req.Status, model.StatusActive),
		Source:     firstNonEmpty(strings.ToLower(req.Source), model.SourceManual),
		ExternalID: req.ExternalID,
		Fees:       req.Fees,
		CreatedBy:  req.CreatedBy,
	}
	if req.Coins != nil {
		t.Coins = *req.Coins
	}
	if req.ValueUSD != nil {
		t.ValueUSD = *req.ValueUSD
	}
	if req.PurchasedPrice != nil {
		t.PurchasedPrice = *req.PurchasedPrice
	}

	return s.Create(ctx, t)
}

// Create inserts a fully built transaction after the holdings check.
// ID and CreatedAt are assigned when empty. Used by manual entry and broker import alike.
func (s *TransactionService) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	t.Symbol = strings.ToUpper(t.Symbol)

	if t.Type == model.TypeSell {
		if err := s.checkSellable(ctx, t, ""); err != nil {
			return model.Transaction{}, err
		}
	}

	if err := s.transactionRepo.Insert(ctx, t); err != nil {
		return model.Transaction{}, err
	}

	s.log.Debug().
		Str("id", t.ID).
		Str("symbol", t.Symbol).
		Str("type", t.Type).
		Str("source", t.Source).
		Msg("transaction created")

	return t, nil
}

// UpdateTransaction applies the non-nil fields of req to a live transaction.
//
// Returns ErrTransactionNotFound for missing or deleted transactions and ErrUnauthorized
// when userID is set and does not own the transaction. When the merged record is a sell,
// holdings are re-checked excluding the transaction being edited.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id, userID string, req request.UpdateTransactionRequest) (model.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if userID != "" && existing.UserID != userID {
		return model.Transaction{}, apperrors.ErrUnauthorized
	}

	merged := existing
	if req.Name != nil {
		merged.Name = strings.TrimSpace(*req.Name)
	}
	if req.Symbol != nil {
		merged.Symbol = strings.ToUpper(strings.TrimSpace(*req.Symbol))
	}
	if req.Type != nil {
		merged.Type = strings.ToLower(*req.Type)
	}
	if req.Coins != nil {
		merged.Coins = *req.Coins
	}
	if req.ValueUSD != nil {
		merged.ValueUSD = *req.ValueUSD
	}
	if req.PurchasedPrice != nil {
		merged.PurchasedPrice = *req.PurchasedPrice
	}
	if req.Date != nil {
		date, err := validation.ParseTime(*req.Date)
		if err != nil {
			return model.Transaction{}, validation.NewError(apperrors.ErrValidation, "date", err.Error())
		}
		merged.Date = date
	}
	if req.Status != nil {
		merged.Status = *req.Status
	}
	if req.Fees != nil {
		merged.Fees = req.Fees
	}

	if merged.Type == model.TypeSell {
		if err := s.checkSellable(ctx, merged, id); err != nil {
			return model.Transaction{}, err
		}
	}

	if err := s.transactionRepo.Update(ctx, merged); err != nil {
		return model.Transaction{}, err
	}

	return merged, nil
}

// DeleteTransaction soft-deletes a live transaction.
// Returns ErrTransactionNotFound for missing or already deleted transactions and
// ErrUnauthorized when userID is set and does not own it.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id, userID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if userID != "" && existing.UserID != userID {
		return apperrors.ErrUnauthorized
	}

	if err := s.transactionRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.log.Debug().Str("id", id).Msg("transaction deleted")
	return nil
}

// ListTransactions returns a user's live transactions, newest first.
// A non-positive limit selects DefaultListLimit; limits above MaxListLimit are capped.
func (s *TransactionService) ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.transactionRepo.Find(ctx, model.TransactionFilter{UserID: userID, Limit: limit})
}

// Ledger returns every live transaction of a user (all users when userID is empty).
func (s *TransactionService) Ledger(ctx context.Context, userID string) ([]model.Transaction, error) {
	return s.transactionRepo.Find(ctx, model.TransactionFilter{UserID: userID})
}

// ExistingImports returns the user's live transactions from one source.
// It is the reference set for import deduplication.
func (s *TransactionService) ExistingImports(ctx context.Context, userID, source string) ([]model.Transaction, error) {
	return s.transactionRepo.Find(ctx, model.TransactionFilter{UserID: userID, Source: source})
}

// Symbols returns every symbol held in any live transaction.
func (s *TransactionService) Symbols(ctx context.Context) ([]string, error) {
	return s.transactionRepo.DistinctSymbols(ctx)
}

// checkSellable rejects sell when it exceeds the seller's current holdings of the symbol.
// excludeID leaves the transaction being edited out of the holdings.
func (s *TransactionService) checkSellable(ctx context.Context, sell model.Transaction, excludeID string) error {
	symbol := sell.Symbol
	ledger, err := s.transactionRepo.Find(ctx, model.TransactionFilter{
		UserID:    sell.UserID,
		Symbol:    symbol,
		ExcludeID: excludeID,
	})
	if err != nil {
		return fmt.Errorf("failed to load holdings: %w", err)
	}

	held := AggregateHoldings(ledger, time.Time{}).Get(symbol)
	if sell.Coins.GreaterThan(held.Coins) {
		return validation.NewError(
			apperrors.ErrInsufficientHoldings,
			"coins",
			fmt.Sprintf("Insufficient holdings. You have %s %s", held.Coins.String(), symbol),
		)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
