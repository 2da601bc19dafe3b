package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

const transactionColumns = `
	id, user_id, name, symbol, type, coins, value_usd, purchased_price, date,
	status, source, external_id, fees, created_by, created_at`

// TransactionRepository provides data access methods for the transaction table.
// Rows are never physically removed; SoftDelete flips the status to "delete".
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert stores a new transaction. The caller assigns ID and CreatedAt.
func (r *TransactionRepository) Insert(ctx context.Context, t model.Transaction) error {
	query := `
		INSERT INTO "transaction" (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Name,
		t.Symbol,
		t.Type,
		t.Coins,
		t.ValueUSD,
		t.PurchasedPrice,
		FormatTime(t.Date),
		t.Status,
		t.Source,
		nullString(t.ExternalID),
		nullDecimal(t.Fees),
		t.CreatedBy,
		FormatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a live transaction.
// Returns ErrTransactionNotFound when the row is missing or soft-deleted.
func (r *TransactionRepository) Update(ctx context.Context, t model.Transaction) error {
	query := `
		UPDATE "transaction"
		SET name = ?, symbol = ?, type = ?, coins = ?, value_usd = ?, purchased_price = ?,
			date = ?, status = ?, fees = ?
		WHERE id = ? AND status != ?
	`
	res, err := r.db.ExecContext(ctx, query,
		t.Name,
		t.Symbol,
		t.Type,
		t.Coins,
		t.ValueUSD,
		t.PurchasedPrice,
		FormatTime(t.Date),
		t.Status,
		nullDecimal(t.Fees),
		t.ID,
		model.StatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOneRow(res)
}

// SoftDelete marks a live transaction deleted.
// Returns ErrTransactionNotFound when the row is missing or already deleted.
func (r *TransactionRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE "transaction" SET status = ? WHERE id = ? AND status != ?`,
		model.StatusDeleted, id, model.StatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// GetByID returns a live transaction. Soft-deleted rows read as ErrTransactionNotFound.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" WHERE id = ? AND status != ?`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, model.StatusDeleted))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// Find returns transactions matching the filter, newest first.
// Without explicit statuses only active and pending rows are returned.
func (r *TransactionRepository) Find(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []string{model.StatusActive, model.StatusPending}
	}

	query := `SELECT ` + transactionColumns + ` FROM "transaction" WHERE status IN (` + placeholders(len(statuses)) + `)`
	args := make([]any, 0, len(statuses)+5)
	for _, s := range statuses {
		args = append(args, s)
	}

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.ExcludeID != "" {
		query += ` AND id != ?`
		args = append(args, filter.ExcludeID)
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// DistinctSymbols returns every symbol that appears in a live transaction.
func (r *TransactionRepository) DistinctSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM "transaction" WHERE status IN (?, ?) ORDER BY symbol`,
		model.StatusActive, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}
	return symbols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var dateStr, createdAtStr string
	var externalID sql.NullString
	var fees decimal.NullDecimal

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.Symbol,
		&t.Type,
		&t.Coins,
		&t.ValueUSD,
		&t.PurchasedPrice,
		&dateStr,
		&t.Status,
		&t.Source,
		&externalID,
		&fees,
		&t.CreatedBy,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction table results: %w", err)
	}

	t.Date, err = ParseTime(dateStr)
	if err != nil {
		return t, err
	}
	t.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return t, err
	}
	if externalID.Valid {
		id := externalID.String
		t.ExternalID = &id
	}
	if fees.Valid {
		f := fees.Decimal
		t.Fees = &f
	}

	return t, nil
}
