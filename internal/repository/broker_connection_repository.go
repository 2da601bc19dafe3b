package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

const brokerConnectionColumns = `id, user_id, broker, credentials_encrypted, auto_import_enabled, last_import_at, created_at`

// BrokerConnectionRepository stores encrypted broker credentials for scheduled imports.
type BrokerConnectionRepository struct {
	db *sql.DB
}

// NewBrokerConnectionRepository creates a new BrokerConnectionRepository.
func NewBrokerConnectionRepository(db *sql.DB) *BrokerConnectionRepository {
	return &BrokerConnectionRepository{db: db}
}

// Insert stores a new connection.
func (r *BrokerConnectionRepository) Insert(ctx context.Context, c model.BrokerConnection) error {
	var lastImport any
	if c.LastImportAt != nil {
		lastImport = FormatTime(*c.LastImportAt)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO broker_connection (`+brokerConnectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.UserID,
		c.Broker,
		c.CredentialsEncrypted,
		c.AutoImportEnabled,
		lastImport,
		FormatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert broker connection: %w", err)
	}
	return nil
}

// GetByID returns one connection or ErrBrokerConnectionNotFound.
func (r *BrokerConnectionRepository) GetByID(ctx context.Context, id string) (model.BrokerConnection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+brokerConnectionColumns+` FROM broker_connection WHERE id = ?`, id)
	c, err := scanBrokerConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BrokerConnection{}, apperrors.ErrBrokerConnectionNotFound
	}
	return c, err
}

// List returns connections for a user, or for every user when userID is empty.
func (r *BrokerConnectionRepository) List(ctx context.Context, userID string) ([]model.BrokerConnection, error) {
	query := `SELECT ` + brokerConnectionColumns + ` FROM broker_connection`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at`
	return r.query(ctx, query, args...)
}

// ListAutoImport returns every connection with auto import enabled.
func (r *BrokerConnectionRepository) ListAutoImport(ctx context.Context) ([]model.BrokerConnection, error) {
	return r.query(ctx, `SELECT `+brokerConnectionColumns+` FROM broker_connection WHERE auto_import_enabled = 1 ORDER BY created_at`)
}

// MarkImported stamps the time of the last successful import.
func (r *BrokerConnectionRepository) MarkImported(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE broker_connection SET last_import_at = ? WHERE id = ?`, FormatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update broker connection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrBrokerConnectionNotFound
	}
	return nil
}

// Delete removes a connection. Stored credentials are not kept after deletion.
func (r *BrokerConnectionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM broker_connection WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete broker connection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrBrokerConnectionNotFound
	}
	return nil
}

func (r *BrokerConnectionRepository) query(ctx context.Context, query string, args ...any) ([]model.BrokerConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query broker_connection table: %w", err)
	}
	defer rows.Close()

	connections := []model.BrokerConnection{}
	for rows.Next() {
		c, err := scanBrokerConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating broker_connection table: %w", err)
	}
	return connections, nil
}

func scanBrokerConnection(row rowScanner) (model.BrokerConnection, error) {
	var c model.BrokerConnection
	var lastImportStr sql.NullString
	var createdAtStr string

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Broker,
		&c.CredentialsEncrypted,
		&c.AutoImportEnabled,
		&lastImportStr,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return c, err
	}
	if err != nil {
		return c, fmt.Errorf("failed to scan broker_connection results: %w", err)
	}

	c.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return c, err
	}
	if lastImportStr.Valid {
		lastImport, err := ParseTime(lastImportStr.String)
		if err != nil {
			return c, err
		}
		c.LastImportAt = &lastImport
	}
	return c, nil
}
