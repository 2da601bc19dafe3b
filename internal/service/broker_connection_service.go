package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/broker"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// BrokerConnectionService manages stored broker credentials and runs scheduled imports with them.
// Credentials are encrypted with a fernet key; without a key, connections cannot be stored.
type BrokerConnectionService struct {
	repo          *repository.BrokerConnectionRepository
	importService *ImportService
	keys          []*fernet.Key
	now           func() time.Time
	log           zerolog.Logger
}

// NewBrokerConnectionService creates a new BrokerConnectionService.
// encryptionKey is a base64 fernet key; an empty key disables stored connections.
func NewBrokerConnectionService(repo *repository.BrokerConnectionRepository, importService *ImportService, encryptionKey string, log zerolog.Logger) (*BrokerConnectionService, error) {
	s := &BrokerConnectionService{
		repo:          repo,
		importService: importService,
		now:           time.Now,
		log:           log.With().Str("component", "broker_connection_service").Logger(),
	}
	if encryptionKey != "" {
		keys, err := fernet.DecodeKeys(encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		s.keys = keys
	}
	return s, nil
}

// WithClock replaces the time source used for created_at and import windows.
func (s *BrokerConnectionService) WithClock(now func() time.Time) *BrokerConnectionService {
	s.now = now
	return s
}

// Enabled reports whether an encryption key is configured.
func (s *BrokerConnectionService) Enabled() bool {
	return len(s.keys) > 0
}

// Create validates and stores a connection. The credentials are parsed by the broker's
// connector before they are encrypted.
func (s *BrokerConnectionService) Create(ctx context.Context, req request.CreateBrokerConnectionRequest) (model.BrokerConnection, error) {
	if !s.Enabled() {
		return model.BrokerConnection{}, apperrors.ErrEncryptionUnavailable
	}
	if err := validation.ValidateCreateBrokerConnection(req); err != nil {
		return model.BrokerConnection{}, err
	}

	name := strings.ToLower(strings.TrimSpace(req.Broker))
	if _, err := broker.New(name, req.Credentials, broker.Options{}); err != nil {
		return model.BrokerConnection{}, err
	}

	token, err := fernet.EncryptAndSign(req.Credentials, s.keys[0])
	if err != nil {
		return model.BrokerConnection{}, fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	c := model.BrokerConnection{
		ID:                   uuid.New().String(),
		UserID:               firstNonEmpty(req.UserID, model.DefaultUserID),
		Broker:               name,
		CredentialsEncrypted: string(token),
		AutoImportEnabled:    req.AutoImportEnabled == nil || *req.AutoImportEnabled,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return model.BrokerConnection{}, err
	}

	s.log.Info().Str("id", c.ID).Str("broker", c.Broker).Str("user_id", c.UserID).Msg("broker connection stored")
	return c, nil
}

// List returns a user's connections without their credentials.
func (s *BrokerConnectionService) List(ctx context.Context, userID string) ([]model.BrokerConnection, error) {
	return s.repo.List(ctx, userID)
}

// Delete removes a connection. ErrUnauthorized is returned when userID is set and does not own it.
func (s *BrokerConnectionService) Delete(ctx context.Context, id, userID string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if userID != "" && c.UserID != userID {
		return apperrors.ErrUnauthorized
	}
	return s.repo.Delete(ctx, id)
}

func (s *BrokerConnectionService) decrypt(c model.BrokerConnection) (json.RawMessage, error) {
	msg := fernet.VerifyAndDecrypt([]byte(c.CredentialsEncrypted), 0, s.keys)
	if msg == nil {
		return nil, fmt.Errorf("failed to decrypt credentials of connection %s", c.ID)
	}
	return msg, nil
}

// AutoImport imports from every connection with auto import enabled, covering the time
// since its last successful import. A failing connection is logged and the others still run.
// It returns the number of connections imported successfully.
func (s *BrokerConnectionService) AutoImport(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	connections, err := s.repo.ListAutoImport(ctx)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	for _, c := range connections {
		if err := ctx.Err(); err != nil {
			return succeeded, err
		}
		log := s.log.With().Str("connection_id", c.ID).Str("broker", c.Broker).Logger()

		creds, err := s.decrypt(c)
		if err != nil {
			log.Error().Err(err).Msg("skipping connection")
			continue
		}

		now := s.now().UTC()
		req := request.ImportRequest{
			Broker:      c.Broker,
			UserID:      c.UserID,
			Credentials: creds,
			EndDate:     now.Format(time.RFC3339Nano),
		}
		if c.LastImportAt != nil {
			req.StartDate = c.LastImportAt.UTC().Format(time.RFC3339Nano)
		}

		result, err := s.importService.run(ctx, req, false)
		if err != nil {
			log.Error().Err(err).Msg("scheduled import failed")
			continue
		}
		if err := s.repo.MarkImported(ctx, c.ID, now); err != nil {
			log.Error().Err(err).Msg("failed to record import time")
			continue
		}

		log.Info().Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("scheduled import finished")
		succeeded++
	}
	return succeeded, nil
}
