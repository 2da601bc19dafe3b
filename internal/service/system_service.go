package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/database"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	features map[string]bool
}

// NewSystemService creates a new SystemService.
// features lists optional capabilities reported by the version endpoint.
func NewSystemService(db *sql.DB, features map[string]bool) *SystemService {
	return &SystemService{
		db:       db,
		features: features,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application version and whether the schema is current.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	current, latest, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	features := make(map[string]bool, len(s.features))
	for k, v := range s.features {
		features[k] = v
	}

	return model.VersionInfo{
		AppVersion:      version.Version,
		DbVersion:       current,
		LatestDbVersion: latest,
		MigrationNeeded: current < latest,
		Features:        features,
	}, nil
}
