// Package app wires the ledger's repositories, services and background jobs from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/broker"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/coingecko"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/config"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/database"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/price"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/scheduler"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
)

// App holds the open database and the services built over it.
type App struct {
	DB       *sql.DB
	Oracle   *price.Oracle
	Services api.Services
	Config   *config.Config
	log      zerolog.Logger
}

// New opens the database at cfg.Database.Path, applies pending migrations and builds
// every service. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	version, err := database.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", cfg.Database.Path).Int64("schema_version", version).Msg("Database ready")

	a, err := build(db, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func build(db *sql.DB, cfg *config.Config, log zerolog.Logger) (*App, error) {
	client := coingecko.NewAPIClient(cfg.Price.BaseURL, cfg.Price.APIKey, cfg.Price.Timeout, log)
	oracle := price.NewOracle(client,
		price.WithTTL(cfg.Price.CacheTTL),
		price.WithLogger(log),
	)

	transactions := service.NewTransactionService(repository.NewTransactionRepository(db), log)
	valuation := service.NewValuationEngine(oracle, log)
	portfolio := service.NewPortfolioService(transactions, valuation)
	imports := service.NewImportService(transactions, broker.Options{
		CoinbaseBaseURL:  cfg.Broker.CoinbaseBaseURL,
		RobinhoodBaseURL: cfg.Broker.RobinhoodBaseURL,
		Timeout:          cfg.Broker.Timeout,
		Log:              log,
	}, log)

	connections, err := service.NewBrokerConnectionService(
		repository.NewBrokerConnectionRepository(db), imports, cfg.Security.EncryptionKey, log)
	if err != nil {
		return nil, err
	}
	if !connections.Enabled() {
		log.Warn().Msg("ENCRYPTION_KEY not set, stored broker connections are disabled")
	}

	features := map[string]bool{
		"broker_connections": connections.Enabled(),
		"scheduler":          cfg.Scheduler.Enabled,
		"coingecko_api_key":  cfg.Price.APIKey != "",
	}

	return &App{
		DB:     db,
		Oracle: oracle,
		Services: api.Services{
			System:       service.NewSystemService(db, features),
			Transactions: transactions,
			Portfolio:    portfolio,
			Analytics:    service.NewAnalyticsService(transactions, valuation, log),
			Imports:      imports,
			Connections:  connections,
			Export:       service.NewExportService(transactions, portfolio),
		},
		Config: cfg,
		log:    log,
	}, nil
}

// Scheduler returns a scheduler with the price refresh and broker auto-import jobs
// registered. It is not started.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	refresh := scheduler.NewPriceRefreshJob(a.Services.Transactions, a.Oracle, a.Config.Price.Timeout, a.log)
	if err := s.AddJob(a.Config.Scheduler.PriceRefreshSchedule, refresh); err != nil {
		return nil, fmt.Errorf("invalid price refresh schedule: %w", err)
	}

	if a.Services.Connections.Enabled() {
		autoImport := scheduler.NewBrokerAutoImportJob(a.Services.Connections, a.log)
		if err := s.AddJob(a.Config.Scheduler.AutoImportSchedule, autoImport); err != nil {
			return nil, fmt.Errorf("invalid auto-import schedule: %w", err)
		}
	}

	return s, nil
}

// Close closes the database.
func (a *App) Close() error {
	return a.DB.Close()
}
