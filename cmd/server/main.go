package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/app"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/config"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if cfg.Scheduler.Enabled {
		s, err := a.Scheduler()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure scheduler")
		}
		s.Start()
		defer s.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(a.Services, cfg, l),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("version", version.Version).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}
