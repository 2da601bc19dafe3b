// Package api assembles the HTTP surface of the ledger service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Crypto-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/config"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
)

// Services holds the services the router dispatches to.
type Services struct {
	System       *service.SystemService
	Transactions *service.TransactionService
	Portfolio    *service.PortfolioService
	Analytics    *service.AnalyticsService
	Imports      *service.ImportService
	Connections  *service.BrokerConnectionService
	Export       *service.ExportService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	r.Use(custommiddleware.CORS(cfg.CORS.AllowedOrigins))

	defaultUser := cfg.API.DefaultUserID

	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/transactions", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Export, defaultUser)
			r.Get("/", transactionHandler.ListTransactions)
			r.Post("/", transactionHandler.CreateTransaction)
			r.Get("/export", transactionHandler.ExportTransactions)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.RequireUUIDParam("uuid"))
				r.Put("/", transactionHandler.UpdateTransaction)
				r.Delete("/", transactionHandler.DeleteTransaction)
			})
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Export, defaultUser)
			r.Get("/", portfolioHandler.Portfolio)
			r.Get("/export", portfolioHandler.ExportPortfolio)
		})

		r.Route("/analytics", func(r chi.Router) {
			analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics, defaultUser)
			r.Get("/performance", analyticsHandler.Performance)
			r.Get("/performers", analyticsHandler.Performers)
			r.Get("/history", analyticsHandler.History)
		})

		r.Route("/broker", func(r chi.Router) {
			brokerHandler := handlers.NewBrokerHandler(svc.Imports, svc.Connections, defaultUser)
			r.Post("/import", brokerHandler.Import)
			r.Post("/test/coinbase", brokerHandler.TestCoinbase)

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", brokerHandler.ListConnections)
				r.Post("/", brokerHandler.CreateConnection)
				r.With(custommiddleware.RequireUUIDParam("uuid")).Delete("/{uuid}", brokerHandler.DeleteConnection)
			})
		})
	})

	return r
}
