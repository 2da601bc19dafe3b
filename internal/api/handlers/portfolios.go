package handlers

import (
	"io"
	"net/http"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
)

// PortfolioHandler handles portfolio-related HTTP requests
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	exportService    *service.ExportService
	defaultUserID    string
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService, exportService *service.ExportService, defaultUserID string) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		exportService:    exportService,
		defaultUserID:    defaultUserID,
	}
}

func (h *PortfolioHandler) userID(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return h.defaultUserID
}

// Portfolio returns the current valued snapshot of a user's holdings.
// Price outages degrade the valuation but never fail the request.
//
// Endpoint: GET /api/portfolio?userId=
// Response: 200 OK with PortfolioSnapshot
// Error: 500 Internal Server Error if the ledger cannot be read
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.portfolioService.GetPortfolio(r.Context(), h.userID(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePortfolio.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshot)
}

// ExportPortfolio downloads the current holdings as CSV.
//
// Endpoint: GET /api/portfolio/export?userId=
func (h *PortfolioHandler) ExportPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	respondCSV(w, "portfolio.csv", func(out io.Writer) error {
		return h.exportService.ExportPortfolioCSV(r.Context(), userID, out)
	})
}
