package handlers

import (
	"net/http"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
)

// AnalyticsHandler serves performance reports.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	defaultUserID    string
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService, defaultUserID string) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		defaultUserID:    defaultUserID,
	}
}

func (h *AnalyticsHandler) userID(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return h.defaultUserID
}

// Performance compares the portfolio at the start of a period with now.
//
// Endpoint: GET /api/analytics/performance?userId=&period=
// Response: 200 OK with PerformanceReport
// Error: 400 Bad Request for an unknown period
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.Performance(r.Context(), h.userID(r), r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetPerformance.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Performers ranks current holdings by gain percent.
//
// Endpoint: GET /api/analytics/performers?userId=&limit=
// Response: 200 OK with PerformersReport
func (h *AnalyticsHandler) Performers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	report, err := h.analyticsService.Performers(r.Context(), h.userID(r), limit)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetPerformers.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// History returns the daily cost-basis series.
//
// Endpoint: GET /api/analytics/history?userId=&days=
// Response: 200 OK with HistoryReport
// Error: 400 Bad Request if days is out of range
func (h *AnalyticsHandler) History(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	report, err := h.analyticsService.History(r.Context(), h.userID(r), days)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetHistory.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}
