package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
)

// BrokerHandler handles broker imports and stored broker connections.
type BrokerHandler struct {
	importService     *service.ImportService
	connectionService *service.BrokerConnectionService
	defaultUserID     string
}

// NewBrokerHandler creates a new BrokerHandler.
func NewBrokerHandler(importService *service.ImportService, connectionService *service.BrokerConnectionService, defaultUserID string) *BrokerHandler {
	return &BrokerHandler{
		importService:     importService,
		connectionService: connectionService,
		defaultUserID:     defaultUserID,
	}
}

// Import pulls trade history from a broker into the ledger.
//
// Endpoint: POST /api/broker/import
// Request Body: ImportRequest (broker, credentials, start_date, end_date, use_mock)
// Response: 200 OK with ImportResult
// Error: 400 Bad Request if validation fails
// Error: 429 Too Many Requests if the broker rate limits the import
// Error: 502 Bad Gateway for other broker failures, with a user-readable message
func (h *BrokerHandler) Import(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ImportRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.UserID == "" {
		req.UserID = h.defaultUserID
	}

	result, err := h.importService.Import(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToImportTransactions.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// TestCoinbase checks Coinbase credentials without importing. Rejected credentials are
// reported in the body with success false.
//
// Endpoint: POST /api/broker/test/coinbase
// Request Body: TestConnectionRequest
// Response: 200 OK with ConnectionTestResult
func (h *BrokerHandler) TestCoinbase(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.TestConnectionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.importService.TestConnection(r.Context(), model.SourceCoinbase, req.Credentials)
	if err != nil {
		respondServiceError(w, err, "failed to test connection")
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ListConnections returns a user's stored connections without credentials.
//
// Endpoint: GET /api/broker/connections?userId=
func (h *BrokerHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = h.defaultUserID
	}

	connections, err := h.connectionService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "failed to list broker connections")
		return
	}

	response.RespondJSON(w, http.StatusOK, connections)
}

// CreateConnection stores encrypted credentials for scheduled imports.
//
// Endpoint: POST /api/broker/connections
// Response: 201 Created with BrokerConnection
// Error: 400 Bad Request if validation fails
// Error: 503 Service Unavailable if no encryption key is configured
func (h *BrokerHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateBrokerConnectionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.UserID == "" {
		req.UserID = h.defaultUserID
	}

	connection, err := h.connectionService.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "failed to store broker connection")
		return
	}

	response.RespondJSON(w, http.StatusCreated, connection)
}

// DeleteConnection removes a stored connection.
//
// Endpoint: DELETE /api/broker/connections/{uuid}?userId=
// Response: 204 No Content
// Error: 403 Forbidden if the connection belongs to another user
// Error: 404 Not Found if the connection does not exist
func (h *BrokerHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	if err := h.connectionService.Delete(r.Context(), id, r.URL.Query().Get("userId")); err != nil {
		respondServiceError(w, err, "failed to delete broker connection")
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
