package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/service"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transactionService.
type TransactionHandler struct {
	transactionService *service.TransactionService
	exportService      *service.ExportService
	defaultUserID      string
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependencies.
// defaultUserID is used when a request names no user.
func NewTransactionHandler(transactionService *service.TransactionService, exportService *service.ExportService, defaultUserID string) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		exportService:      exportService,
		defaultUserID:      defaultUserID,
	}
}

func (h *TransactionHandler) userID(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return h.defaultUserID
}

// ListTransactions handles GET requests to retrieve a user's transactions, newest first.
//
// Endpoint: GET /api/transactions?userId=&limit=
// Response: 200 OK with array of Transaction
// Error: 400 Bad Request if limit is not an integer
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	transactions, err := h.transactionService.ListTransactions(r.Context(), h.userID(r), limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST requests to record a manual transaction.
//
// Endpoint: POST /api/transactions
// Request Body: CreateTransactionRequest (symbol, type, coins, value_usd, purchased_price required)
// Response: 201 Created with Transaction
// Error: 400 Bad Request if validation fails, the body is invalid or a sell exceeds holdings
// Error: 500 Internal Server Error if creation fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTransaction(req); err != nil {
		respondServiceError(w, err, "")
		return
	}
	if req.UserID == "" {
		req.UserID = h.defaultUserID
	}

	transaction, err := h.transactionService.AddTransaction(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "failed to create transaction")
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// UpdateTransaction handles PUT requests to update an existing transaction.
// When userId is given, only that user's transaction can be changed.
//
// Endpoint: PUT /api/transactions/{uuid}?userId=
// Request Body: UpdateTransactionRequest (all fields optional)
// Response: 200 OK with updated Transaction
// Error: 400 Bad Request if the ID or body is invalid, or a sell exceeds holdings
// Error: 403 Forbidden if the transaction belongs to another user
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if update fails
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateTransaction(req); err != nil {
		respondServiceError(w, err, "")
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(r.Context(), transactionID, r.URL.Query().Get("userId"), req)
	if err != nil {
		respondServiceError(w, err, "failed to update transaction")
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// DeleteTransaction handles DELETE requests to soft-delete a transaction.
//
// Endpoint: DELETE /api/transactions/{uuid}?userId=
// Response: 204 No Content on successful deletion
// Error: 403 Forbidden if the transaction belongs to another user
// Error: 404 Not Found if transaction not found or already deleted
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	if err := h.transactionService.DeleteTransaction(r.Context(), transactionID, r.URL.Query().Get("userId")); err != nil {
		respondServiceError(w, err, "failed to delete transaction")
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// ExportTransactions handles GET requests to download a user's transactions as CSV.
//
// Endpoint: GET /api/transactions/export?userId=
// Response: 200 OK with text/csv attachment
func (h *TransactionHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	respondCSV(w, "transactions.csv", func(out io.Writer) error {
		return h.exportService.ExportTransactionsCSV(r.Context(), userID, out)
	})
}
