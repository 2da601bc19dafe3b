package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// ValidTransactionType contains the allowed transaction type values.
var ValidTransactionType = map[string]bool{
	model.TypeBuy: true, model.TypeSell: true,
}

// ValidWritableStatus contains the statuses a client may set. "delete" is reserved for DeleteTransaction.
var ValidWritableStatus = map[string]bool{
	model.StatusActive: true, model.StatusPending: true,
}

// ValidateCreateTransaction validates a transaction creation request.
//
// Required fields:
//   - symbol: non-empty
//   - type: buy or sell (case-insensitive)
//   - coins: positive
//   - value_usd: zero or positive
//   - purchased_price: zero or positive
//
// Optional fields (validated if provided):
//   - date: YYYY-MM-DD or RFC3339
//   - status: active or pending
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)
	var kind error

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	if strings.TrimSpace(req.Type) == "" {
		errors["type"] = "type is required"
	} else if !ValidTransactionType[strings.ToLower(req.Type)] {
		errors["type"] = fmt.Sprintf("invalid type: %s (must be buy or sell)", req.Type)
		kind = apperrors.ErrInvalidTransactionType
	}

	checkAmount(errors, "coins", req.Coins, true, true)
	checkAmount(errors, "value_usd", req.ValueUSD, true, false)
	checkAmount(errors, "purchased_price", req.PurchasedPrice, true, false)
	checkAmount(errors, "fees", req.Fees, false, false)

	if strings.TrimSpace(req.Date) != "" {
		if _, err := ParseTime(req.Date); err != nil {
			errors["date"] = err.Error()
		}
	}

	if req.Status != "" && !ValidWritableStatus[req.Status] {
		errors["status"] = fmt.Sprintf("invalid status: %s", req.Status)
	}

	if len(errors) > 0 {
		if kind == nil {
			kind = apperrors.ErrMissingRequiredField
		}
		return &Error{Fields: errors, Kind: kind}
	}

	return nil
}

// ValidateUpdateTransaction validates a transaction update request.
// All fields are optional, but if provided, they must meet the same constraints as create.
func ValidateUpdateTransaction(req request.UpdateTransactionRequest) error {
	errors := make(map[string]string)
	var kind error

	if req.Symbol != nil && strings.TrimSpace(*req.Symbol) == "" {
		errors["symbol"] = "symbol cannot be empty"
	}
	if req.Type != nil && !ValidTransactionType[strings.ToLower(*req.Type)] {
		errors["type"] = fmt.Sprintf("invalid type: %s (must be buy or sell)", *req.Type)
		kind = apperrors.ErrInvalidTransactionType
	}
	checkAmount(errors, "coins", req.Coins, false, true)
	checkAmount(errors, "value_usd", req.ValueUSD, false, false)
	checkAmount(errors, "purchased_price", req.PurchasedPrice, false, false)
	checkAmount(errors, "fees", req.Fees, false, false)

	if req.Date != nil {
		if _, err := ParseTime(*req.Date); err != nil {
			errors["date"] = err.Error()
		}
	}
	if req.Status != nil && !ValidWritableStatus[*req.Status] {
		errors["status"] = fmt.Sprintf("invalid status: %s", *req.Status)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors, Kind: kind}
	}

	return nil
}

func checkAmount(errors map[string]string, field string, value *decimal.Decimal, required, positive bool) {
	switch {
	case value == nil:
		if required {
			errors[field] = field + " is required"
		}
	case positive && !value.IsPositive():
		errors[field] = field + " must be positive"
	case value.IsNegative():
		errors[field] = field + " cannot be negative"
	}
}
