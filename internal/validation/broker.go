package validation

import (
	"strings"
	"time"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// ValidBroker contains the broker names with a connector.
var ValidBroker = map[string]bool{
	model.SourceCoinbase: true, model.SourceRobinhood: true,
}

// ValidateImportRequest validates an import request and returns its date range.
// A bare end date (YYYY-MM-DD) is extended to the end of that day.
func ValidateImportRequest(req request.ImportRequest) (model.DateRange, error) {
	errors := make(map[string]string)
	var kind error
	var dr model.DateRange

	broker := strings.ToLower(strings.TrimSpace(req.Broker))
	if broker == "" {
		errors["broker"] = "broker is required"
	} else if !ValidBroker[broker] {
		errors["broker"] = "unsupported broker: " + req.Broker
		kind = apperrors.ErrUnsupportedBroker
	}

	if !req.UseMock && len(req.Credentials) == 0 {
		errors["credentials"] = "credentials are required unless use_mock is set"
	}

	if req.StartDate != "" {
		start, err := ParseTime(req.StartDate)
		if err != nil {
			errors["start_date"] = err.Error()
		} else {
			dr.Start = &start
		}
	}
	if req.EndDate != "" {
		end, err := ParseTime(req.EndDate)
		if err != nil {
			errors["end_date"] = err.Error()
		} else {
			if len(req.EndDate) == len("2006-01-02") {
				end = end.Add(24*time.Hour - time.Nanosecond)
			}
			dr.End = &end
		}
	}
	if dr.Start != nil && dr.End != nil && dr.Start.After(*dr.End) {
		errors["start_date"] = "start_date must not be after end_date"
		kind = apperrors.ErrInvalidDateRange
	}

	if len(errors) > 0 {
		return model.DateRange{}, &Error{Fields: errors, Kind: kind}
	}
	return dr, nil
}

// ValidateCreateBrokerConnection validates a stored connection request.
func ValidateCreateBrokerConnection(req request.CreateBrokerConnectionRequest) error {
	errors := make(map[string]string)
	var kind error

	broker := strings.ToLower(strings.TrimSpace(req.Broker))
	if broker == "" {
		errors["broker"] = "broker is required"
	} else if !ValidBroker[broker] {
		errors["broker"] = "unsupported broker: " + req.Broker
		kind = apperrors.ErrUnsupportedBroker
	}
	if len(req.Credentials) == 0 {
		errors["credentials"] = "credentials are required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors, Kind: kind}
	}
	return nil
}
