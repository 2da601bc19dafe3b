package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist
	// or has been soft-deleted.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrBrokerConnectionNotFound indicates that a stored broker connection does not exist.
	ErrBrokerConnectionNotFound = errors.New("broker connection not found")
)

// Business logic errors represent validation failures or constraint violations.
// Every error in this block wraps ErrValidation so callers can map the whole family
// with a single errors.Is check.
var (
	// ErrValidation is the umbrella for all request and business-rule validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientHoldings indicates that a sell would drive holdings of a symbol negative.
	ErrInsufficientHoldings = wrap("insufficient holdings")

	// ErrInvalidTransactionType indicates a type other than buy or sell.
	ErrInvalidTransactionType = wrap("invalid transaction type")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = wrap("missing required field")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = wrap("invalid date range")

	// ErrInvalidPeriod indicates an unknown performance period.
	ErrInvalidPeriod = wrap("invalid period")

	// ErrUnsupportedBroker indicates a broker name with no connector.
	ErrUnsupportedBroker = wrap("unsupported broker")

	ErrInvalidCredentials = wrap("invalid broker credentials")
)

// ErrUnauthorized indicates that the caller does not own the entity it is trying to change.
var ErrUnauthorized = errors.New("unauthorized")

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrievePortfolio    = errors.New("failed to retrieve portfolio")
	ErrFailedToGetPerformance       = errors.New("failed to get performance")
	ErrFailedToGetPerformers        = errors.New("failed to get performers")
	ErrFailedToGetHistory           = errors.New("failed to get portfolio history")
	ErrFailedToImportTransactions   = errors.New("failed to import transactions")
	ErrFailedToExport               = errors.New("failed to export data")
	ErrFailedToGetVersionInfo       = errors.New("failed to get version information")

	// ErrEncryptionUnavailable indicates that no encryption key is configured,
	// so broker credentials cannot be stored.
	ErrEncryptionUnavailable = errors.New("encryption key not configured")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrMalformedRecord indicates that a raw broker record could not be normalized.
	// Such records are logged and skipped, never surfaced to the caller.
	ErrMalformedRecord = errors.New("malformed broker record")
)

type validationKind struct {
	msg string
}

func (e *validationKind) Error() string { return e.msg }

func (e *validationKind) Unwrap() error { return ErrValidation }

func wrap(msg string) error {
	return &validationKind{msg: msg}
}
