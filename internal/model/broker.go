package model

import "time"

// BrokerConnection is a stored set of broker credentials used by scheduled imports.
// Credentials are kept encrypted and never serialized.
type BrokerConnection struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Broker               string     `json:"broker"`
	CredentialsEncrypted string     `json:"-"`
	AutoImportEnabled    bool       `json:"auto_import_enabled"`
	LastImportAt         *time.Time `json:"last_import_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

// DateRange bounds a broker import. Nil ends are unbounded.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the range, both ends inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// ImportError records one record that could not be inserted.
type ImportError struct {
	Transaction Transaction `json:"transaction"`
	Error       string      `json:"error"`
}

// ImportResult summarizes one broker import.
type ImportResult struct {
	Message   string        `json:"message"`
	Imported  int           `json:"imported"`
	Skipped   int           `json:"skipped"`
	Flagged   int           `json:"flagged"`
	Malformed int           `json:"malformed"`
	Total     int           `json:"total"`
	Mock      bool          `json:"mock"`
	Errors    []ImportError `json:"errors"`
}

// ConnectionTestResult reports whether broker credentials are accepted upstream.
type ConnectionTestResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
