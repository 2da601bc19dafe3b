package request

import "encoding/json"

// ImportRequest starts a broker import.
// Credentials is the broker-specific credential object, e.g. a Coinbase key file.
type ImportRequest struct {
	Broker      string          `json:"broker"`
	UserID      string          `json:"user_id"`
	Credentials json.RawMessage `json:"credentials"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	UseMock     bool            `json:"use_mock"`
}

// TestConnectionRequest checks broker credentials without importing.
type TestConnectionRequest struct {
	Credentials json.RawMessage `json:"credentials"`
}

// CreateBrokerConnectionRequest stores credentials for scheduled imports.
type CreateBrokerConnectionRequest struct {
	UserID            string          `json:"user_id"`
	Broker            string          `json:"broker"`
	Credentials       json.RawMessage `json:"credentials"`
	AutoImportEnabled *bool           `json:"auto_import_enabled,omitempty"`
}
