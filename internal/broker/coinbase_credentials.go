package broker

import (
	"encoding/json"
	"strings"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// CoinbaseCredentials is a Coinbase Developer Platform API key.
// KeyName has the form organizations/{org}/apiKeys/{id}; PrivateKey is a PEM EC private key.
type CoinbaseCredentials struct {
	KeyName    string
	PrivateKey string
}

// coinbaseCredentialFile accepts the downloaded key file as well as the older field names.
type coinbaseCredentialFile struct {
	Name          string `json:"name"`
	PrivateKey    string `json:"privateKey"`
	PrivateKeyAlt string `json:"private_key"`

	APIKey       string `json:"api_key"`
	APIKeyAlt    string `json:"apiKey"`
	APISecret    string `json:"api_secret"`
	APISecretAlt string `json:"apiSecret"`

	Key          string `json:"key"`
	AccessKey    string `json:"access_key"`
	Secret       string `json:"secret"`
	AccessSecret string `json:"access_secret"`
}

// ParseCoinbaseCredentials reads a credential object in any of the supported shapes:
// {name, privateKey}, {api_key, api_secret} or {key, secret}, with camelCase and
// snake_case variants. Escaped "\n" sequences in the key are restored to newlines.
func ParseCoinbaseCredentials(raw json.RawMessage) (CoinbaseCredentials, error) {
	var f coinbaseCredentialFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return CoinbaseCredentials{}, validation.NewError(apperrors.ErrInvalidCredentials, "credentials", "credentials must be a JSON object")
	}

	creds := CoinbaseCredentials{
		KeyName: firstSet(f.Name, f.APIKey, f.APIKeyAlt, f.Key, f.AccessKey),
		PrivateKey: strings.ReplaceAll(
			firstSet(f.PrivateKey, f.PrivateKeyAlt, f.APISecret, f.APISecretAlt, f.Secret, f.AccessSecret),
			`\n`, "\n"),
	}
	if creds.KeyName == "" || creds.PrivateKey == "" {
		return CoinbaseCredentials{}, validation.NewError(apperrors.ErrInvalidCredentials, "credentials", "Coinbase credentials need an API key name and a private key")
	}
	return creds, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
