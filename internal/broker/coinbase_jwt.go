package broker

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// coinbaseTokenLifetime is the validity of a request token.
const coinbaseTokenLifetime = 120 * time.Second

// coinbaseSigner mints the per-request ES256 bearer tokens of the Coinbase Advanced Trade API.
type coinbaseSigner struct {
	keyName string
	key     *ecdsa.PrivateKey
	now     func() time.Time
}

func newCoinbaseSigner(creds CoinbaseCredentials, now func() time.Time) (*coinbaseSigner, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &coinbaseSigner{keyName: creds.KeyName, key: key, now: now}, nil
}

// requestURI builds the uri claim: "<METHOD> <host><path>[?<query sorted by key>]".
func requestURI(method, host, path string, query url.Values) string {
	uri := method + " " + host + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	return uri
}

// sign returns a token bound to one request. It must be called for every request,
// immediately before sending it.
func (s *coinbaseSigner) sign(method, host, path string, query url.Values) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"sub": s.keyName,
		"iss": "cdp",
		"nbf": now.Unix(),
		"exp": now.Add(coinbaseTokenLifetime).Unix(),
		"uri": requestURI(method, host, path, query),
	})
	token.Header["kid"] = s.keyName
	token.Header["nonce"] = hex.EncodeToString(nonce)

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
