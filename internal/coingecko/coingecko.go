// Package coingecko is a minimal client for the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
)

const (
	serviceName = "CoinGecko"

	// DefaultBaseURL is the public CoinGecko v3 API root.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	// DefaultTimeout bounds a single price request.
	DefaultTimeout = 10 * time.Second

	maxLoggedBody = 500
)

// Client defines the interface for fetching spot prices from CoinGecko.
// This interface enables dependency injection and testing with mock implementations.
type Client interface {
	SimplePrice(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// APIClient queries the CoinGecko HTTP API.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        zerolog.Logger
}

// NewAPIClient creates a CoinGecko client. An empty baseURL selects the public API and a
// non-positive timeout selects DefaultTimeout. apiKey is optional.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *APIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		log:        log.With().Str("component", "coingecko").Logger(),
	}
}

// SimplePrice fetches USD spot prices for the given coin ids in one batched request.
// Ids missing from the response are absent from the returned map.
//
// Errors are *apperrors.UpstreamError values: a 429 unwraps to ErrUpstreamRateLimited,
// network failures and timeouts to ErrUpstreamUnavailable.
func (c *APIClient) SimplePrice(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	endpoint := c.baseURL + "/simple/price?" + query.Encode()

	// {"bitcoin": {"usd": 43000.5}, ...}
	var raw map[string]map[string]decimal.Decimal
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(raw))
	for id, quote := range raw {
		if usd, ok := quote["usd"]; ok {
			prices[id] = usd
		}
	}
	return prices, nil
}

func (c *APIClient) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError(serviceName, apperrors.ErrUpstreamUnavailable, 0, describeTransportError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewUpstreamError(serviceName, apperrors.ErrUpstreamUnavailable, resp.StatusCode, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", truncate(data, maxLoggedBody)).
			Msg("price request failed")
		return apperrors.NewUpstreamError(serviceName, apperrors.KindForStatus(resp.StatusCode), resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewUpstreamError(serviceName, apperrors.ErrUpstreamServer, resp.StatusCode, "failed to decode response: "+err.Error())
	}
	return nil
}

func describeTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
