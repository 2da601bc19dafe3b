package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

func newTestRobinhood(srv *httptest.Server, token string) *Robinhood {
	return NewRobinhood(RobinhoodCredentials{AccessToken: token}, Options{
		RobinhoodBaseURL: srv.URL,
		Timeout:          2 * time.Second,
		Log:              zerolog.Nop(),
	})
}

func TestRobinhood_Fetch(t *testing.T) {
	t.Run("follows next links on the same host", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			assert.Equal(t, robinhoodOrdersPath, r.URL.Path)

			if r.URL.Query().Get("cursor") == "" {
				fmt.Fprintf(w, `{"results":[{"id":"o1","side":"buy","currency":{"code":"btc","name":"Bitcoin"},"quantity":"0.5","price":"40000","rounded_executed_notional":"20000.00","created_at":"2024-02-01T09:00:00Z"}],"next":%q}`,
					srv.URL+robinhoodOrdersPath+"?cursor=2")
				return
			}
			fmt.Fprint(w, `{"results":[{"id":"o2","side":"sell","currency":{"code":"ETH"},"quantity":"1","price":"2500","rounded_executed_notional":{"amount":"2499.50"},"created_at":"2024-02-02T09:00:00Z"}],"next":null}`)
		}))
		defer srv.Close()

		result, err := Fetch(context.Background(), newTestRobinhood(srv, "token-1"), model.DateRange{}, zerolog.Nop())

		require.NoError(t, err)
		assert.Equal(t, 2, result.Pages)
		require.Len(t, result.Transactions, 2)

		first, second := result.Transactions[0], result.Transactions[1]
		assert.Equal(t, "BTC", first.Symbol)
		assert.Equal(t, "20000", first.ValueUSD.String())
		assert.Equal(t, model.TypeBuy, first.Type)
		assert.Equal(t, "o1", *first.ExternalID)
		assert.Equal(t, model.SourceRobinhood, first.Source)

		assert.Equal(t, "Ethereum", second.Name)
		assert.Equal(t, model.TypeSell, second.Type)
		assert.Equal(t, "2499.5", second.ValueUSD.String())
	})

	t.Run("rejects next links to another host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"results":[{"id":"o1","side":"buy","currency":{"code":"BTC"},"quantity":"1","price":"1"}],"next":"https://evil.example.com/crypto/orders/?cursor=2"}`)
		}))
		defer srv.Close()

		result, err := Fetch(context.Background(), newTestRobinhood(srv, "token-1"), model.DateRange{}, zerolog.Nop())

		// WHY: the bearer token must never be sent to a host taken from a response body.
		require.Error(t, err)
		assert.Equal(t, StateFailed, result.State)
		assert.Len(t, result.Transactions, 1)
	})

	t.Run("skips orders that are not filled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"results":[`+
				`{"id":"o1","state":"filled","side":"buy","currency":{"code":"BTC"},"quantity":"1","price":"30000"},`+
				`{"id":"o2","state":"canceled","side":"buy","currency":{"code":"BTC"},"quantity":"1","price":"30000"},`+
				`{"id":"o3","state":"confirmed","side":"sell","currency":{"code":"ETH"},"quantity":"2","price":"2000"}`+
				`],"next":null}`)
		}))
		defer srv.Close()

		result, err := Fetch(context.Background(), newTestRobinhood(srv, "token-1"), model.DateRange{}, zerolog.Nop())

		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		assert.Equal(t, "o1", *result.Transactions[0].ExternalID)
		assert.Equal(t, 2, result.Skipped)
		assert.Equal(t, 0, result.Malformed)
	})

	t.Run("missing token fails authentication", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Error("no request expected")
		}))
		defer srv.Close()

		_, err := Fetch(context.Background(), newTestRobinhood(srv, ""), model.DateRange{}, zerolog.Nop())

		assert.ErrorIs(t, err, apperrors.ErrUpstreamAuth)
	})

	t.Run("expired token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := Fetch(context.Background(), newTestRobinhood(srv, "stale"), model.DateRange{}, zerolog.Nop())

		assert.ErrorIs(t, err, apperrors.ErrUpstreamAuth)
		assert.Equal(t, "Robinhood API authentication failed. Please check your API credentials.", apperrors.UserMessage(err))
	})
}

func TestRobinhood_Normalize(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rh := NewRobinhood(RobinhoodCredentials{}, Options{Now: func() time.Time { return now }, Log: zerolog.Nop()})

	t.Run("value falls back to quantity times price", func(t *testing.T) {
		tx, err := rh.Normalize(json.RawMessage(`{"id":"o3","side":"buy","currency":{"code":"SOL"},"quantity":"4","price":"150"}`))

		require.NoError(t, err)
		assert.Equal(t, "600", tx.ValueUSD.String())
		assert.Equal(t, "Solana", tx.Name)
		assert.Equal(t, now, tx.Date)
	})

	t.Run("name comes from the asset table first", func(t *testing.T) {
		tx, err := rh.Normalize(json.RawMessage(`{"id":"o4","side":"buy","state":"filled","currency":{"code":"BTC","name":"Bitcoin Core"},"quantity":"1","price":"1"}`))
		require.NoError(t, err)
		assert.Equal(t, "Bitcoin", tx.Name)

		tx, err = rh.Normalize(json.RawMessage(`{"id":"o5","side":"buy","currency":{"code":"ZZZ","name":"Zed Coin"},"quantity":"1","price":"1"}`))
		require.NoError(t, err)
		assert.Equal(t, "Zed Coin", tx.Name)
	})

	t.Run("malformed orders", func(t *testing.T) {
		for _, raw := range []string{
			`[]`,
			`{"id":"x","quantity":"1"}`,
			`{"id":"x","currency":{"code":"BTC"},"quantity":"-1"}`,
			`{"id":"x","state":"canceled","currency":{"code":"BTC"},"quantity":"1"}`,
		} {
			_, err := rh.Normalize(json.RawMessage(raw))
			assert.ErrorIs(t, err, apperrors.ErrMalformedRecord, raw)
		}
	})
}

func TestParseRobinhoodCredentials(t *testing.T) {
	creds, err := ParseRobinhoodCredentials(json.RawMessage(`{"access_token":" abc "}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", creds.AccessToken)

	_, err = ParseRobinhoodCredentials(json.RawMessage(`42`))
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
