package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MockCoinGeckoClient is a mock implementation of coingecko.Client for testing.
// It returns predefined prices instead of making actual API calls.
type MockCoinGeckoClient struct {
	mu         sync.Mutex
	prices     map[string]decimal.Decimal
	err        error
	queryCount int
	lastIDs    []string
}

// NewMockCoinGeckoClient creates a mock with no prices configured.
func NewMockCoinGeckoClient() *MockCoinGeckoClient {
	return &MockCoinGeckoClient{
		prices: make(map[string]decimal.Decimal),
	}
}

// SimplePrice returns the configured prices for the requested ids, or the configured error.
func (m *MockCoinGeckoClient) SimplePrice(_ context.Context, ids []string) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCount++
	m.lastIDs = append([]string(nil), ids...)
	if m.err != nil {
		return nil, m.err
	}

	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if p, ok := m.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// WithPrice configures the USD price returned for a CoinGecko id.
func (m *MockCoinGeckoClient) WithPrice(id string, price float64) *MockCoinGeckoClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[id] = decimal.NewFromFloat(price)
	return m
}

// WithError configures the mock to return the specified error. Pass nil to clear it.
func (m *MockCoinGeckoClient) WithError(err error) *MockCoinGeckoClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// QueryCount returns how many times SimplePrice was called.
func (m *MockCoinGeckoClient) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCount
}

// LastIDs returns the ids passed to the most recent SimplePrice call.
func (m *MockCoinGeckoClient) LastIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastIDs
}
