// Package price resolves spot prices for ledger symbols with a time-bounded cache.
//
// Lookups fail soft: when the upstream is rate limited, unreachable, or returns an
// error, the most recent cached prices for the same coin set are served even if
// expired, and an empty map is served when nothing was ever cached.
package price

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/coingecko"
)

// DefaultTTL is how long a cache entry is served without refetching.
const DefaultTTL = 60 * time.Second

// coinIDs maps ledger symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"XRP":   "ripple",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
	"EOS":   "eos",
	"XLM":   "stellar",
	"ADA":   "cardano",
	"SOL":   "solana",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"UNI":   "uniswap",
}

// CoinID returns the CoinGecko id for a symbol. Unknown symbols map to their lower-case form.
func CoinID(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if id, ok := coinIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

type cacheEntry struct {
	prices    map[string]decimal.Decimal
	fetchedAt time.Time
}

// Oracle fetches and caches spot prices. It is safe for concurrent use.
// Concurrent misses for the same key may each call upstream; the last response wins.
type Oracle struct {
	client coingecko.Client
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock injects the time source used for cache freshness.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Oracle) {
		o.log = log.With().Str("component", "price_oracle").Logger()
	}
}

// NewOracle creates an Oracle backed by client.
func NewOracle(client coingecko.Client, opts ...Option) *Oracle {
	o := &Oracle{
		client: client,
		ttl:    DefaultTTL,
		now:    time.Now,
		log:    zerolog.Nop(),
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fetch returns USD prices keyed by upper-case symbol. Symbols without a price are
// absent from the result. Fetch never fails; see the package documentation.
func (o *Oracle) Fetch(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	idsBySymbol := make(map[string]string, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			idsBySymbol[s] = CoinID(s)
		}
	}
	if len(idsBySymbol) == 0 {
		return map[string]decimal.Decimal{}
	}

	ids := uniqueSorted(idsBySymbol)
	key := strings.Join(ids, ",")

	prices, ok := o.lookup(key)
	if !ok {
		prices = o.refresh(ctx, key, ids)
	}

	result := make(map[string]decimal.Decimal, len(idsBySymbol))
	for symbol, id := range idsBySymbol {
		if p, found := prices[id]; found {
			result[symbol] = p
		}
	}
	return result
}

// lookup returns the cached prices for key when the entry is still fresh.
func (o *Oracle) lookup(key string) (map[string]decimal.Decimal, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entry, ok := o.cache[key]
	if !ok || o.now().Sub(entry.fetchedAt) >= o.ttl {
		return nil, false
	}
	return entry.prices, true
}

func (o *Oracle) refresh(ctx context.Context, key string, ids []string) map[string]decimal.Decimal {
	prices, err := o.client.SimplePrice(ctx, ids)
	if err == nil {
		o.mu.Lock()
		o.cache[key] = cacheEntry{prices: prices, fetchedAt: o.now()}
		o.mu.Unlock()
		return prices
	}

	o.mu.RLock()
	entry, ok := o.cache[key]
	o.mu.RUnlock()

	if ok {
		o.log.Warn().
			Err(err).
			Str("coins", key).
			Dur("age", o.now().Sub(entry.fetchedAt)).
			Msg("price fetch failed, serving stale cache")
		return entry.prices
	}

	o.log.Warn().Err(err).Str("coins", key).Msg("price fetch failed, no cached prices")
	return map[string]decimal.Decimal{}
}

func uniqueSorted(idsBySymbol map[string]string) []string {
	seen := make(map[string]struct{}, len(idsBySymbol))
	ids := make([]string, 0, len(idsBySymbol))
	for _, id := range idsBySymbol {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
