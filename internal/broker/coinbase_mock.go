package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

// mockRangeDays is the span of generated fills when the range has no start.
const mockRangeDays = 90

type mockAsset struct {
	symbol   string
	minPrice float64
	maxPrice float64
}

var mockAssets = []mockAsset{
	{"BTC", 30000, 70000},
	{"ETH", 2000, 4000},
	{"SOL", 50, 200},
	{"ADA", 0.3, 1.5},
	{"MATIC", 0.5, 2.0},
	{"DOGE", 0.05, 0.15},
	{"LINK", 10, 30},
	{"AVAX", 20, 60},
}

// CoinbaseMock produces synthetic Coinbase fills without network access.
// It returns a single page of 10 to 20 fills dated within its range, newest first.
type CoinbaseMock struct {
	dr   model.DateRange
	rng  *rand.Rand
	now  func() time.Time
	log  zerolog.Logger
	done bool
}

// NewCoinbaseMock creates a mock connector over dr. A missing end defaults to now and a
// missing start to 90 days before the end.
func NewCoinbaseMock(dr model.DateRange, opts Options) *CoinbaseMock {
	opts = opts.withDefaults()
	return &CoinbaseMock{
		dr:  dr,
		rng: opts.Rand,
		now: opts.Now,
		log: opts.Log.With().Str("component", "coinbase_mock").Logger(),
	}
}

func (m *CoinbaseMock) Name() string { return model.SourceCoinbase }

func (m *CoinbaseMock) Authenticate(context.Context) error { return nil }

func (m *CoinbaseMock) Normalize(raw json.RawMessage) (model.Transaction, error) {
	return normalizeCoinbaseFill(raw, m.now)
}

// FetchPage returns the generated fills on the first call and an empty page afterwards.
func (m *CoinbaseMock) FetchPage(_ context.Context, _ string) (Page, error) {
	if m.done {
		return Page{}, nil
	}
	m.done = true

	fills := m.generate()
	page := Page{Records: make([]json.RawMessage, 0, len(fills))}
	for _, f := range fills {
		raw, err := json.Marshal(f)
		if err != nil {
			return Page{}, fmt.Errorf("failed to encode mock fill: %w", err)
		}
		page.Records = append(page.Records, raw)
	}

	m.log.Info().Int("count", len(page.Records)).Msg("generated mock fills")
	return page, nil
}

func (m *CoinbaseMock) generate() []coinbaseFill {
	end := m.now().UTC()
	if m.dr.End != nil {
		end = m.dr.End.UTC()
	}
	start := end.AddDate(0, 0, -mockRangeDays)
	if m.dr.Start != nil {
		start = m.dr.Start.UTC()
	}
	span := end.Sub(start)

	n := 10 + m.rng.IntN(11)
	fills := make([]coinbaseFill, 0, n)
	for i := 0; i < n; i++ {
		tradeTime := start
		if span > 0 {
			tradeTime = start.Add(time.Duration(m.rng.Int64N(int64(span) + 1))).Truncate(time.Second)
		}
		if tradeTime.Before(start) {
			tradeTime = start
		}

		asset := mockAssets[m.rng.IntN(len(mockAssets))]
		side := "BUY"
		if m.rng.IntN(2) == 1 {
			side = "SELL"
		}

		price := decimal.NewFromFloat(asset.minPrice + m.rng.Float64()*(asset.maxPrice-asset.minPrice)).Round(2)
		coins := decimal.NewFromFloat(0.001 + m.rng.Float64()*0.999).Round(6)
		value := price.Mul(coins).Round(2)
		fee := value.Mul(decimal.RequireFromString("0.001")).Round(2)

		fills = append(fills, coinbaseFill{
			ProductID:   asset.symbol + "-USD",
			TradeID:     fmt.Sprintf("mock_trade_%d_%d", i, 1000+m.rng.IntN(9000)),
			OrderID:     fmt.Sprintf("mock_order_%d_%d", i, 1000+m.rng.IntN(9000)),
			TradeTime:   tradeTime.Format(time.RFC3339Nano),
			Side:        side,
			Size:        amountOf(coins),
			Price:       amountOf(price),
			SizeInQuote: amountOf(value),
			Commission:  amountOf(fee),
		})
	}

	sort.SliceStable(fills, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339Nano, fills[i].TradeTime)
		tj, _ := time.Parse(time.RFC3339Nano, fills[j].TradeTime)
		return ti.After(tj)
	})
	return fills
}
