package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

const (
	coinbaseService = "Coinbase"

	// DefaultCoinbaseBaseURL is the Coinbase Advanced Trade API host.
	DefaultCoinbaseBaseURL = "https://api.coinbase.com"

	coinbaseFillsPath    = "/api/v3/brokerage/orders/historical/fills"
	coinbaseAccountsPath = "/api/v3/brokerage/accounts"
)

// Coinbase reads historical fills from the Coinbase Advanced Trade API (v3).
// Every request carries its own freshly signed token.
type Coinbase struct {
	creds      CoinbaseCredentials
	httpClient *http.Client
	baseURL    string
	signer     *coinbaseSigner
	now        func() time.Time
	log        zerolog.Logger
}

// NewCoinbase creates a Coinbase connector. Call Authenticate before fetching.
func NewCoinbase(creds CoinbaseCredentials, opts Options) *Coinbase {
	opts = opts.withDefaults()
	baseURL := opts.CoinbaseBaseURL
	if baseURL == "" {
		baseURL = DefaultCoinbaseBaseURL
	}
	return &Coinbase{
		creds:      creds,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        opts.Now,
		log:        opts.Log.With().Str("component", "coinbase").Logger(),
	}
}

func (c *Coinbase) Name() string { return model.SourceCoinbase }

// Authenticate checks that the key name has the organizations/{org}/apiKeys/{id} form and that
// the private key is a usable EC key. No request is made.
func (c *Coinbase) Authenticate(_ context.Context) error {
	if !strings.HasPrefix(c.creds.KeyName, "organizations/") || !strings.Contains(c.creds.KeyName, "/apiKeys/") {
		return apperrors.NewUpstreamError(coinbaseService, apperrors.ErrUpstreamAuth, 0,
			"API key must have the form organizations/{org_id}/apiKeys/{key_id}")
	}
	signer, err := newCoinbaseSigner(c.creds, c.now)
	if err != nil {
		return apperrors.NewUpstreamError(coinbaseService, apperrors.ErrUpstreamAuth, 0,
			"private key must be a PEM encoded EC private key")
	}
	c.signer = signer
	return nil
}

type coinbaseFillsResponse struct {
	Fills  []json.RawMessage `json:"fills"`
	Cursor string            `json:"cursor"`
}

// FetchPage reads one page of fills. Only USD spot products are returned; the others are
// counted in Page.Skipped.
func (c *Coinbase) FetchPage(ctx context.Context, cursor string) (Page, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	data, err := c.get(ctx, coinbaseFillsPath, query)
	if err != nil {
		return Page{}, err
	}

	var resp coinbaseFillsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Page{}, apperrors.NewUpstreamError(coinbaseService, apperrors.ErrUpstreamServer, http.StatusOK, "failed to decode fills: "+err.Error())
	}

	page := Page{NextCursor: resp.Cursor}
	for _, raw := range resp.Fills {
		var product struct {
			ProductID string `json:"product_id"`
		}
		if err := json.Unmarshal(raw, &product); err == nil && !strings.HasSuffix(product.ProductID, "-USD") {
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, raw)
	}
	return page, nil
}

// TestConnection lists the accounts of the key to check that Coinbase accepts it.
func (c *Coinbase) TestConnection(ctx context.Context) (model.ConnectionTestResult, error) {
	if err := c.Authenticate(ctx); err != nil {
		return model.ConnectionTestResult{Message: apperrors.UserMessage(err)}, err
	}

	if _, err := c.get(ctx, coinbaseAccountsPath, nil); err != nil {
		result := model.ConnectionTestResult{Message: apperrors.UserMessage(err)}
		var upstream *apperrors.UpstreamError
		if errors.As(err, &upstream) {
			result.StatusCode = upstream.StatusCode
		}
		return result, err
	}
	return model.ConnectionTestResult{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    "Coinbase connection successful",
	}, nil
}

func (c *Coinbase) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.signer == nil {
		return nil, apperrors.NewUpstreamError(coinbaseService, apperrors.ErrUpstreamAuth, 0, "not authenticated")
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Coinbase base URL: %w", err)
	}
	fullPath := strings.TrimRight(base.Path, "/") + path

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return getJSON(ctx, c.httpClient, coinbaseService, endpoint, func(req *http.Request) error {
		token, err := c.signer.sign(http.MethodGet, base.Host, fullPath, query)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}, c.log)
}

// coinbaseFill is the part of a Coinbase fill the ledger uses. v3 sends size_in_quote as a
// boolean, which leaves it unset so the value comes from size and price.
type coinbaseFill struct {
	EntryID           string `json:"entry_id"`
	TradeID           string `json:"trade_id"`
	OrderID           string `json:"order_id"`
	TradeTime         string `json:"trade_time"`
	SequenceTimestamp string `json:"sequence_timestamp"`
	Side              string `json:"side"`
	Price             amount `json:"price"`
	Size              amount `json:"size"`
	SizeInQuote       amount `json:"size_in_quote"`
	Commission        amount `json:"commission"`
	ProductID         string `json:"product_id"`
}

// Normalize converts a Coinbase fill into a ledger transaction.
func (c *Coinbase) Normalize(raw json.RawMessage) (model.Transaction, error) {
	return normalizeCoinbaseFill(raw, c.now)
}

func normalizeCoinbaseFill(raw json.RawMessage, now func() time.Time) (model.Transaction, error) {
	var fill coinbaseFill
	if err := json.Unmarshal(raw, &fill); err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
	}

	symbol, _, _ := strings.Cut(fill.ProductID, "-")
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Transaction{}, fmt.Errorf("%w: fill has no product_id", apperrors.ErrMalformedRecord)
	}

	size := fill.Size.value
	if !fill.Size.set || !size.IsPositive() {
		return model.Transaction{}, fmt.Errorf("%w: fill has no usable size", apperrors.ErrMalformedRecord)
	}
	price := fill.Price.value

	value := size.Mul(price)
	if fill.SizeInQuote.set && fill.SizeInQuote.value.IsPositive() {
		value = fill.SizeInQuote.value
	}

	txType := model.TypeBuy
	if strings.EqualFold(fill.Side, "sell") {
		txType = model.TypeSell
	}

	tx := model.Transaction{
		Name:           model.AssetName(symbol),
		Symbol:         symbol,
		Type:           txType,
		Coins:          size,
		ValueUSD:       value,
		PurchasedPrice: price,
		Date:           parseTimestamp(now, fill.TradeTime, fill.SequenceTimestamp),
		Status:         model.StatusActive,
		Source:         model.SourceCoinbase,
	}
	if id := firstSet(fill.TradeID, fill.OrderID); id != "" {
		tx.ExternalID = &id
	}
	if fill.Commission.set {
		fees := fill.Commission.value
		tx.Fees = &fees
	}
	return tx, nil
}

// amount is a decimal sent as a JSON string or number. Any other JSON value, or a string
// that is not a number, leaves it unset.
type amount struct {
	value decimal.Decimal
	set   bool
}

func amountOf(d decimal.Decimal) amount { return amount{value: d, set: true} }

// MarshalJSON writes a set amount as a decimal string and an unset one as null.
func (a amount) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.value.String())
}

func (a *amount) UnmarshalJSON(data []byte) error {
	*a = amount{}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.value, a.set = parseAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		a.value, a.set = parseAmount(n.String())
	}
	return nil
}

// parseAmount parses a decimal string. Empty or invalid strings report false.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseTimestamp returns the first candidate that parses as RFC3339, in UTC, or now.
func parseTimestamp(now func() time.Time, candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, c); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}
