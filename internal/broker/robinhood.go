package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

const (
	robinhoodService = "Robinhood"

	// DefaultRobinhoodBaseURL is the Robinhood API host.
	DefaultRobinhoodBaseURL = "https://api.robinhood.com"

	robinhoodOrdersPath = "/crypto/orders/"
	robinhoodFilled     = "filled"
)

// RobinhoodCredentials holds an OAuth2 access token obtained outside this service.
type RobinhoodCredentials struct {
	AccessToken string `json:"access_token"`
}

// ParseRobinhoodCredentials reads {access_token}.
func ParseRobinhoodCredentials(raw json.RawMessage) (RobinhoodCredentials, error) {
	var creds RobinhoodCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return RobinhoodCredentials{}, validation.NewError(apperrors.ErrInvalidCredentials, "credentials", "credentials must be a JSON object")
	}
	creds.AccessToken = strings.TrimSpace(creds.AccessToken)
	return creds, nil
}

// Robinhood reads crypto orders from the Robinhood API.
type Robinhood struct {
	creds      RobinhoodCredentials
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
	log        zerolog.Logger
}

// NewRobinhood creates a Robinhood connector.
func NewRobinhood(creds RobinhoodCredentials, opts Options) *Robinhood {
	opts = opts.withDefaults()
	baseURL := opts.RobinhoodBaseURL
	if baseURL == "" {
		baseURL = DefaultRobinhoodBaseURL
	}
	return &Robinhood{
		creds:      creds,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        opts.Now,
		log:        opts.Log.With().Str("component", "robinhood").Logger(),
	}
}

func (r *Robinhood) Name() string { return model.SourceRobinhood }

// Authenticate requires an access token. It is verified by the first request.
func (r *Robinhood) Authenticate(_ context.Context) error {
	if r.creds.AccessToken == "" {
		return apperrors.NewUpstreamError(robinhoodService, apperrors.ErrUpstreamAuth, 0, "access_token is required")
	}
	return nil
}

type robinhoodOrdersResponse struct {
	Results []json.RawMessage `json:"results"`
	Next    string            `json:"next"`
}

// FetchPage reads one page of orders. The cursor is the next URL of the previous page and
// must point at the configured host. Orders whose state is set to anything but filled are
// counted in Page.Skipped.
func (r *Robinhood) FetchPage(ctx context.Context, cursor string) (Page, error) {
	endpoint := r.baseURL + robinhoodOrdersPath
	if cursor != "" {
		if err := r.checkSameHost(cursor); err != nil {
			return Page{}, err
		}
		endpoint = cursor
	}

	data, err := getJSON(ctx, r.httpClient, robinhoodService, endpoint, func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+r.creds.AccessToken)
		return nil
	}, r.log)
	if err != nil {
		return Page{}, err
	}

	var resp robinhoodOrdersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Page{}, apperrors.NewUpstreamError(robinhoodService, apperrors.ErrUpstreamServer, http.StatusOK, "failed to decode orders: "+err.Error())
	}

	page := Page{NextCursor: resp.Next}
	for _, raw := range resp.Results {
		var order struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(raw, &order); err == nil && order.State != "" && !strings.EqualFold(order.State, robinhoodFilled) {
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, raw)
	}
	return page, nil
}

func (r *Robinhood) checkSameHost(next string) error {
	base, err := url.Parse(r.baseURL)
	if err != nil {
		return fmt.Errorf("invalid Robinhood base URL: %w", err)
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != base.Host || u.Scheme != base.Scheme {
		return apperrors.NewUpstreamError(robinhoodService, apperrors.ErrUpstreamServer, 0, "next page URL points outside the API host")
	}
	return nil
}

type robinhoodOrder struct {
	ID       string `json:"id"`
	Side     string `json:"side"`
	Currency struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"currency"`
	State                   string          `json:"state"`
	Quantity                amount          `json:"quantity"`
	Price                   amount          `json:"price"`
	RoundedExecutedNotional json.RawMessage `json:"rounded_executed_notional"`
	CreatedAt               string          `json:"created_at"`
}

// notional reads rounded_executed_notional, sent either as a string or as {amount}.
func (o robinhoodOrder) notional() string {
	if len(o.RoundedExecutedNotional) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(o.RoundedExecutedNotional, &s); err == nil {
		return s
	}
	var money struct {
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(o.RoundedExecutedNotional, &money); err == nil {
		return money.Amount
	}
	return ""
}

// Normalize converts a Robinhood crypto order into a ledger transaction.
func (r *Robinhood) Normalize(raw json.RawMessage) (model.Transaction, error) {
	var order robinhoodOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(order.Currency.Code))
	if symbol == "" {
		return model.Transaction{}, fmt.Errorf("%w: order has no currency code", apperrors.ErrMalformedRecord)
	}
	quantity := order.Quantity.value
	if !order.Quantity.set || !quantity.IsPositive() {
		return model.Transaction{}, fmt.Errorf("%w: order has no usable quantity", apperrors.ErrMalformedRecord)
	}
	if order.State != "" && !strings.EqualFold(order.State, robinhoodFilled) {
		return model.Transaction{}, fmt.Errorf("%w: order is %s, not filled", apperrors.ErrMalformedRecord, order.State)
	}
	price := order.Price.value

	value := quantity.Mul(price)
	if n, ok := parseAmount(order.notional()); ok && n.IsPositive() {
		value = n
	}

	txType := model.TypeBuy
	if strings.EqualFold(order.Side, "sell") {
		txType = model.TypeSell
	}

	// Robinhood's own currency name only covers symbols the table does not know.
	name := model.AssetName(symbol)
	if n := strings.TrimSpace(order.Currency.Name); name == symbol && n != "" {
		name = n
	}

	tx := model.Transaction{
		Name:           name,
		Symbol:         symbol,
		Type:           txType,
		Coins:          quantity,
		ValueUSD:       value,
		PurchasedPrice: price,
		Date:           parseTimestamp(r.now, order.CreatedAt),
		Status:         model.StatusActive,
		Source:         model.SourceRobinhood,
	}
	if order.ID != "" {
		id := order.ID
		tx.ExternalID = &id
	}
	return tx, nil
}
