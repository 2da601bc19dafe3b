// Package broker fetches trade history from brokerage APIs and normalizes it into ledger transactions.
//
// Each broker implements Broker. Fetch drives any Broker through the same state machine:
// authenticate once, then read pages sequentially until the broker reports no further
// cursor, returns an empty page, or MaxPages pages have been read.
package broker

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// MaxPages bounds the pagination loop of a single fetch.
const MaxPages = 10

// DefaultTimeout bounds a single broker request.
const DefaultTimeout = 30 * time.Second

const maxLoggedBody = 500

// State is the position of a fetch in the connector state machine.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StatePaginating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StatePaginating:
		return "paginating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Page is one page of raw broker records. An empty NextCursor ends pagination.
type Page struct {
	Records []json.RawMessage
	// Skipped counts records the broker dropped before returning the page, such as
	// products outside the ledger's scope.
	Skipped    int
	NextCursor string
}

// Broker is a connector to one brokerage API.
type Broker interface {
	// Name returns the broker name, which is also the source of its transactions.
	Name() string
	// Authenticate checks the credentials. It returns an error wrapping ErrUpstreamAuth
	// when they are unusable.
	Authenticate(ctx context.Context) error
	// FetchPage reads the page at cursor; an empty cursor reads the first page.
	FetchPage(ctx context.Context, cursor string) (Page, error)
	// Normalize converts one raw record. Malformed records return an error wrapping
	// apperrors.ErrMalformedRecord.
	Normalize(raw json.RawMessage) (model.Transaction, error)
}

// ConnectionTester is implemented by brokers that can verify credentials against the live API.
type ConnectionTester interface {
	TestConnection(ctx context.Context) (model.ConnectionTestResult, error)
}

// Options configures the connectors created by New.
type Options struct {
	CoinbaseBaseURL  string
	RobinhoodBaseURL string
	Timeout          time.Duration
	Log              zerolog.Logger

	// Now is the clock used for token lifetimes and missing timestamps. Defaults to time.Now.
	Now func() time.Time

	// Rand drives mock record generation. Defaults to a randomly seeded source.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// New returns the connector for name. Unknown names return a validation error wrapping
// ErrUnsupportedBroker; credentials that cannot be parsed return an error wrapping
// ErrInvalidCredentials.
func New(name string, credentials json.RawMessage, opts Options) (Broker, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(name) {
	case model.SourceCoinbase:
		creds, err := ParseCoinbaseCredentials(credentials)
		if err != nil {
			return nil, err
		}
		return NewCoinbase(creds, opts), nil
	case model.SourceRobinhood:
		creds, err := ParseRobinhoodCredentials(credentials)
		if err != nil {
			return nil, err
		}
		return NewRobinhood(creds, opts), nil
	default:
		return nil, validation.NewError(apperrors.ErrUnsupportedBroker, "broker", "unsupported broker: "+name)
	}
}

// NewMock returns an offline connector producing synthetic records for name over dr.
// Only Coinbase has a mock mode.
func NewMock(name string, dr model.DateRange, opts Options) (Broker, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(name) {
	case model.SourceCoinbase:
		return NewCoinbaseMock(dr, opts), nil
	case model.SourceRobinhood:
		return nil, validation.NewError(apperrors.ErrUnsupportedBroker, "use_mock", "mock mode is only available for coinbase")
	default:
		return nil, validation.NewError(apperrors.ErrUnsupportedBroker, "broker", "unsupported broker: "+name)
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
