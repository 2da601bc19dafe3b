package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/broker"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

// MaxImportErrors caps the per-record failures reported by an import.
const MaxImportErrors = 10

// BrokerFactory builds connectors. broker.New and broker.NewMock satisfy it by default.
type BrokerFactory struct {
	New  func(name string, credentials json.RawMessage, opts broker.Options) (broker.Broker, error)
	Mock func(name string, dr model.DateRange, opts broker.Options) (broker.Broker, error)
}

// ImportService pulls trade history from brokers into the ledger.
//
// Imports of the same user run one at a time so two concurrent imports cannot both
// insert the same broker record. Different users import in parallel.
type ImportService struct {
	transactionService *TransactionService
	opts               broker.Options
	factory            BrokerFactory
	log                zerolog.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewImportService creates a new ImportService. opts configures every connector it builds.
func NewImportService(transactionService *TransactionService, opts broker.Options, log zerolog.Logger) *ImportService {
	return &ImportService{
		transactionService: transactionService,
		opts:               opts,
		factory:            BrokerFactory{New: broker.New, Mock: broker.NewMock},
		log:                log.With().Str("component", "import_service").Logger(),
		userLocks:          make(map[string]*sync.Mutex),
	}
}

// WithFactory replaces the connector constructors.
func (s *ImportService) WithFactory(f BrokerFactory) *ImportService {
	if f.New != nil {
		s.factory.New = f.New
	}
	if f.Mock != nil {
		s.factory.Mock = f.Mock
	}
	return s
}

func (s *ImportService) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Import fetches the broker's records in the requested range and inserts those not
// imported before.
//
// Authentication and fetch failures abort the import and are returned as upstream errors.
// When a real Coinbase import authenticates but the broker returns no records at all, mock
// records are imported instead and the result is marked Mock. Records that fail to
// normalize or fall outside the range never trigger the fallback. Per-record insert failures are
// collected in the result, capped at MaxImportErrors.
func (s *ImportService) Import(ctx context.Context, req request.ImportRequest) (model.ImportResult, error) {
	return s.run(ctx, req, true)
}

// run performs an import. mockFallback enables the zero-record mock substitution, which
// scheduled imports never use.
func (s *ImportService) run(ctx context.Context, req request.ImportRequest, mockFallback bool) (model.ImportResult, error) {
	dr, err := validation.ValidateImportRequest(req)
	if err != nil {
		return model.ImportResult{}, err
	}

	name := strings.ToLower(strings.TrimSpace(req.Broker))
	userID := firstNonEmpty(req.UserID, model.DefaultUserID)
	log := s.log.With().Str("broker", name).Str("user_id", userID).Logger()

	unlock := s.lockUser(userID)
	defer unlock()

	fetched, mock, err := s.fetch(ctx, name, req.Credentials, dr, req.UseMock, mockFallback, log)
	if err != nil {
		return model.ImportResult{}, err
	}

	for i := range fetched.Transactions {
		fetched.Transactions[i].UserID = userID
		fetched.Transactions[i].CreatedBy = "import:" + name
	}

	existing, err := s.transactionService.ExistingImports(ctx, userID, name)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("failed to load existing imports: %w", err)
	}

	dedup := Deduplicate(fetched.Transactions, existing)
	for _, t := range dedup.Unkeyed {
		log.Warn().Str("symbol", t.Symbol).Time("date", t.Date).Msg("imported record has no external id, cannot be deduplicated")
	}

	// Oldest first so sells follow the buys that fund them.
	sort.SliceStable(dedup.ToInsert, func(i, j int) bool {
		return dedup.ToInsert[i].Date.Before(dedup.ToInsert[j].Date)
	})

	result := model.ImportResult{
		Skipped:   len(dedup.Duplicates),
		Flagged:   len(dedup.Unkeyed),
		Malformed: fetched.Malformed,
		Total:     len(fetched.Transactions),
		Mock:      mock,
		Errors:    []model.ImportError{},
	}

	for _, t := range dedup.ToInsert {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.transactionService.Create(ctx, t); err != nil {
			log.Warn().Err(err).Str("symbol", t.Symbol).Msg("failed to import record")
			if len(result.Errors) < MaxImportErrors {
				result.Errors = append(result.Errors, model.ImportError{Transaction: t, Error: err.Error()})
			}
			continue
		}
		result.Imported++
	}

	result.Message = fmt.Sprintf("Imported %d transactions, skipped %d duplicates", result.Imported, result.Skipped)
	log.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("flagged", result.Flagged).
		Int("malformed", result.Malformed).
		Bool("mock", mock).
		Msg("import finished")

	return result, nil
}

func (s *ImportService) fetch(ctx context.Context, name string, creds json.RawMessage, dr model.DateRange, useMock, mockFallback bool, log zerolog.Logger) (broker.FetchResult, bool, error) {
	opts := s.opts
	opts.Log = log

	if useMock {
		b, err := s.factory.Mock(name, dr, opts)
		if err != nil {
			return broker.FetchResult{}, false, err
		}
		res, err := broker.Fetch(ctx, b, dr, log)
		return res, true, err
	}

	b, err := s.factory.New(name, creds, opts)
	if err != nil {
		return broker.FetchResult{}, false, err
	}
	res, err := broker.Fetch(ctx, b, dr, log)
	if err != nil {
		return res, false, err
	}

	if mockFallback && res.Raw == 0 && name == model.SourceCoinbase {
		log.Info().Msg("no records returned, importing mock records instead")
		mb, err := s.factory.Mock(name, dr, opts)
		if err != nil {
			return broker.FetchResult{}, false, err
		}
		res, err = broker.Fetch(ctx, mb, dr, log)
		return res, true, err
	}
	return res, false, nil
}

// TestConnection checks credentials against the broker's live API.
// Upstream rejections are reported in the result rather than as an error.
func (s *ImportService) TestConnection(ctx context.Context, name string, creds json.RawMessage) (model.ConnectionTestResult, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(creds) == 0 {
		return model.ConnectionTestResult{}, validation.NewError(apperrors.ErrMissingRequiredField, "credentials", "credentials are required")
	}

	opts := s.opts
	opts.Log = s.log
	b, err := s.factory.New(name, creds, opts)
	if err != nil {
		return model.ConnectionTestResult{}, err
	}
	tester, ok := b.(broker.ConnectionTester)
	if !ok {
		return model.ConnectionTestResult{}, validation.NewError(apperrors.ErrUnsupportedBroker, "broker", "connection test is not available for "+name)
	}

	result, err := tester.TestConnection(ctx)
	var upstream *apperrors.UpstreamError
	if err != nil && !errors.As(err, &upstream) {
		return model.ConnectionTestResult{}, err
	}
	return result, nil
}
