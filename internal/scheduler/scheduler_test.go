package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler(t *testing.T) {
	t.Run("rejects invalid schedule", func(t *testing.T) {
		s := New(zerolog.Nop())
		assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	})

	t.Run("runs registered jobs", func(t *testing.T) {
		s := New(zerolog.Nop())
		job := &countingJob{}
		require.NoError(t, s.AddJob("@every 1s", job))

		s.Start()
		defer s.Stop()

		assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("RunNow returns the job error", func(t *testing.T) {
		s := New(zerolog.Nop())
		boom := errors.New("boom")

		err := s.RunNow(&countingJob{err: boom})

		assert.ErrorIs(t, err, boom)
	})
}

type fakeSymbols struct {
	symbols []string
	err     error
}

func (f fakeSymbols) Symbols(context.Context) ([]string, error) { return f.symbols, f.err }

type fakePrices struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakePrices) Fetch(_ context.Context, symbols []string) map[string]decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbols)
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		out[s] = decimal.NewFromInt(1)
	}
	return out
}

func TestPriceRefreshJob(t *testing.T) {
	t.Run("fetches every held symbol in one batch", func(t *testing.T) {
		prices := &fakePrices{}
		job := NewPriceRefreshJob(fakeSymbols{symbols: []string{"BTC", "ETH"}}, prices, time.Second, zerolog.Nop())

		require.NoError(t, job.Run(context.Background()))

		require.Len(t, prices.calls, 1)
		assert.Equal(t, []string{"BTC", "ETH"}, prices.calls[0])
		assert.Equal(t, "price_refresh", job.Name())
	})

	t.Run("empty ledger makes no request", func(t *testing.T) {
		prices := &fakePrices{}
		job := NewPriceRefreshJob(fakeSymbols{}, prices, 0, zerolog.Nop())

		require.NoError(t, job.Run(context.Background()))
		assert.Empty(t, prices.calls)
	})

	t.Run("ledger error fails the run", func(t *testing.T) {
		job := NewPriceRefreshJob(fakeSymbols{err: errors.New("db down")}, &fakePrices{}, 0, zerolog.Nop())
		assert.Error(t, job.Run(context.Background()))
	})
}

type fakeImporter struct {
	n   int
	err error
}

func (f fakeImporter) AutoImport(context.Context) (int, error) { return f.n, f.err }

func TestBrokerAutoImportJob(t *testing.T) {
	assert.NoError(t, NewBrokerAutoImportJob(fakeImporter{n: 2}, zerolog.Nop()).Run(context.Background()))

	boom := errors.New("boom")
	assert.ErrorIs(t, NewBrokerAutoImportJob(fakeImporter{err: boom}, zerolog.Nop()).Run(context.Background()), boom)
}
