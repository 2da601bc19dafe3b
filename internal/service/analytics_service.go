package service

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/validation"
)

const (
	// DefaultPeriod is used when a performance request names no period.
	DefaultPeriod = "30d"
	// DefaultPerformersLimit is the number of best and worst assets returned by default.
	DefaultPerformersLimit = 5
	// DefaultHistoryDays is the length of the history series by default.
	DefaultHistoryDays = 30
	// MaxHistoryDays bounds the history series.
	MaxHistoryDays = 3650
)

// periodDays maps a performance period to its length in days. "all" has no floor.
var periodDays = map[string]int{
	"1d":  1,
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
	"all": 0,
}

// AnalyticsService produces performance reports over a user's ledger.
//
// Historical snapshots are valued at cost basis because no historical price source is
// used: a past snapshot's value equals what was paid for the coins held at that time.
type AnalyticsService struct {
	transactionService *TransactionService
	valuation          *ValuationEngine
	now                func() time.Time
	log                zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(transactionService *TransactionService, valuation *ValuationEngine, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		transactionService: transactionService,
		valuation:          valuation,
		now:                time.Now,
		log:                log.With().Str("component", "analytics_service").Logger(),
	}
}

// WithClock replaces the time source that anchors periods and history days.
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// Performance compares the portfolio at the start of period with its current value.
//
// The start snapshot is the cost-basis snapshot as of now minus the period length;
// for "all" it is the empty snapshot. Counts and volume cover transactions dated
// within [start, now]. An unknown period is a validation error wrapping ErrInvalidPeriod.
func (s *AnalyticsService) Performance(ctx context.Context, userID, period string) (model.PerformanceReport, error) {
	if period == "" {
		period = DefaultPeriod
	}
	days, ok := periodDays[period]
	if !ok {
		return model.PerformanceReport{}, validation.NewError(
			apperrors.ErrInvalidPeriod, "period", fmt.Sprintf("invalid period: %s (use 1d, 7d, 30d, 90d, 1y or all)", period))
	}

	ledger, err := s.transactionService.Ledger(ctx, userID)
	if err != nil {
		return model.PerformanceReport{}, err
	}

	now := s.now().UTC()
	current := s.valuation.Valuate(ctx, ledger, time.Time{})

	var startDate *time.Time
	start := model.EmptySnapshot()
	if period != "all" {
		sd := now.AddDate(0, 0, -days)
		startDate = &sd
		start = ValuateAtCost(ledger, sd)
	}

	periodGain := current.TotalValue.Sub(start.TotalValue)
	totalGain := current.TotalValue.Sub(current.TotalCost)

	report := model.PerformanceReport{
		Period:            period,
		StartDate:         startDate,
		EndDate:           now,
		StartValue:        start.TotalValue,
		CurrentValue:      current.TotalValue,
		StartCost:         start.TotalCost,
		CurrentCost:       current.TotalCost,
		PeriodGain:        round(periodGain),
		PeriodGainPercent: round(percentOf(periodGain, start.TotalValue)),
		TotalGain:         round(totalGain),
		TotalGainPercent:  round(percentOf(totalGain, current.TotalCost)),
	}

	volume := decimal.Zero
	for _, t := range ledger {
		if startDate != nil && t.Date.Before(*startDate) {
			continue
		}
		if t.Date.After(now) {
			continue
		}
		report.TransactionsCount++
		switch t.Type {
		case model.TypeBuy:
			report.BuysCount++
		case model.TypeSell:
			report.SellsCount++
		}
		volume = volume.Add(t.ValueUSD)
	}
	report.Volume = round(volume)

	return report, nil
}

// Performers ranks the current holdings by gain percent.
// Best holds the first limit entries, Worst the last limit entries with the most
// negative first. A non-positive limit selects DefaultPerformersLimit.
func (s *AnalyticsService) Performers(ctx context.Context, userID string, limit int) (model.PerformersReport, error) {
	if limit <= 0 {
		limit = DefaultPerformersLimit
	}

	ledger, err := s.transactionService.Ledger(ctx, userID)
	if err != nil {
		return model.PerformersReport{}, err
	}
	current := s.valuation.Valuate(ctx, ledger, time.Time{})

	return rankPerformers(current, limit), nil
}

func rankPerformers(snapshot model.PortfolioSnapshot, limit int) model.PerformersReport {
	entries := make([]model.AssetValuation, 0, len(snapshot.Coins))
	for _, a := range snapshot.Coins {
		entries = append(entries, a)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].GainPercent.Cmp(entries[j].GainPercent); c != 0 {
			return c > 0
		}
		return entries[i].Symbol < entries[j].Symbol
	})

	n := min(limit, len(entries))
	best := append([]model.AssetValuation{}, entries[:n]...)

	worst := make([]model.AssetValuation, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		worst = append(worst, entries[i])
	}

	return model.PerformersReport{
		Best:        best,
		Worst:       worst,
		TotalAssets: len(entries),
	}
}

// History returns one cost-basis point per UTC day for the last days days, oldest first.
// Each point uses that day's midnight as cutoff. days must be between 1 and MaxHistoryDays;
// zero selects DefaultHistoryDays.
func (s *AnalyticsService) History(ctx context.Context, userID string, days int) (model.HistoryReport, error) {
	if days == 0 {
		days = DefaultHistoryDays
	}
	if days < 1 || days > MaxHistoryDays {
		return model.HistoryReport{}, validation.NewError(
			apperrors.ErrValidation, "days", fmt.Sprintf("days must be between 1 and %d", MaxHistoryDays))
	}

	ledger, err := s.transactionService.Ledger(ctx, userID)
	if err != nil {
		return model.HistoryReport{}, err
	}

	today := startOfDay(s.now())
	points := make([]model.HistoryPoint, days)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < days; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			day := today.AddDate(0, 0, -(days - 1 - i))
			snapshot := ValuateAtCost(ledger, day)
			points[i] = model.HistoryPoint{
				Date:  day.Format("2006-01-02"),
				Value: snapshot.TotalValue,
				Cost:  snapshot.TotalCost,
				Gain:  snapshot.Gain,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.HistoryReport{}, fmt.Errorf("failed to compute history: %w", err)
	}

	return model.HistoryReport{
		Days:   days,
		Points: points,
		Stats:  historyStats(points),
	}, nil
}

func historyStats(points []model.HistoryPoint) model.HistoryStats {
	if len(points) == 0 {
		return model.HistoryStats{}
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value.InexactFloat64()
	}

	stats := model.HistoryStats{
		Min:  roundFloat(floats.Min(values)),
		Max:  roundFloat(floats.Max(values)),
		Mean: roundFloat(stat.Mean(values, nil)),
	}
	if len(values) > 1 {
		stats.StdDev = roundFloat(stat.StdDev(values, nil))
	}
	return stats
}

func roundFloat(v float64) float64 {
	return math.Round(v*100) / 100
}
