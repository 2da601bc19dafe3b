package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceReport compares the portfolio at the start of a period with its current value.
type PerformanceReport struct {
	Period            string          `json:"period"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	StartValue        decimal.Decimal `json:"start_value"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	StartCost         decimal.Decimal `json:"start_cost"`
	CurrentCost       decimal.Decimal `json:"current_cost"`
	PeriodGain        decimal.Decimal `json:"period_gain"`
	PeriodGainPercent decimal.Decimal `json:"period_gain_percent"`
	TotalGain         decimal.Decimal `json:"total_gain"`
	TotalGainPercent  decimal.Decimal `json:"total_gain_percent"`
	TransactionsCount int             `json:"transactions_count"`
	BuysCount         int             `json:"buys_count"`
	SellsCount        int             `json:"sells_count"`
	Volume            decimal.Decimal `json:"volume"`
}

// PerformersReport lists the best and worst assets by gain percent.
type PerformersReport struct {
	Best        []AssetValuation `json:"best"`
	Worst       []AssetValuation `json:"worst"`
	TotalAssets int              `json:"total_assets"`
}

// HistoryPoint is one day of the cost-basis history series.
type HistoryPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
	Cost  decimal.Decimal `json:"cost"`
	Gain  decimal.Decimal `json:"gain"`
}

// HistoryStats summarizes the value series of a history report.
type HistoryStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// HistoryReport is the daily history series, oldest day first.
type HistoryReport struct {
	Days   int            `json:"days"`
	Points []HistoryPoint `json:"points"`
	Stats  HistoryStats   `json:"stats"`
}
