package models

import "time"

// ValuePoint is one entry in a portfolio value history.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PeriodStat names a single period (or calendar month) with its return.
type PeriodStat struct {
	Label     string  `json:"label"`
	ReturnPct float64 `json:"return_percent"`
}

// PerformanceAnalytics is the risk/return summary derived from a portfolio
// value history. All fields are zero when the history has fewer than two
// points.
type PerformanceAnalytics struct {
	PortfolioID      string       `json:"portfolio_id"` // "all" for the aggregate
	Timeframe        string       `json:"timeframe"`
	Currency         string       `json:"currency"`
	ValueHistory     []ValuePoint `json:"value_history"`
	TotalReturnPct   float64      `json:"total_return_percent"`
	AnnualizedReturn float64      `json:"annualized_return_percent"`
	Volatility       float64      `json:"volatility"`
	SharpeRatio      float64      `json:"sharpe_ratio"`
	MaxDrawdown      float64      `json:"max_drawdown_percent"`
	BestPeriod       PeriodStat   `json:"best_period"`
	WorstPeriod      PeriodStat   `json:"worst_period"`
	BestMonth        PeriodStat   `json:"best_month"`
	WorstMonth       PeriodStat   `json:"worst_month"`
	CurrentStreak    int          `json:"current_streak"` // >0 winning, <0 losing
}
