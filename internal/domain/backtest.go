package domain

import "time"

// BacktestRun is the persisted summary of one backtest simulation.
// Sharpe is nil when the strategy's daily returns have zero variance.
type BacktestRun struct {
	ID                 string
	Strategy           string
	CreatedAt          time.Time
	Cutoff             time.Time
	CostBps            float64
	Days               int
	TotalReturnPct     float64
	BenchmarkReturnPct float64
	Sharpe             *float64
	MaxDrawdownPct     float64
	Trades             int
	CollapsedDates     int
	Curve              []EquityPoint
}

// EquityPoint is one date on the strategy and benchmark equity curves,
// both scaled to start at 100.
type EquityPoint struct {
	Date      time.Time
	Strategy  float64
	Benchmark float64
}
