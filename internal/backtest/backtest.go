package backtest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketlens/internal/dataset"
	"marketlens/internal/domain"
	"marketlens/internal/model"
)

// Options configures a backtest run.
type Options struct {
	Strategy           string
	CostRate           float64 // fraction per trade, e.g. 0.001 for 10 bps
	TradingDaysPerYear int
	Log                *slog.Logger
}

// Result holds the curves and summary metrics of one strategy run.
type Result struct {
	Strategy           string
	Returns            *Returns
	Curve              Curve
	Benchmark          Curve
	TotalReturnPct     float64
	BenchmarkReturnPct float64
	Sharpe             float64 // NaN when undefined
	SharpeErr          error
	MaxDrawdownPct     float64
	Trades             int
	CollapsedDates     int
}

// SharpeDefined reports whether the Sharpe ratio could be computed.
func (r *Result) SharpeDefined() bool {
	return r.SharpeErr == nil
}

// Prepare restricts ds to dates on or after cutoff, scores it with m and
// builds the signal series.
func Prepare(ds *dataset.Dataset, m *model.Logistic, cutoff time.Time) (*Signals, error) {
	test, err := ds.Since(cutoff)
	if err != nil {
		return nil, err
	}
	panel, err := test.Partition()
	if err != nil {
		return nil, err
	}
	scored, err := model.Score(m, panel)
	if err != nil {
		return nil, err
	}
	return NewSignals(scored)
}

// Run simulates one strategy over s. A degenerate Sharpe ratio is recorded
// on the Result rather than returned as an error.
func Run(s *Signals, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.TradingDaysPerYear <= 0 {
		opts.TradingDaysPerYear = 252
	}
	strat, ok := DefaultRegistry(opts.CostRate).Get(opts.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}

	returns := strat.Apply(s)
	res := &Result{
		Strategy:       strat.Name(),
		Returns:        returns,
		Curve:          Aggregate(s, returns),
		Benchmark:      Benchmark(s),
		Trades:         TradeCount(returns),
		CollapsedDates: len(returns.Collapsed),
	}
	res.TotalReturnPct = TotalReturnPct(res.Curve)
	res.BenchmarkReturnPct = TotalReturnPct(res.Benchmark)
	res.MaxDrawdownPct = MaxDrawdownPct(res.Curve)
	res.Sharpe, res.SharpeErr = Sharpe(res.Curve.Returns(), opts.TradingDaysPerYear)

	for _, d := range returns.Collapsed {
		log.Warn("allocation collapse: all confidences zero", "date", d.Format(domain.DateLayout))
	}
	log.Info("backtest complete",
		"strategy", res.Strategy,
		"days", res.Curve.Len(),
		"tickers", len(s.Tickers),
		"total_return_pct", res.TotalReturnPct,
		"benchmark_return_pct", res.BenchmarkReturnPct,
		"trades", res.Trades,
	)
	return res, nil
}

// Record converts the result into a persistable run with a fresh ID. The
// stored curves are scaled to start at 100.
func (r *Result) Record(cutoff time.Time, costBps float64, now time.Time) domain.BacktestRun {
	run := domain.BacktestRun{
		ID:                 uuid.NewString(),
		Strategy:           r.Strategy,
		CreatedAt:          now.UTC(),
		Cutoff:             cutoff,
		CostBps:            costBps,
		Days:               r.Curve.Len(),
		TotalReturnPct:     r.TotalReturnPct,
		BenchmarkReturnPct: r.BenchmarkReturnPct,
		MaxDrawdownPct:     r.MaxDrawdownPct,
		Trades:             r.Trades,
		CollapsedDates:     r.CollapsedDates,
	}
	if r.SharpeDefined() {
		sharpe := r.Sharpe
		run.Sharpe = &sharpe
	}
	strategy := r.Curve.Scaled(100)
	bench := r.Benchmark.Scaled(100)
	run.Curve = make([]domain.EquityPoint, len(strategy))
	for i, p := range r.Curve.Points {
		run.Curve[i] = domain.EquityPoint{Date: p.Date, Strategy: strategy[i], Benchmark: bench[i]}
	}
	return run
}
