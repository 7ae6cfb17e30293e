// Package reporting renders backtest runs as text summaries, curve CSV and
// PNG performance charts.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marketlens/internal/domain"
)

var titles = map[string]string{
	"binary":     "Backtest Performance: AI Strategy vs. Buy & Hold",
	"confidence": "Advanced Backtest: Confidence-Weighted Strategy vs. Buy & Hold",
	"cost":       "Backtest Performance: Cost-Adjusted Strategy vs. Buy & Hold",
}

// Title returns the chart and report title for a strategy.
func Title(strategy string) string {
	if t, ok := titles[strategy]; ok {
		return t
	}
	return fmt.Sprintf("Backtest Performance: %s vs. Buy & Hold", strategy)
}

// FormatSharpe renders a Sharpe ratio, or "undefined" when it is nil.
func FormatSharpe(s *float64) string {
	if s == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.2f", *s)
}

// RenderText renders the run's metrics as a plain-text summary.
func RenderText(run *domain.BacktestRun) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("--- %s ---\n", Title(run.Strategy)))
	sb.WriteString(fmt.Sprintf("Run: %s\n", run.ID))
	if len(run.Curve) > 0 {
		sb.WriteString(fmt.Sprintf("Period: %s to %s (%d days)\n",
			run.Curve[0].Date.Format(domain.DateLayout),
			run.Curve[len(run.Curve)-1].Date.Format(domain.DateLayout),
			run.Days))
	}
	sb.WriteString(fmt.Sprintf("Total Strategy Return: %.2f%%\n", run.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("Total Buy & Hold Return: %.2f%%\n", run.BenchmarkReturnPct))
	sb.WriteString(fmt.Sprintf("Strategy Sharpe Ratio: %s\n", FormatSharpe(run.Sharpe)))
	sb.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", run.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("Trades: %d\n", run.Trades))
	if run.Strategy == "cost" {
		sb.WriteString(fmt.Sprintf("Cost: %.1f bps per trade\n", run.CostBps))
	}
	if run.CollapsedDates > 0 {
		sb.WriteString(fmt.Sprintf("Allocation collapsed on %d dates\n", run.CollapsedDates))
	}

	return sb.String()
}

// RenderCSV renders the equity curves, both scaled to start at 100.
func RenderCSV(curve []domain.EquityPoint) string {
	var sb strings.Builder

	sb.WriteString("date,strategy,benchmark\n")
	for _, p := range curve {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f\n",
			p.Date.Format(domain.DateLayout), p.Strategy, p.Benchmark))
	}

	return sb.String()
}

// Files lists the paths written by Save.
type Files struct {
	Text  string
	CSV   string
	Chart string
}

// Save writes the text summary, curve CSV and chart for run into dir.
func Save(dir string, run *domain.BacktestRun) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	base := filepath.Join(dir, run.Strategy+"_backtest")
	files := &Files{
		Text:  base + ".txt",
		CSV:   base + ".csv",
		Chart: base + ".png",
	}

	if err := os.WriteFile(files.Text, []byte(RenderText(run)), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(files.CSV, []byte(RenderCSV(run.Curve)), 0o644); err != nil {
		return nil, err
	}

	f, err := os.Create(files.Chart)
	if err != nil {
		return nil, err
	}
	if err := WriteChart(f, run); err != nil {
		f.Close()
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return files, nil
}
