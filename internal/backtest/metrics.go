package backtest

import (
	"errors"
	"math"
)

// ErrDegenerateSeries means a statistic is undefined for the series, e.g. a
// Sharpe ratio over returns with zero variance.
var ErrDegenerateSeries = errors.New("degenerate series")

// TotalReturnPct is the curve's cumulative return in percent.
func TotalReturnPct(c Curve) float64 {
	return (c.Final() - 1) * 100
}

// Sharpe returns the annualized Sharpe ratio of daily returns using the
// sample standard deviation. It returns NaN and ErrDegenerateSeries when
// there are fewer than two returns or their deviation is zero.
func Sharpe(returns []float64, periodsPerYear int) (float64, error) {
	n := len(returns)
	if n < 2 {
		return math.NaN(), ErrDegenerateSeries
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 || math.IsNaN(std) {
		return math.NaN(), ErrDegenerateSeries
	}
	return mean / std * math.Sqrt(float64(periodsPerYear)), nil
}

// MaxDrawdownPct is the largest peak-to-trough decline of the curve, in
// percent of the peak. The seed value 1.0 counts as the first peak.
func MaxDrawdownPct(c Curve) float64 {
	peak := 1.0
	var worst float64
	for _, p := range c.Points {
		if p.Value > peak {
			peak = p.Value
		}
		if dd := (peak - p.Value) / peak; dd > worst {
			worst = dd
		}
	}
	return worst * 100
}

// TradeCount counts the flagged trades in r.
func TradeCount(r *Returns) int {
	n := 0
	for _, series := range r.Series {
		for _, sr := range series {
			if sr.Trade {
				n++
			}
		}
	}
	return n
}
