package backtest

import "time"

// CurvePoint is the portfolio return on Date and the compounded value after it.
type CurvePoint struct {
	Date   time.Time
	Return float64
	Value  float64
}

// Curve is a compounded portfolio value series seeded at 1.0.
type Curve struct {
	Points []CurvePoint
}

// Aggregate combines per-ticker strategy returns into one portfolio return
// per date and compounds them. Dates are visited in ascending order and
// tickers in sorted order, so the float sums are reproducible.
func Aggregate(s *Signals, r *Returns) Curve {
	byDate := make(map[int64][]StrategyReturn)
	for _, ticker := range s.Tickers {
		for _, sr := range r.Series[ticker] {
			byDate[sr.Date.Unix()] = append(byDate[sr.Date.Unix()], sr)
		}
	}

	dates := s.Dates()
	daily := make([]float64, len(dates))
	for i, d := range dates {
		var sum float64
		var n int
		for _, sr := range byDate[d.Unix()] {
			if !sr.Defined {
				continue
			}
			sum += sr.Return
			n++
		}
		switch {
		case r.Aggregation == AggregateSum:
			daily[i] = sum
		case n > 0:
			daily[i] = sum / float64(n)
		}
	}
	return compound(dates, daily)
}

// Benchmark is the equal-weighted buy-and-hold curve: the mean raw daily
// return of the tickers observed on each date, compounded.
func Benchmark(s *Signals) Curve {
	byDate := make(map[int64][]SignalRow)
	for _, ticker := range s.Tickers {
		for _, row := range s.Series[ticker] {
			byDate[row.Date.Unix()] = append(byDate[row.Date.Unix()], row)
		}
	}

	dates := s.Dates()
	daily := make([]float64, len(dates))
	for i, d := range dates {
		var sum float64
		var n int
		for _, row := range byDate[d.Unix()] {
			if !row.HasReturn {
				continue
			}
			sum += row.DailyReturn
			n++
		}
		if n > 0 {
			daily[i] = sum / float64(n)
		}
	}
	return compound(dates, daily)
}

func compound(dates []time.Time, daily []float64) Curve {
	c := Curve{Points: make([]CurvePoint, len(dates))}
	value := 1.0
	for i, d := range dates {
		value *= 1 + daily[i]
		c.Points[i] = CurvePoint{Date: d, Return: daily[i], Value: value}
	}
	return c
}

// Returns returns the daily portfolio returns.
func (c Curve) Returns() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Return
	}
	return out
}

// Scaled returns the compounded values multiplied by k.
func (c Curve) Scaled(k float64) []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Value * k
	}
	return out
}

// Final returns the last compounded value, or 1 for an empty curve.
func (c Curve) Final() float64 {
	if len(c.Points) == 0 {
		return 1
	}
	return c.Points[len(c.Points)-1].Value
}

// Len returns the number of dates on the curve.
func (c Curve) Len() int { return len(c.Points) }
