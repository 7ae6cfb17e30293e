// Package backtest simulates portfolio strategies over per-ticker model
// signals and computes their performance metrics.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"marketlens/internal/dataset"
	"marketlens/internal/domain"
	"marketlens/internal/model"
)

// SignalRow is one (date, ticker) observation with the classifier's outputs
// and the close-to-close return into that date.
type SignalRow struct {
	Date        time.Time
	Ticker      string
	Close       float64
	DailyReturn float64
	HasReturn   bool // false on the first row of each ticker
	Prediction  int
	Confidence  float64
}

// Signals holds SignalRows partitioned by ticker. Every series is strictly
// ordered by date; lags are only ever taken within a series.
type Signals struct {
	Tickers []string // sorted
	Series  map[string][]SignalRow
}

// NewSignals builds the per-ticker signal series from scored rows and
// computes each row's daily return within its ticker.
func NewSignals(scored map[string][]model.Scored) (*Signals, error) {
	s := &Signals{Series: make(map[string][]SignalRow, len(scored))}
	for ticker, rows := range scored {
		if len(rows) == 0 {
			continue
		}
		series := make([]SignalRow, len(rows))
		for i, r := range rows {
			if r.Prediction != 0 && r.Prediction != 1 {
				return nil, fmt.Errorf("%w: %s prediction %d on %s is not 0 or 1",
					dataset.ErrSchemaMismatch, ticker, r.Prediction, r.Date.Format(domain.DateLayout))
			}
			if r.Confidence < 0 || r.Confidence > 1 || math.IsNaN(r.Confidence) {
				return nil, fmt.Errorf("%w: %s confidence %v on %s outside [0, 1]",
					dataset.ErrSchemaMismatch, ticker, r.Confidence, r.Date.Format(domain.DateLayout))
			}
			row := SignalRow{
				Date:       r.Date,
				Ticker:     ticker,
				Close:      r.Close,
				Prediction: r.Prediction,
				Confidence: r.Confidence,
			}
			if i > 0 {
				prev := rows[i-1]
				if !prev.Date.Before(r.Date) {
					return nil, fmt.Errorf("%w: %s rows not strictly increasing at %s",
						dataset.ErrSchemaMismatch, ticker, r.Date.Format(domain.DateLayout))
				}
				row.DailyReturn = (r.Close - prev.Close) / prev.Close
				row.HasReturn = true
			}
			series[i] = row
		}
		s.Series[ticker] = series
		s.Tickers = append(s.Tickers, ticker)
	}
	if len(s.Tickers) == 0 {
		return nil, fmt.Errorf("%w: no signal rows", dataset.ErrDataUnavailable)
	}
	sort.Strings(s.Tickers)
	return s, nil
}

// Dates returns every date observed for any ticker, ascending.
func (s *Signals) Dates() []time.Time {
	seen := make(map[int64]bool)
	var dates []time.Time
	for _, t := range s.Tickers {
		for _, r := range s.Series[t] {
			if !seen[r.Date.Unix()] {
				seen[r.Date.Unix()] = true
				dates = append(dates, r.Date)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Len returns the total number of rows across tickers.
func (s *Signals) Len() int {
	n := 0
	for _, rows := range s.Series {
		n += len(rows)
	}
	return n
}

// SignalChanges counts consecutive same-ticker rows whose prediction differs.
func (s *Signals) SignalChanges() int {
	n := 0
	for _, t := range s.Tickers {
		rows := s.Series[t]
		for i := 1; i < len(rows); i++ {
			if rows[i].Prediction != rows[i-1].Prediction {
				n++
			}
		}
	}
	return n
}
