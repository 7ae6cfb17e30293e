// Package features turns daily bars and news sentiment into the labeled
// feature table the classifier trains and backtests on.
package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"marketlens/internal/dataset"
	"marketlens/internal/domain"
)

// ColSentiment is the daily sentiment feature column.
const ColSentiment = "sentiment_score"

// Row is one (date, ticker) line of the feature table.
type Row struct {
	Date         time.Time
	Ticker       string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	Indicators   []float64 // aligned with IndicatorColumns
	Sentiment    float64
	FutureReturn float64
	Target       int
}

// Indicators computes the technical indicators over one ticker's bars and
// returns a row per bar once every indicator is past its warm-up window.
// Bars are sorted by timestamp first.
func Indicators(ticker string, bars []domain.Bar) []Row {
	sorted := append([]domain.Bar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	closes := make([]float64, len(sorted))
	for i, b := range sorted {
		closes[i] = b.Close
	}
	cols := computeIndicators(closes)

	var rows []Row
	for i, b := range sorted {
		values := make([]float64, len(cols))
		complete := true
		for j, col := range cols {
			values[j] = col[i]
			if math.IsNaN(col[i]) {
				complete = false
			}
		}
		if !complete {
			continue
		}
		rows = append(rows, Row{
			Date:       domain.Day(b.Timestamp),
			Ticker:     ticker,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			Indicators: values,
		})
	}
	return rows
}

// JoinSentiment sets each row's Sentiment from the daily score for the same
// ticker and date. Rows without news keep a neutral 0.
func JoinSentiment(rows []Row, daily []domain.DailySentiment) {
	type key struct {
		ticker string
		day    int64
	}
	scores := make(map[key]float64, len(daily))
	for _, d := range daily {
		scores[key{d.Symbol, domain.Day(d.Date).Unix()}] = d.Score
	}
	for i := range rows {
		rows[i].Sentiment = scores[key{rows[i].Ticker, rows[i].Date.Unix()}]
	}
}

// Label sets FutureReturn to the close-to-close change horizon rows ahead
// within the same ticker and Target to 1 when it is positive. The last
// horizon rows of each ticker have no future close and are dropped. The
// result is ordered by ticker, then date.
func Label(rows []Row, horizon int) []Row {
	byTicker := make(map[string][]Row)
	var tickers []string
	for _, r := range rows {
		if _, ok := byTicker[r.Ticker]; !ok {
			tickers = append(tickers, r.Ticker)
		}
		byTicker[r.Ticker] = append(byTicker[r.Ticker], r)
	}
	sort.Strings(tickers)

	var out []Row
	for _, t := range tickers {
		series := byTicker[t]
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		for i := 0; i+horizon < len(series); i++ {
			r := series[i]
			future := series[i+horizon].Close
			r.FutureReturn = (future - r.Close) / r.Close
			r.Target = 0
			if r.FutureReturn > 0 {
				r.Target = 1
			}
			out = append(out, r)
		}
	}
	return out
}

// Build runs the whole pipeline: indicators per ticker, sentiment join and
// labeling.
func Build(bars map[string][]domain.Bar, daily []domain.DailySentiment, horizon int) ([]Row, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	var rows []Row
	for ticker, b := range bars {
		rows = append(rows, Indicators(ticker, b)...)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: not enough bars for any ticker", dataset.ErrDataUnavailable)
	}
	JoinSentiment(rows, daily)
	labeled := Label(rows, horizon)
	if len(labeled) == 0 {
		return nil, fmt.Errorf("%w: no rows left after labeling with horizon %d",
			dataset.ErrDataUnavailable, horizon)
	}
	return labeled, nil
}

// Header returns the column names written by WriteCSV.
func Header() []string {
	h := []string{
		dataset.ColDate, dataset.ColTicker,
		dataset.ColOpen, dataset.ColHigh, dataset.ColLow, dataset.ColClose, dataset.ColVolume,
	}
	h = append(h, IndicatorColumns...)
	return append(h, ColSentiment, dataset.ColFutureReturn, dataset.ColTarget)
}

// WriteCSV writes rows as the labeled feature table.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range rows {
		rec := []string{
			r.Date.Format(domain.DateLayout), r.Ticker,
			f(r.Open), f(r.High), f(r.Low), f(r.Close), strconv.FormatInt(r.Volume, 10),
		}
		for _, v := range r.Indicators {
			rec = append(rec, f(v))
		}
		rec = append(rec, f(r.Sentiment), f(r.FutureReturn), strconv.Itoa(r.Target))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes rows to path, creating parent directories.
func SaveCSV(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
