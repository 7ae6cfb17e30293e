// Package dataset loads the labeled feature table produced by the feature
// pipeline and partitions it into per-ticker, date-ordered series.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketlens/internal/domain"
)

var (
	// ErrDataUnavailable means the input is missing or empty after filtering.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrSchemaMismatch means an expected column is absent or malformed.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Column names with a fixed meaning in the labeled table.
const (
	ColDate         = "Date"
	ColTicker       = "Ticker"
	ColOpen         = "Open"
	ColHigh         = "High"
	ColLow          = "Low"
	ColClose        = "Close"
	ColAdjClose     = "Adj Close"
	ColVolume       = "Volume"
	ColFutureReturn = "future_return"
	ColTarget       = "target"
)

// nonFeature lists the identifier, label and raw price columns that are
// never fed to the classifier. Close is absent: it stays a model input.
var nonFeature = map[string]bool{
	ColDate:         true,
	ColTicker:       true,
	ColOpen:         true,
	ColHigh:         true,
	ColLow:          true,
	ColAdjClose:     true,
	ColVolume:       true,
	ColFutureReturn: true,
	ColTarget:       true,
}

// IsFeature reports whether column name is a model input.
func IsFeature(name string) bool {
	return !nonFeature[name]
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Row is one (date, ticker) observation of the labeled table.
type Row struct {
	Date         time.Time
	Ticker       string
	Close        float64
	Features     []float64 // aligned with Dataset.Features
	FutureReturn float64
	Target       int
	Labeled      bool
}

// Dataset is the in-memory labeled feature table.
type Dataset struct {
	Features []string
	Rows     []Row
}

// Load reads a labeled feature CSV from path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrDataUnavailable, path)
		}
		return nil, err
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ds, nil
}

// Read parses a labeled feature table. Date, Ticker and Close are required;
// every column that is not an identifier, raw price or label is a feature.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty table", ErrDataUnavailable)
	}
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{ColDate, ColTicker, ColClose} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: required column %q absent", ErrSchemaMismatch, col)
		}
	}

	ds := &Dataset{}
	var featureCols []int
	for i, h := range header {
		name := strings.TrimSpace(h)
		if IsFeature(name) && name != "" {
			ds.Features = append(ds.Features, name)
			featureCols = append(featureCols, i)
		}
	}

	targetCol, hasTarget := idx[ColTarget]
	futureCol, hasFuture := idx[ColFutureReturn]

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		row := Row{
			Ticker:   strings.TrimSpace(rec[idx[ColTicker]]),
			Features: make([]float64, len(featureCols)),
		}
		if row.Date, err = parseDate(rec[idx[ColDate]]); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSchemaMismatch, line, err)
		}
		if row.Ticker == "" {
			return nil, fmt.Errorf("%w: line %d: empty ticker", ErrSchemaMismatch, line)
		}
		if row.Close, err = parseFloat(rec[idx[ColClose]]); err != nil || row.Close <= 0 {
			return nil, fmt.Errorf("%w: line %d: invalid close %q", ErrSchemaMismatch, line, rec[idx[ColClose]])
		}
		for j, c := range featureCols {
			if row.Features[j], err = parseFloat(rec[c]); err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrSchemaMismatch, line, ds.Features[j], err)
			}
		}
		if hasTarget && strings.TrimSpace(rec[targetCol]) != "" {
			t, err := parseFloat(rec[targetCol])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d target: %v", ErrSchemaMismatch, line, err)
			}
			row.Target = int(t)
			row.Labeled = true
		}
		if hasFuture && strings.TrimSpace(rec[futureCol]) != "" {
			if row.FutureReturn, err = parseFloat(rec[futureCol]); err != nil {
				return nil, fmt.Errorf("%w: line %d future_return: %v", ErrSchemaMismatch, line, err)
			}
		}

		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// FeatureIndex returns the position of a feature column.
func (d *Dataset) FeatureIndex(name string) (int, bool) {
	for i, f := range d.Features {
		if f == name {
			return i, true
		}
	}
	return -1, false
}

// Since returns the rows dated on or after cutoff. It fails with
// ErrDataUnavailable when nothing remains.
func (d *Dataset) Since(cutoff time.Time) (*Dataset, error) {
	out := &Dataset{Features: d.Features}
	for _, r := range d.Rows {
		if !r.Date.Before(cutoff) {
			out.Rows = append(out.Rows, r)
		}
	}
	if len(out.Rows) == 0 {
		return nil, fmt.Errorf("%w: no rows on or after %s", ErrDataUnavailable, cutoff.Format(domain.DateLayout))
	}
	return out, nil
}

// Before returns the rows dated strictly before cutoff (the training split).
func (d *Dataset) Before(cutoff time.Time) *Dataset {
	out := &Dataset{Features: d.Features}
	for _, r := range d.Rows {
		if r.Date.Before(cutoff) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Panel is a dataset partitioned by ticker; each series is strictly ordered
// by date.
type Panel struct {
	Features []string
	Tickers  []string
	Series   map[string][]Row
}

// Partition groups rows by ticker and sorts each group by date. Two rows for
// the same (ticker, date) violate the table's key and yield ErrSchemaMismatch.
func (d *Dataset) Partition() (*Panel, error) {
	if len(d.Rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to partition", ErrDataUnavailable)
	}

	p := &Panel{
		Features: d.Features,
		Series:   make(map[string][]Row),
	}
	for _, r := range d.Rows {
		p.Series[r.Ticker] = append(p.Series[r.Ticker], r)
	}

	for ticker, rows := range p.Series {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Date.Before(rows[j].Date)
		})
		for i := 1; i < len(rows); i++ {
			if rows[i].Date.Equal(rows[i-1].Date) {
				return nil, fmt.Errorf("%w: duplicate row for %s on %s",
					ErrSchemaMismatch, ticker, rows[i].Date.Format(domain.DateLayout))
			}
		}
		p.Tickers = append(p.Tickers, ticker)
	}
	sort.Strings(p.Tickers)
	return p, nil
}

// Len returns the total number of rows across tickers.
func (p *Panel) Len() int {
	n := 0
	for _, rows := range p.Series {
		n += len(rows)
	}
	return n
}

// Latest returns the most recent row of every ticker, ordered by ticker.
func (p *Panel) Latest() []Row {
	out := make([]Row, 0, len(p.Tickers))
	for _, t := range p.Tickers {
		rows := p.Series[t]
		out = append(out, rows[len(rows)-1])
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
