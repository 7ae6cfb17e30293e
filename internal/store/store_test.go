package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketlens/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	// Test barPath produces the expected layout.
	ts := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	bp := ps.barPath("AAPL", "us", ts)

	wantBarPath := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}
	if !strings.Contains(bp, "us") {
		t.Errorf("barPath should contain market segment 'us': %s", bp)
	}
	if !strings.Contains(bp, "AAPL") {
		t.Errorf("barPath should contain symbol 'AAPL': %s", bp)
	}
	if !strings.Contains(bp, "2024.parquet") {
		t.Errorf("barPath should contain year file '2024.parquet': %s", bp)
	}

	// Test newsPath produces the expected layout.
	np := ps.newsPath("tsla")

	wantNewsPath := filepath.Join("/data", "news", "TSLA.parquet")
	if np != wantNewsPath {
		t.Errorf("newsPath mismatch:\n  got  %s\n  want %s", np, wantNewsPath)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
	}

	// Write bars.
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// Read them back.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	// Write initial bar.
	bars1 := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open:      400.0, High: 405.0, Low: 399.0, Close: 403.0,
			Volume: 30000000, TradeCount: 300000, VWAP: 402.0,
		},
	}
	if err := ps.WriteBars(ctx, bars1); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Write another bar for same symbol+year; it should merge, not overwrite.
	bars2 := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Open:      403.0, High: 410.0, Low: 402.0, Close: 408.0,
			Volume: 35000000, TradeCount: 350000, VWAP: 406.0,
		},
	}
	if err := ps.WriteBars(ctx, bars2); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "MSFT", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	// Write bars for two symbols.
	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 185.0, High: 186.0, Low: 184.0, Close: 185.5, Volume: 50000000},
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 140.0, High: 141.0, Low: 139.0, Close: 140.5, Volume: 20000000},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, "us")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("ListSymbols returned %d symbols, want 2", len(symbols))
	}
	if symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestParquetStoreArticles(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day := time.Date(2025, 2, 3, 14, 0, 0, 0, time.UTC)
	first := []domain.Article{
		{Symbol: "aapl", Time: day, Source: "google", Headline: "Apple beats estimates"},
		{Symbol: "AAPL", Time: day.Add(time.Hour), Source: "alpaca", Headline: "Apple shares rally"},
	}
	if err := ps.WriteArticles(ctx, first); err != nil {
		t.Fatalf("WriteArticles (first): %v", err)
	}

	// Re-writing a known article must not duplicate it.
	second := []domain.Article{
		{Symbol: "AAPL", Time: day, Source: "google", Headline: "Apple beats estimates", Content: "updated"},
		{Symbol: "AAPL", Time: day.AddDate(0, 0, 3), Source: "google", Headline: "Apple faces probe"},
	}
	if err := ps.WriteArticles(ctx, second); err != nil {
		t.Fatalf("WriteArticles (second): %v", err)
	}

	got, err := ps.ReadArticles(ctx, "AAPL", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ReadArticles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadArticles returned %d articles, want 2", len(got))
	}
	if got[0].Content != "updated" {
		t.Errorf("first article Content = %q, want %q", got[0].Content, "updated")
	}
	if got[1].Headline != "Apple shares rally" {
		t.Errorf("second article Headline = %q, want %q", got[1].Headline, "Apple shares rally")
	}

	none, err := ps.ReadArticles(ctx, "MSFT", day, day.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("ReadArticles for unknown symbol: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ReadArticles for unknown symbol returned %d articles, want 0", len(none))
	}
}

func TestParquetStoreKeepsUnreadableArchive(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()
	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	garbage := []byte("not a parquet file")

	barFile := ps.barPath("AAPL", string(domain.MarketUS), day)
	newsFile := ps.newsPath("AAPL")
	for _, path := range []string{barFile, newsFile} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, garbage, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	bars := []domain.Bar{{Symbol: "AAPL", Timestamp: day, Open: 1, High: 2, Low: 1, Close: 2, Volume: 10}}
	if err := ps.WriteBars(ctx, bars); err == nil {
		t.Error("WriteBars over an unreadable file returned nil error")
	}
	if _, err := ps.ReadBars(ctx, "AAPL", string(domain.MarketUS), day, day); err == nil {
		t.Error("ReadBars of an unreadable file returned nil error")
	}

	articles := []domain.Article{{Symbol: "AAPL", Time: day, Source: "google", Headline: "Apple beats estimates"}}
	if err := ps.WriteArticles(ctx, articles); err == nil {
		t.Error("WriteArticles over an unreadable file returned nil error")
	}

	for _, path := range []string{barFile, newsFile} {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(garbage) {
			t.Errorf("%s was overwritten", filepath.Base(path))
		}
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	})
	return store
}

func TestSQLiteStoreOpen(t *testing.T) {
	store := newTestSQLiteStore(t)

	// Verify the store is usable by pinging the database.
	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreRuns(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	sharpe := 1.37
	d1 := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	runs := []*domain.BacktestRun{
		{
			ID:                 "run-a",
			Strategy:           "binary",
			CreatedAt:          time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			Cutoff:             time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Days:               2,
			TotalReturnPct:     5,
			BenchmarkReturnPct: 3,
			Sharpe:             &sharpe,
			Curve: []domain.EquityPoint{
				{Date: d1, Strategy: 100, Benchmark: 100},
				{Date: d1.AddDate(0, 0, 1), Strategy: 105, Benchmark: 103},
			},
		},
		{
			ID:        "run-b",
			Strategy:  "confidence",
			CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			Cutoff:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			CostBps:   10,
		},
	}
	for _, r := range runs {
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun(%s): %v", r.ID, err)
		}
	}

	got, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Sharpe == nil || *got.Sharpe != sharpe {
		t.Errorf("GetRun Sharpe = %v, want %v", got.Sharpe, sharpe)
	}
	if len(got.Curve) != 2 || got.Curve[1].Strategy != 105 {
		t.Errorf("GetRun Curve = %+v, want two points ending at 105", got.Curve)
	}
	if !got.Curve[0].Date.Equal(d1) {
		t.Errorf("first curve date = %v, want %v", got.Curve[0].Date, d1)
	}

	b, err := store.GetRun(ctx, "run-b")
	if err != nil {
		t.Fatalf("GetRun(run-b): %v", err)
	}
	if b.Sharpe != nil {
		t.Errorf("run-b Sharpe = %v, want nil (undefined)", *b.Sharpe)
	}

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}

	list, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(list) != 2 || list[0].ID != "run-b" {
		t.Errorf("ListRuns = %+v, want newest (run-b) first", list)
	}
}

func TestSQLiteStorePredictions(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	preds := []domain.Prediction{
		{Ticker: "AAPL", Date: date, Close: 201.5, Direction: domain.DirectionUp, Confidence: 0.64, CreatedAt: now},
		{Ticker: "MSFT", Date: date, Close: 460.1, Direction: domain.DirectionDown, Confidence: 0.58, CreatedAt: now},
	}
	if err := store.SavePredictions(ctx, preds); err != nil {
		t.Fatalf("SavePredictions: %v", err)
	}

	all, err := store.ListPredictions(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListPredictions(all): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListPredictions(all) returned %d, want 2", len(all))
	}

	msft, err := store.ListPredictions(ctx, "MSFT", 10)
	if err != nil {
		t.Fatalf("ListPredictions(MSFT): %v", err)
	}
	if len(msft) != 1 || msft[0].Direction != domain.DirectionDown || msft[0].Close != 460.1 {
		t.Errorf("ListPredictions(MSFT) = %+v", msft)
	}
}
