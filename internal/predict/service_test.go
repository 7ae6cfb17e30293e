package predict

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/dataset"
	"marketlens/internal/domain"
	"marketlens/internal/model"
	"marketlens/internal/store"
)

func testDataset() *dataset.Dataset {
	d := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return &dataset.Dataset{
		Features: []string{"Close", "momentum"},
		Rows: []dataset.Row{
			{Date: d.AddDate(0, 0, 1), Ticker: "MSFT", Close: 400, Features: []float64{400, -2}},
			{Date: d, Ticker: "AAPL", Close: 170, Features: []float64{170, -1}},
			{Date: d.AddDate(0, 0, 1), Ticker: "AAPL", Close: 172, Features: []float64{172, 1}},
			{Date: d, Ticker: "MSFT", Close: 398, Features: []float64{398, 3}},
		},
	}
}

func testModel() *model.Logistic {
	return &model.Logistic{
		Features:  []string{"momentum"},
		Means:     []float64{0},
		Scales:    []float64{1},
		Weights:   []float64{1},
		Threshold: 0.5,
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLatest(t *testing.T) {
	db := newTestStore(t)
	svc, err := NewService(testDataset(), testModel(), db, db)
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	got, err := svc.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	aapl, msft := got[0], got[1]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, 172.0, aapl.Close)
	assert.Equal(t, domain.DirectionUp, aapl.Direction)
	assert.InDelta(t, 0.7310585786300049, aapl.Confidence, 1e-12)
	assert.Equal(t, fixed, aapl.CreatedAt)

	// A down call reports the probability of down.
	assert.Equal(t, "MSFT", msft.Ticker)
	assert.Equal(t, domain.DirectionDown, msft.Direction)
	assert.InDelta(t, 0.8807970779778823, msft.Confidence, 1e-12)

	hist, err := svc.History(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "AAPL", hist[0].Ticker)

	info := svc.Info()
	assert.Equal(t, []string{"AAPL", "MSFT"}, info.Tickers)
	assert.Equal(t, 4, info.Rows)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), info.AsOf)
}

func TestLatestIsStable(t *testing.T) {
	svc, err := NewService(testDataset(), testModel(), nil, nil)
	require.NoError(t, err)

	a, err := svc.Latest(context.Background())
	require.NoError(t, err)
	a[0].Close = -1

	b := svc.Peek()
	assert.Equal(t, 172.0, b[0].Close)
}

func TestNewServiceSchemaMismatch(t *testing.T) {
	m := testModel()
	m.Features = []string{"RSI_14"}
	_, err := NewService(testDataset(), m, nil, nil)
	require.ErrorIs(t, err, dataset.ErrSchemaMismatch)
}

func TestRunsWithoutStore(t *testing.T) {
	svc, err := NewService(testDataset(), testModel(), nil, nil)
	require.NoError(t, err)

	runs, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.Run(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRunsFromStore(t *testing.T) {
	db := newTestStore(t)
	svc, err := NewService(testDataset(), testModel(), db, db)
	require.NoError(t, err)

	run := &domain.BacktestRun{
		ID:        "run-1",
		Strategy:  "binary",
		CreatedAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Cutoff:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:      1,
		Curve: []domain.EquityPoint{
			{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Strategy: 100, Benchmark: 100},
		},
	}
	require.NoError(t, db.SaveRun(context.Background(), run))

	runs, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got, err := svc.Run(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Curve, 1)
}
