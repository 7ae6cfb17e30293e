package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Ticker,Open,High,Low,Close,Volume,RSI_14,sentiment_score,future_return,target
2024-12-31,AAPL,250,252,249,251,1000,55.1,0.2,0.01,1
2025-01-03,AAPL,251,255,250,254,1200,61.0,0.0,-0.02,0
2025-01-02,AAPL,251,253,250,252,1100,58.3,-0.4,0.03,1
2025-01-02,MSFT,420,425,418,421,900,49.9,0.1,0.00,0
2025-01-03,MSFT,421,423,415,417,950,44.2,0.0,0.04,1
`

func TestReadColumns(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Close", "RSI_14", "sentiment_score"}, ds.Features)
	require.Len(t, ds.Rows, 5)

	r := ds.Rows[2]
	assert.Equal(t, "AAPL", r.Ticker)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, 252.0, r.Close)
	assert.Equal(t, []float64{252, 58.3, -0.4}, r.Features)
	assert.True(t, r.Labeled)
	assert.Equal(t, 1, r.Target)
	assert.InDelta(t, 0.03, r.FutureReturn, 1e-12)

	i, ok := ds.FeatureIndex("sentiment_score")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	assert.True(t, IsFeature(ColClose))
	assert.False(t, IsFeature(ColAdjClose))
	assert.False(t, IsFeature(ColTarget))
}

func TestReadSchemaMismatch(t *testing.T) {
	_, err := Read(strings.NewReader("Date,Ticker,Open\n2025-01-02,AAPL,1\n"))
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "Close")

	_, err = Read(strings.NewReader("Date,Ticker,Close,RSI_14\n2025-01-02,AAPL,10,abc\n"))
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Read(strings.NewReader("Date,Ticker,Close\nyesterday,AAPL,10\n"))
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labeled.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 5)
}

func TestSinceAndBefore(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	test, err := ds.Since(cutoff)
	require.NoError(t, err)
	assert.Len(t, test.Rows, 4)

	train := ds.Before(cutoff)
	assert.Len(t, train.Rows, 1)

	_, err = ds.Since(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestPartitionOrdersByDate(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	p, err := ds.Partition()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, p.Tickers)
	assert.Equal(t, 5, p.Len())

	aapl := p.Series["AAPL"]
	require.Len(t, aapl, 3)
	for i := 1; i < len(aapl); i++ {
		assert.True(t, aapl[i-1].Date.Before(aapl[i].Date), "AAPL rows out of order at %d", i)
	}

	latest := p.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, 254.0, latest[0].Close)
	assert.Equal(t, 417.0, latest[1].Close)
}

func TestPartitionRejectsDuplicates(t *testing.T) {
	csv := "Date,Ticker,Close\n2025-01-02,AAPL,10\n2025-01-02,AAPL,11\n"
	ds, err := Read(strings.NewReader(csv))
	require.NoError(t, err)

	_, err = ds.Partition()
	require.ErrorIs(t, err, ErrSchemaMismatch)
}
