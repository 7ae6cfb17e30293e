package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/domain"
)

func TestScore(t *testing.T) {
	s := NewScorer()
	tests := []struct {
		text  string
		label domain.SentimentLabel
		score float64
	}{
		{"Apple beats estimates, shares surge", domain.SentimentPositive, 1},
		{"Exxon shares tumble after profit warning", domain.SentimentNegative, 2.0 / 3},
		{"JPMorgan to hold annual meeting", domain.SentimentNeutral, 1},
		{"Nvidia gains as rivals fall", domain.SentimentNeutral, 1},
		{"Microsoft did not beat expectations", domain.SentimentNegative, 1},
	}
	for _, tt := range tests {
		got := s.Score(tt.text)
		assert.Equal(t, tt.label, got.Label, tt.text)
		assert.InDelta(t, tt.score, got.Score, 1e-12, tt.text)
	}
}

func TestSigned(t *testing.T) {
	assert.Equal(t, 0.8, Result{Label: domain.SentimentPositive, Score: 0.8}.Signed())
	assert.Equal(t, -0.8, Result{Label: domain.SentimentNegative, Score: 0.8}.Signed())
	assert.Equal(t, 0.0, Result{Label: domain.SentimentNeutral, Score: 1}.Signed())
}

func TestDaily(t *testing.T) {
	d := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{Symbol: "MSFT", Time: d.Add(9 * time.Hour), Headline: "Microsoft shares rally"},
		{Symbol: "AAPL", Time: d.Add(10 * time.Hour), Headline: "Apple upgraded at Morgan Stanley"},
		{Symbol: "AAPL", Time: d.Add(15 * time.Hour), Headline: "Apple faces EU probe"},
		{Symbol: "AAPL", Time: d.Add(16 * time.Hour), Headline: "Apple event scheduled"},
		{Symbol: "AAPL", Time: d.Add(26 * time.Hour), Headline: "Apple stock climbs"},
		{Symbol: "AAPL", Time: d.Add(27 * time.Hour), Headline: "  "},
	}

	got := Daily(NewScorer(), articles)
	require.Len(t, got, 3)

	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, d, got[0].Date)
	assert.Equal(t, 3, got[0].Articles)
	assert.InDelta(t, 0.0, got[0].Score, 1e-12) // +1, -1, 0

	assert.Equal(t, d.AddDate(0, 0, 1), got[1].Date)
	assert.Equal(t, 1, got[1].Articles)
	assert.Equal(t, 1.0, got[1].Score)

	assert.Equal(t, "MSFT", got[2].Symbol)
	assert.Equal(t, 1.0, got[2].Score)
}
