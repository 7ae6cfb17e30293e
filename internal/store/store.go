// Package store defines storage interfaces for persisting and retrieving
// bars, news, backtest runs and prediction snapshots.
package store

import (
	"context"
	"errors"
	"time"

	"marketlens/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// NewsStore persists and retrieves news articles.
type NewsStore interface {
	// WriteArticles persists a batch of articles, deduplicating repeats.
	WriteArticles(ctx context.Context, articles []domain.Article) error

	// ReadArticles returns articles for the given symbol within [start, end].
	ReadArticles(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error)
}

// RunStore persists and retrieves backtest run summaries and curves.
type RunStore interface {
	// SaveRun inserts a run together with its equity curve.
	SaveRun(ctx context.Context, run *domain.BacktestRun) error

	// GetRun retrieves a single run, including its curve, by ID.
	GetRun(ctx context.Context, id string) (*domain.BacktestRun, error)

	// ListRuns returns the most recent runs (without curves), up to limit.
	ListRuns(ctx context.Context, limit int) ([]domain.BacktestRun, error)
}

// PredictionStore persists point-in-time prediction snapshots.
type PredictionStore interface {
	// SavePredictions inserts a batch of predictions.
	SavePredictions(ctx context.Context, preds []domain.Prediction) error

	// ListPredictions returns the most recent predictions for a ticker, up to
	// limit. An empty ticker matches all tickers.
	ListPredictions(ctx context.Context, ticker string, limit int) ([]domain.Prediction, error)
}
