// Package predict serves the classifier's latest per-ticker calls. A Service
// is built once at startup from a loaded model and dataset and shared by the
// HTTP and gRPC handlers.
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketlens/internal/dataset"
	"marketlens/internal/domain"
	"marketlens/internal/model"
	"marketlens/internal/store"
)

// Info describes what a Service was built from.
type Info struct {
	Tickers  []string  `json:"tickers"`
	Features []string  `json:"features"`
	AsOf     time.Time `json:"as_of"`
	Rows     int       `json:"rows"`
}

// Service holds the model and dataset for the lifetime of the process.
// It is safe for concurrent use.
type Service struct {
	latest []domain.Prediction
	info   Info
	preds  store.PredictionStore
	runs   store.RunStore
	now    func() time.Time
	log    *slog.Logger
}

// NewService scores the most recent row of every ticker in ds with m. preds
// and runs may be nil, which disables snapshot persistence and run lookups.
func NewService(ds *dataset.Dataset, m *model.Logistic, preds store.PredictionStore, runs store.RunStore) (*Service, error) {
	panel, err := ds.Partition()
	if err != nil {
		return nil, err
	}
	scorer, err := model.Align(m, panel.Features)
	if err != nil {
		return nil, err
	}

	s := &Service{
		preds: preds,
		runs:  runs,
		now:   time.Now,
		log:   slog.Default().With("component", "predict"),
		info: Info{
			Tickers:  panel.Tickers,
			Features: m.Features,
			Rows:     panel.Len(),
		},
	}
	for _, row := range panel.Latest() {
		label, pUp := scorer.Score(row.Features)
		conf := pUp
		if label == 0 {
			conf = 1 - pUp
		}
		s.latest = append(s.latest, domain.Prediction{
			Ticker:     row.Ticker,
			Date:       row.Date,
			Close:      row.Close,
			Direction:  domain.Direction(label),
			Confidence: conf,
		})
		if row.Date.After(s.info.AsOf) {
			s.info.AsOf = row.Date
		}
	}
	return s, nil
}

// Info returns what the service was built from.
func (s *Service) Info() Info { return s.info }

// Latest returns the prediction for each ticker's most recent row, ordered by
// ticker. When a prediction store is configured the snapshot is recorded.
func (s *Service) Latest(ctx context.Context) ([]domain.Prediction, error) {
	now := s.now().UTC()
	out := make([]domain.Prediction, len(s.latest))
	for i, p := range s.latest {
		p.CreatedAt = now
		out[i] = p
	}
	if s.preds != nil {
		if err := s.preds.SavePredictions(ctx, out); err != nil {
			return nil, fmt.Errorf("saving prediction snapshot: %w", err)
		}
	}
	return out, nil
}

// Peek returns the latest predictions without recording a snapshot.
func (s *Service) Peek() []domain.Prediction {
	out := make([]domain.Prediction, len(s.latest))
	copy(out, s.latest)
	return out
}

// History returns recorded prediction snapshots, newest first.
func (s *Service) History(ctx context.Context, ticker string, limit int) ([]domain.Prediction, error) {
	if s.preds == nil {
		return nil, nil
	}
	return s.preds.ListPredictions(ctx, ticker, limit)
}

// Runs returns the most recent stored backtest runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]domain.BacktestRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

// Run returns one stored backtest run with its curve.
func (s *Service) Run(ctx context.Context, id string) (*domain.BacktestRun, error) {
	if s.runs == nil {
		return nil, store.ErrNotFound
	}
	return s.runs.GetRun(ctx, id)
}
