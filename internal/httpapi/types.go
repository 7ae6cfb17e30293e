// Package httpapi serves the prediction API, stored backtests and the HTML
// dashboard over HTTP.
package httpapi

import (
	"time"

	"marketlens/internal/domain"
	"marketlens/internal/predict"
)

// PredictionJSON is one ticker's latest call.
type PredictionJSON struct {
	Ticker     string  `json:"ticker"`
	Date       string  `json:"date"`
	Close      float64 `json:"close"`
	Prediction int     `json:"prediction"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"createdAt,omitempty"`
}

// PredictionsResponse is returned by POST /predict and GET /api/predictions.
type PredictionsResponse struct {
	Predictions []PredictionJSON `json:"predictions"`
}

// WelcomeResponse is returned by GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status  string   `json:"status"`
	AsOf    string   `json:"asOf,omitempty"`
	Tickers []string `json:"tickers"`
	Rows    int      `json:"rows"`
}

// EquityPointJSON is one point of a stored equity curve.
type EquityPointJSON struct {
	Date      string  `json:"date"`
	Strategy  float64 `json:"strategy"`
	Benchmark float64 `json:"benchmark"`
}

// RunJSON is a stored backtest run. Sharpe is null when undefined.
type RunJSON struct {
	ID                 string            `json:"id"`
	Strategy           string            `json:"strategy"`
	CreatedAt          string            `json:"createdAt"`
	Cutoff             string            `json:"cutoff"`
	CostBps            float64           `json:"costBps"`
	Days               int               `json:"days"`
	TotalReturnPct     float64           `json:"totalReturnPct"`
	BenchmarkReturnPct float64           `json:"benchmarkReturnPct"`
	Sharpe             *float64          `json:"sharpe"`
	MaxDrawdownPct     float64           `json:"maxDrawdownPct"`
	Trades             int               `json:"trades"`
	CollapsedDates     int               `json:"collapsedDates"`
	Curve              []EquityPointJSON `json:"curve,omitempty"`
}

// RunsResponse lists stored backtest runs.
type RunsResponse struct {
	Runs []RunJSON `json:"runs"`
}

func convertPrediction(p domain.Prediction) PredictionJSON {
	out := PredictionJSON{
		Ticker:     p.Ticker,
		Date:       p.Date.Format(domain.DateLayout),
		Close:      p.Close,
		Prediction: int(p.Direction),
		Direction:  p.Direction.String(),
		Confidence: p.Confidence,
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return out
}

func convertPredictions(preds []domain.Prediction) PredictionsResponse {
	out := make([]PredictionJSON, 0, len(preds))
	for _, p := range preds {
		out = append(out, convertPrediction(p))
	}
	return PredictionsResponse{Predictions: out}
}

func convertRun(r *domain.BacktestRun) RunJSON {
	out := RunJSON{
		ID:                 r.ID,
		Strategy:           r.Strategy,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		Cutoff:             r.Cutoff.Format(domain.DateLayout),
		CostBps:            r.CostBps,
		Days:               r.Days,
		TotalReturnPct:     r.TotalReturnPct,
		BenchmarkReturnPct: r.BenchmarkReturnPct,
		Sharpe:             r.Sharpe,
		MaxDrawdownPct:     r.MaxDrawdownPct,
		Trades:             r.Trades,
		CollapsedDates:     r.CollapsedDates,
	}
	for _, p := range r.Curve {
		out.Curve = append(out.Curve, EquityPointJSON{
			Date:      p.Date.Format(domain.DateLayout),
			Strategy:  p.Strategy,
			Benchmark: p.Benchmark,
		})
	}
	return out
}

func convertHealth(info predict.Info) HealthResponse {
	h := HealthResponse{Status: "ok", Tickers: info.Tickers, Rows: info.Rows}
	if !info.AsOf.IsZero() {
		h.AsOf = info.AsOf.Format(domain.DateLayout)
	}
	return h
}
