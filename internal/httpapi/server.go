package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"marketlens/internal/dashboard"
	"marketlens/internal/domain"
	"marketlens/internal/predict"
	"marketlens/internal/reporting"
	"marketlens/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// Predictor is the read side of the prediction service used by the handlers.
type Predictor interface {
	Latest(ctx context.Context) ([]domain.Prediction, error)
	Peek() []domain.Prediction
	History(ctx context.Context, ticker string, limit int) ([]domain.Prediction, error)
	Runs(ctx context.Context, limit int) ([]domain.BacktestRun, error)
	Run(ctx context.Context, id string) (*domain.BacktestRun, error)
	Info() predict.Info
}

// Server serves the HTTP API and dashboard.
type Server struct {
	svc     Predictor
	horizon int
	log     *slog.Logger
}

// NewServer creates a Server around svc. horizon is the label horizon in
// trading days, shown on the dashboard.
func NewServer(svc Predictor, horizon int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, horizon: horizon, log: log.With("component", "httpapi")}
}

// RegisterRoutes registers all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /api/predictions", s.handlePredictions)
	mux.HandleFunc("GET /api/predictions/history", s.handlePredictionHistory)
	mux.HandleFunc("GET /api/backtests", s.handleRuns)
	mux.HandleFunc("GET /api/backtests/{id}", s.handleRun)
	mux.HandleFunc("GET /api/backtests/{id}/chart.png", s.handleRunChart)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parseLimit extracts the "limit" query param, clamped to [1, maxListLimit].
func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, WelcomeResponse{Message: "Welcome to the Portfolio Optimizer API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, convertHealth(s.svc.Info()))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	preds, err := s.svc.Latest(r.Context())
	if err != nil {
		s.log.Error("computing predictions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute predictions")
		return
	}
	writeJSON(w, convertPredictions(preds))
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, convertPredictions(s.svc.Peek()))
}

func (s *Server) handlePredictionHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	preds, err := s.svc.History(r.Context(), ticker, parseLimit(r))
	if err != nil {
		s.log.Error("listing prediction history", "ticker", ticker, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	writeJSON(w, convertPredictions(preds))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.svc.Runs(r.Context(), parseLimit(r))
	if err != nil {
		s.log.Error("listing backtests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backtests")
		return
	}
	resp := RunsResponse{Runs: make([]RunJSON, 0, len(runs))}
	for i := range runs {
		resp.Runs = append(resp.Runs, convertRun(&runs[i]))
	}
	writeJSON(w, resp)
}

// lookupRun writes the error response itself and returns nil when the run
// cannot be served.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *domain.BacktestRun {
	id := r.PathValue("id")
	run, err := s.svc.Run(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "backtest "+id+" not found")
		return nil
	}
	if err != nil {
		s.log.Error("loading backtest", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backtest")
		return nil
	}
	return run
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if run := s.lookupRun(w, r); run != nil {
		writeJSON(w, convertRun(run))
	}
}

func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	if len(run.Curve) == 0 {
		writeError(w, http.StatusNotFound, "backtest has no equity curve")
		return
	}
	var buf bytes.Buffer
	if err := reporting.WriteChart(&buf, run); err != nil {
		s.log.Error("rendering chart", "id", run.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	runs, err := s.svc.Runs(r.Context(), defaultListLimit)
	if err != nil {
		s.log.Warn("listing backtests for dashboard", "error", err)
	}
	var buf bytes.Buffer
	if err := dashboard.Render(&buf, dashboard.NewPage(s.svc.Peek(), runs, s.horizon)); err != nil {
		s.log.Error("rendering dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
