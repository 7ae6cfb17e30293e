// Package marketlens is a Go SDK for the marketlens-server HTTP API.
package marketlens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Prediction is one ticker's latest direction call.
type Prediction struct {
	Ticker     string  `json:"ticker"`
	Date       string  `json:"date"`
	Close      float64 `json:"close"`
	Prediction int     `json:"prediction"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"createdAt,omitempty"`
}

// EquityPoint is one point of a backtest equity curve.
type EquityPoint struct {
	Date      string  `json:"date"`
	Strategy  float64 `json:"strategy"`
	Benchmark float64 `json:"benchmark"`
}

// Backtest is a stored backtest run. Sharpe is nil when undefined.
type Backtest struct {
	ID                 string        `json:"id"`
	Strategy           string        `json:"strategy"`
	CreatedAt          string        `json:"createdAt"`
	Cutoff             string        `json:"cutoff"`
	CostBps            float64       `json:"costBps"`
	Days               int           `json:"days"`
	TotalReturnPct     float64       `json:"totalReturnPct"`
	BenchmarkReturnPct float64       `json:"benchmarkReturnPct"`
	Sharpe             *float64      `json:"sharpe"`
	MaxDrawdownPct     float64       `json:"maxDrawdownPct"`
	Trades             int           `json:"trades"`
	CollapsedDates     int           `json:"collapsedDates"`
	Curve              []EquityPoint `json:"curve,omitempty"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketlens: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the marketlens-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new marketlens API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Predict asks the server for fresh predictions; the server records the
// snapshot.
func (c *Client) Predict(ctx context.Context) ([]Prediction, error) {
	var resp struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := c.do(ctx, http.MethodPost, "/predict", &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// Predictions returns the latest predictions without recording a snapshot.
func (c *Client) Predictions(ctx context.Context) ([]Prediction, error) {
	var resp struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/predictions", &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// PredictionHistory returns recorded snapshots for ticker (all tickers when
// empty), newest first.
func (c *Client) PredictionHistory(ctx context.Context, ticker string, limit int) ([]Prediction, error) {
	q := url.Values{}
	if ticker != "" {
		q.Set("ticker", ticker)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/predictions/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := c.do(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// Backtests lists stored backtest runs, newest first.
func (c *Client) Backtests(ctx context.Context, limit int) ([]Backtest, error) {
	path := "/api/backtests"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Runs []Backtest `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Backtest retrieves one stored run with its equity curve.
func (c *Client) Backtest(ctx context.Context, id string) (*Backtest, error) {
	var run Backtest
	if err := c.do(ctx, http.MethodGet, "/api/backtests/"+url.PathEscape(id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
