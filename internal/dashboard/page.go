// Package dashboard renders the HTML prediction dashboard: one card per
// ticker with the latest direction call, plus a table of stored backtests.
package dashboard

import (
	"html/template"
	"io"
	"time"

	"marketlens/internal/domain"
	"marketlens/internal/reporting"
)

// Card is one ticker's latest call as shown on the dashboard.
type Card struct {
	Ticker     string
	Up         bool
	Direction  string
	Confidence string
	Close      string
	Date       string
}

// RunRow is one stored backtest in the dashboard table.
type RunRow struct {
	ID        string
	Title     string
	Created   string
	Strategy  string
	Benchmark string
	Sharpe    string
	Drawdown  string
	Trades    string
}

// Page is the data behind the dashboard template.
type Page struct {
	Title   string
	AsOf    string
	Horizon int
	Cards   []Card
	Runs    []RunRow
}

// NewPage builds the dashboard view of the given predictions and runs.
func NewPage(preds []domain.Prediction, runs []domain.BacktestRun, horizon int) Page {
	p := Page{
		Title:   "Intelligent Stock Portfolio Optimizer",
		Horizon: horizon,
		Cards:   make([]Card, 0, len(preds)),
		Runs:    make([]RunRow, 0, len(runs)),
	}
	var asOf time.Time
	for _, pr := range preds {
		p.Cards = append(p.Cards, Card{
			Ticker:     pr.Ticker,
			Up:         pr.Direction == domain.DirectionUp,
			Direction:  pr.Direction.String(),
			Confidence: FormatConfidence(pr.Confidence),
			Close:      FormatPrice(pr.Close),
			Date:       pr.Date.Format(domain.DateLayout),
		})
		if pr.Date.After(asOf) {
			asOf = pr.Date
		}
	}
	if !asOf.IsZero() {
		p.AsOf = asOf.Format(domain.DateLayout)
	}
	for i := range runs {
		r := &runs[i]
		p.Runs = append(p.Runs, RunRow{
			ID:        r.ID,
			Title:     reporting.Title(r.Strategy),
			Created:   r.CreatedAt.Format("2006-01-02 15:04"),
			Strategy:  FormatReturn(r.TotalReturnPct),
			Benchmark: FormatReturn(r.BenchmarkReturnPct),
			Sharpe:    reporting.FormatSharpe(r.Sharpe),
			Drawdown:  FormatReturn(-r.MaxDrawdownPct),
			Trades:    FormatInt(r.Trades),
		})
	}
	return p
}

// Render writes the dashboard HTML for p.
func Render(w io.Writer, p Page) error {
	return pageTmpl.Execute(w, p)
}

var pageTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 2rem; color: #222; }
.cards { display: flex; flex-wrap: wrap; gap: 1rem; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 1rem; min-width: 10rem; }
.up { color: #1a7f37; }
.down { color: #cf222e; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { border-bottom: 1px solid #eee; padding: 0.3rem 0.8rem; text-align: right; }
td:first-child, th:first-child { text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Predicted {{.Horizon}}-day price movement for the tracked portfolio{{if .AsOf}}, as of {{.AsOf}}{{end}}.</p>
<h2>Latest Predictions</h2>
{{if .Cards}}<div class="cards">
{{range .Cards}}<div class="card">
<strong>{{.Ticker}}</strong>
<div class="{{if .Up}}up{{else}}down{{end}}">{{.Direction}}</div>
<div>Confidence: {{.Confidence}}</div>
<div>Last Close: {{.Close}}</div>
<div>Date: {{.Date}}</div>
</div>
{{end}}</div>
{{else}}<p>No predictions available.</p>
{{end}}
<h2>Backtests</h2>
{{if .Runs}}<table>
<tr><th>Run</th><th>Created</th><th>Strategy</th><th>Buy &amp; Hold</th><th>Sharpe</th><th>Max Drawdown</th><th>Trades</th></tr>
{{range .Runs}}<tr><td><a href="/api/backtests/{{.ID}}">{{.Title}}</a></td><td>{{.Created}}</td><td>{{.Strategy}}</td><td>{{.Benchmark}}</td><td>{{.Sharpe}}</td><td>{{.Drawdown}}</td><td>{{.Trades}}</td></tr>
{{end}}</table>
{{else}}<p>No backtests recorded.</p>
{{end}}
</body>
</html>
`))
