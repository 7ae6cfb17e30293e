package reporting

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"marketlens/internal/domain"
)

func sampleRun(sharpe *float64) *domain.BacktestRun {
	d := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	return &domain.BacktestRun{
		ID:                 "run-1",
		Strategy:           "binary",
		Days:               3,
		TotalReturnPct:     3.456,
		BenchmarkReturnPct: -1.2,
		Sharpe:             sharpe,
		MaxDrawdownPct:     2.5,
		Trades:             4,
		Curve: []domain.EquityPoint{
			{Date: d, Strategy: 100, Benchmark: 100},
			{Date: d.AddDate(0, 0, 1), Strategy: 105, Benchmark: 104},
			{Date: d.AddDate(0, 0, 2), Strategy: 103.456, Benchmark: 98.8},
		},
	}
}

func TestRenderText(t *testing.T) {
	sharpe := 1.234
	out := RenderText(sampleRun(&sharpe))

	for _, want := range []string{
		"Backtest Performance: AI Strategy vs. Buy & Hold",
		"Period: 2025-01-02 to 2025-01-04 (3 days)",
		"Total Strategy Return: 3.46%",
		"Total Buy & Hold Return: -1.20%",
		"Strategy Sharpe Ratio: 1.23",
		"Trades: 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Allocation collapsed") {
		t.Errorf("unexpected collapse line:\n%s", out)
	}
}

func TestRenderTextUndefinedSharpe(t *testing.T) {
	out := RenderText(sampleRun(nil))
	if !strings.Contains(out, "Strategy Sharpe Ratio: undefined") {
		t.Errorf("expected undefined Sharpe:\n%s", out)
	}
}

func TestRenderCSV(t *testing.T) {
	out := RenderCSV(sampleRun(nil).Curve)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[0] != "date,strategy,benchmark" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "2025-01-03,105.000000,104.000000" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestTitle(t *testing.T) {
	if got := Title("confidence"); !strings.Contains(got, "Confidence-Weighted") {
		t.Errorf("Title(confidence) = %q", got)
	}
	if got := Title("momentum"); got != "Backtest Performance: momentum vs. Buy & Hold" {
		t.Errorf("Title(momentum) = %q", got)
	}
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, sampleRun(nil)); err != nil {
		t.Fatalf("WriteChart: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}

	if err := WriteChart(&buf, &domain.BacktestRun{ID: "empty"}); err == nil {
		t.Error("expected error for empty curve")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	files, err := Save(dir, sampleRun(nil))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, path := range []string{files.Text, files.CSV, files.Chart} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}
