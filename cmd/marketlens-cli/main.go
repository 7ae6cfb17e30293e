package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"marketlens/pkg/marketlens"
)

const version = "0.1.0"

func main() {
	server := flag.String("server", envOr("MARKETLENS_URL", "http://localhost:8080"), "marketlens-server base URL")
	limit := flag.Int("n", 20, "number of rows to list")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: marketlens-cli [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version          Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  predict          Request fresh predictions\n")
		fmt.Fprintf(os.Stderr, "  history [TICKER] Show recorded prediction snapshots\n")
		fmt.Fprintf(os.Stderr, "  backtests        List stored backtest runs\n")
		fmt.Fprintf(os.Stderr, "  backtest ID      Show one backtest run\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c := marketlens.NewClient(*server)

	var err error
	switch flag.Arg(0) {
	case "version":
		fmt.Printf("marketlens-cli %s\n", version)

	case "predict":
		var preds []marketlens.Prediction
		if preds, err = c.Predict(ctx); err == nil {
			printPredictions(preds)
		}

	case "history":
		var preds []marketlens.Prediction
		if preds, err = c.PredictionHistory(ctx, flag.Arg(1), *limit); err == nil {
			printPredictions(preds)
		}

	case "backtests":
		var runs []marketlens.Backtest
		if runs, err = c.Backtests(ctx, *limit); err == nil {
			printRuns(runs)
		}

	case "backtest":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "backtest: run ID required")
			os.Exit(1)
		}
		var run *marketlens.Backtest
		if run, err = c.Backtest(ctx, flag.Arg(1)); err == nil {
			printRuns([]marketlens.Backtest{*run})
			fmt.Printf("\n%d curve points", len(run.Curve))
			if n := len(run.Curve); n > 0 {
				last := run.Curve[n-1]
				fmt.Printf(", last %s: strategy %.2f, buy & hold %.2f", last.Date, last.Strategy, last.Benchmark)
			}
			fmt.Println()
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	tickerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// signed styles a percentage green when positive and red when negative.
func signed(width int, pct float64) string {
	s := fmt.Sprintf("%*.2f%%", width-1, pct)
	switch {
	case pct > 0:
		return upStyle.Render(s)
	case pct < 0:
		return downStyle.Render(s)
	}
	return s
}

func printPredictions(preds []marketlens.Prediction) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-8s %-10s %10s %-5s %11s  %s",
		"TICKER", "DATE", "CLOSE", "CALL", "CONFIDENCE", "RECORDED")))
	for _, p := range preds {
		call := downStyle.Render(fmt.Sprintf("%-5s", p.Direction))
		if p.Prediction == 1 {
			call = upStyle.Render(fmt.Sprintf("%-5s", p.Direction))
		}
		fmt.Printf("%s %-10s %10.2f %s %10.2f%%  %s\n",
			tickerStyle.Render(fmt.Sprintf("%-8s", p.Ticker)), p.Date, p.Close, call,
			p.Confidence*100, dimStyle.Render(p.CreatedAt))
	}
}

func printRuns(runs []marketlens.Backtest) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s %-10s %-20s %10s %10s %9s %9s %7s",
		"ID", "STRATEGY", "CREATED", "RETURN", "BUY&HOLD", "SHARPE", "MAX DD", "TRADES")))
	for _, r := range runs {
		sharpe := "undefined"
		if r.Sharpe != nil {
			sharpe = fmt.Sprintf("%.2f", *r.Sharpe)
		}
		fmt.Printf("%s %-10s %-20s %s %s %9s %s %7d\n",
			dimStyle.Render(fmt.Sprintf("%-36s", r.ID)), r.Strategy, r.CreatedAt,
			signed(10, r.TotalReturnPct), signed(10, r.BenchmarkReturnPct), sharpe,
			signed(9, -r.MaxDrawdownPct), r.Trades)
	}
}
