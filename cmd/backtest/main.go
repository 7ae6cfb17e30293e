// Runs the backtest simulation over rows dated on or after the cutoff,
// prints the metrics report, writes the curve CSV and chart, and records
// the run in SQLite.
//
// Usage:
//
//	go build -o bin/backtest ./cmd/backtest/
//	bin/backtest [-strategy binary|confidence|cost|all] [-cost-bps 10] [-no-store]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"marketlens/internal/backtest"
	"marketlens/internal/config"
	"marketlens/internal/dataset"
	"marketlens/internal/model"
	"marketlens/internal/reporting"
	"marketlens/internal/store"
	"marketlens/internal/util"
)

func main() {
	strategy := flag.String("strategy", "", "strategy to run: binary, confidence, cost or all (default: backtest.strategy)")
	costBps := flag.Float64("cost-bps", -1, "per-trade cost in basis points (default: backtest.cost_bps)")
	noStore := flag.Bool("no-store", false, "do not record runs in SQLite")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if *strategy != "" {
		cfg.Backtest.Strategy = *strategy
	}
	if *costBps >= 0 {
		cfg.Backtest.CostBps = *costBps
	}
	cutoff, err := cfg.Backtest.Cutoff()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ds, err := dataset.Load(cfg.Dataset.LabeledPath)
	if err != nil {
		log.Fatalf("loading dataset: %v", err)
	}
	m, err := model.Load(cfg.Model.Path)
	if err != nil {
		log.Fatalf("loading model: %v", err)
	}
	signals, err := backtest.Prepare(ds, m, cutoff)
	if err != nil {
		log.Fatalf("preparing signals: %v", err)
	}

	var runs store.RunStore
	if !*noStore {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening %s: %v", cfg.Storage.SQLitePath, err)
		}
		defer db.Close()
		runs = db
	}

	names := []string{cfg.Backtest.Strategy}
	if cfg.Backtest.Strategy == "all" {
		names = backtest.DefaultRegistry(cfg.Backtest.CostRate()).List()
	}

	ctx := context.Background()
	for _, name := range names {
		res, err := backtest.Run(signals, backtest.Options{
			Strategy:           name,
			CostRate:           cfg.Backtest.CostRate(),
			TradingDaysPerYear: cfg.Backtest.TradingDaysPerYear,
			Log:                logger,
		})
		if err != nil {
			log.Fatalf("running %s backtest: %v", name, err)
		}
		if !res.SharpeDefined() {
			slog.Warn("sharpe ratio undefined", "strategy", name, "error", res.SharpeErr)
		}

		run := res.Record(cutoff, cfg.Backtest.CostBps, time.Now())
		fmt.Print(reporting.RenderText(&run))

		files, err := reporting.Save(cfg.Backtest.ReportDir, &run)
		if err != nil {
			log.Fatalf("writing %s report: %v", name, err)
		}
		fmt.Printf("Chart saved to %s\n\n", files.Chart)

		if runs != nil {
			if err := runs.SaveRun(ctx, &run); err != nil {
				log.Fatalf("recording %s run: %v", name, err)
			}
			slog.Info("run recorded", "id", run.ID, "strategy", name)
		}
	}
}
