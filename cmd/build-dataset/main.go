// Builds the labeled feature table from the bar and news archives: technical
// indicators per ticker, daily headline sentiment, and the forward-return
// target. Writes dataset.labeled_path.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"marketlens/internal/config"
	"marketlens/internal/domain"
	"marketlens/internal/features"
	"marketlens/internal/sentiment"
	"marketlens/internal/store"
	"marketlens/internal/util"
)

func main() {
	out := flag.String("out", "", "output CSV path (default: dataset.labeled_path)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	outPath := cfg.Dataset.LabeledPath
	if *out != "" {
		outPath = *out
	}
	start, err := time.Parse(domain.DateLayout, cfg.Gather.StartDate)
	if err != nil {
		log.Fatalf("parsing gather.start_date: %v", err)
	}
	end := time.Now().UTC()

	ctx := context.Background()
	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	scorer := sentiment.NewScorer()

	tickers := cfg.Gather.Tickers
	if len(tickers) == 0 {
		if tickers, err = pstore.ListSymbols(ctx, string(domain.MarketUS)); err != nil {
			log.Fatalf("listing archived symbols: %v", err)
		}
		slog.Info("no tickers configured, using the bar archive", "symbols", len(tickers))
	}

	bars := make(map[string][]domain.Bar)
	var articles []domain.Article
	for _, t := range tickers {
		t = strings.ToUpper(t)
		b, err := pstore.ReadBars(ctx, t, string(domain.MarketUS), start, end)
		if err != nil {
			log.Fatalf("reading bars for %s: %v", t, err)
		}
		if len(b) == 0 {
			slog.Warn("no bars", "ticker", t)
			continue
		}
		bars[t] = b

		a, err := pstore.ReadArticles(ctx, t, start, end)
		if err != nil {
			log.Fatalf("reading news for %s: %v", t, err)
		}
		articles = append(articles, a...)
	}

	daily := sentiment.Daily(scorer, articles)
	slog.Info("sentiment scored", "articles", len(articles), "tickerDays", len(daily))

	rows, err := features.Build(bars, daily, cfg.Dataset.HorizonDays)
	if err != nil {
		log.Fatalf("building features: %v", err)
	}
	if err := features.SaveCSV(outPath, rows); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	slog.Info("dataset written", "path", outPath, "rows", len(rows), "tickers", len(bars),
		"horizonDays", cfg.Dataset.HorizonDays)
}
