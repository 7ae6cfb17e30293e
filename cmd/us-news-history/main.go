// Archives recent news for the configured tickers from Alpaca, Google News
// RSS and GlobeNewswire RSS into $DATA_DIR/us/news/<SYMBOL>.parquet.
//
// Usage:
//
//	go build -o bin/us-news-history ./cmd/us-news-history/
//	bin/us-news-history [-days 29]
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"marketlens/internal/config"
	"marketlens/internal/gather/us"
	"marketlens/internal/news"
	"marketlens/internal/store"
	"marketlens/internal/util"
)

func main() {
	days := flag.Int("days", 0, "calendar days of news to fetch (default: gather.news_lookback_days)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	if cfg.Alpaca.APIKey == "" {
		log.Fatal("APCA_API_KEY_ID not set")
	}
	lookback := cfg.Gather.NewsLookbackDays
	if *days > 0 {
		lookback = *days
	}

	mdc := us.NewMarketDataClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	cal := us.NewCalendarClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	fetcher := news.NewFetcher(mdc, util.NewRateLimiter(cfg.Gather.RateLimitPerMin))
	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := us.NewNewsGatherer(fetcher, cal, pstore, cfg.Storage.DataDir,
		cfg.Gather.Tickers, lookback, cfg.Gather.MaxWorkers)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("news history backfill", "tickers", len(cfg.Gather.Tickers), "lookbackDays", lookback)
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("%s: %v", gatherer.Name(), err)
	}
}
