// Fetches daily OHLCV bars for the configured tickers from Alpaca and merges
// them into the Parquet bar archive under $DATA_DIR/us/daily.
//
// Usage:
//
//	go build -o bin/us-daily-bars ./cmd/us-daily-bars/
//	bin/us-daily-bars [-start 2020-01-01]
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/joho/godotenv"

	"marketlens/internal/config"
	"marketlens/internal/gather/us"
	"marketlens/internal/store"
	"marketlens/internal/util"
)

func main() {
	start := flag.String("start", "", "first date to fetch (default: gather.start_date)")
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
	if len(cfg.Gather.Tickers) == 0 {
		log.Fatal("no tickers configured (gather.tickers or TICKERS)")
	}
	startDate := cfg.Gather.StartDate
	if *start != "" {
		startDate = *start
	}

	mdc := us.NewMarketDataClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	cal := us.NewCalendarClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := us.NewDailyBarGatherer(mdc, cal, pstore, cfg.Storage.DataDir,
		util.NewRateLimiter(cfg.Gather.RateLimitPerMin),
		us.DailyBarOptions{
			Tickers:    cfg.Gather.Tickers,
			StartDate:  startDate,
			BatchSize:  cfg.Gather.BatchSize,
			MaxWorkers: cfg.Gather.MaxWorkers,
			Feed:       marketdata.Feed(cfg.Gather.Feed),
		})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting", "gatherer", gatherer.Name(), "tickers", len(cfg.Gather.Tickers), "start", startDate)
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("%s: %v", gatherer.Name(), err)
	}
}
