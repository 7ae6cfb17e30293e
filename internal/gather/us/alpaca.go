// Package us gathers daily bars and news for US-listed tickers from Alpaca
// and public news feeds.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"marketlens/internal/domain"
	"marketlens/internal/gather"
	"marketlens/internal/store"
	"marketlens/internal/util"
)

var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// BarsClient is the subset of the Alpaca market-data client used for bars.
type BarsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// NewMarketDataClient returns an Alpaca market-data client. An empty dataURL
// uses the SDK default.
func NewMarketDataClient(apiKey, apiSecret, dataURL string) *marketdata.Client {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return marketdata.NewClient(opts)
}

// DailyBarOptions configures a DailyBarGatherer.
type DailyBarOptions struct {
	Tickers    []string
	StartDate  string // YYYY-MM-DD
	BatchSize  int    // symbols per API call
	MaxWorkers int
	Feed       marketdata.Feed
	Attempts   int
}

// DailyBarGatherer gathers daily OHLCV bars for a fixed ticker list via the
// Alpaca market-data API and writes them to the bar store.
type DailyBarGatherer struct {
	client   BarsClient
	calendar CalendarClient
	store    store.BarStore
	dataDir  string
	limiter  *util.RateLimiter
	opts     DailyBarOptions
	now      func() time.Time
	log      *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer. dataDir holds the run
// ledger; limiter may be nil.
func NewDailyBarGatherer(client BarsClient, cal CalendarClient, s store.BarStore, dataDir string, limiter *util.RateLimiter, opts DailyBarOptions) *DailyBarGatherer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Feed == "" {
		opts.Feed = marketdata.IEX
	}
	if limiter == nil {
		limiter = util.NewRateLimiter(0)
	}
	return &DailyBarGatherer{
		client:   client,
		calendar: cal,
		store:    s,
		dataDir:  dataDir,
		limiter:  limiter,
		opts:     opts,
		now:      time.Now,
		log:      slog.Default().With("gatherer", "us-daily-bars"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily-bars" }

// Run fetches daily bars from StartDate through the latest finished trading
// day for every configured ticker. It is idempotent within a trading day:
// a completed day is skipped, and tickers found empty are not re-queried.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	start, err := time.Parse(domain.DateLayout, g.opts.StartDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.opts.StartDate, err)
	}

	endDate, err := LatestFinishedTradingDay(g.calendar, g.now())
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}
	endDateStr := endDate.Format(domain.DateLayout)
	// Bars are stamped at the session start; end is inclusive of that day.
	rng := gather.DateRange{Start: start, End: endDate.Add(24*time.Hour - time.Nanosecond)}
	if err := rng.Validate(); err != nil {
		return err
	}

	ledger, err := openLedger(filepath.Join(g.dataDir, "us", "daily"), "bars", endDateStr)
	if err != nil {
		return fmt.Errorf("opening run ledger: %w", err)
	}
	if ledger.Completed() {
		g.log.Info("already completed", "endDate", endDateStr)
		return nil
	}

	var remaining []string
	for _, sym := range g.opts.Tickers {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || ledger.Empty(sym) {
			continue
		}
		remaining = append(remaining, sym)
	}
	batches := gather.Batches(remaining, g.opts.BatchSize)

	g.log.Info("starting daily bars",
		"endDate", endDateStr,
		"tickers", len(g.opts.Tickers),
		"remaining", len(remaining),
		"batches", len(batches),
	)

	batchCh := make(chan int, len(batches))
	for i := range batches {
		batchCh <- i
	}
	close(batchCh)

	var (
		wg       sync.WaitGroup
		written  atomic.Int64
		empty    atomic.Int64
		failed   atomic.Int64
		runStart = time.Now()
	)

	workers := min(g.opts.MaxWorkers, len(batches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range batchCh {
				if ctx.Err() != nil {
					return
				}
				batch := batches[batchIdx]
				label := fmt.Sprintf("%d/%d", batchIdx+1, len(batches))

				var bars []domain.Bar
				err := util.Retry(ctx, g.opts.Attempts, time.Second, func() error {
					if err := g.limiter.Wait(ctx); err != nil {
						return util.Permanent(err)
					}
					var err error
					bars, err = g.fetchMultiBars(batch, rng)
					return err
				})
				if err != nil {
					g.log.Error("batch fetch failed", "batch", label, "err", err)
					failed.Add(1)
					continue
				}

				hit := make(map[string]struct{})
				for _, b := range bars {
					hit[b.Symbol] = struct{}{}
				}
				var emptySymbols []string
				for _, sym := range batch {
					if _, ok := hit[sym]; !ok {
						emptySymbols = append(emptySymbols, sym)
					}
				}

				if len(bars) > 0 {
					if err := g.store.WriteBars(ctx, bars); err != nil {
						g.log.Error("writing bars failed", "batch", label, "err", err)
						failed.Add(1)
						continue
					}
				}
				if len(emptySymbols) > 0 {
					g.log.Warn("no bars returned", "symbols", emptySymbols)
					if err := ledger.MarkEmpty(emptySymbols); err != nil {
						g.log.Error("marking empty failed", "err", err)
					}
				}

				written.Add(int64(len(bars)))
				empty.Add(int64(len(emptySymbols)))
				g.log.Info("batch done",
					"batch", label,
					"bars", len(bars),
					"empty", len(emptySymbols),
					"elapsed", time.Since(runStart).Round(time.Second),
				)
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d batches failed", n, len(batches))
	}
	if err := ledger.MarkCompleted(); err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}

	g.log.Info("complete",
		"bars", written.Load(),
		"empty", empty.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single API call.
func (g *DailyBarGatherer) fetchMultiBars(symbols []string, rng gather.DateRange) ([]domain.Bar, error) {
	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Start:      rng.Start,
		End:        rng.End,
		Adjustment: marketdata.All,
		Feed:       g.opts.Feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}
