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

	"marketlens/internal/domain"
	"marketlens/internal/gather"
	"marketlens/internal/store"
)

var _ gather.Gatherer = (*NewsGatherer)(nil)

// ArticleFetcher fetches a symbol's news in a time window.
type ArticleFetcher interface {
	FetchAll(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error)
}

// NewsGatherer archives recent news for a fixed ticker list.
type NewsGatherer struct {
	fetcher      ArticleFetcher
	calendar     CalendarClient
	store        store.NewsStore
	dataDir      string
	tickers      []string
	lookbackDays int
	maxWorkers   int
	now          func() time.Time
	log          *slog.Logger
}

// NewNewsGatherer creates a NewsGatherer covering lookbackDays calendar days
// up to the latest finished trading day.
func NewNewsGatherer(f ArticleFetcher, cal CalendarClient, s store.NewsStore, dataDir string, tickers []string, lookbackDays, maxWorkers int) *NewsGatherer {
	return &NewsGatherer{
		fetcher:      f,
		calendar:     cal,
		store:        s,
		dataDir:      dataDir,
		tickers:      tickers,
		lookbackDays: lookbackDays,
		maxWorkers:   max(maxWorkers, 1),
		now:          time.Now,
		log:          slog.Default().With("gatherer", "us-news"),
	}
}

// Name returns the gatherer identifier.
func (g *NewsGatherer) Name() string { return "us-news" }

// Run fetches each ticker's news and merges it into the news archive.
func (g *NewsGatherer) Run(ctx context.Context) error {
	endDate, err := LatestFinishedTradingDay(g.calendar, g.now())
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}
	endDateStr := endDate.Format(domain.DateLayout)
	rng := gather.Lookback(endDate.Add(24*time.Hour-time.Nanosecond), g.lookbackDays)

	ledger, err := openLedger(filepath.Join(g.dataDir, "news"), "news", endDateStr)
	if err != nil {
		return fmt.Errorf("opening run ledger: %w", err)
	}
	if ledger.Completed() {
		g.log.Info("already completed", "endDate", endDateStr)
		return nil
	}

	symCh := make(chan string, len(g.tickers))
	for _, t := range g.tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			symCh <- t
		}
	}
	close(symCh)

	g.log.Info("starting news",
		"endDate", endDateStr,
		"start", rng.Start.Format(domain.DateLayout),
		"tickers", len(g.tickers),
	)

	var (
		wg       sync.WaitGroup
		articles atomic.Int64
		failed   atomic.Int64
	)
	for w := 0; w < min(g.maxWorkers, len(g.tickers)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symCh {
				if ctx.Err() != nil {
					return
				}
				got, err := g.fetcher.FetchAll(ctx, sym, rng.Start, rng.End)
				if err != nil {
					g.log.Error("fetching news failed", "symbol", sym, "err", err)
					failed.Add(1)
					continue
				}
				if err := g.store.WriteArticles(ctx, got); err != nil {
					g.log.Error("writing news failed", "symbol", sym, "err", err)
					failed.Add(1)
					continue
				}
				articles.Add(int64(len(got)))
				g.log.Info("symbol done", "symbol", sym, "articles", len(got))
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("news gathering failed for %d tickers", n)
	}
	if err := ledger.MarkCompleted(); err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}
	g.log.Info("complete", "articles", articles.Load())
	return nil
}
