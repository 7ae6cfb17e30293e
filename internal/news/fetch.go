// Package news fetches ticker news from Alpaca, Google News RSS and
// GlobeNewswire RSS.
package news

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"marketlens/internal/domain"
	"marketlens/internal/util"
)

// Source names recorded on fetched articles.
const (
	SourceAlpaca        = "alpaca"
	SourceGoogle        = "google"
	SourceGlobeNewswire = "globenewswire"
)

const (
	defaultGoogleURL = "https://news.google.com/rss/search"
	defaultGlobeURL  = "https://www.globenewswire.com/RssFeed/keyword"
)

// AlpacaNewsClient is the subset of the Alpaca market-data client used for
// news.
type AlpacaNewsClient interface {
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// Fetcher pulls news for a symbol from every configured source.
type Fetcher struct {
	HTTP      *http.Client
	Alpaca    AlpacaNewsClient // nil disables the Alpaca source
	GoogleURL string
	GlobeURL  string
	Limiter   *util.RateLimiter
	Attempts  int
	log       *slog.Logger
}

// NewFetcher returns a Fetcher with default endpoints. mdc may be nil.
func NewFetcher(mdc AlpacaNewsClient, limiter *util.RateLimiter) *Fetcher {
	return &Fetcher{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		Alpaca:    mdc,
		GoogleURL: defaultGoogleURL,
		GlobeURL:  defaultGlobeURL,
		Limiter:   limiter,
		Attempts:  3,
		log:       slog.Default().With("component", "news"),
	}
}

// FetchAll fetches symbol's news in [start, end] from every source. A failing
// source is logged and skipped; an error is returned only when all sources
// fail. Articles are ordered by time.
func (f *Fetcher) FetchAll(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error) {
	type source struct {
		name  string
		fetch func(context.Context, string, time.Time, time.Time) ([]domain.Article, error)
	}
	sources := []source{
		{SourceGoogle, f.FetchGoogleNews},
		{SourceGlobeNewswire, f.FetchGlobeNewswire},
	}
	if f.Alpaca != nil {
		sources = append([]source{{SourceAlpaca, f.FetchAlpacaNews}}, sources...)
	}

	var all []domain.Article
	var errs []error
	for _, src := range sources {
		var got []domain.Article
		err := util.Retry(ctx, f.Attempts, time.Second, func() error {
			if f.Limiter != nil {
				if err := f.Limiter.Wait(ctx); err != nil {
					return util.Permanent(err)
				}
			}
			var err error
			got, err = src.fetch(ctx, symbol, start, end)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.log.Warn("news source failed", "source", src.name, "symbol", symbol, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.name, err))
			continue
		}
		all = append(all, got...)
	}
	if len(errs) == len(sources) {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	return all, nil
}

// --- Alpaca ---

// FetchAlpacaNews fetches news from the Alpaca marketdata API.
func (f *Fetcher) FetchAlpacaNews(_ context.Context, symbol string, start, end time.Time) ([]domain.Article, error) {
	alpacaNews, err := f.Alpaca.GetNews(marketdata.GetNewsRequest{
		Symbols:            []string{symbol},
		Start:              start,
		End:                end,
		TotalLimit:         50,
		IncludeContent:     true,
		ExcludeContentless: true,
		Sort:               marketdata.SortAsc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(alpacaNews))
	for _, a := range alpacaNews {
		body := a.Summary
		if a.Content != "" {
			body = ExtractSymbolContent(a.Content, symbol)
		}
		articles = append(articles, domain.Article{
			Symbol:   symbol,
			Time:     a.CreatedAt.UTC(),
			Source:   SourceAlpaca,
			Headline: a.Headline,
			Content:  body,
		})
	}
	return articles, nil
}

// --- RSS ---

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 02 Jan 2006 15:04 MST",
}

func parsePubDate(s string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (f *Fetcher) getRSS(ctx context.Context, u string) (*rssResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, util.Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, util.Permanent(err)
		}
		return nil, err
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, util.Permanent(fmt.Errorf("decoding RSS: %w", err))
	}
	return &rss, nil
}

// FetchGoogleNews fetches news from Google News RSS.
func (f *Fetcher) FetchGoogleNews(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error) {
	q := url.Values{}
	q.Set("q", symbol+" stock")
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	rss, err := f.getRSS(ctx, f.GoogleURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var articles []domain.Article
	for _, item := range rss.Channel.Items {
		t, ok := parsePubDate(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		// Google appends " - Publisher" to titles.
		headline := item.Title
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}
		articles = append(articles, domain.Article{
			Symbol:   symbol,
			Time:     t,
			Source:   SourceGoogle,
			Headline: headline,
			Content:  StripHTML(item.Desc),
		})
	}
	return articles, nil
}

// FetchGlobeNewswire fetches press releases from GlobeNewswire RSS.
func (f *Fetcher) FetchGlobeNewswire(ctx context.Context, symbol string, start, end time.Time) ([]domain.Article, error) {
	u := f.GlobeURL + "/" + url.PathEscape(symbol) + "/feedTitle/GlobeNewswire.xml"
	rss, err := f.getRSS(ctx, u)
	if err != nil {
		return nil, err
	}

	var articles []domain.Article
	for _, item := range rss.Channel.Items {
		t, ok := parsePubDate(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		articles = append(articles, domain.Article{
			Symbol:   symbol,
			Time:     t,
			Source:   SourceGlobeNewswire,
			Headline: item.Title,
			Content:  StripHTML(item.Desc),
		})
	}
	return articles, nil
}

// --- HTML helpers ---

const blockSelector = "p, br, div, li, h1, h2, h3, h4, h5, h6"

func parseHTML(s string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	// Keep words in adjacent blocks apart once tags are gone.
	doc.Find(blockSelector).AfterHtml(" ")
	return doc, nil
}

// StripHTML removes HTML tags, decodes entities and normalizes whitespace.
func StripHTML(s string) string {
	doc, err := parseHTML(s)
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// ExtractSymbolContent keeps the paragraphs of rawHTML that mention symbol.
// It falls back to the full stripped text when none do.
func ExtractSymbolContent(rawHTML, symbol string) string {
	doc, err := parseHTML(rawHTML)
	if err != nil {
		return StripHTML(rawHTML)
	}
	upper := strings.ToUpper(symbol)
	var matched []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		plain := strings.Join(strings.Fields(s.Text()), " ")
		if plain != "" && strings.Contains(strings.ToUpper(plain), upper) {
			matched = append(matched, plain)
		}
	})
	if len(matched) > 0 {
		return strings.Join(matched, " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
