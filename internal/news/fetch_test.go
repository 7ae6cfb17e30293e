package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

const googleFeed = `<?xml version="1.0"?>
<rss><channel>
<item><title>Apple beats estimates - Reuters</title><pubDate>Mon, 03 Mar 2025 14:00:00 +0000</pubDate>
<description>&lt;a href="x"&gt;Apple&lt;/a&gt; beats &amp;amp; raises</description></item>
<item><title>Old news - Bloomberg</title><pubDate>Mon, 03 Feb 2025 14:00:00 +0000</pubDate><description></description></item>
<item><title>Bad date</title><pubDate>yesterday</pubDate></item>
</channel></rss>`

const globeFeed = `<?xml version="1.0"?>
<rss><channel>
<item><title>Apple announces dividend</title><pubDate>Tue, 04 Mar 2025 09:30 GMT</pubDate>
<description>&lt;p&gt;Board approves&lt;/p&gt;&lt;p&gt;dividend&lt;/p&gt;</description></item>
</channel></rss>`

type fakeAlpaca struct {
	news []marketdata.News
	err  error
	req  marketdata.GetNewsRequest
}

func (f *fakeAlpaca) GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
	f.req = req
	return f.news, f.err
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc, alpaca AlpacaNewsClient) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := NewFetcher(alpaca, nil)
	f.GoogleURL = srv.URL + "/google"
	f.GlobeURL = srv.URL + "/globe"
	f.Attempts = 1
	return f
}

func feedHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/google"):
		if r.URL.Query().Get("q") != "AAPL stock" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, googleFeed)
	case strings.HasPrefix(r.URL.Path, "/globe/AAPL/"):
		fmt.Fprint(w, globeFeed)
	default:
		http.NotFound(w, r)
	}
}

func TestFetchAll(t *testing.T) {
	alpaca := &fakeAlpaca{news: []marketdata.News{{
		Headline:  "Apple upgraded",
		CreatedAt: time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
		Content:   "<p>Analysts like AAPL.</p><p>Unrelated paragraph.</p>",
	}}}
	f := newTestFetcher(t, feedHandler, alpaca)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	got, err := f.FetchAll(context.Background(), "AAPL", start, end)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d articles, want 3: %+v", len(got), got)
	}

	if got[0].Source != SourceAlpaca || got[0].Content != "Analysts like AAPL." {
		t.Errorf("alpaca article = %+v", got[0])
	}
	if got[1].Source != SourceGoogle || got[1].Headline != "Apple beats estimates" {
		t.Errorf("google article = %+v", got[1])
	}
	if got[1].Content != "Apple beats & raises" {
		t.Errorf("google content = %q", got[1].Content)
	}
	if got[2].Source != SourceGlobeNewswire || got[2].Content != "Board approves dividend" {
		t.Errorf("globenewswire article = %+v", got[2])
	}
	for _, a := range got {
		if a.Symbol != "AAPL" {
			t.Errorf("symbol = %q", a.Symbol)
		}
	}
	if alpaca.req.Symbols[0] != "AAPL" || !alpaca.req.Start.Equal(start) {
		t.Errorf("alpaca request = %+v", alpaca.req)
	}
}

func TestFetchAllPartialFailure(t *testing.T) {
	alpaca := &fakeAlpaca{err: fmt.Errorf("unauthorized")}
	f := newTestFetcher(t, feedHandler, alpaca)

	got, err := f.FetchAll(context.Background(), "AAPL",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d articles, want 2", len(got))
	}
}

func TestFetchAllEverySourceFails(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}, nil)

	_, err := f.FetchAll(context.Background(), "AAPL", time.Time{}, time.Now())
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello &amp; welcome</p><p>next</p>", "Hello & welcome next"},
		{"line one<br>line two", "line one line two"},
		{"  plain   text ", "plain text"},
		{`<a href="https://example.com">link</a> text`, "link text"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSymbolContent(t *testing.T) {
	got := ExtractSymbolContent("<p>Shares of aapl rose.</p><p>Other news.</p>", "AAPL")
	if got != "Shares of aapl rose." {
		t.Errorf("matched = %q", got)
	}
	got = ExtractSymbolContent("<p>First.</p><p>Second.</p>", "MSFT")
	if got != "First. Second." {
		t.Errorf("fallback = %q", got)
	}
}
