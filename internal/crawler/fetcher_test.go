package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
)

func TestHTTPFetcherFetchesBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(common.CrawlerConfig{
		UserAgent:      "webpscan-test",
		RequestTimeout: 2 * time.Second,
	}, arbor.NewLogger())
	defer fetcher.Close()

	target, _ := url.Parse(srv.URL)
	page, err := fetcher.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.StatusCode)
	}
	if page.ContentType != "text/html" {
		t.Fatalf("expected text/html content type, got %s", page.ContentType)
	}
	if string(page.Body) != "<html><body>hello</body></html>" {
		t.Fatalf("unexpected body: %s", page.Body)
	}
}

func TestHTTPFetcherFollowsRedirectAndReportsFinalURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.Write([]byte("landed"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(common.CrawlerConfig{
		UserAgent:      "webpscan-test",
		RequestTimeout: 2 * time.Second,
	}, arbor.NewLogger())
	defer fetcher.Close()

	target, _ := url.Parse(srv.URL + "/start")
	page, err := fetcher.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.FinalURL.Path != "/end" {
		t.Fatalf("expected final URL path /end, got %s", page.FinalURL.Path)
	}
}
