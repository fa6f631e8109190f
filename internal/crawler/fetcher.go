package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

const maxBodyBytes = 10 << 20 // 10MB, mirrors maxBodySize guards used elsewhere in the pipeline

// HTTPFetcher is the default PageFetcher: a plain net/http client with a
// per-request timeout. It does not execute JavaScript; ChromedpFetcher
// covers that case.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    arbor.ILogger
}

// NewHTTPFetcher builds an HTTPFetcher from crawler config.
func NewHTTPFetcher(config common.CrawlerConfig, logger arbor.ILogger) interfaces.PageFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: config.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent: config.UserAgent,
		logger:    logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target *url.URL) (*interfaces.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", target, err)
	}

	finalURL := resp.Request.URL
	if finalURL == nil {
		finalURL = target
	}

	f.logger.Debug().
		Str("url", target.String()).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("fetched page")

	return &interfaces.FetchedPage{
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
