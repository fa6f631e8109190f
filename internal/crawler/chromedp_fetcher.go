package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// ChromedpFetcher renders a page in headless Chrome before capturing its
// DOM, for sites whose images only appear after JavaScript runs.
type ChromedpFetcher struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	waitAfterLoad   time.Duration
	logger          arbor.ILogger
}

// NewChromedpFetcher starts a single headless browser instance shared
// across Fetch calls; callers serialize access via the crawler's own
// concurrency limit, mirroring one browser context per crawl worker.
func NewChromedpFetcher(config common.CrawlerConfig, logger arbor.ILogger) interfaces.PageFetcher {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	return &ChromedpFetcher{
		allocatorCtx:    allocatorCtx,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		waitAfterLoad:   1500 * time.Millisecond,
		logger:          logger,
	}
}

func (f *ChromedpFetcher) Fetch(ctx context.Context, target *url.URL) (*interfaces.FetchedPage, error) {
	pageCtx, cancel := context.WithTimeout(f.browserCtx, 30*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(target.String()),
		chromedp.Sleep(f.waitAfterLoad),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp navigation failed for %s: %w", target, err)
	}

	f.logger.Debug().Str("url", target.String()).Int("bytes", len(html)).Msg("rendered page via chromedp")

	return &interfaces.FetchedPage{
		FinalURL:    target,
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(html),
		FetchedAt:   time.Now(),
	}, nil
}

func (f *ChromedpFetcher) Close() error {
	f.browserCancel()
	f.allocatorCancel()
	return nil
}
