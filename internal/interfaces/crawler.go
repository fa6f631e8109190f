package interfaces

import (
	"context"
	"net/url"
	"time"
)

// FetchedPage is the normalized result of retrieving one page, whichever
// PageFetcher implementation produced it.
type FetchedPage struct {
	FinalURL    *url.URL
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// DiscoveredLink is a link or image reference pulled out of a fetched page.
type DiscoveredLink struct {
	URL      string
	IsImage  bool
	FromAttr string // href, src, srcset, style:background-image, etc.
}

// PageFetcher is the opaque page-retrieval capability the crawler depends
// on. The default implementation is a plain net/http client; an optional
// chromedp-backed implementation renders JavaScript first.
type PageFetcher interface {
	Fetch(ctx context.Context, target *url.URL) (*FetchedPage, error)
	Close() error
}

// LinkExtractor pulls hyperlinks and image references out of a fetched
// HTML page, resolved against the page's own URL.
type LinkExtractor interface {
	Extract(page *FetchedPage) ([]DiscoveredLink, error)
}

// RobotsChecker answers politeness questions against a site's robots.txt.
type RobotsChecker interface {
	Allowed(ctx context.Context, target *url.URL, userAgent string) (bool, error)
	CrawlDelay(ctx context.Context, host string, userAgent string) (time.Duration, bool)
}

// ImageProbe inspects a candidate image URL and reports its format without
// downloading the full body where a partial read suffices.
type ImageProbe interface {
	Probe(ctx context.Context, imageURL string, referrer *url.URL) (*ProbeResult, error)
}

// ProbeResult is what an ImageProbe learns about one image.
type ProbeResult struct {
	MimeType  string
	SizeBytes int64
	IsWebP    bool
	Width     int
	Height    int
}

// Crawler drives one scan's whole page-then-image walk to completion.
type Crawler interface {
	Run(ctx context.Context, scanID string) error
}
