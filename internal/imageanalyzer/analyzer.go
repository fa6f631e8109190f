package imageanalyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// sniffBytes is how much of the body mimetype.Detect needs to recognize a
// RIFF/WEBP container reliably (well under its own 3072-byte read limit).
const sniffBytes = 512

// Analyzer probes a candidate image URL for its true format without
// downloading the whole body when a partial read suffices. Results are
// cached by URL for the Analyzer's lifetime and never evicted; app wiring
// shares one Analyzer across all scans.
type Analyzer struct {
	client *http.Client

	mu    sync.RWMutex
	cache map[string]*interfaces.ProbeResult
}

// New builds an Analyzer. Redirects are never followed: a 3xx response is
// reported to the caller as-is rather than chased, closing off a class of
// SSRF via open redirect.
func New(requestTimeout time.Duration, logger arbor.ILogger) interfaces.ImageProbe {
	return &Analyzer{
		client: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cache: make(map[string]*interfaces.ProbeResult),
	}
}

func (a *Analyzer) Probe(ctx context.Context, imageURL string, referrer *url.URL) (*interfaces.ProbeResult, error) {
	a.mu.RLock()
	if cached, ok := a.cache[imageURL]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	result, err := a.probeUncached(ctx, imageURL, referrer)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[imageURL] = result
	a.mu.Unlock()
	return result, nil
}

func (a *Analyzer) probeUncached(ctx context.Context, imageURL string, referrer *url.URL) (*interfaces.ProbeResult, error) {
	headResult, headErr := a.head(ctx, imageURL, referrer)
	if headErr == nil && headResult.MimeType != "" && headResult.SizeBytes > 0 {
		return headResult, nil
	}

	return a.partialGet(ctx, imageURL, referrer)
}

func (a *Analyzer) head(ctx context.Context, imageURL string, referrer *url.URL) (*interfaces.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return nil, err
	}
	a.setHeaders(req, referrer)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HEAD %s returned status %d", imageURL, resp.StatusCode)
	}

	mime := resp.Header.Get("Content-Type")
	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)

	return &interfaces.ProbeResult{
		MimeType:  mime,
		SizeBytes: size,
		IsWebP:    isWebPMime(mime),
	}, nil
}

// partialGet fetches a small byte range and sniffs magic bytes when
// headers alone don't yield a usable MIME type (some servers omit
// Content-Type or answer HEAD with a generic application/octet-stream).
func (a *Analyzer) partialGet(ctx context.Context, imageURL string, referrer *url.URL) (*interfaces.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	a.setHeaders(req, referrer)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffBytes-1))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("GET %s returned status %d", imageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, sniffBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", imageURL, err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(body).String()
	}

	size := totalSize(resp)
	if size == 0 {
		size = int64(len(body))
	}

	return &interfaces.ProbeResult{
		MimeType:  mime,
		SizeBytes: size,
		IsWebP:    isWebPMime(mime) || looksLikeWebP(body),
	}, nil
}

func (a *Analyzer) setHeaders(req *http.Request, referrer *url.URL) {
	req.Header.Set("Accept", "image/*,*/*;q=0.5")
	if referrer != nil {
		req.Header.Set("Referer", referrer.String())
	}
}

// totalSize prefers Content-Range's total over Content-Length, since a
// 206 response's Content-Length only covers the requested range.
func totalSize(resp *http.Response) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		var start, end, total int64
		if _, err := fmt.Sscanf(cr, "bytes %d-%d/%d", &start, &end, &total); err == nil {
			return total
		}
	}
	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return size
}

func isWebPMime(mime string) bool {
	return mime == "image/webp"
}

// looksLikeWebP checks the RIFF....WEBP container signature directly, a
// fallback for when mimetype's own detection is inconclusive on a
// truncated read.
func looksLikeWebP(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
}
