package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// RobotsCache fetches and caches robots.txt per host, so a multi-hundred
// page crawl of one site fetches it exactly once.
type RobotsCache struct {
	mu     sync.Mutex
	cached map[string]*robotstxt.RobotsData
	client *http.Client
	logger arbor.ILogger
}

// NewRobotsCache builds a RobotsCache using client for fetches.
func NewRobotsCache(client *http.Client, logger arbor.ILogger) interfaces.RobotsChecker {
	return &RobotsCache{
		cached: make(map[string]*robotstxt.RobotsData),
		client: client,
		logger: logger,
	}
}

func (rc *RobotsCache) Allowed(ctx context.Context, target *url.URL, userAgent string) (bool, error) {
	data, err := rc.forHost(ctx, target)
	if err != nil {
		return false, err
	}
	if data == nil {
		return true, nil // no robots.txt or unreachable: default allow
	}
	return data.TestAgent(target.Path, userAgent), nil
}

func (rc *RobotsCache) CrawlDelay(ctx context.Context, host string, userAgent string) (time.Duration, bool) {
	rc.mu.Lock()
	data := rc.cached[host]
	rc.mu.Unlock()
	if data == nil {
		return 0, false
	}
	group := data.FindGroup(userAgent)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return group.CrawlDelay, true
}

func (rc *RobotsCache) forHost(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	base := fmt.Sprintf("%s://%s", target.Scheme, target.Host)

	rc.mu.Lock()
	if data, ok := rc.cached[base]; ok {
		rc.mu.Unlock()
		return data, nil
	}
	rc.mu.Unlock()

	data := rc.fetch(ctx, base)

	rc.mu.Lock()
	rc.cached[base] = data
	rc.mu.Unlock()

	return data, nil
}

func (rc *RobotsCache) fetch(ctx context.Context, base string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return nil
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debug().Err(err).Str("base", base).Msg("robots.txt fetch failed, defaulting to allow")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		rc.logger.Debug().Err(err).Str("base", base).Msg("robots.txt parse failed, defaulting to allow")
		return nil
	}
	return data
}
