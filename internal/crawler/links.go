package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// bgImageURL pulls the first url(...) out of an inline style's
// background-image declaration.
var bgImageURL = regexp.MustCompile(`background-image\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// Extractor discovers page links and image references from a fetched HTML
// page, resolving everything against the page's own URL. It does not filter
// by host; off-site links are returned and the caller drops them.
type Extractor struct {
	logger arbor.ILogger
}

// NewExtractor builds an Extractor.
func NewExtractor(logger arbor.ILogger) interfaces.LinkExtractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(page *interfaces.FetchedPage) ([]interfaces.DiscoveredLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for link extraction: %w", err)
	}

	base := page.FinalURL
	seen := make(map[string]bool)
	var links []interfaces.DiscoveredLink

	add := func(raw string, isImage bool, attr string) {
		resolved := e.resolve(raw, base)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, interfaces.DiscoveredLink{URL: resolved, IsImage: isImage, FromAttr: attr})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if e.shouldSkip(href) {
			return
		}
		add(href, false, "href")
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			add(src, true, "src")
		}
		if srcset, ok := s.Attr("srcset"); ok && srcset != "" {
			for _, candidate := range e.parseSrcset(srcset) {
				add(candidate, true, "srcset")
			}
		}
	})

	doc.Find("source[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		for _, candidate := range e.parseSrcset(srcset) {
			add(candidate, true, "srcset")
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if match := bgImageURL.FindStringSubmatch(style); len(match) == 2 {
			add(match[1], true, "style:background-image")
		}
	})

	return links, nil
}

func (e *Extractor) shouldSkip(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

func (e *Extractor) resolve(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	if base == nil {
		if parsed, err := url.Parse(raw); err == nil && parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}
	resolved, err := base.Parse(raw)
	if err != nil {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// parseSrcset splits a srcset attribute's comma-separated
// "url descriptor" candidates into bare URLs.
func (e *Extractor) parseSrcset(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}
