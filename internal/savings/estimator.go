package savings

import (
	"regexp"
	"strings"

	"github.com/ternarybob/webpscan/internal/interfaces"
)

// mimeRatios holds the empirical fraction of original size WebP
// conversion typically saves for a given source format (spec §4.7).
var mimeRatios = map[string]float64{
	"image/png":  0.66,
	"image/jpeg": 0.75,
	"image/jpg":  0.75,
	"image/gif":  0.55,
}

const unknownMimeRatio = 0.80

// categoryRule is one entry in the ordered category-bucketing table;
// rules are tried in order and the first match wins.
type categoryRule struct {
	name    string
	pattern *regexp.Regexp
}

var categoryRules = []categoryRule{
	{"Hero & Banners", regexp.MustCompile(`(?i)hero|banner|jumbotron|masthead`)},
	{"Product Images", regexp.MustCompile(`(?i)product|sku|catalog|item[-_]?\d`)},
	{"Thumbnails", regexp.MustCompile(`(?i)thumb|thumbnail|preview|small`)},
	{"Icons", regexp.MustCompile(`(?i)icon|favicon|sprite|logo`)},
	{"Backgrounds", regexp.MustCompile(`(?i)bg[-_]|background`)},
}

const otherCategory = "Other"

// Estimator implements interfaces.SavingsEstimator with a fixed
// per-MIME ratio table and an ordered regex category matcher.
type Estimator struct{}

// New builds an Estimator. It is stateless; a single instance may be
// shared across all scans.
func New() interfaces.SavingsEstimator {
	return &Estimator{}
}

func (e *Estimator) Estimate(mimeType string, sizeBytes int64) interfaces.SavingsEstimate {
	ratio, ok := mimeRatios[strings.ToLower(mimeType)]
	if !ok {
		ratio = unknownMimeRatio
	}

	savingsBytes := int64(float64(sizeBytes) * ratio)
	if savingsBytes < 0 {
		savingsBytes = 0
	}
	if savingsBytes > sizeBytes {
		savingsBytes = sizeBytes
	}
	estimated := sizeBytes - savingsBytes

	var percent float64
	if sizeBytes > 0 {
		percent = float64(savingsBytes) / float64(sizeBytes) * 100
	}

	return interfaces.SavingsEstimate{
		EstimatedWebPBytes: estimated,
		SavingsBytes:       savingsBytes,
		SavingsPercent:     percent,
	}
}

// Categorize buckets by image URL text alone; mimeType is accepted to
// satisfy the interface (the original crawl path has no alt text to
// offer) but never matches a category pattern itself.
func (e *Estimator) Categorize(imageURL, mimeType string) string {
	haystack := imageURL
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(haystack) {
			return rule.name
		}
	}
	return otherCategory
}
