package models

import "time"

// AggregateStats is the singleton totals row (id = 1). Version is an
// optimistic-concurrency token bumped on every successful write.
type AggregateStats struct {
	ID                       int       `json:"-"`
	TotalScans               int64     `json:"totalScans"`
	TotalPagesCrawled        int64     `json:"totalPagesCrawled"`
	TotalImagesFound         int64     `json:"totalImagesFound"`
	TotalOriginalSizeBytes   int64     `json:"totalOriginalSizeBytes"`
	TotalEstimatedWebPBytes  int64     `json:"totalEstimatedWebPSizeBytes"`
	SumOfSavingsPercent      float64   `json:"-"`
	LastUpdated              time.Time `json:"lastUpdated"`
	Version                  int64     `json:"-"`
}

// AverageSavingsPercent derives the displayed average from the running sum,
// avoiding stored drift.
func (a *AggregateStats) AverageSavingsPercent() float64 {
	if a.TotalImagesFound == 0 {
		return 0
	}
	return a.SumOfSavingsPercent / float64(a.TotalImagesFound)
}

// AggregateImageTypeStat is a child row keyed by MIME type.
type AggregateImageTypeStat struct {
	MimeType     string  `json:"mimeType"`
	ImageCount   int64   `json:"imageCount"`
	OriginalSize int64   `json:"originalSizeBytes"`
	EstimatedSize int64  `json:"estimatedWebPSizeBytes"`
	Version      int64   `json:"-"`
}

// AggregateCategoryStat is a child row keyed by image category.
type AggregateCategoryStat struct {
	Category     string `json:"category"`
	ImageCount   int64  `json:"imageCount"`
	OriginalSize int64  `json:"originalSizeBytes"`
	Version      int64  `json:"-"`
}

// StatsContribution bundles the deltas one scan's completion (or a
// Retention purge of that scan, negated) applies to the aggregate.
type StatsContribution struct {
	Scans              int64
	PagesCrawled       int64
	ImagesFound        int64
	OriginalSizeBytes  int64
	EstimatedWebPBytes int64
	SavingsPercentSum  float64
	ByMime             map[string]MimeContribution
	ByCategory         map[string]CategoryContribution
}

type MimeContribution struct {
	Count         int64
	OriginalSize  int64
	EstimatedSize int64
}

type CategoryContribution struct {
	Count        int64
	OriginalSize int64
}

// Negate returns the inverse contribution, used by Retention to subtract a
// deleted scan's prior addition.
func (c StatsContribution) Negate() StatsContribution {
	n := StatsContribution{
		Scans:              -c.Scans,
		PagesCrawled:       -c.PagesCrawled,
		ImagesFound:        -c.ImagesFound,
		OriginalSizeBytes:  -c.OriginalSizeBytes,
		EstimatedWebPBytes: -c.EstimatedWebPBytes,
		SavingsPercentSum:  -c.SavingsPercentSum,
		ByMime:             make(map[string]MimeContribution, len(c.ByMime)),
		ByCategory:         make(map[string]CategoryContribution, len(c.ByCategory)),
	}
	for k, v := range c.ByMime {
		n.ByMime[k] = MimeContribution{Count: -v.Count, OriginalSize: -v.OriginalSize, EstimatedSize: -v.EstimatedSize}
	}
	for k, v := range c.ByCategory {
		n.ByCategory[k] = CategoryContribution{Count: -v.Count, OriginalSize: -v.OriginalSize}
	}
	return n
}
