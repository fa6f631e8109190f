package models

import "time"

// DiscoveredImage is one row per (scan, image URL) first sighting. Later
// sightings of the same image on a different page append to PageURLs
// rather than creating a new row.
type DiscoveredImage struct {
	ID                    string    `json:"id"`
	ScanID                string    `json:"scanId"`
	ImageURL              string    `json:"imageUrl"`
	PageURLs              []string  `json:"pageUrls"`
	MimeType              string    `json:"mimeType"`
	SizeBytes             int64     `json:"sizeBytes"`
	Width                 int       `json:"width,omitempty"`
	Height                int       `json:"height,omitempty"`
	PotentialSavingsPct   float64   `json:"potentialSavingsPercent"`
	PotentialSavingsBytes int64     `json:"potentialSavingsBytes"`
	Category              string    `json:"category,omitempty"`
	DiscoveredAt          time.Time `json:"discoveredAt"`
}

// AddPageURL appends a page URL if it is not already present, preserving
// the set invariant described in spec §3.
func (d *DiscoveredImage) AddPageURL(pageURL string) {
	for _, p := range d.PageURLs {
		if p == pageURL {
			return
		}
	}
	d.PageURLs = append(d.PageURLs, pageURL)
}
