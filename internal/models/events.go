package models

import "time"

// EventType names the server-callable events described in spec §4.9/§6.
type EventType string

const (
	EventQueuePositionUpdate EventType = "QueuePositionUpdate"
	EventScanStarted         EventType = "ScanStarted"
	EventPageProgress        EventType = "PageProgress"
	EventImageFound          EventType = "ImageFound"
	EventScanComplete        EventType = "ScanComplete"
	EventScanFailed          EventType = "ScanFailed"
	EventStatsUpdate         EventType = "StatsUpdate"
)

// ScanGroup returns the per-scan subscription group name for a scan ID.
func ScanGroup(scanID string) string { return "scan-" + scanID }

// StatsGroup is the global stats subscription group name.
const StatsGroup = "stats-updates"

// Envelope is the wire shape pushed to subscribers: a discriminated union
// keyed by Type with a typed Payload.
type Envelope struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

type QueuePositionUpdatePayload struct {
	ScanID          string  `json:"scanId"`
	QueuePosition   int     `json:"queuePosition"`
	EstimatedWaitSeconds int64 `json:"estimatedWaitSeconds"`
	HasEstimate     bool    `json:"hasEstimate"`
}

type ScanStartedPayload struct {
	ScanID    string    `json:"scanId"`
	URL       string    `json:"url"`
	StartedAt time.Time `json:"startedAt"`
}

type PageProgressPayload struct {
	ScanID            string `json:"scanId"`
	PagesScanned      int    `json:"pagesScanned"`
	PagesDiscovered   int    `json:"pagesDiscovered"`
	NonWebPImages     int    `json:"nonWebPImagesFound"`
	CurrentURL        string `json:"currentUrl"`
}

type ImageFoundPayload struct {
	ScanID                string  `json:"scanId"`
	ImageURL              string  `json:"imageUrl"`
	MimeType              string  `json:"mimeType"`
	SizeBytes             int64   `json:"sizeBytes"`
	PotentialSavingsBytes int64   `json:"potentialSavingsBytes"`
	PotentialSavingsPct   float64 `json:"potentialSavingsPercent"`
}

type ScanCompletePayload struct {
	ScanID          string    `json:"scanId"`
	PagesScanned    int       `json:"pagesScanned"`
	PagesDiscovered int       `json:"pagesDiscovered"`
	NonWebPImages   int       `json:"nonWebPImagesFound"`
	CompletedAt     time.Time `json:"completedAt"`
	ReachedPageLimit bool     `json:"reachedPageLimit"`
}

type ScanFailedPayload struct {
	ScanID       string    `json:"scanId"`
	ErrorMessage string    `json:"errorMessage"`
	CompletedAt  time.Time `json:"completedAt"`
}

type StatsUpdatePayload struct {
	Stats *AggregateStats `json:"stats"`
}

// ScanProgressSnapshot is the reconnect response for GetCurrentProgress.
type ScanProgressSnapshot struct {
	ScanID            string `json:"scanId"`
	Status            string `json:"status"`
	PagesScanned      int    `json:"pagesScanned"`
	PagesDiscovered   int    `json:"pagesDiscovered"`
	NonWebPImages     int    `json:"nonWebPImagesCount"`
	QueuePosition     int    `json:"queuePosition,omitempty"`
	ProgressPercent   float64 `json:"progressPercent"`
	CurrentURL        string `json:"currentUrl,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
}
