package interfaces

import "context"

// ScanSummaryEmail is the content of the completion-notification email.
type ScanSummaryEmail struct {
	To              string
	ScanURL         string
	PagesScanned    int
	NonWebPImages   int
	EstimatedSavingsBytes int64
	ReportURL       string
}

// Notifier sends a best-effort, fire-and-forget completion email. Delivery
// failures are logged, never surfaced to the scan pipeline.
type Notifier interface {
	SendScanComplete(ctx context.Context, msg ScanSummaryEmail)
}

// ReportRenderer produces a PDF summary report for a completed scan. A pure
// function from data to bytes; it touches no storage itself.
type ReportRenderer interface {
	Render(scan ReportData) ([]byte, error)
}

// ReportData is everything a ReportRenderer needs, gathered by its caller.
type ReportData struct {
	ScanID          string
	URL             string
	PagesScanned    int
	PagesDiscovered int
	NonWebPImages   int
	EstimatedSavingsBytes int64
	EstimatedSavingsPct   float64
	TopImages       []ReportImageRow
	GeneratedAt     string
}

type ReportImageRow struct {
	ImageURL            string
	MimeType             string
	SizeBytes            int64
	PotentialSavingsBytes int64
}

// WebPTranscoder converts one source image to WebP bytes. The real codec
// is an external collaborator out of scope here; a pass-through stub
// satisfies the interface until one is wired in.
type WebPTranscoder interface {
	Transcode(ctx context.Context, src []byte, mimeType string) ([]byte, error)
}

// ZipBuilder assembles a scan's converted images into a single archive on
// disk and returns its path and size.
type ZipBuilder interface {
	Build(ctx context.Context, scanID string, images []ZipImageInput) (path string, sizeBytes int64, err error)
}

// ZipImageInput is one entry handed to ZipBuilder.Build.
type ZipImageInput struct {
	Filename string
	Data     []byte
}
