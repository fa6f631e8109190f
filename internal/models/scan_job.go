package models

import "time"

// ScanStatus is the lifecycle state of a ScanJob.
type ScanStatus string

const (
	StatusQueued     ScanStatus = "Queued"
	StatusProcessing ScanStatus = "Processing"
	StatusCompleted  ScanStatus = "Completed"
	StatusFailed     ScanStatus = "Failed"
)

// ScanJob is the unit of work submitted by a client. Mutated only by the
// worker that owns it while Processing; Completed and Failed are terminal.
type ScanJob struct {
	ID               string     `json:"id"`
	URL              string     `json:"url"`
	Email            string     `json:"email,omitempty"`
	SubmitterIP      string     `json:"submitterIp"`
	SubmissionCount  int        `json:"submissionCount"` // 1-based index of this submitter's nth job
	PriorityScore    float64    `json:"priorityScore"`   // snapshot at enqueue; recomputed on read
	Status           ScanStatus `json:"status"`
	ConvertToWebP    bool       `json:"convertToWebP"`
	CreatedAt        time.Time  `json:"createdAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	PagesDiscovered  int        `json:"pagesDiscovered"`
	PagesScanned     int        `json:"pagesScanned"`
	NonWebPImages    int        `json:"nonWebPImagesFound"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	ReachedPageLimit bool       `json:"reachedPageLimit"`
}

// IsTerminal reports whether the job has reached Completed or Failed.
func (s *ScanJob) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
