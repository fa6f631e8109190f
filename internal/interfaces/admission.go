package interfaces

import "context"

// SubmissionRequest is the validated input to Admission.Submit.
type SubmissionRequest struct {
	URL           string
	Email         string
	ConvertToWebP bool
	SubmitterIP   string
}

// AdmissionResult reports the outcome of Submit: either a queued scan ID or
// a rejection reason suitable for an API 4xx/429 response.
type AdmissionResult struct {
	Accepted      bool
	ScanID        string
	QueuePosition int
	RejectReason  string // "queue_full", "ip_limit", "cooldown", "rate_limited"
	RetryAfter    int    // seconds, set for "cooldown" and "rate_limited"
}

// Admission gates incoming scan submissions against queue capacity,
// per-IP concurrency, and submission cooldown before handing accepted
// requests to the scheduler.
type Admission interface {
	Submit(ctx context.Context, req SubmissionRequest) (*AdmissionResult, error)
}

// Scheduler orders queued scans by fair-share priority and serves them to
// the worker pool.
type Scheduler interface {
	// Enqueue admits an already-accepted job into the priority queue.
	// submissionCount is the submitter's persisted, monotonically-increasing
	// submission count (1 for a first-time submitter) and fixes the job's
	// fair-share bucket for its entire time in the queue.
	Enqueue(ctx context.Context, scanID string, submitterIP string, submissionCount int) error
	// Claim blocks until a job is available or ctx is cancelled, returning
	// the highest-priority scan ID.
	Claim(ctx context.Context) (scanID string, ok bool)
	// Position reports a queued job's 1-based rank, or 0 if not queued.
	Position(scanID string) int
	// Len returns the current queue depth.
	Len() int
}
