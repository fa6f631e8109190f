package models

import "time"

// ScanLogEntry is one line of a scan's per-job audit trail, kept separate
// from the process-wide arbor log so a scan's history can be fetched on
// its own (supplemented feature, see SPEC_FULL.md §12).
type ScanLogEntry struct {
	ScanID    string    `json:"scanId"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // debug, info, warn, error
	Message   string    `json:"message"`
}
