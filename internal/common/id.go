package common

import "github.com/google/uuid"

// NewScanID generates a new scan job ID, prefixed "scan_".
func NewScanID() string { return "scan_" + uuid.New().String() }

// NewImageID generates a new discovered image ID, prefixed "img_".
func NewImageID() string { return "img_" + uuid.New().String() }

// NewDownloadID generates a new converted-zip download ID, prefixed "dl_".
func NewDownloadID() string { return "dl_" + uuid.New().String() }
