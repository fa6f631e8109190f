package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// ReportHandler serves PDF scan reports built on demand from stored images.
type ReportHandler struct {
	scans    interfaces.ScanStorage
	images   interfaces.ImageStorage
	renderer interfaces.ReportRenderer
	logger   arbor.ILogger
}

func NewReportHandler(scans interfaces.ScanStorage, images interfaces.ImageStorage, renderer interfaces.ReportRenderer, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{scans: scans, images: images, renderer: renderer, logger: logger}
}

// topImageLimit bounds how many image rows a report lists, favoring the
// biggest potential savings.
const topImageLimit = 25

// Get handles GET /api/scan/{scanId}/report.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request, scanID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.scans.GetScan(r.Context(), scanID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load scan")
		return
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "scan not found")
		return
	}
	if job.Status != models.StatusCompleted {
		WriteError(w, http.StatusBadRequest, "scan has not completed")
		return
	}

	images, err := h.images.ListByScan(r.Context(), scanID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load scan images")
		return
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].PotentialSavingsBytes > images[j].PotentialSavingsBytes
	})

	var totalSavings int64
	var totalOriginal int64
	rows := make([]interfaces.ReportImageRow, 0, len(images))
	for i, img := range images {
		totalSavings += img.PotentialSavingsBytes
		totalOriginal += img.SizeBytes
		if i < topImageLimit {
			rows = append(rows, interfaces.ReportImageRow{
				ImageURL:              img.ImageURL,
				MimeType:              img.MimeType,
				SizeBytes:             img.SizeBytes,
				PotentialSavingsBytes: img.PotentialSavingsBytes,
			})
		}
	}

	var savingsPct float64
	if totalOriginal > 0 {
		savingsPct = float64(totalSavings) / float64(totalOriginal) * 100
	}

	data := interfaces.ReportData{
		ScanID:                scanID,
		URL:                   job.URL,
		PagesScanned:          job.PagesScanned,
		PagesDiscovered:       job.PagesDiscovered,
		NonWebPImages:         job.NonWebPImages,
		EstimatedSavingsBytes: totalSavings,
		EstimatedSavingsPct:   savingsPct,
		TopImages:             rows,
		GeneratedAt:           time.Now().UTC().Format(time.RFC3339),
	}

	pdf, err := h.renderer.Render(data)
	if err != nil {
		h.logger.Error().Err(err).Str("scan_id", scanID).Msg("failed to render report")
		WriteError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	filename := fmt.Sprintf("webp-scan-%s-%s.pdf", reportHost(job.URL), scanID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func reportHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "site"
	}
	return u.Host
}
