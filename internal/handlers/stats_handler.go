package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// StatsHandler serves the site-wide aggregate savings totals.
type StatsHandler struct {
	stats  interfaces.StatsStorage
	logger arbor.ILogger
}

func NewStatsHandler(stats interfaces.StatsStorage, logger arbor.ILogger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

type statsResponse struct {
	TotalScans              int64                              `json:"totalScans"`
	TotalPagesCrawled       int64                              `json:"totalPagesCrawled"`
	TotalImagesFound        int64                              `json:"totalImagesFound"`
	TotalOriginalSizeBytes  int64                              `json:"totalOriginalSizeBytes"`
	TotalEstimatedWebPBytes int64                              `json:"totalEstimatedWebPSizeBytes"`
	AverageSavingsPercent   float64                            `json:"averageSavingsPercent"`
	ByMimeType              []mimeBreakdown                     `json:"byMimeType"`
	ByCategory              []categoryBreakdown                 `json:"byCategory"`
}

type mimeBreakdown struct {
	MimeType              string `json:"mimeType"`
	ImageCount            int64  `json:"imageCount"`
	OriginalSizeBytes     int64  `json:"originalSizeBytes"`
	EstimatedWebPSizeBytes int64 `json:"estimatedWebPSizeBytes"`
}

type categoryBreakdown struct {
	Category          string `json:"category"`
	ImageCount        int64  `json:"imageCount"`
	OriginalSizeBytes int64  `json:"originalSizeBytes"`
}

// Get handles GET /api/scan/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	agg, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load aggregate stats")
		WriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	byMime, err := h.stats.ListByMime(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load stats breakdown")
		return
	}
	byCategory, err := h.stats.ListByCategory(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load stats breakdown")
		return
	}

	resp := statsResponse{
		TotalScans:              agg.TotalScans,
		TotalPagesCrawled:       agg.TotalPagesCrawled,
		TotalImagesFound:        agg.TotalImagesFound,
		TotalOriginalSizeBytes:  agg.TotalOriginalSizeBytes,
		TotalEstimatedWebPBytes: agg.TotalEstimatedWebPBytes,
		AverageSavingsPercent:   agg.AverageSavingsPercent(),
	}
	for _, m := range byMime {
		resp.ByMimeType = append(resp.ByMimeType, mimeBreakdown{
			MimeType:               m.MimeType,
			ImageCount:             m.ImageCount,
			OriginalSizeBytes:      m.OriginalSize,
			EstimatedWebPSizeBytes: m.EstimatedSize,
		})
	}
	for _, c := range byCategory {
		resp.ByCategory = append(resp.ByCategory, categoryBreakdown{
			Category:          c.Category,
			ImageCount:        c.ImageCount,
			OriginalSizeBytes: c.OriginalSize,
		})
	}

	WriteJSON(w, http.StatusOK, resp)
}
