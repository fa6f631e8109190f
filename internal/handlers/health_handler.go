package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// HealthHandler reports liveness and current queue depth.
type HealthHandler struct {
	scans     interfaces.ScanStorage
	scheduler interfaces.Scheduler
	logger    arbor.ILogger
}

func NewHealthHandler(scans interfaces.ScanStorage, scheduler interfaces.Scheduler, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{scans: scans, scheduler: scheduler, logger: logger}
}

type healthResponse struct {
	Status         string `json:"status"`
	QueuedJobs     int    `json:"queuedJobs"`
	ProcessingJobs int    `json:"processingJobs"`
	Timestamp      string `json:"timestamp"`
}

// Get handles GET /api/health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	processing, err := h.scans.ListByStatus(r.Context(), models.StatusProcessing)
	if err != nil {
		h.logger.Warn().Err(err).Msg("health check failed to count processing jobs")
		WriteJSON(w, http.StatusOK, healthResponse{
			Status:    "degraded",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	WriteJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		QueuedJobs:     h.scheduler.Len(),
		ProcessingJobs: len(processing),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}
