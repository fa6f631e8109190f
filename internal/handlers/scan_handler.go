package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/ternarybob/webpscan/internal/progress"
)

// ScanHandler serves scan submission and status lookup.
type ScanHandler struct {
	validator       interfaces.SubmissionValidator
	admission       interfaces.Admission
	scans           interfaces.ScanStorage
	scheduler       interfaces.Scheduler
	waitEstimator   *progress.WaitEstimator
	trustedProxies  *common.TrustedProxies
	maxPagesPerScan int
	logger          arbor.ILogger
}

// NewScanHandler builds a ScanHandler.
func NewScanHandler(
	validator interfaces.SubmissionValidator,
	admission interfaces.Admission,
	scans interfaces.ScanStorage,
	scheduler interfaces.Scheduler,
	waitEstimator *progress.WaitEstimator,
	trustedProxies *common.TrustedProxies,
	maxPagesPerScan int,
	logger arbor.ILogger,
) *ScanHandler {
	return &ScanHandler{
		validator:       validator,
		admission:       admission,
		scans:           scans,
		scheduler:       scheduler,
		waitEstimator:   waitEstimator,
		trustedProxies:  trustedProxies,
		maxPagesPerScan: maxPagesPerScan,
		logger:          logger,
	}
}

type submitRequest struct {
	URL           string `json:"url"`
	Email         string `json:"email"`
	ConvertToWebP bool   `json:"convertToWebP"`
}

type submitResponse struct {
	ScanID        string `json:"scanId"`
	QueuePosition int    `json:"queuePosition"`
	Message       string `json:"message"`
	ConvertToWebP bool   `json:"convertToWebP"`
}

// Submit handles POST /api/scan.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"errors":  []interfaces.ValidationError{{Field: "body", Message: "malformed JSON"}},
		})
		return
	}

	var errs []interfaces.ValidationError
	normalizedURL, urlErr := h.validator.ValidateURL(req.URL)
	if urlErr != nil {
		errs = append(errs, *urlErr)
	}
	if req.Email != "" {
		if emailErr := h.validator.ValidateEmail(req.Email); emailErr != nil {
			errs = append(errs, *emailErr)
		}
	}
	if len(errs) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "errors": errs})
		return
	}

	submitterIP := h.trustedProxies.ClientIP(r)
	result, err := h.admission.Submit(r.Context(), interfaces.SubmissionRequest{
		URL:           normalizedURL,
		Email:         req.Email,
		ConvertToWebP: req.ConvertToWebP,
		SubmitterIP:   submitterIP,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("admission submit failed")
		WriteError(w, http.StatusInternalServerError, "failed to submit scan")
		return
	}

	if !result.Accepted {
		message, status := rejectReasonMessage(result.RejectReason)
		if result.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
		}
		WriteJSON(w, status, map[string]interface{}{"success": false, "message": message})
		return
	}

	WriteJSON(w, http.StatusCreated, submitResponse{
		ScanID:        result.ScanID,
		QueuePosition: result.QueuePosition,
		Message:       "scan queued",
		ConvertToWebP: req.ConvertToWebP,
	})
}

func rejectReasonMessage(reason string) (string, int) {
	switch reason {
	case "queue_full":
		return "the scan queue is full, try again shortly", http.StatusTooManyRequests
	case "ip_limit":
		return "you have reached the maximum number of queued scans for your address", http.StatusTooManyRequests
	case "cooldown":
		return "please wait before submitting another scan", http.StatusTooManyRequests
	case "rate_limited":
		return "too many requests from your address, please slow down", http.StatusTooManyRequests
	default:
		return "request rejected", http.StatusTooManyRequests
	}
}

type scanStatusResponse struct {
	*models.ScanJob
	QueuePosition        int      `json:"queuePosition,omitempty"`
	ProgressPercent      float64  `json:"progressPercent"`
	EstimatedWaitSeconds *float64 `json:"estimatedWaitSeconds,omitempty"`
}

// Status handles GET /api/scan/{scanId}/status.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request, scanID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.scans.GetScan(r.Context(), scanID)
	if err != nil {
		h.logger.Error().Err(err).Str("scan_id", scanID).Msg("failed to load scan")
		WriteError(w, http.StatusInternalServerError, "failed to load scan")
		return
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "scan not found")
		return
	}

	resp := scanStatusResponse{ScanJob: job, ProgressPercent: progressPercent(job)}
	if job.Status == models.StatusQueued {
		resp.QueuePosition = h.scheduler.Position(scanID)
		if h.waitEstimator != nil {
			if seconds, ok := h.waitEstimator.Estimate(resp.QueuePosition, h.remainingPages(r.Context())); ok {
				resp.EstimatedWaitSeconds = &seconds
			}
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func progressPercent(job *models.ScanJob) float64 {
	if job.IsTerminal() {
		return 100
	}
	if job.PagesDiscovered == 0 {
		return 0
	}
	return float64(job.PagesScanned) / float64(job.PagesDiscovered) * 100
}

// remainingPages reports how many pages each currently-processing scan has
// left, used to seed the queue-wait simulation with real data instead of
// always falling back to the configured per-site default.
func (h *ScanHandler) remainingPages(ctx context.Context) []float64 {
	active, err := h.scans.ListByStatus(ctx, models.StatusProcessing)
	if err != nil || len(active) == 0 {
		return nil
	}
	remaining := make([]float64, 0, len(active))
	for _, job := range active {
		left := h.maxPagesPerScan - job.PagesScanned
		if left < 1 {
			left = 1
		}
		remaining = append(remaining, float64(left))
	}
	return remaining
}
