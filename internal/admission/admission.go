package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// Gate implements interfaces.Admission: the chain of checks a submission
// must clear before it becomes a queued scan. Checks run in order so the
// cheapest, most common rejection (queue full) short-circuits first.
type Gate struct {
	scans      interfaces.ScanStorage
	scheduler  interfaces.Scheduler
	limiter    *RateLimiter
	logger     arbor.ILogger
	config     common.AdmissionConfig
	cooldown   time.Duration
}

// NewGate builds the submission gate. cooldown is parsed once at startup
// so a malformed TOML duration fails fast instead of silently disabling
// the cooldown check.
func NewGate(scans interfaces.ScanStorage, scheduler interfaces.Scheduler, config common.AdmissionConfig, logger arbor.ILogger) (*Gate, error) {
	cooldown, err := time.ParseDuration(config.SubmissionCooldown)
	if err != nil {
		return nil, fmt.Errorf("invalid submission_cooldown %q: %w", config.SubmissionCooldown, err)
	}
	limit := config.MaxRequestsPerMinute
	if limit <= 0 {
		limit = config.MaxActivePerIP * 2
	}
	return &Gate{
		scans:     scans,
		scheduler: scheduler,
		limiter:   NewRateLimiter(limit, time.Minute),
		logger:    logger,
		config:    config,
		cooldown:  cooldown,
	}, nil
}

func (g *Gate) Submit(ctx context.Context, req interfaces.SubmissionRequest) (*interfaces.AdmissionResult, error) {
	if g.scheduler.Len() >= g.config.MaxQueueDepth {
		return &interfaces.AdmissionResult{Accepted: false, RejectReason: "queue_full"}, nil
	}

	activeStatuses := []models.ScanStatus{models.StatusQueued, models.StatusProcessing}
	activeCount, err := g.scans.CountSubmissionsByIP(ctx, req.SubmitterIP, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to count active submissions: %w", err)
	}
	if activeCount >= g.config.MaxActivePerIP {
		return &interfaces.AdmissionResult{Accepted: false, RejectReason: "ip_limit"}, nil
	}

	exists, lastUnix, err := g.scans.LastSubmissionByIP(ctx, req.SubmitterIP)
	if err != nil {
		return nil, fmt.Errorf("failed to check submission cooldown: %w", err)
	}
	if exists {
		elapsed := time.Since(time.Unix(lastUnix, 0))
		if elapsed < g.cooldown {
			retryAfter := int((g.cooldown - elapsed).Seconds()) + 1
			return &interfaces.AdmissionResult{Accepted: false, RejectReason: "cooldown", RetryAfter: retryAfter}, nil
		}
	}

	if !g.limiter.Allow(req.SubmitterIP) {
		return &interfaces.AdmissionResult{Accepted: false, RejectReason: "rate_limited", RetryAfter: 60}, nil
	}

	scanID := common.NewScanID()
	job := &models.ScanJob{
		ID:            scanID,
		URL:           req.URL,
		Email:         req.Email,
		SubmitterIP:   req.SubmitterIP,
		ConvertToWebP: req.ConvertToWebP,
		Status:        models.StatusQueued,
		CreatedAt:     time.Now(),
	}

	submissionCount, err := g.scans.CountSubmissionsByIP(ctx, req.SubmitterIP, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count submission history: %w", err)
	}
	job.SubmissionCount = submissionCount + 1

	if err := g.scans.SaveScan(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist scan: %w", err)
	}

	if err := g.scheduler.Enqueue(ctx, scanID, req.SubmitterIP, job.SubmissionCount); err != nil {
		return nil, fmt.Errorf("failed to enqueue scan: %w", err)
	}

	g.logger.Info().Str("scan_id", scanID).Str("url", req.URL).Str("ip", req.SubmitterIP).Msg("scan submission accepted")

	return &interfaces.AdmissionResult{
		Accepted:      true,
		ScanID:        scanID,
		QueuePosition: g.scheduler.Position(scanID),
	}, nil
}
