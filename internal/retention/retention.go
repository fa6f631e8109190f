package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// defaultSchedule matches common.RetentionConfig's zero-value fallback.
const defaultSchedule = "@every 15m"

// Purger periodically deletes terminal scans older than a TTL, subtracting
// their prior contribution from the aggregate stats singleton so historical
// totals don't grow unbounded with every deleted job.
type Purger struct {
	scans       interfaces.ScanStorage
	images      interfaces.ImageStorage
	checkpoints interfaces.CheckpointStorage
	zips        interfaces.ZipStorage
	logs        interfaces.LogStorage
	stats       interfaces.StatsStorage
	cron        *cron.Cron
	schedule    string
	ttl         time.Duration
	logger      arbor.ILogger
}

// New builds a Purger. schedule is a robfig/cron expression (e.g. the
// "@every 15m" default); ttl is how long a Completed or Failed scan is kept
// before it becomes eligible for purge.
func New(scans interfaces.ScanStorage, images interfaces.ImageStorage, checkpoints interfaces.CheckpointStorage, zips interfaces.ZipStorage, logs interfaces.LogStorage, stats interfaces.StatsStorage, schedule string, ttl time.Duration, logger arbor.ILogger) *Purger {
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Purger{
		scans:       scans,
		images:      images,
		checkpoints: checkpoints,
		zips:        zips,
		logs:        logs,
		stats:       stats,
		cron:        cron.New(),
		schedule:    schedule,
		ttl:         ttl,
		logger:      logger,
	}
}

// Start registers the purge job and begins the cron scheduler.
func (p *Purger) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.runOnce()
	}); err != nil {
		return fmt.Errorf("retention: invalid schedule %q: %w", p.schedule, err)
	}
	p.cron.Start()
	p.logger.Info().Str("schedule", p.schedule).Dur("ttl", p.ttl).Msg("retention purge scheduled")
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight run to finish.
func (p *Purger) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info().Msg("retention purge stopped")
}

// RunNow triggers an immediate purge pass, for manual/admin use.
func (p *Purger) RunNow(ctx context.Context) (int, error) {
	return p.purge(ctx)
}

func (p *Purger) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := p.purge(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("retention purge failed")
		return
	}
	if n > 0 {
		p.logger.Info().Int("purged", n).Msg("retention purge complete")
	}
}

func (p *Purger) purge(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-p.ttl).Unix()
	expired, err := p.scans.ExpiredTerminal(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing expired scans: %w", err)
	}

	purged := 0
	for _, job := range expired {
		if err := p.purgeOne(ctx, job); err != nil {
			p.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to purge scan, will retry next cycle")
			continue
		}
		purged++
	}
	return purged, nil
}

func (p *Purger) purgeOne(ctx context.Context, job *models.ScanJob) error {
	contribution, err := p.buildContribution(ctx, job)
	if err != nil {
		return fmt.Errorf("building contribution: %w", err)
	}

	if _, err := p.images.DeleteByScan(ctx, job.ID); err != nil {
		return fmt.Errorf("deleting images: %w", err)
	}
	if err := p.checkpoints.DeleteCheckpoint(ctx, job.ID); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	if _, err := p.logs.DeleteLogs(ctx, job.ID); err != nil {
		return fmt.Errorf("deleting logs: %w", err)
	}
	if z, err := p.zips.GetZipByScan(ctx, job.ID); err == nil && z != nil {
		if err := p.zips.DeleteZip(ctx, z.DownloadID); err != nil {
			return fmt.Errorf("deleting zip: %w", err)
		}
	}
	if err := p.scans.DeleteScan(ctx, job.ID); err != nil {
		return fmt.Errorf("deleting scan: %w", err)
	}

	if contribution.Scans != 0 || len(contribution.ByMime) > 0 {
		if _, err := p.stats.Apply(ctx, contribution.Negate()); err != nil {
			return fmt.Errorf("subtracting aggregate contribution: %w", err)
		}
	}
	return nil
}

// buildContribution reconstructs what the scan added to the aggregate at
// completion time, from its surviving image rows, so it can be negated.
// Failed scans that never completed contributed nothing.
func (p *Purger) buildContribution(ctx context.Context, job *models.ScanJob) (models.StatsContribution, error) {
	c := models.StatsContribution{
		ByMime:     make(map[string]models.MimeContribution),
		ByCategory: make(map[string]models.CategoryContribution),
	}
	if job.Status != models.StatusCompleted {
		return c, nil
	}
	c.Scans = 1
	c.PagesCrawled = int64(job.PagesScanned)

	images, err := p.images.ListByScan(ctx, job.ID)
	if err != nil {
		return models.StatsContribution{}, err
	}
	for _, img := range images {
		c.ImagesFound++
		c.OriginalSizeBytes += img.SizeBytes
		c.EstimatedWebPBytes += img.SizeBytes - img.PotentialSavingsBytes
		c.SavingsPercentSum += img.PotentialSavingsPct

		mime := c.ByMime[img.MimeType]
		mime.Count++
		mime.OriginalSize += img.SizeBytes
		mime.EstimatedSize += img.SizeBytes - img.PotentialSavingsBytes
		c.ByMime[img.MimeType] = mime

		cat := c.ByCategory[img.Category]
		cat.Count++
		cat.OriginalSize += img.SizeBytes
		c.ByCategory[img.Category] = cat
	}
	return c, nil
}
