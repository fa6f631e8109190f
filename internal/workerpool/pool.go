package workerpool

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// Pool runs a fixed number of workers that claim scans from the
// scheduler and drive them through the crawler to completion.
type Pool struct {
	scheduler interfaces.Scheduler
	scans     interfaces.ScanStorage
	checkpts  interfaces.CheckpointStorage
	crawler   interfaces.Crawler
	logger    arbor.ILogger

	numWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// New builds a Pool with numWorkers concurrent claim loops.
func New(
	scheduler interfaces.Scheduler,
	scans interfaces.ScanStorage,
	checkpoints interfaces.CheckpointStorage,
	crawler interfaces.Crawler,
	numWorkers int,
	logger arbor.ILogger,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		scheduler:  scheduler,
		scans:      scans,
		checkpts:   checkpoints,
		crawler:    crawler,
		logger:     logger,
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker goroutines. RecoverCrashed should be called
// once before Start on process startup.
func (p *Pool) Start() {
	p.logger.Info().Int("workers", p.numWorkers).Msg("starting scan worker pool")
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		common.SafeGo(p.logger, "worker-pool", func() { p.run(i) })
	}
}

// Stop signals cooperative cancellation and waits for in-flight workers
// to finish their current page and persist a checkpoint before
// returning, mirroring the crawler's own cancellation contract.
func (p *Pool) Stop() {
	p.logger.Info().Msg("stopping scan worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("scan worker pool stopped")
}

func (p *Pool) run(workerID int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		scanID, ok := p.scheduler.Claim(p.ctx)
		if !ok {
			return // context cancelled while waiting for work
		}

		p.logger.Info().Int("worker_id", workerID).Str("scan_id", scanID).Msg("claimed scan")
		if err := p.crawler.Run(p.ctx, scanID); err != nil && p.ctx.Err() == nil {
			p.logger.Error().Err(err).Str("scan_id", scanID).Msg("scan run ended with error")
		}
	}
}

// RecoverCrashed re-enqueues scans left Processing by a prior process
// that never reached a terminal state. A scan with a saved checkpoint
// resumes from it; one without is restarted from scratch, matching spec
// §4.2's crash/restart recovery contract.
func RecoverCrashed(ctx context.Context, scans interfaces.ScanStorage, scheduler interfaces.Scheduler, logger arbor.ILogger) error {
	stuck, err := scans.ListByStatus(ctx, models.StatusProcessing)
	if err != nil {
		return err
	}

	for _, job := range stuck {
		logger.Warn().Str("scan_id", job.ID).Msg("recovering scan left processing by a prior run")
		if err := scheduler.Enqueue(ctx, job.ID, job.SubmitterIP, job.SubmissionCount); err != nil {
			logger.Error().Err(err).Str("scan_id", job.ID).Msg("failed to re-enqueue recovered scan")
			continue
		}
		job.Status = models.StatusQueued
		if err := scans.UpdateScan(ctx, job); err != nil {
			logger.Error().Err(err).Str("scan_id", job.ID).Msg("failed to reset recovered scan to queued")
		}
	}
	return nil
}
