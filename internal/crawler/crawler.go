package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// loginPathHints are URL-path and form-field heuristics that mark a page
// as an auth wall rather than crawlable content (spec §4.5 step 3).
var loginPathHints = []string{"/login", "/signin", "/sign-in", "/account/login"}

// Walker drives one scan's page-then-image loop: Initializing, repeated
// Fetching, Finalizing, and a terminal Completed/Failed status. It owns no
// state across scans; Run is safe to call concurrently for different
// scanIDs from a worker pool.
type Walker struct {
	scans       interfaces.ScanStorage
	images      interfaces.ImageStorage
	checkpoints interfaces.CheckpointStorage
	logs        interfaces.LogStorage
	stats       interfaces.StatsStorage
	fetcher     interfaces.PageFetcher
	jsFetcher   interfaces.PageFetcher // nil when EnableJavaScript is off
	extractor   interfaces.LinkExtractor
	robots      interfaces.RobotsChecker
	probe       interfaces.ImageProbe
	estimator   interfaces.SavingsEstimator
	broadcaster interfaces.Broadcaster
	zips        interfaces.ZipStorage
	zipBuilder  interfaces.ZipBuilder
	transcoder  interfaces.WebPTranscoder
	notifier    interfaces.Notifier
	config      common.CrawlerConfig
	logger      arbor.ILogger
}

// New builds a Walker implementing interfaces.Crawler. zips/zipBuilder/
// transcoder may be nil, in which case a completed scan with
// ConvertToWebP set simply skips archive assembly; notifier may be nil to
// skip the completion email.
func New(
	scans interfaces.ScanStorage,
	images interfaces.ImageStorage,
	checkpoints interfaces.CheckpointStorage,
	logs interfaces.LogStorage,
	stats interfaces.StatsStorage,
	fetcher interfaces.PageFetcher,
	jsFetcher interfaces.PageFetcher,
	extractor interfaces.LinkExtractor,
	robots interfaces.RobotsChecker,
	probe interfaces.ImageProbe,
	estimator interfaces.SavingsEstimator,
	broadcaster interfaces.Broadcaster,
	zips interfaces.ZipStorage,
	zipBuilder interfaces.ZipBuilder,
	transcoder interfaces.WebPTranscoder,
	notifier interfaces.Notifier,
	config common.CrawlerConfig,
	logger arbor.ILogger,
) interfaces.Crawler {
	return &Walker{
		scans:       scans,
		images:      images,
		checkpoints: checkpoints,
		logs:        logs,
		stats:       stats,
		fetcher:     fetcher,
		jsFetcher:   jsFetcher,
		extractor:   extractor,
		robots:      robots,
		probe:       probe,
		estimator:   estimator,
		broadcaster: broadcaster,
		zips:        zips,
		zipBuilder:  zipBuilder,
		transcoder:  transcoder,
		notifier:    notifier,
		config:      config,
		logger:      logger,
	}
}

func (w *Walker) Run(ctx context.Context, scanID string) error {
	job, err := w.scans.GetScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("failed to load scan %s: %w", scanID, err)
	}

	submissionURL, err := url.Parse(job.URL)
	if err != nil {
		return w.fail(ctx, job, fmt.Errorf("stored scan URL is unparseable: %w", err))
	}

	now := time.Now()
	job.Status = models.StatusProcessing
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	if err := w.scans.UpdateScan(ctx, job); err != nil {
		return fmt.Errorf("failed to mark scan processing: %w", err)
	}

	cp, err := w.checkpoints.GetCheckpoint(ctx, scanID)
	if err != nil {
		return w.fail(ctx, job, fmt.Errorf("failed to load checkpoint: %w", err))
	}
	frontier := models.NewFrontier(cp)
	if cp == nil {
		frontier.Enqueue(submissionURL.String())
	}

	w.emit(models.ScanGroup(scanID), models.EventScanStarted, models.ScanStartedPayload{
		ScanID: scanID, URL: job.URL, StartedAt: *job.StartedAt,
	})

	deadline := job.StartedAt.Add(w.config.MaxScanDuration)
	pagesVisited := len(frontier.Visited)
	nonWebP := 0
	if cp != nil {
		nonWebP = cp.NonWebPImagesFound
	}

	var lastFetch time.Time
	for {
		if ctx.Err() != nil {
			w.checkpoint(ctx, scanID, frontier, pagesVisited, nonWebP, "")
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			break
		}
		if pagesVisited >= w.config.MaxPages {
			break
		}

		target, ok := frontier.Dequeue()
		if !ok {
			break
		}
		if frontier.Visited[target] {
			continue
		}

		parsedTarget, err := url.Parse(target)
		if err != nil {
			frontier.MarkVisited(target)
			continue
		}

		if wait := w.config.PerRequestDelay - time.Since(lastFetch); wait > 0 && !lastFetch.IsZero() {
			time.Sleep(wait)
		}

		allowed := true
		if w.config.FollowRobotsTxt {
			allowed, err = w.robots.Allowed(ctx, parsedTarget, w.config.UserAgent)
			if err != nil {
				allowed = true // unreachable robots.txt defaults to allow, never fails the scan
			}
		}
		if !allowed {
			frontier.MarkVisited(target)
			continue
		}

		page, err := w.fetchPage(ctx, parsedTarget)
		lastFetch = time.Now()
		if err != nil {
			if pagesVisited == 0 && target == submissionURL.String() {
				return w.fail(ctx, job, fmt.Errorf("initial URL unreachable: %w", err))
			}
			w.appendLog(ctx, scanID, "warn", fmt.Sprintf("page fetch failed for %s: %v", target, err))
			frontier.MarkVisited(target)
			continue
		}

		frontier.MarkVisited(target)
		pagesVisited++

		if page.FinalURL.Host != submissionURL.Host || isLoginPage(page) {
			w.emitProgress(scanID, pagesVisited, frontier.Discovered(), nonWebP, target)
			continue
		}

		links, err := w.extractor.Extract(page)
		if err != nil {
			w.appendLog(ctx, scanID, "warn", fmt.Sprintf("link extraction failed for %s: %v", target, err))
			w.emitProgress(scanID, pagesVisited, frontier.Discovered(), nonWebP, target)
			continue
		}

		for _, link := range links {
			if link.IsImage {
				found, err := w.handleImage(ctx, job, link, page.FinalURL)
				if err != nil {
					w.appendLog(ctx, scanID, "warn", fmt.Sprintf("image probe failed for %s: %v", link.URL, err))
					continue
				}
				if found {
					nonWebP++
				}
				continue
			}
			linkURL, err := url.Parse(link.URL)
			if err != nil || linkURL.Host != submissionURL.Host {
				continue
			}
			frontier.Enqueue(link.URL)
		}

		w.emitProgress(scanID, pagesVisited, frontier.Discovered(), nonWebP, target)

		if pagesVisited%w.config.CheckpointEvery == 0 {
			w.checkpoint(ctx, scanID, frontier, pagesVisited, nonWebP, target)
		}
	}

	reachedLimit := frontier.Discovered() > pagesVisited
	w.checkpoint(ctx, scanID, frontier, pagesVisited, nonWebP, "")

	return w.complete(ctx, job, pagesVisited, frontier.Discovered(), nonWebP, reachedLimit)
}

func (w *Walker) fetchPage(ctx context.Context, target *url.URL) (*interfaces.FetchedPage, error) {
	pageCtx, cancel := context.WithTimeout(ctx, w.config.RequestTimeout)
	defer cancel()

	if w.config.EnableJavaScript && w.jsFetcher != nil {
		return w.jsFetcher.Fetch(pageCtx, target)
	}
	return w.fetcher.Fetch(pageCtx, target)
}

func isLoginPage(page *interfaces.FetchedPage) bool {
	path := strings.ToLower(page.FinalURL.Path)
	for _, hint := range loginPathHints {
		if strings.Contains(path, hint) {
			return true
		}
	}
	body := strings.ToLower(string(page.Body))
	return strings.Contains(body, `name="password"`) && strings.Contains(body, `name="login"`)
}

// handleImage probes one discovered image URL and, if it is not WebP,
// persists a DiscoveredImage row (or appends to an existing one's page
// set) and emits ImageFound. Returns true iff this is a newly recorded
// non-WebP image.
func (w *Walker) handleImage(ctx context.Context, job *models.ScanJob, link interfaces.DiscoveredLink, pageURL *url.URL) (bool, error) {
	existing, err := w.images.FindByURL(ctx, job.ID, link.URL)
	if err != nil {
		return false, err
	}
	if existing != nil {
		existing.AddPageURL(pageURL.String())
		return false, w.images.UpsertImage(ctx, existing)
	}

	result, err := w.probe.Probe(ctx, link.URL, pageURL)
	if err != nil {
		return false, err
	}
	if result.IsWebP {
		return false, nil
	}

	estimate := w.estimator.Estimate(result.MimeType, result.SizeBytes)
	category := w.estimator.Categorize(link.URL, result.MimeType)

	img := &models.DiscoveredImage{
		ID:                    common.NewImageID(),
		ScanID:                job.ID,
		ImageURL:              link.URL,
		PageURLs:              []string{pageURL.String()},
		MimeType:              result.MimeType,
		SizeBytes:             result.SizeBytes,
		Width:                 result.Width,
		Height:                result.Height,
		PotentialSavingsPct:   estimate.SavingsPercent,
		PotentialSavingsBytes: estimate.SavingsBytes,
		Category:              category,
		DiscoveredAt:          time.Now(),
	}
	if err := w.images.UpsertImage(ctx, img); err != nil {
		return false, err
	}

	w.emit(models.ScanGroup(job.ID), models.EventImageFound, models.ImageFoundPayload{
		ScanID:                job.ID,
		ImageURL:              link.URL,
		MimeType:              result.MimeType,
		SizeBytes:             result.SizeBytes,
		PotentialSavingsBytes: estimate.SavingsBytes,
		PotentialSavingsPct:   estimate.SavingsPercent,
	})
	return true, nil
}

func (w *Walker) checkpoint(ctx context.Context, scanID string, frontier *models.Frontier, pagesVisited, nonWebP int, currentURL string) {
	visited, pending := frontier.Snapshot()
	now := time.Now()
	cp := &models.CrawlCheckpoint{
		ScanID:             scanID,
		VisitedURLs:        visited,
		PendingURLs:        pending,
		PagesVisited:       pagesVisited,
		PagesDiscovered:    frontier.Discovered(),
		NonWebPImagesFound: nonWebP,
		CurrentURL:         currentURL,
		UpdatedAt:          now,
	}
	if err := w.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
		w.logger.Warn().Err(err).Str("scan_id", scanID).Msg("failed to persist checkpoint")
	}
}

func (w *Walker) emitProgress(scanID string, pagesVisited, pagesDiscovered, nonWebP int, currentURL string) {
	w.emit(models.ScanGroup(scanID), models.EventPageProgress, models.PageProgressPayload{
		ScanID:          scanID,
		PagesScanned:    pagesVisited,
		PagesDiscovered: pagesDiscovered,
		NonWebPImages:   nonWebP,
		CurrentURL:      currentURL,
	})
}

func (w *Walker) emit(group string, eventType models.EventType, payload interface{}) {
	if w.broadcaster == nil {
		return
	}
	w.broadcaster.Broadcast(group, models.Envelope{Type: eventType, Payload: payload})
}

func (w *Walker) appendLog(ctx context.Context, scanID, level, message string) {
	if w.logs == nil {
		return
	}
	_ = w.logs.AppendLog(ctx, models.ScanLogEntry{ScanID: scanID, Timestamp: time.Now(), Level: level, Message: message})
}

func (w *Walker) complete(ctx context.Context, job *models.ScanJob, pagesScanned, pagesDiscovered, nonWebP int, reachedLimit bool) error {
	now := time.Now()
	job.Status = models.StatusCompleted
	job.CompletedAt = &now
	job.PagesScanned = pagesScanned
	job.PagesDiscovered = pagesDiscovered
	job.NonWebPImages = nonWebP
	job.ReachedPageLimit = reachedLimit

	if err := w.scans.UpdateScan(ctx, job); err != nil {
		return fmt.Errorf("failed to persist scan completion: %w", err)
	}

	if err := w.checkpoints.DeleteCheckpoint(ctx, job.ID); err != nil {
		w.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to clear checkpoint after completion")
	}

	contribution, err := w.buildContribution(ctx, job)
	if err != nil {
		w.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to build stats contribution")
	} else if stats, err := w.stats.Apply(ctx, contribution); err != nil {
		w.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to apply stats contribution")
	} else {
		w.emit(models.StatsGroup, models.EventStatsUpdate, models.StatsUpdatePayload{Stats: stats})
	}

	w.emit(models.ScanGroup(job.ID), models.EventScanComplete, models.ScanCompletePayload{
		ScanID:           job.ID,
		PagesScanned:     pagesScanned,
		PagesDiscovered:  pagesDiscovered,
		NonWebPImages:    nonWebP,
		CompletedAt:      now,
		ReachedPageLimit: reachedLimit,
	})

	if job.ConvertToWebP {
		w.buildZip(ctx, job)
	}
	w.notify(ctx, job)

	return nil
}

// buildZip transcodes every non-WebP image found this scan and archives
// the results, recording a ConvertedImageZip row for later download. Best
// effort: a failure here does not fail an otherwise-completed scan.
func (w *Walker) buildZip(ctx context.Context, job *models.ScanJob) {
	if w.zips == nil || w.zipBuilder == nil || w.transcoder == nil {
		return
	}

	images, err := w.images.ListByScan(ctx, job.ID)
	if err != nil {
		w.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to list images for zip assembly")
		return
	}
	if len(images) == 0 {
		return
	}

	var inputs []interfaces.ZipImageInput
	for i, img := range images {
		data, err := w.fetchImageBytes(ctx, img.ImageURL)
		if err != nil {
			w.logger.Debug().Err(err).Str("image_url", img.ImageURL).Msg("skipping image in zip, fetch failed")
			continue
		}
		converted, err := w.transcoder.Transcode(ctx, data, img.MimeType)
		if err != nil {
			w.logger.Debug().Err(err).Str("image_url", img.ImageURL).Msg("skipping image in zip, transcode failed")
			continue
		}
		inputs = append(inputs, interfaces.ZipImageInput{
			Filename: fmt.Sprintf("%03d-%s.webp", i+1, path.Base(img.ImageURL)),
			Data:     converted,
		})
	}
	if len(inputs) == 0 {
		return
	}

	zipPath, sizeBytes, err := w.zipBuilder.Build(ctx, job.ID, inputs)
	if err != nil {
		w.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to build converted image archive")
		return
	}

	now := time.Now()
	z := &models.ConvertedImageZip{
		DownloadID: common.NewDownloadID(),
		ScanID:     job.ID,
		Path:       zipPath,
		Filename:   filepath.Base(zipPath),
		SizeBytes:  sizeBytes,
		ImageCount: len(inputs),
		CreatedAt:  now,
		ExpiresAt:  now.Add(models.ZipTTL),
	}
	if err := w.zips.SaveZip(ctx, z); err != nil {
		w.logger.Warn().Err(err).Str("scan_id", job.ID).Msg("failed to persist zip metadata")
	}
}

// fetchImageBytes retrieves one image's full body for zip assembly. The
// probe stage only reads enough bytes to classify the format, so the
// archive step re-fetches in full.
func (w *Walker) fetchImageBytes(ctx context.Context, imageURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, w.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, imageURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

// notify fires the best-effort completion email. Fire-and-forget per
// interfaces.Notifier's contract; failures are logged by the notifier
// itself, never here.
func (w *Walker) notify(ctx context.Context, job *models.ScanJob) {
	if w.notifier == nil || job.Email == "" {
		return
	}
	w.notifier.SendScanComplete(ctx, interfaces.ScanSummaryEmail{
		To:                    job.Email,
		ScanURL:               job.URL,
		PagesScanned:          job.PagesScanned,
		NonWebPImages:         job.NonWebPImages,
		EstimatedSavingsBytes: w.estimatedSavingsBytes(job),
	})
}

func (w *Walker) estimatedSavingsBytes(job *models.ScanJob) int64 {
	images, err := w.images.ListByScan(context.Background(), job.ID)
	if err != nil {
		return 0
	}
	var total int64
	for _, img := range images {
		total += img.PotentialSavingsBytes
	}
	return total
}

func (w *Walker) buildContribution(ctx context.Context, job *models.ScanJob) (models.StatsContribution, error) {
	images, err := w.images.ListByScan(ctx, job.ID)
	if err != nil {
		return models.StatsContribution{}, err
	}

	c := models.StatsContribution{
		Scans:        1,
		PagesCrawled: int64(job.PagesScanned),
		ByMime:       make(map[string]models.MimeContribution),
		ByCategory:   make(map[string]models.CategoryContribution),
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

func (w *Walker) fail(ctx context.Context, job *models.ScanJob, cause error) error {
	now := time.Now()
	job.Status = models.StatusFailed
	job.CompletedAt = &now
	job.ErrorMessage = cause.Error()
	if err := w.scans.UpdateScan(ctx, job); err != nil {
		w.logger.Error().Err(err).Str("scan_id", job.ID).Msg("failed to persist scan failure")
	}
	w.emit(models.ScanGroup(job.ID), models.EventScanFailed, models.ScanFailedPayload{
		ScanID: job.ID, ErrorMessage: cause.Error(), CompletedAt: now,
	})
	return cause
}
