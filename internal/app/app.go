package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webpscan/internal/admission"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/crawler"
	"github.com/ternarybob/webpscan/internal/handlers"
	"github.com/ternarybob/webpscan/internal/imageanalyzer"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/notify"
	"github.com/ternarybob/webpscan/internal/progress"
	"github.com/ternarybob/webpscan/internal/report"
	"github.com/ternarybob/webpscan/internal/retention"
	"github.com/ternarybob/webpscan/internal/savings"
	"github.com/ternarybob/webpscan/internal/scheduler"
	"github.com/ternarybob/webpscan/internal/storage/badger"
	"github.com/ternarybob/webpscan/internal/validation"
	"github.com/ternarybob/webpscan/internal/webp"
	"github.com/ternarybob/webpscan/internal/workerpool"
	"github.com/ternarybob/webpscan/internal/zipbuilder"
)

// avgSecondsPerPage seeds the queue-wait simulation's pages-to-seconds
// conversion. There's no real per-page timing history yet, so this
// approximates one page's worth of fetch-then-politeness-delay work.
const avgSecondsPerPage = 2.0

// App wires every component together and owns their lifecycle.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Storage   interfaces.StorageManager
	Scheduler interfaces.Scheduler
	Admission interfaces.Admission
	Hub       *progress.Hub
	Pool      *workerpool.Pool
	Purger    *retention.Purger

	Mux *http.ServeMux

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the App and every component it owns, but does not start any
// background loops; call Start for that.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{Config: cfg, Logger: logger, ctx: ctx, cancel: cancel}

	if err := a.initStorage(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	components, err := a.initComponents()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	a.Mux = handlers.NewMux(components.routes)

	logger.Info().
		Str("environment", cfg.Environment).
		Int("workers", cfg.Workers.Concurrency).
		Bool("email_enabled", cfg.Email.Enabled).
		Msg("webpscan application initialized")

	return a, nil
}

func (a *App) initStorage() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.Storage = storageManager
	a.Logger.Info().Str("path", a.Config.Storage.Badger.Path).Msg("badger storage opened")
	return nil
}

// wiredComponents holds everything initComponents builds that app.go's
// fields don't otherwise need to keep a handle to.
type wiredComponents struct {
	routes handlers.Routes
}

func (a *App) initComponents() (*wiredComponents, error) {
	cfg := a.Config
	logger := a.Logger
	storage := a.Storage

	validator := validation.NewValidator(cfg.IsProduction())
	trustedProxies := common.NewTrustedProxies(cfg.Admission.TrustedProxyCIDRs)

	sched := scheduler.New(cfg.Scheduler, logger)
	a.Scheduler = sched

	gate, err := admission.NewGate(storage.Scans(), sched, cfg.Admission, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build admission gate: %w", err)
	}
	a.Admission = gate

	hub := progress.NewHub(logger)
	a.Hub = hub

	waitEstimator := progress.NewWaitEstimator(cfg.Admission.DefaultEstimatedPagesPerSite, avgSecondsPerPage)

	fetcher := crawler.NewHTTPFetcher(cfg.Crawler, logger)
	var jsFetcher interfaces.PageFetcher
	if cfg.Crawler.EnableJavaScript {
		jsFetcher = crawler.NewChromedpFetcher(cfg.Crawler, logger)
	}
	extractor := crawler.NewExtractor(logger)
	robotsChecker := crawler.NewRobotsCache(http.DefaultClient, logger)
	probe := imageanalyzer.New(cfg.Crawler.RequestTimeout, logger)
	estimator := savings.New()
	notifier := notify.New(cfg.Email, logger)
	renderer := report.New(logger)
	zipBuild := zipbuilder.New(cfg.Storage.ZipDir, logger)
	transcoder := webp.New(logger)

	walker := crawler.New(
		storage.Scans(),
		storage.Images(),
		storage.Checkpoints(),
		storage.Logs(),
		storage.Stats(),
		fetcher,
		jsFetcher,
		extractor,
		robotsChecker,
		probe,
		estimator,
		hub,
		storage.Zips(),
		zipBuild,
		transcoder,
		notifier,
		cfg.Crawler,
		logger,
	)

	pool := workerpool.New(sched, storage.Scans(), storage.Checkpoints(), walker, cfg.Workers.Concurrency, logger)
	a.Pool = pool

	ttl, err := time.ParseDuration(cfg.Retention.ScanTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid retention scan_ttl %q: %w", cfg.Retention.ScanTTL, err)
	}
	purger := retention.New(storage.Scans(), storage.Images(), storage.Checkpoints(), storage.Zips(), storage.Logs(), storage.Stats(), cfg.Retention.Schedule, ttl, logger)
	a.Purger = purger

	routes := handlers.Routes{
		Scan:   handlers.NewScanHandler(validator, gate, storage.Scans(), sched, waitEstimator, trustedProxies, cfg.Crawler.MaxPages, logger),
		Report: handlers.NewReportHandler(storage.Scans(), storage.Images(), renderer, logger),
		Images: handlers.NewImagesHandler(storage.Zips(), logger),
		Stats:  handlers.NewStatsHandler(storage.Stats(), logger),
		Health: handlers.NewHealthHandler(storage.Scans(), sched, logger),
		Config: handlers.NewConfigHandler(cfg.Email),
		WS:     handlers.NewWSHandler(hub, storage.Scans(), storage.Checkpoints(), sched, logger),
	}

	return &wiredComponents{routes: routes}, nil
}

// Start recovers any scans left Processing by a prior crash, then launches
// the worker pool and the retention cron.
func (a *App) Start() error {
	if err := workerpool.RecoverCrashed(a.ctx, a.Storage.Scans(), a.Scheduler, a.Logger); err != nil {
		return fmt.Errorf("failed to recover crashed scans: %w", err)
	}
	a.Pool.Start()
	if err := a.Purger.Start(); err != nil {
		return fmt.Errorf("failed to start retention purge job: %w", err)
	}
	a.Logger.Info().Msg("webpscan background services started")
	return nil
}

// Close stops background work and releases storage. Safe to call once
// during shutdown.
func (a *App) Close() error {
	a.cancel()
	a.Pool.Stop()
	a.Purger.Stop()
	return a.Storage.Close()
}
