package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, loaded default -> file -> env.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production" - controls SSRF target strictness
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Admission   AdmissionConfig `toml:"admission"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Workers     WorkersConfig   `toml:"workers"`
	Retention   RetentionConfig `toml:"retention"`
	Email       EmailConfig     `toml:"email"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	ZipDir string       `toml:"zip_dir"`
}

// BadgerConfig holds BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // debug, info, warn, error
	Format     string   `toml:"format"`      // text or json
	Output     []string `toml:"output"`      // stdout, file
	TimeFormat string   `toml:"time_format"`
}

// AdmissionConfig tunes the submission gate in front of the scheduler.
type AdmissionConfig struct {
	MaxQueueDepth       int      `toml:"max_queue_depth"`
	MaxActivePerIP      int      `toml:"max_active_per_ip"`
	SubmissionCooldown  string   `toml:"submission_cooldown"` // e.g. "30s"
	MaxRequestsPerMinute int     `toml:"max_requests_per_minute"`
	// DefaultEstimatedPagesPerSite seeds the queue-wait simulation for a
	// scan whose real remaining-page count isn't known yet.
	DefaultEstimatedPagesPerSite float64  `toml:"default_estimated_pages_per_site"`
	ForwardedHeadersEnabled      bool     `toml:"forwarded_headers_enabled"`
	TrustedProxyCIDRs            []string `toml:"trusted_proxy_cidrs"`
}

// SchedulerConfig tunes the fair-share priority queue.
type SchedulerConfig struct {
	BucketWeight float64 `toml:"bucket_weight"`
	AgingRate    float64 `toml:"aging_rate"` // score points gained per second of wait, up to the bucket's cap
}

// CrawlerConfig tunes per-scan crawl behavior.
type CrawlerConfig struct {
	UserAgent        string        `toml:"user_agent"`
	MaxPages         int           `toml:"max_pages"`
	MaxConcurrency   int           `toml:"max_concurrency"` // not read; the worker pool size is workers.concurrency
	RequestTimeout   time.Duration `toml:"request_timeout"`
	FollowRobotsTxt  bool          `toml:"follow_robots_txt"`
	EnableJavaScript bool          `toml:"enable_javascript"`
	CheckpointEvery  int           `toml:"checkpoint_every"`   // pages between checkpoint saves
	PerRequestDelay  time.Duration `toml:"per_request_delay"`  // politeness delay between fetches on one host
	MaxScanDuration  time.Duration `toml:"max_scan_duration"`  // wall-clock cap per scan
}

type WorkersConfig struct {
	Concurrency int `toml:"concurrency"` // number of scans processed concurrently
}

// RetentionConfig tunes the periodic purge job.
type RetentionConfig struct {
	Schedule    string `toml:"schedule"`     // cron expression, e.g. "@every 15m"
	ScanTTL     string `toml:"scan_ttl"`     // e.g. "168h"
}

// EmailConfig holds outbound SMTP settings. APIKey-style secrets are
// env-overridable so they never need to live in the TOML file.
type EmailConfig struct {
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	From     string `toml:"from"`
	Enabled  bool   `toml:"enabled"`
	APIKey   string `toml:"-"`
}

// NewDefaultConfig returns a configuration with production-safe defaults.
// Technical parameters are hardcoded here; only user-facing settings
// belong in webpscan.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data"},
			ZipDir: "./data/zips",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Admission: AdmissionConfig{
			MaxQueueDepth:                500,
			MaxActivePerIP:               3,
			SubmissionCooldown:           "10s",
			MaxRequestsPerMinute:         20,
			DefaultEstimatedPagesPerSite: 20,
			ForwardedHeadersEnabled:      false,
		},
		Scheduler: SchedulerConfig{
			BucketWeight: 1000,
			AgingRate:    1.0,
		},
		Crawler: CrawlerConfig{
			UserAgent:        "webpscan/1.0 (+https://example.invalid/bot)",
			MaxPages:         200,
			MaxConcurrency:   4,
			RequestTimeout:   20 * time.Second,
			FollowRobotsTxt:  true,
			EnableJavaScript: false,
			CheckpointEvery:  5,
			PerRequestDelay:  200 * time.Millisecond,
			MaxScanDuration:  30 * time.Minute,
		},
		Workers: WorkersConfig{
			Concurrency: 2,
		},
		Retention: RetentionConfig{
			Schedule: "@every 15m",
			ScanTTL:  "168h",
		},
		Email: EmailConfig{
			SMTPHost: "localhost",
			SMTPPort: 25,
			From:     "webpscan@example.invalid",
			Enabled:  false,
		},
	}
}

// LoadFromFile loads configuration with priority default -> file -> env.
// An empty path skips the file layer and loads defaults plus env overrides.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides lets deployment environments override the TOML file
// without editing it, and is the only way secrets reach the process.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WEBPSCAN_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("WEBPSCAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if path := os.Getenv("WEBPSCAN_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("WEBPSCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		config.Email.APIKey = key
		config.Email.Enabled = true
	}
}

// IsProduction reports whether SSRF-sensitive validation should be strict.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
