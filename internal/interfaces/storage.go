package interfaces

import (
	"context"

	"github.com/ternarybob/webpscan/internal/models"
)

// ListOptions is shared pagination/filter input for list queries.
type ListOptions struct {
	Status   string
	Limit    int
	Offset   int
	OrderDir string // ASC or DESC, applied to CreatedAt
}

// ScanStorage persists ScanJob rows.
type ScanStorage interface {
	SaveScan(ctx context.Context, job *models.ScanJob) error
	GetScan(ctx context.Context, id string) (*models.ScanJob, error)
	UpdateScan(ctx context.Context, job *models.ScanJob) error
	ListScans(ctx context.Context, opts *ListOptions) ([]*models.ScanJob, error)
	ListByStatus(ctx context.Context, status models.ScanStatus) ([]*models.ScanJob, error)
	// CountSubmissionsByIP counts scans submitted by ip whose status is in
	// statuses; an empty statuses counts every scan ip has submitted.
	CountSubmissionsByIP(ctx context.Context, ip string, statuses []models.ScanStatus) (int, error)
	// LastSubmissionByIP reports whether ip has submitted before and, if so,
	// the most recent scan's CreatedAt in Unix seconds (0 when exists is false).
	LastSubmissionByIP(ctx context.Context, ip string) (exists bool, createdAt int64, err error)
	DeleteScan(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int, error)
	// ExpiredTerminal returns scans completed/failed before cutoffUnix, for
	// retention purge.
	ExpiredTerminal(ctx context.Context, cutoffUnix int64) ([]*models.ScanJob, error)
}

// ImageStorage persists DiscoveredImage rows, keyed by (ScanID, ImageURL).
type ImageStorage interface {
	UpsertImage(ctx context.Context, img *models.DiscoveredImage) error
	GetImage(ctx context.Context, id string) (*models.DiscoveredImage, error)
	FindByURL(ctx context.Context, scanID, imageURL string) (*models.DiscoveredImage, error)
	ListByScan(ctx context.Context, scanID string) ([]*models.DiscoveredImage, error)
	DeleteByScan(ctx context.Context, scanID string) (int, error)
}

// CheckpointStorage persists one CrawlCheckpoint per scan.
type CheckpointStorage interface {
	SaveCheckpoint(ctx context.Context, cp *models.CrawlCheckpoint) error
	GetCheckpoint(ctx context.Context, scanID string) (*models.CrawlCheckpoint, error)
	DeleteCheckpoint(ctx context.Context, scanID string) error
}

// ZipStorage persists ConvertedImageZip metadata rows; the backing file on
// disk is managed by the zipbuilder package.
type ZipStorage interface {
	SaveZip(ctx context.Context, z *models.ConvertedImageZip) error
	GetZip(ctx context.Context, downloadID string) (*models.ConvertedImageZip, error)
	GetZipByScan(ctx context.Context, scanID string) (*models.ConvertedImageZip, error)
	ListExpired(ctx context.Context, nowUnix int64) ([]*models.ConvertedImageZip, error)
	DeleteZip(ctx context.Context, downloadID string) error
}

// StatsStorage persists the singleton AggregateStats row and its child
// breakdown tables. Subtraction is an Apply of a negated contribution; the
// singleton row is updated under optimistic-concurrency control keyed on
// Version.
type StatsStorage interface {
	GetStats(ctx context.Context) (*models.AggregateStats, error)
	// Apply adds contribution to the singleton row, retrying on a Version
	// conflict. Returns the updated row.
	Apply(ctx context.Context, contribution models.StatsContribution) (*models.AggregateStats, error)
	ListByMime(ctx context.Context) ([]*models.AggregateImageTypeStat, error)
	ListByCategory(ctx context.Context) ([]*models.AggregateCategoryStat, error)
}

// LogStorage persists a scan's per-job audit trail.
type LogStorage interface {
	AppendLog(ctx context.Context, entry models.ScanLogEntry) error
	GetLogs(ctx context.Context, scanID string, limit int) ([]models.ScanLogEntry, error)
	DeleteLogs(ctx context.Context, scanID string) (int, error)
}

// StorageManager is the composite root handed to app wiring.
type StorageManager interface {
	Scans() ScanStorage
	Images() ImageStorage
	Checkpoints() CheckpointStorage
	Zips() ZipStorage
	Stats() StatsStorage
	Logs() LogStorage
	Close() error
}
