package retention

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

type fakeScans struct {
	jobs    map[string]*models.ScanJob
	deleted []string
}

func (f *fakeScans) SaveScan(ctx context.Context, job *models.ScanJob) error { return nil }
func (f *fakeScans) GetScan(ctx context.Context, id string) (*models.ScanJob, error) {
	return f.jobs[id], nil
}
func (f *fakeScans) UpdateScan(ctx context.Context, job *models.ScanJob) error { return nil }
func (f *fakeScans) ListScans(ctx context.Context, opts *interfaces.ListOptions) ([]*models.ScanJob, error) {
	return nil, nil
}
func (f *fakeScans) ListByStatus(ctx context.Context, status models.ScanStatus) ([]*models.ScanJob, error) {
	return nil, nil
}
func (f *fakeScans) CountSubmissionsByIP(ctx context.Context, ip string, statuses []models.ScanStatus) (int, error) {
	return 0, nil
}
func (f *fakeScans) LastSubmissionByIP(ctx context.Context, ip string) (bool, int64, error) {
	return false, 0, nil
}
func (f *fakeScans) DeleteScan(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.jobs, id)
	return nil
}
func (f *fakeScans) CountActive(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeScans) ExpiredTerminal(ctx context.Context, cutoffUnix int64) ([]*models.ScanJob, error) {
	var out []*models.ScanJob
	for _, j := range f.jobs {
		if j.IsTerminal() && j.CompletedAt != nil && j.CompletedAt.Unix() < cutoffUnix {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeImages struct {
	byScan map[string][]*models.DiscoveredImage
}

func (f *fakeImages) UpsertImage(ctx context.Context, img *models.DiscoveredImage) error { return nil }
func (f *fakeImages) GetImage(ctx context.Context, id string) (*models.DiscoveredImage, error) {
	return nil, nil
}
func (f *fakeImages) FindByURL(ctx context.Context, scanID, imageURL string) (*models.DiscoveredImage, error) {
	return nil, nil
}
func (f *fakeImages) ListByScan(ctx context.Context, scanID string) ([]*models.DiscoveredImage, error) {
	return f.byScan[scanID], nil
}
func (f *fakeImages) DeleteByScan(ctx context.Context, scanID string) (int, error) {
	n := len(f.byScan[scanID])
	delete(f.byScan, scanID)
	return n, nil
}

type fakeCheckpoints struct{ deleted []string }

func (f *fakeCheckpoints) SaveCheckpoint(ctx context.Context, cp *models.CrawlCheckpoint) error {
	return nil
}
func (f *fakeCheckpoints) GetCheckpoint(ctx context.Context, scanID string) (*models.CrawlCheckpoint, error) {
	return nil, nil
}
func (f *fakeCheckpoints) DeleteCheckpoint(ctx context.Context, scanID string) error {
	f.deleted = append(f.deleted, scanID)
	return nil
}

type fakeZips struct{}

func (f *fakeZips) SaveZip(ctx context.Context, z *models.ConvertedImageZip) error { return nil }
func (f *fakeZips) GetZip(ctx context.Context, downloadID string) (*models.ConvertedImageZip, error) {
	return nil, nil
}
func (f *fakeZips) GetZipByScan(ctx context.Context, scanID string) (*models.ConvertedImageZip, error) {
	return nil, nil
}
func (f *fakeZips) ListExpired(ctx context.Context, nowUnix int64) ([]*models.ConvertedImageZip, error) {
	return nil, nil
}
func (f *fakeZips) DeleteZip(ctx context.Context, downloadID string) error { return nil }

type fakeLogs struct{ deleted []string }

func (f *fakeLogs) AppendLog(ctx context.Context, entry models.ScanLogEntry) error { return nil }
func (f *fakeLogs) GetLogs(ctx context.Context, scanID string, limit int) ([]models.ScanLogEntry, error) {
	return nil, nil
}
func (f *fakeLogs) DeleteLogs(ctx context.Context, scanID string) (int, error) {
	f.deleted = append(f.deleted, scanID)
	return 0, nil
}

type fakeStats struct {
	applied []models.StatsContribution
}

func (f *fakeStats) GetStats(ctx context.Context) (*models.AggregateStats, error) {
	return &models.AggregateStats{}, nil
}
func (f *fakeStats) Apply(ctx context.Context, c models.StatsContribution) (*models.AggregateStats, error) {
	f.applied = append(f.applied, c)
	return &models.AggregateStats{}, nil
}
func (f *fakeStats) ListByMime(ctx context.Context) ([]*models.AggregateImageTypeStat, error) {
	return nil, nil
}
func (f *fakeStats) ListByCategory(ctx context.Context) ([]*models.AggregateCategoryStat, error) {
	return nil, nil
}

func TestPurgeDeletesExpiredScanAndSubtractsContribution(t *testing.T) {
	completedAt := time.Now().Add(-200 * time.Hour)
	scans := &fakeScans{jobs: map[string]*models.ScanJob{
		"old-scan": {ID: "old-scan", Status: models.StatusCompleted, PagesScanned: 4, CompletedAt: &completedAt},
	}}
	images := &fakeImages{byScan: map[string][]*models.DiscoveredImage{
		"old-scan": {
			{ScanID: "old-scan", ImageURL: "http://x/a.png", MimeType: "image/png", SizeBytes: 1000, PotentialSavingsBytes: 600, PotentialSavingsPct: 60, Category: "Other"},
		},
	}}
	checkpoints := &fakeCheckpoints{}
	zips := &fakeZips{}
	logs := &fakeLogs{}
	stats := &fakeStats{}

	p := New(scans, images, checkpoints, zips, logs, stats, "@every 1h", 168*time.Hour, arbor.NewLogger())

	n, err := p.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 scan purged, got %d", n)
	}
	if len(scans.deleted) != 1 || scans.deleted[0] != "old-scan" {
		t.Fatalf("expected old-scan to be deleted, got %v", scans.deleted)
	}
	if _, ok := images.byScan["old-scan"]; ok {
		t.Fatal("expected images to be deleted")
	}
	if len(checkpoints.deleted) != 1 {
		t.Fatal("expected checkpoint to be deleted")
	}
	if len(logs.deleted) != 1 {
		t.Fatal("expected logs to be deleted")
	}
	if len(stats.applied) != 1 {
		t.Fatalf("expected one stats contribution applied, got %d", len(stats.applied))
	}
	got := stats.applied[0]
	if got.Scans != -1 {
		t.Fatalf("expected negated scan count -1, got %d", got.Scans)
	}
	if got.OriginalSizeBytes != -1000 {
		t.Fatalf("expected negated original size -1000, got %d", got.OriginalSizeBytes)
	}
	if mime := got.ByMime["image/png"]; mime.Count != -1 || mime.OriginalSize != -1000 {
		t.Fatalf("unexpected negated mime contribution: %+v", mime)
	}
}

func TestPurgeLeavesScansWithinTTL(t *testing.T) {
	completedAt := time.Now().Add(-1 * time.Hour)
	scans := &fakeScans{jobs: map[string]*models.ScanJob{
		"recent-scan": {ID: "recent-scan", Status: models.StatusCompleted, CompletedAt: &completedAt},
	}}
	images := &fakeImages{byScan: map[string][]*models.DiscoveredImage{}}
	p := New(scans, images, &fakeCheckpoints{}, &fakeZips{}, &fakeLogs{}, &fakeStats{}, "@every 1h", 168*time.Hour, arbor.NewLogger())

	n, err := p.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 purged within TTL, got %d", n)
	}
	if len(scans.deleted) != 0 {
		t.Fatal("expected recent scan to survive purge")
	}
}

func TestPurgeFailedScanContributesNothingToNegate(t *testing.T) {
	completedAt := time.Now().Add(-200 * time.Hour)
	scans := &fakeScans{jobs: map[string]*models.ScanJob{
		"failed-scan": {ID: "failed-scan", Status: models.StatusFailed, CompletedAt: &completedAt},
	}}
	stats := &fakeStats{}
	p := New(scans, &fakeImages{byScan: map[string][]*models.DiscoveredImage{}}, &fakeCheckpoints{}, &fakeZips{}, &fakeLogs{}, stats, "@every 1h", 168*time.Hour, arbor.NewLogger())

	n, err := p.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected failed scan to still be purged, got %d", n)
	}
	if len(stats.applied) != 0 {
		t.Fatalf("expected no stats contribution for a failed scan, got %d applied", len(stats.applied))
	}
}
