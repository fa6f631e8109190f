package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

type fakeScheduler struct {
	mu    sync.Mutex
	queue []string
}

func (f *fakeScheduler) Enqueue(ctx context.Context, scanID, submitterIP string, submissionCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, scanID)
	return nil
}
func (f *fakeScheduler) Claim(ctx context.Context) (string, bool) {
	for {
		f.mu.Lock()
		if len(f.queue) > 0 {
			id := f.queue[0]
			f.queue = f.queue[1:]
			f.mu.Unlock()
			return id, true
		}
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(2 * time.Millisecond):
		}
	}
}
func (f *fakeScheduler) Position(scanID string) int { return 0 }
func (f *fakeScheduler) Len() int                   { f.mu.Lock(); defer f.mu.Unlock(); return len(f.queue) }

type countingCrawler struct {
	runs int32
}

func (c *countingCrawler) Run(ctx context.Context, scanID string) error {
	atomic.AddInt32(&c.runs, 1)
	return nil
}

type fakeScanStorageForPool struct {
	mu   sync.Mutex
	jobs []*models.ScanJob
}

func (f *fakeScanStorageForPool) SaveScan(ctx context.Context, job *models.ScanJob) error { return nil }
func (f *fakeScanStorageForPool) GetScan(ctx context.Context, id string) (*models.ScanJob, error) {
	return nil, nil
}
func (f *fakeScanStorageForPool) UpdateScan(ctx context.Context, job *models.ScanJob) error {
	return nil
}
func (f *fakeScanStorageForPool) ListScans(ctx context.Context, opts *interfaces.ListOptions) ([]*models.ScanJob, error) {
	return nil, nil
}
func (f *fakeScanStorageForPool) ListByStatus(ctx context.Context, status models.ScanStatus) ([]*models.ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ScanJob
	for _, j := range f.jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}
func (f *fakeScanStorageForPool) CountSubmissionsByIP(ctx context.Context, ip string, statuses []models.ScanStatus) (int, error) {
	return 0, nil
}
func (f *fakeScanStorageForPool) LastSubmissionByIP(ctx context.Context, ip string) (bool, int64, error) {
	return false, 0, nil
}
func (f *fakeScanStorageForPool) DeleteScan(ctx context.Context, id string) error { return nil }
func (f *fakeScanStorageForPool) CountActive(ctx context.Context) (int, error)    { return 0, nil }
func (f *fakeScanStorageForPool) ExpiredTerminal(ctx context.Context, cutoffUnix int64) ([]*models.ScanJob, error) {
	return nil, nil
}

func TestPoolClaimsAndRunsScans(t *testing.T) {
	sched := &fakeScheduler{}
	crawler := &countingCrawler{}

	_ = sched.Enqueue(context.Background(), "scan-1", "1.1.1.1", 1)
	_ = sched.Enqueue(context.Background(), "scan-2", "2.2.2.2", 1)

	pool := New(sched, nil, nil, crawler, 2, arbor.NewLogger())
	pool.Start()

	deadline := time.Now().Add(500 * time.Millisecond)
	for atomic.LoadInt32(&crawler.runs) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	pool.Stop()

	if got := atomic.LoadInt32(&crawler.runs); got != 2 {
		t.Fatalf("expected both queued scans to run, got %d", got)
	}
}

func TestRecoverCrashedReenqueuesStuckScans(t *testing.T) {
	store := &fakeScanStorageForPool{jobs: []*models.ScanJob{
		{ID: "scan-stuck", SubmitterIP: "3.3.3.3", Status: models.StatusProcessing},
	}}
	sched := &fakeScheduler{}

	if err := RecoverCrashed(context.Background(), store, sched, arbor.NewLogger()); err != nil {
		t.Fatalf("RecoverCrashed: %v", err)
	}

	if sched.Len() != 1 {
		t.Fatalf("expected stuck scan to be re-enqueued, queue length = %d", sched.Len())
	}
}
