package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "webpscan-badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestScanStorageSaveAndGet(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewScanStorage(db, logger)
	ctx := context.Background()

	job := &models.ScanJob{
		ID:          "scan_1",
		URL:         "https://example.com",
		SubmitterIP: "203.0.113.5",
		Status:      models.StatusQueued,
		CreatedAt:   time.Now(),
	}
	if err := storage.SaveScan(ctx, job); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	got, err := storage.GetScan(ctx, "scan_1")
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if got.URL != job.URL {
		t.Fatalf("expected URL %q, got %q", job.URL, got.URL)
	}
}

func TestScanStorageCountSubmissionsByIP(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job := &models.ScanJob{
			ID:          "scan_ip_" + string(rune('a'+i)),
			URL:         "https://example.com",
			SubmitterIP: "203.0.113.9",
			Status:      models.StatusQueued,
			CreatedAt:   time.Now(),
		}
		if err := storage.SaveScan(ctx, job); err != nil {
			t.Fatalf("SaveScan %d: %v", i, err)
		}
	}

	count, err := storage.CountSubmissionsByIP(ctx, "203.0.113.9", []models.ScanStatus{models.StatusQueued, models.StatusProcessing})
	if err != nil {
		t.Fatalf("CountSubmissionsByIP: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 active submissions, got %d", count)
	}
}

func TestScanStorageExpiredTerminal(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	job := &models.ScanJob{
		ID:          "scan_old",
		URL:         "https://example.com",
		Status:      models.StatusCompleted,
		CreatedAt:   old,
		CompletedAt: &old,
	}
	if err := storage.SaveScan(ctx, job); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour).Unix()
	expired, err := storage.ExpiredTerminal(ctx, cutoff)
	if err != nil {
		t.Fatalf("ExpiredTerminal: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired scan, got %d", len(expired))
	}
}
