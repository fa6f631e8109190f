package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

type fakeImageStorage struct {
	byScan map[string][]*models.DiscoveredImage
}

func (f *fakeImageStorage) UpsertImage(ctx context.Context, img *models.DiscoveredImage) error {
	return nil
}
func (f *fakeImageStorage) GetImage(ctx context.Context, id string) (*models.DiscoveredImage, error) {
	return nil, nil
}
func (f *fakeImageStorage) FindByURL(ctx context.Context, scanID, imageURL string) (*models.DiscoveredImage, error) {
	return nil, nil
}
func (f *fakeImageStorage) ListByScan(ctx context.Context, scanID string) ([]*models.DiscoveredImage, error) {
	return f.byScan[scanID], nil
}
func (f *fakeImageStorage) DeleteByScan(ctx context.Context, scanID string) (int, error) {
	return 0, nil
}

type fakeRenderer struct {
	received interfaces.ReportData
}

func (f *fakeRenderer) Render(scan interfaces.ReportData) ([]byte, error) {
	f.received = scan
	return []byte("%PDF-fake"), nil
}

func TestReportHandlerRejectsIncompleteScan(t *testing.T) {
	scans := &fakeScanStorage{jobs: map[string]*models.ScanJob{
		"scan-1": {ID: "scan-1", Status: models.StatusProcessing},
	}}
	h := NewReportHandler(scans, &fakeImageStorage{}, &fakeRenderer{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan/scan-1/report", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req, "scan-1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReportHandlerRendersCompletedScan(t *testing.T) {
	scans := &fakeScanStorage{jobs: map[string]*models.ScanJob{
		"scan-1": {ID: "scan-1", URL: "https://example.com", Status: models.StatusCompleted, PagesScanned: 5, NonWebPImages: 2},
	}}
	images := &fakeImageStorage{byScan: map[string][]*models.DiscoveredImage{
		"scan-1": {
			{ImageURL: "https://example.com/a.png", MimeType: "image/png", SizeBytes: 1000, PotentialSavingsBytes: 400},
			{ImageURL: "https://example.com/b.jpg", MimeType: "image/jpeg", SizeBytes: 500, PotentialSavingsBytes: 100},
		},
	}}
	renderer := &fakeRenderer{}
	h := NewReportHandler(scans, images, renderer, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan/scan-1/report", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req, "scan-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if renderer.received.EstimatedSavingsBytes != 500 {
		t.Fatalf("expected total savings 500, got %d", renderer.received.EstimatedSavingsBytes)
	}
	if len(renderer.received.TopImages) != 2 {
		t.Fatalf("expected 2 image rows, got %d", len(renderer.received.TopImages))
	}
	if renderer.received.TopImages[0].ImageURL != "https://example.com/a.png" {
		t.Fatalf("expected images sorted by savings descending, got %+v", renderer.received.TopImages)
	}
}

func TestReportHandlerReturns404ForUnknownScan(t *testing.T) {
	h := NewReportHandler(&fakeScanStorage{jobs: map[string]*models.ScanJob{}}, &fakeImageStorage{}, &fakeRenderer{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan/missing/report", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
