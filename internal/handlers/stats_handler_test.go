package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/webpscan/internal/models"
)

type fakeStatsStorage struct {
	agg        *models.AggregateStats
	byMime     []*models.AggregateImageTypeStat
	byCategory []*models.AggregateCategoryStat
}

func (f *fakeStatsStorage) GetStats(ctx context.Context) (*models.AggregateStats, error) {
	return f.agg, nil
}
func (f *fakeStatsStorage) Apply(ctx context.Context, contribution models.StatsContribution) (*models.AggregateStats, error) {
	return f.agg, nil
}
func (f *fakeStatsStorage) ListByMime(ctx context.Context) ([]*models.AggregateImageTypeStat, error) {
	return f.byMime, nil
}
func (f *fakeStatsStorage) ListByCategory(ctx context.Context) ([]*models.AggregateCategoryStat, error) {
	return f.byCategory, nil
}

func TestStatsHandlerGetReturnsTotalsAndBreakdowns(t *testing.T) {
	stats := &fakeStatsStorage{
		agg: &models.AggregateStats{TotalScans: 10, TotalImagesFound: 4, SumOfSavingsPercent: 200},
		byMime: []*models.AggregateImageTypeStat{
			{MimeType: "image/png", ImageCount: 3, OriginalSize: 3000, EstimatedSize: 1500},
		},
		byCategory: []*models.AggregateCategoryStat{
			{Category: "photo", ImageCount: 2, OriginalSize: 2000},
		},
	}
	h := NewStatsHandler(stats, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan/stats", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.TotalScans != 10 || resp.AverageSavingsPercent != 50 {
		t.Fatalf("unexpected totals: %+v", resp)
	}
	if len(resp.ByMimeType) != 1 || resp.ByMimeType[0].MimeType != "image/png" {
		t.Fatalf("unexpected mime breakdown: %+v", resp.ByMimeType)
	}
	if len(resp.ByCategory) != 1 || resp.ByCategory[0].Category != "photo" {
		t.Fatalf("unexpected category breakdown: %+v", resp.ByCategory)
	}
}
