package badger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

const statsRowID = 1

// retryBackoffs is the fixed 10ms/40ms/160ms schedule applied between
// optimistic-concurrency retries on the singleton stats row.
var retryBackoffs = []time.Duration{10 * time.Millisecond, 40 * time.Millisecond, 160 * time.Millisecond}

// StatsStorage persists the singleton models.AggregateStats row (id=1)
// plus its per-mime and per-category child rows. Apply uses the row's
// Version field as an optimistic-concurrency token: a contribution is
// applied by read -> mutate copy -> UpdateMatching(Version == seen),
// retried with jittered backoff on conflict.
type StatsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewStatsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StatsStorage {
	return &StatsStorage{db: db, logger: logger}
}

func (s *StatsStorage) GetStats(ctx context.Context) (*models.AggregateStats, error) {
	var stats models.AggregateStats
	if err := s.db.Store().Get(statsRowID, &stats); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.AggregateStats{ID: statsRowID, LastUpdated: time.Now()}, nil
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

func (s *StatsStorage) Apply(ctx context.Context, contribution models.StatsContribution) (*models.AggregateStats, error) {
	var updated *models.AggregateStats
	var lastErr error

	attempts := len(retryBackoffs) + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(retryBackoffs[attempt-1] / 2)))
			time.Sleep(retryBackoffs[attempt-1] + jitter)
		}

		current, err := s.GetStats(ctx)
		if err != nil {
			return nil, err
		}
		seenVersion := current.Version

		next := applyContribution(current, contribution)
		next.Version = seenVersion + 1
		next.LastUpdated = time.Now()

		if seenVersion == 0 {
			// row does not exist yet; Insert fails if another writer beat us to it
			if err := s.db.Store().Insert(statsRowID, next); err != nil {
				lastErr = err
				continue
			}
		} else {
			matched, err := s.db.Store().UpdateMatching(&models.AggregateStats{}, badgerhold.Where("ID").Eq(statsRowID).And("Version").Eq(seenVersion), func(record interface{}) error {
				row, ok := record.(*models.AggregateStats)
				if !ok {
					return fmt.Errorf("unexpected record type")
				}
				*row = *next
				return nil
			})
			if err != nil {
				lastErr = err
				continue
			}
			if matched == 0 {
				lastErr = fmt.Errorf("version conflict on stats row")
				continue
			}
		}

		if err := s.applyChildContributions(ctx, contribution); err != nil {
			lastErr = err
			continue
		}

		updated = next
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to apply stats contribution after retries: %w", lastErr)
	}
	return updated, nil
}

func applyContribution(current *models.AggregateStats, c models.StatsContribution) *models.AggregateStats {
	next := *current
	next.TotalScans = clampNonNegative(next.TotalScans + c.Scans)
	next.TotalPagesCrawled = clampNonNegative(next.TotalPagesCrawled + c.PagesCrawled)
	next.TotalImagesFound = clampNonNegative(next.TotalImagesFound + c.ImagesFound)
	next.TotalOriginalSizeBytes = clampNonNegative(next.TotalOriginalSizeBytes + c.OriginalSizeBytes)
	next.TotalEstimatedWebPBytes = clampNonNegative(next.TotalEstimatedWebPBytes + c.EstimatedWebPBytes)
	next.SumOfSavingsPercent += c.SavingsPercentSum
	if next.SumOfSavingsPercent < 0 {
		next.SumOfSavingsPercent = 0
	}
	return &next
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func (s *StatsStorage) applyChildContributions(ctx context.Context, c models.StatsContribution) error {
	for mime, delta := range c.ByMime {
		if err := s.upsertMimeStat(mime, delta); err != nil {
			return err
		}
	}
	for category, delta := range c.ByCategory {
		if err := s.upsertCategoryStat(category, delta); err != nil {
			return err
		}
	}
	return nil
}

func (s *StatsStorage) upsertMimeStat(mime string, delta models.MimeContribution) error {
	var existing models.AggregateImageTypeStat
	err := s.db.Store().Get(mime, &existing)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to read mime stat: %w", err)
	}
	if err == badgerhold.ErrNotFound {
		existing = models.AggregateImageTypeStat{MimeType: mime}
	}
	existing.ImageCount = clampNonNegative(existing.ImageCount + delta.Count)
	existing.OriginalSize = clampNonNegative(existing.OriginalSize + delta.OriginalSize)
	existing.EstimatedSize = clampNonNegative(existing.EstimatedSize + delta.EstimatedSize)
	existing.Version++
	return s.db.Store().Upsert(mime, &existing)
}

func (s *StatsStorage) upsertCategoryStat(category string, delta models.CategoryContribution) error {
	var existing models.AggregateCategoryStat
	err := s.db.Store().Get(category, &existing)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to read category stat: %w", err)
	}
	if err == badgerhold.ErrNotFound {
		existing = models.AggregateCategoryStat{Category: category}
	}
	existing.ImageCount = clampNonNegative(existing.ImageCount + delta.Count)
	existing.OriginalSize = clampNonNegative(existing.OriginalSize + delta.OriginalSize)
	existing.Version++
	return s.db.Store().Upsert(category, &existing)
}

func (s *StatsStorage) ListByMime(ctx context.Context) ([]*models.AggregateImageTypeStat, error) {
	var rows []models.AggregateImageTypeStat
	if err := s.db.Store().Find(&rows, badgerhold.Where("MimeType").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list mime stats: %w", err)
	}
	result := make([]*models.AggregateImageTypeStat, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

func (s *StatsStorage) ListByCategory(ctx context.Context) ([]*models.AggregateCategoryStat, error) {
	var rows []models.AggregateCategoryStat
	if err := s.db.Store().Find(&rows, badgerhold.Where("Category").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list category stats: %w", err)
	}
	result := make([]*models.AggregateCategoryStat, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}
