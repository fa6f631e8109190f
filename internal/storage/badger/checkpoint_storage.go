package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CheckpointStorage persists one models.CrawlCheckpoint per scan, keyed by
// ScanID.
type CheckpointStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewCheckpointStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CheckpointStorage {
	return &CheckpointStorage{db: db, logger: logger}
}

func (s *CheckpointStorage) SaveCheckpoint(ctx context.Context, cp *models.CrawlCheckpoint) error {
	if cp.ScanID == "" {
		return fmt.Errorf("checkpoint scan ID is required")
	}
	if err := s.db.Store().Upsert(cp.ScanID, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *CheckpointStorage) GetCheckpoint(ctx context.Context, scanID string) (*models.CrawlCheckpoint, error) {
	var cp models.CrawlCheckpoint
	if err := s.db.Store().Get(scanID, &cp); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *CheckpointStorage) DeleteCheckpoint(ctx context.Context, scanID string) error {
	if err := s.db.Store().Delete(scanID, &models.CrawlCheckpoint{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
