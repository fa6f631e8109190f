package badger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// logSequence guarantees unique keys for entries appended in the same
// nanosecond.
var logSequence uint64

// LogStorage persists models.ScanLogEntry rows. Entries have no natural
// unique field, so keys are synthesized from scan ID, timestamp and a
// sequence counter.
type LogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LogStorage {
	return &LogStorage{db: db, logger: logger}
}

func (s *LogStorage) AppendLog(ctx context.Context, entry models.ScanLogEntry) error {
	seq := atomic.AddUint64(&logSequence, 1)
	key := fmt.Sprintf("%s_%d_%d", entry.ScanID, time.Now().UnixNano(), seq)
	if err := s.db.Store().Insert(key, &entry); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

func (s *LogStorage) GetLogs(ctx context.Context, scanID string, limit int) ([]models.ScanLogEntry, error) {
	var logs []models.ScanLogEntry
	query := badgerhold.Where("ScanID").Eq(scanID).SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	return logs, nil
}

func (s *LogStorage) DeleteLogs(ctx context.Context, scanID string) (int, error) {
	var logs []models.ScanLogEntry
	if err := s.db.Store().Find(&logs, badgerhold.Where("ScanID").Eq(scanID)); err != nil {
		return 0, fmt.Errorf("failed to find logs for delete: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.ScanLogEntry{}, badgerhold.Where("ScanID").Eq(scanID)); err != nil {
		return 0, fmt.Errorf("failed to delete logs: %w", err)
	}
	return len(logs), nil
}
