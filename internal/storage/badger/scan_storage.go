package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ScanStorage persists models.ScanJob rows, keyed by ID.
type ScanStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScanStorage builds a ScanStorage bound to db.
func NewScanStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScanStorage {
	return &ScanStorage{db: db, logger: logger}
}

func (s *ScanStorage) SaveScan(ctx context.Context, job *models.ScanJob) error {
	if job.ID == "" {
		return fmt.Errorf("scan ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

func (s *ScanStorage) GetScan(ctx context.Context, id string) (*models.ScanJob, error) {
	var job models.ScanJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("scan not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &job, nil
}

func (s *ScanStorage) UpdateScan(ctx context.Context, job *models.ScanJob) error {
	return s.SaveScan(ctx, job)
}

func (s *ScanStorage) ListScans(ctx context.Context, opts *interfaces.ListOptions) ([]*models.ScanJob, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(models.ScanStatus(opts.Status))
		}
		if opts.OrderDir == "ASC" {
			query = query.SortBy("CreatedAt")
		} else {
			query = query.SortBy("CreatedAt").Reverse()
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	} else {
		query = query.SortBy("CreatedAt").Reverse()
	}

	var jobs []models.ScanJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return toScanPointers(jobs), nil
}

func (s *ScanStorage) ListByStatus(ctx context.Context, status models.ScanStatus) ([]*models.ScanJob, error) {
	var jobs []models.ScanJob
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(status)); err != nil {
		return nil, fmt.Errorf("failed to list scans by status: %w", err)
	}
	return toScanPointers(jobs), nil
}

func (s *ScanStorage) CountSubmissionsByIP(ctx context.Context, ip string, statuses []models.ScanStatus) (int, error) {
	if len(statuses) == 0 {
		count, err := s.db.Store().Count(&models.ScanJob{}, badgerhold.Where("SubmitterIP").Eq(ip))
		return int(count), err
	}
	query := badgerhold.Where("SubmitterIP").Eq(ip).And("Status").In(toInterfaceSlice(statuses)...)
	count, err := s.db.Store().Count(&models.ScanJob{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions by ip: %w", err)
	}
	return int(count), nil
}

func (s *ScanStorage) LastSubmissionByIP(ctx context.Context, ip string) (bool, int64, error) {
	var jobs []models.ScanJob
	err := s.db.Store().Find(&jobs, badgerhold.Where("SubmitterIP").Eq(ip).SortBy("CreatedAt").Reverse().Limit(1))
	if err != nil {
		return false, 0, fmt.Errorf("failed to find last submission: %w", err)
	}
	if len(jobs) == 0 {
		return false, 0, nil
	}
	return true, jobs[0].CreatedAt.Unix(), nil
}

func (s *ScanStorage) DeleteScan(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.ScanJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return nil
}

func (s *ScanStorage) CountActive(ctx context.Context) (int, error) {
	query := badgerhold.Where("Status").In(
		interface{}(models.StatusQueued), interface{}(models.StatusProcessing),
	)
	count, err := s.db.Store().Count(&models.ScanJob{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count active scans: %w", err)
	}
	return int(count), nil
}

func (s *ScanStorage) ExpiredTerminal(ctx context.Context, cutoffUnix int64) ([]*models.ScanJob, error) {
	var jobs []models.ScanJob
	query := badgerhold.Where("Status").In(
		interface{}(models.StatusCompleted), interface{}(models.StatusFailed),
	)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to find expired scans: %w", err)
	}

	var expired []*models.ScanJob
	for i := range jobs {
		completedAt := jobs[i].CompletedAt
		if completedAt != nil && completedAt.Unix() < cutoffUnix {
			expired = append(expired, &jobs[i])
		}
	}
	return expired, nil
}

func toScanPointers(jobs []models.ScanJob) []*models.ScanJob {
	result := make([]*models.ScanJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result
}

func toInterfaceSlice(statuses []models.ScanStatus) []interface{} {
	out := make([]interface{}, len(statuses))
	for i, s := range statuses {
		out[i] = s
	}
	return out
}
