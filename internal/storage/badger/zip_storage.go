package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ZipStorage persists models.ConvertedImageZip metadata, keyed by
// DownloadID. The zip file body itself lives on disk, managed by the
// zipbuilder package.
type ZipStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewZipStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ZipStorage {
	return &ZipStorage{db: db, logger: logger}
}

func (s *ZipStorage) SaveZip(ctx context.Context, z *models.ConvertedImageZip) error {
	if z.DownloadID == "" {
		return fmt.Errorf("download ID is required")
	}
	if err := s.db.Store().Upsert(z.DownloadID, z); err != nil {
		return fmt.Errorf("failed to save zip: %w", err)
	}
	return nil
}

func (s *ZipStorage) GetZip(ctx context.Context, downloadID string) (*models.ConvertedImageZip, error) {
	var z models.ConvertedImageZip
	if err := s.db.Store().Get(downloadID, &z); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("zip not found: %s", downloadID)
		}
		return nil, fmt.Errorf("failed to get zip: %w", err)
	}
	return &z, nil
}

func (s *ZipStorage) GetZipByScan(ctx context.Context, scanID string) (*models.ConvertedImageZip, error) {
	var zips []models.ConvertedImageZip
	if err := s.db.Store().Find(&zips, badgerhold.Where("ScanID").Eq(scanID)); err != nil {
		return nil, fmt.Errorf("failed to find zip by scan: %w", err)
	}
	if len(zips) == 0 {
		return nil, nil
	}
	return &zips[0], nil
}

func (s *ZipStorage) ListExpired(ctx context.Context, nowUnix int64) ([]*models.ConvertedImageZip, error) {
	var zips []models.ConvertedImageZip
	if err := s.db.Store().Find(&zips, badgerhold.Where("DownloadID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list zips: %w", err)
	}
	var expired []*models.ConvertedImageZip
	for i := range zips {
		if zips[i].ExpiresAt.Unix() < nowUnix {
			expired = append(expired, &zips[i])
		}
	}
	return expired, nil
}

func (s *ZipStorage) DeleteZip(ctx context.Context, downloadID string) error {
	if err := s.db.Store().Delete(downloadID, &models.ConvertedImageZip{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete zip: %w", err)
	}
	return nil
}
