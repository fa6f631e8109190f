package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ImageStorage persists models.DiscoveredImage rows, keyed by ID, with a
// secondary (ScanID, ImageURL) lookup for the crawler's upsert-on-revisit
// path.
type ImageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewImageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ImageStorage {
	return &ImageStorage{db: db, logger: logger}
}

func (s *ImageStorage) UpsertImage(ctx context.Context, img *models.DiscoveredImage) error {
	if img.ID == "" {
		return fmt.Errorf("image ID is required")
	}
	if err := s.db.Store().Upsert(img.ID, img); err != nil {
		return fmt.Errorf("failed to upsert image: %w", err)
	}
	return nil
}

func (s *ImageStorage) GetImage(ctx context.Context, id string) (*models.DiscoveredImage, error) {
	var img models.DiscoveredImage
	if err := s.db.Store().Get(id, &img); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("image not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

func (s *ImageStorage) FindByURL(ctx context.Context, scanID, imageURL string) (*models.DiscoveredImage, error) {
	var imgs []models.DiscoveredImage
	query := badgerhold.Where("ScanID").Eq(scanID).And("ImageURL").Eq(imageURL)
	if err := s.db.Store().Find(&imgs, query); err != nil {
		return nil, fmt.Errorf("failed to find image by url: %w", err)
	}
	if len(imgs) == 0 {
		return nil, nil
	}
	return &imgs[0], nil
}

func (s *ImageStorage) ListByScan(ctx context.Context, scanID string) ([]*models.DiscoveredImage, error) {
	var imgs []models.DiscoveredImage
	query := badgerhold.Where("ScanID").Eq(scanID).SortBy("DiscoveredAt")
	if err := s.db.Store().Find(&imgs, query); err != nil {
		return nil, fmt.Errorf("failed to list images by scan: %w", err)
	}
	result := make([]*models.DiscoveredImage, len(imgs))
	for i := range imgs {
		result[i] = &imgs[i]
	}
	return result, nil
}

func (s *ImageStorage) DeleteByScan(ctx context.Context, scanID string) (int, error) {
	var imgs []models.DiscoveredImage
	if err := s.db.Store().Find(&imgs, badgerhold.Where("ScanID").Eq(scanID)); err != nil {
		return 0, fmt.Errorf("failed to find images for delete: %w", err)
	}
	count := 0
	for i := range imgs {
		if err := s.db.Store().Delete(imgs[i].ID, &models.DiscoveredImage{}); err == nil {
			count++
		}
	}
	return count, nil
}
