package zipbuilder

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// Builder writes a scan's WebP-converted images into a single zip archive
// under a configured directory, named by scan ID.
type Builder struct {
	dir    string
	logger arbor.ILogger
}

var _ interfaces.ZipBuilder = (*Builder)(nil)

// New builds a Builder that writes archives under dir, creating it if
// necessary.
func New(dir string, logger arbor.ILogger) *Builder {
	return &Builder{dir: dir, logger: logger}
}

func (b *Builder) Build(ctx context.Context, scanID string, images []interfaces.ZipImageInput) (string, int64, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating zip directory: %w", err)
	}

	path := filepath.Join(b.dir, fmt.Sprintf("%s.zip", scanID))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating zip file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			zw.Close()
			os.Remove(path)
			return "", 0, err
		}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: img.Filename, Method: zip.Deflate})
		if err != nil {
			zw.Close()
			os.Remove(path)
			return "", 0, fmt.Errorf("adding %s to archive: %w", img.Filename, err)
		}
		if _, err := w.Write(img.Data); err != nil {
			zw.Close()
			os.Remove(path)
			return "", 0, fmt.Errorf("writing %s to archive: %w", img.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", 0, fmt.Errorf("finalizing archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat archive: %w", err)
	}

	b.logger.Debug().Str("scan_id", scanID).Int("images", len(images)).Int64("size_bytes", info.Size()).Msg("built converted image archive")
	return path, info.Size(), nil
}

// Delete removes a previously built archive; a missing file is not an
// error. Retention does not call it: purging a scan removes the scan's
// ConvertedImageZip row and leaves the archive file on disk.
func (b *Builder) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive %s: %w", path, err)
	}
	return nil
}
