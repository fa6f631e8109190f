package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

// ImagesHandler serves converted-image zip archives, looked up either by
// the scan that produced them or by their own download ID.
type ImagesHandler struct {
	zips   interfaces.ZipStorage
	logger arbor.ILogger
}

func NewImagesHandler(zips interfaces.ZipStorage, logger arbor.ILogger) *ImagesHandler {
	return &ImagesHandler{zips: zips, logger: logger}
}

// GetByScan handles GET /api/scan/{scanId}/images.
func (h *ImagesHandler) GetByScan(w http.ResponseWriter, r *http.Request, scanID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	z, err := h.zips.GetZipByScan(r.Context(), scanID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load archive")
		return
	}
	if z == nil {
		WriteError(w, http.StatusNotFound, "no converted image archive was requested for this scan")
		return
	}
	h.serve(w, r, z)
}

// GetByDownloadID handles GET /api/images/{downloadId}.
func (h *ImagesHandler) GetByDownloadID(w http.ResponseWriter, r *http.Request, downloadID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	z, err := h.zips.GetZip(r.Context(), downloadID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load archive")
		return
	}
	if z == nil {
		WriteError(w, http.StatusGone, "download link has expired or never existed")
		return
	}
	h.serve(w, r, z)
}

func (h *ImagesHandler) serve(w http.ResponseWriter, r *http.Request, z *models.ConvertedImageZip) {
	if z.Expired(time.Now()) {
		WriteError(w, http.StatusGone, "download link has expired")
		return
	}
	f, err := os.Open(z.Path)
	if err != nil {
		h.logger.Warn().Err(err).Str("download_id", z.DownloadID).Msg("archive file missing on disk")
		WriteError(w, http.StatusGone, "archive file is no longer available")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+z.Filename+`"`)
	http.ServeContent(w, r, z.Filename, z.CreatedAt, f)
}
