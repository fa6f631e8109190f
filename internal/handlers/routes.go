package handlers

import (
	"net/http"
	"strings"
)

// Routes bundles every handler the mux needs to wire up.
type Routes struct {
	Scan   *ScanHandler
	Report *ReportHandler
	Images *ImagesHandler
	Stats  *StatsHandler
	Health *HealthHandler
	Config *ConfigHandler
	WS     *WSHandler
}

// NewMux builds the application's http.ServeMux. Scan and image routes
// carry a path segment after their prefix (the scan or download ID), so
// they're routed the same way the rest of this corpus does it: one
// catch-all registration per prefix, then manual suffix slicing instead of
// a third-party router.
func NewMux(routes Routes) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/scan", routes.Scan.Submit)
	mux.HandleFunc("/api/scan/stats", routes.Stats.Get)
	mux.HandleFunc("/api/scan/", routes.handleScanRoutes)
	mux.HandleFunc("/api/images/", routes.handleImageDownload)
	mux.HandleFunc("/api/health", routes.Health.Get)
	mux.HandleFunc("/api/config", routes.Config.Get)
	mux.HandleFunc("/hubs/scanprogress", routes.WS.Serve)

	return mux
}

// handleScanRoutes dispatches /api/scan/{scanId}/status|report|images.
func (rt Routes) handleScanRoutes(w http.ResponseWriter, r *http.Request) {
	suffix := pathSuffix(r, "/api/scan/")
	if suffix == "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case strings.HasSuffix(suffix, "/status"):
		scanID := strings.TrimSuffix(suffix, "/status")
		rt.Scan.Status(w, r, scanID)
	case strings.HasSuffix(suffix, "/report"):
		scanID := strings.TrimSuffix(suffix, "/report")
		rt.Report.Get(w, r, scanID)
	case strings.HasSuffix(suffix, "/images"):
		scanID := strings.TrimSuffix(suffix, "/images")
		rt.Images.GetByScan(w, r, scanID)
	default:
		WriteError(w, http.StatusNotFound, "not found")
	}
}

// handleImageDownload dispatches /api/images/{downloadId}.
func (rt Routes) handleImageDownload(w http.ResponseWriter, r *http.Request) {
	downloadID := pathSuffix(r, "/api/images/")
	if downloadID == "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}
	rt.Images.GetByDownloadID(w, r, downloadID)
}
