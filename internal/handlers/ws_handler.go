package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/ternarybob/webpscan/internal/progress"
)

// WSHandler drives the /hubs/scanprogress control protocol: clients send
// small JSON frames to join or leave the rooms they want pushed events
// for, and can ask for a one-shot snapshot on (re)connect.
type WSHandler struct {
	hub         *progress.Hub
	scans       interfaces.ScanStorage
	checkpoints interfaces.CheckpointStorage
	scheduler   interfaces.Scheduler
	logger      arbor.ILogger
}

func NewWSHandler(hub *progress.Hub, scans interfaces.ScanStorage, checkpoints interfaces.CheckpointStorage, scheduler interfaces.Scheduler, logger arbor.ILogger) *WSHandler {
	return &WSHandler{hub: hub, scans: scans, checkpoints: checkpoints, scheduler: scheduler, logger: logger}
}

type controlMessage struct {
	Type   string `json:"type"`
	ScanID string `json:"scanId"`
}

// Serve handles GET /hubs/scanprogress.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.hub.Upgrade(w, r)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer h.hub.Close(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		h.dispatch(r.Context(), conn, msg)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *websocket.Conn, msg controlMessage) {
	switch msg.Type {
	case "SubscribeToScan":
		if msg.ScanID != "" {
			h.hub.Join(conn, models.ScanGroup(msg.ScanID))
		}
	case "UnsubscribeFromScan":
		if msg.ScanID != "" {
			h.hub.Leave(conn, models.ScanGroup(msg.ScanID))
		}
	case "SubscribeToStats":
		h.hub.Join(conn, models.StatsGroup)
	case "UnsubscribeFromStats":
		h.hub.Leave(conn, models.StatsGroup)
	case "GetCurrentProgress":
		snapshot, err := h.snapshot(ctx, msg.ScanID)
		if err != nil {
			h.logger.Debug().Err(err).Str("scan_id", msg.ScanID).Msg("failed to build progress snapshot")
			return
		}
		if snapshot == nil {
			return
		}
		if err := h.hub.Send(conn, snapshot); err != nil {
			h.logger.Debug().Err(err).Msg("failed to send progress snapshot")
		}
	}
}

// snapshot prefers the live checkpoint (more current during an active
// crawl) and falls back to the persisted job row's own counters.
func (h *WSHandler) snapshot(ctx context.Context, scanID string) (*models.ScanProgressSnapshot, error) {
	job, err := h.scans.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	out := &models.ScanProgressSnapshot{
		ScanID:          scanID,
		Status:          string(job.Status),
		PagesScanned:    job.PagesScanned,
		PagesDiscovered: job.PagesDiscovered,
		NonWebPImages:   job.NonWebPImages,
		ErrorMessage:    job.ErrorMessage,
	}

	cp, err := h.checkpoints.GetCheckpoint(ctx, scanID)
	if err == nil && cp != nil {
		out.PagesScanned = cp.PagesVisited
		out.PagesDiscovered = cp.PagesDiscovered
		out.NonWebPImages = cp.NonWebPImagesFound
		out.CurrentURL = cp.CurrentURL
	}

	switch {
	case job.IsTerminal():
		out.ProgressPercent = 100
	case out.PagesDiscovered > 0:
		out.ProgressPercent = float64(out.PagesScanned) / float64(out.PagesDiscovered) * 100
	}
	if job.Status == models.StatusQueued {
		out.QueuePosition = h.scheduler.Position(scanID)
	}
	return out, nil
}
