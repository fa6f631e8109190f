package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/models"
	"github.com/ternarybob/webpscan/internal/progress"
)

type fakeCheckpointStorage struct {
	byScan map[string]*models.CrawlCheckpoint
}

func (f *fakeCheckpointStorage) SaveCheckpoint(ctx context.Context, cp *models.CrawlCheckpoint) error {
	return nil
}
func (f *fakeCheckpointStorage) GetCheckpoint(ctx context.Context, scanID string) (*models.CrawlCheckpoint, error) {
	return f.byScan[scanID], nil
}
func (f *fakeCheckpointStorage) DeleteCheckpoint(ctx context.Context, scanID string) error {
	return nil
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWSHandlerSubscribeToScanReceivesBroadcast(t *testing.T) {
	hub := progress.NewHub(arbor.NewLogger())
	h := NewWSHandler(hub, &fakeScanStorage{jobs: map[string]*models.ScanJob{}}, &fakeCheckpointStorage{}, &fakeScheduler{}, testLogger())

	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	if err := conn.WriteJSON(controlMessage{Type: "SubscribeToScan", ScanID: "scan-1"}); err != nil {
		t.Fatalf("write control message: %v", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for hub.Subscribers(models.ScanGroup("scan-1")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(2 * time.Millisecond)
	}

	hub.Broadcast(models.ScanGroup("scan-1"), models.Envelope{Type: models.EventPageProgress, Payload: models.PageProgressPayload{ScanID: "scan-1"}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected broadcast after subscribe: %v", err)
	}
	if !strings.Contains(string(msg), `"scanId":"scan-1"`) {
		t.Fatalf("unexpected payload: %s", msg)
	}
}

func TestWSHandlerGetCurrentProgressRespondsWithSnapshot(t *testing.T) {
	hub := progress.NewHub(arbor.NewLogger())
	scans := &fakeScanStorage{jobs: map[string]*models.ScanJob{
		"scan-1": {ID: "scan-1", Status: models.StatusProcessing, PagesScanned: 1, PagesDiscovered: 4},
	}}
	checkpoints := &fakeCheckpointStorage{byScan: map[string]*models.CrawlCheckpoint{
		"scan-1": {ScanID: "scan-1", PagesVisited: 2, PagesDiscovered: 6, CurrentURL: "https://example.com/x"},
	}}
	h := NewWSHandler(hub, scans, checkpoints, &fakeScheduler{}, testLogger())

	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	if err := conn.WriteJSON(controlMessage{Type: "GetCurrentProgress", ScanID: "scan-1"}); err != nil {
		t.Fatalf("write control message: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a snapshot response: %v", err)
	}

	var snapshot models.ScanProgressSnapshot
	if err := json.Unmarshal(msg, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snapshot.PagesScanned != 2 || snapshot.CurrentURL != "https://example.com/x" {
		t.Fatalf("expected checkpoint values to take precedence, got %+v", snapshot)
	}
}
