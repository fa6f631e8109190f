package progress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
	"github.com/ternarybob/webpscan/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// Hub fans events out to per-group websocket subscriber sets (one group
// per scan, plus the shared stats-updates group). A single connection may
// belong to several groups at once, joining and leaving as its client
// sends control frames; gorilla's websocket.Conn permits only one
// concurrent writer, so Hub keeps one write mutex per connection shared
// across every group it has joined.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*websocket.Conn]bool
	writeMu map[*websocket.Conn]*sync.Mutex
	logger  arbor.ILogger
}

// NewHub builds an empty Hub implementing interfaces.Broadcaster.
func NewHub(logger arbor.ILogger) *Hub {
	return &Hub{
		groups:  make(map[string]map[*websocket.Conn]bool),
		writeMu: make(map[*websocket.Conn]*sync.Mutex),
		logger:  logger,
	}
}

var _ interfaces.Broadcaster = (*Hub)(nil)

// Upgrade promotes the request to a websocket connection and registers it
// with the hub, joining no group yet. The caller drives the read loop and
// calls Join/Leave in response to client control frames, then Close on
// disconnect.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.writeMu[conn] = &sync.Mutex{}
	h.mu.Unlock()
	return conn, nil
}

// Join subscribes conn to group.
func (h *Hub) Join(conn *websocket.Conn, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*websocket.Conn]bool)
	}
	h.groups[group][conn] = true
}

// Leave unsubscribes conn from group.
func (h *Hub) Leave(conn *websocket.Conn, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups[group], conn)
	if len(h.groups[group]) == 0 {
		delete(h.groups, group)
	}
}

// Close removes conn from every group it belongs to and closes it. Safe
// to call once, from the handler's read-loop defer.
func (h *Hub) Close(conn *websocket.Conn) {
	h.mu.Lock()
	for group, members := range h.groups {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.writeMu, conn)
	h.mu.Unlock()
	conn.Close()
}

// Send writes a single JSON value directly to conn, used for
// request/response control messages like GetCurrentProgress that don't
// fit the group-broadcast model.
func (h *Hub) Send(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	mu := h.writeMu[conn]
	h.mu.RUnlock()
	if mu == nil {
		return fmt.Errorf("connection not registered with hub")
	}
	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast fans event out to every connection currently subscribed to
// group. Each write runs in its own goroutine with a bounded deadline so
// one slow or dead subscriber never blocks the crawler loop calling this.
func (h *Hub) Broadcast(group string, event models.Envelope) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("group", group).Msg("failed to marshal broadcast event")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn := conn
		common.SafeGo(h.logger, "broadcast-write", func() {
			h.mu.RLock()
			mu := h.writeMu[conn]
			h.mu.RUnlock()
			if mu == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug().Err(err).Str("group", group).Msg("dropping slow or disconnected subscriber")
			}
		})
	}
}

// Subscribers reports how many connections currently belong to group.
func (h *Hub) Subscribers(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
