package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/epiwatch/epiwatch/internal/etl"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

const writeTimeout = 10 * time.Second

// RunEvent is the websocket payload broadcast after each pipeline
// run.
type RunEvent struct {
	Type   string         `json:"type"`
	Result *etl.RunResult `json:"result"`
}

// Hub fans pipeline run events out to connected websocket clients. It
// implements etl.Notifier.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a websocket hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is read-only telemetry for dashboards.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.WithField("component", "api.hub"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeWS upgrades the connection and registers the client. Incoming
// messages are drained and discarded; the feed is one-way.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Debug("Websocket client connected")

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// NotifyRun broadcasts a run completion to every client. Slow or gone
// clients are dropped.
func (h *Hub) NotifyRun(result *etl.RunResult) {
	event := RunEvent{Type: "run_completed", Result: result}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.drop(conn)
		}
	}
}

// drop unregisters and closes a client connection.
func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}
