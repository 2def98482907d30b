package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/metrics"
)

const (
	// clientBuffer is how many events a client may lag behind before events are dropped.
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// clientWriter owns one connection's writes so a slow client never blocks the frame loop.
type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, clientBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg := <-cw.sendCh:
			cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cw.stop()
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.once.Do(func() {
		close(cw.done)
		cw.conn.Close()
	})
}

// EventHub streams session events to websocket clients.
type EventHub struct {
	clients map[*websocket.Conn]*clientWriter
	mu      sync.RWMutex
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]*clientWriter),
	}
}

// Publish sends ev to every client without blocking. It has the app.Listener signature.
func (h *EventHub) Publish(ev app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	for _, cw := range h.clients {
		select {
		case cw.sendCh <- msg:
		default:
			metrics.EventsDroppedTotal.Inc()
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}

	cw := newClientWriter(conn)
	h.mu.Lock()
	h.clients[conn] = cw
	h.mu.Unlock()
	metrics.EventClientsCurrent.Inc()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		metrics.EventClientsCurrent.Dec()
		cw.stop()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, cw := range h.clients {
		cw.stop()
	}
}
