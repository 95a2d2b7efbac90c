package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	plog "github.com/ayusman/pryvit/internal/log"
)

// DefaultEventInterval is the state polling period for websocket clients.
const DefaultEventInterval = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local connections only
	},
}

// EventsHandler pushes the coordinator snapshot to websocket clients
// whenever it changes. New clients receive the current state immediately.
type EventsHandler struct {
	state    StateSource
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    []byte

	once sync.Once
	stop chan struct{}
}

// NewEventsHandler creates an EventsHandler and starts its broadcast loop.
func NewEventsHandler(state StateSource, interval time.Duration) *EventsHandler {
	if interval <= 0 {
		interval = DefaultEventInterval
	}
	h := &EventsHandler{
		state:    state,
		interval: interval,
		log:      plog.With("events"),
		clients:  make(map[*websocket.Conn]struct{}),
		stop:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	msg, err := json.Marshal(h.state.Snapshot())
	if err != nil {
		return
	}

	h.mu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, msg)
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	if err != nil {
		h.remove(conn)
		return
	}
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects every client.
func (h *EventsHandler) Close() {
	h.once.Do(func() {
		close(h.stop)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

func (h *EventsHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *EventsHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		msg, err := json.Marshal(h.state.Snapshot())
		if err != nil {
			h.log.Error().Err(err).Msg("marshal snapshot")
			continue
		}

		h.mu.Lock()
		if bytes.Equal(msg, h.last) {
			h.mu.Unlock()
			continue
		}
		h.last = msg
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}
