package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lucaproject/luca/internal/bus"
)

const wsWriteWait = 10 * time.Second

// The dashboard connects from a different origin than the API port.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleAnalytics streams bus events to one dashboard connection. The latest
// snapshot is sent on connect so a late joiner sees the current state.
// Clients do not send; the read loop exists to notice the close.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "analytics unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if latest := s.bus.Latest(); latest != nil {
		if err := writeEvent(conn, *latest); err != nil {
			return
		}
	}

	id, events := s.bus.Subscribe()
	defer s.bus.Unsubscribe(id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent sends one event keyed by its type.
func writeEvent(conn *websocket.Conn, ev bus.Event) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(map[string]bus.Event{string(ev.Type): ev})
}
