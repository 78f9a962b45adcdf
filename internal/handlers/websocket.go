package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler streams job events to connected clients
type WebSocketHandler struct {
	hub    *events.Hub
	logger arbor.ILogger
}

func NewWebSocketHandler(hub *events.Hub, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and relays hub events until the
// client goes away.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sub, cancel := h.hub.Subscribe()
	h.logger.Info().
		Str("remote", r.RemoteAddr).
		Int("subscribers", h.hub.SubscriberCount()).
		Msg("WebSocket client connected")

	// Reader goroutine: we never expect client messages, but reading is what
	// detects the disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		cancel()
		conn.Close()
		h.logger.Info().Str("remote", r.RemoteAddr).Msg("WebSocket client disconnected")
	}()

	for {
		select {
		case <-done:
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		}
	}
}
