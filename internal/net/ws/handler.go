// Package ws upgrades websocket connections and runs the per-session read
// loop: command intake with ack/reject sequencing, heartbeats, and keyframe
// requests.
package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"

	hubpkg "guildmaster/server/internal/net"
	"guildmaster/server/internal/telemetry"
)

// HandlerConfig tunes the websocket endpoint.
type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades connections and hands them to the session loop.
type Handler struct {
	hub      *hubpkg.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler over the hub.
func NewHandler(hub *hubpkg.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the connection and runs the session until it drops.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	token := r.URL.Query().Get("session")
	if token == "" {
		nethttp.Error(w, "missing session", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed session=%s: %v", token, err)
		return
	}

	sub, ok := h.hub.Subscribe(token, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	h.serve(token, conn, sub)
}
