package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"time"

	"guildmaster/server/internal/net/proto"
	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/telemetry"
)

// HTTPHandlerConfig tunes the non-websocket HTTP surface.
type HTTPHandlerConfig struct {
	ClientDir string
	Logger    telemetry.Logger
	WS        nethttp.Handler
}

// NewHTTPHandler builds the HTTP mux: join, health, diagnostics, the
// websocket endpoint, and optionally a static client directory.
func NewHTTPHandler(hub *Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if r.Body != nil {
			defer r.Body.Close()
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}

		resp := hub.Join(req.Name)
		data, err := proto.EncodeJoinResponse(resp)
		if err != nil {
			logger.Printf("[http] failed to encode join response: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string              `json:"status"`
			ServerTime int64               `json:"serverTime"`
			Players    []DiagnosticsPlayer `json:"players"`
			TickRate   int                 `json:"tickRate"`
			Heartbeat  int64               `json:"heartbeatMillis"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Players:    hub.DiagnosticsSnapshot(),
			TickRate:   sim.DefaultTickRate,
			Heartbeat:  heartbeatInterval.Milliseconds(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.WS != nil {
		mux.Handle("/ws", cfg.WS)
	}

	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
