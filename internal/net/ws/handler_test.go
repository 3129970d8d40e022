package ws

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"guildmaster/server/internal/maps"
	hubpkg "guildmaster/server/internal/net"
	"guildmaster/server/internal/net/proto"
	"guildmaster/server/internal/sim"
)

func newTestServer(t *testing.T) (*httptest.Server, *hubpkg.Hub) {
	t.Helper()
	core := sim.NewCore(sim.Deps{}, maps.DefaultRegistry())
	loop := sim.NewLoop(core, sim.LoopConfig{CommandCapacity: 16, PerActorLimit: 8}, sim.LoopHooks{})
	hub, err := hubpkg.NewHub(hubpkg.HubConfig{Loop: loop})
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}

	handler := hubpkg.NewHTTPHandler(hub, hubpkg.HTTPHandlerConfig{
		WS: NewHandler(hub, HandlerConfig{}),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, hub
}

func join(t *testing.T, srv *httptest.Server) proto.JoinResponseV1 {
	t.Helper()
	resp, err := http.Post(srv.URL+"/join", "application/json", bytes.NewBufferString(`{"name":"ada"}`))
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join returned status %d", resp.StatusCode)
	}
	var joined proto.JoinResponseV1
	if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
		t.Fatalf("failed to decode join response: %v", err)
	}
	return joined
}

func dial(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	return decoded
}

func TestSessionAcksCommands(t *testing.T) {
	srv, _ := newTestServer(t)
	joined := join(t, srv)
	conn := dial(t, srv, joined.Session)

	input := `{"type":"input","dx":1,"seq":1,"predictedX":160,"predictedY":120}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(input)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ack := readFrame(t, conn)
	if ack["type"] != "commandAck" {
		t.Fatalf("expected a commandAck, got %v", ack["type"])
	}
	if ack["seq"] != float64(1) {
		t.Fatalf("expected seq 1 acked, got %v", ack["seq"])
	}

	// Re-sending the same sequence is acked without re-staging.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(input)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	dup := readFrame(t, conn)
	if dup["type"] != "commandAck" || dup["seq"] != float64(1) {
		t.Fatalf("expected a duplicate ack, got %v", dup)
	}
}

func TestSessionRejectsInvalidCommand(t *testing.T) {
	srv, _ := newTestServer(t)
	joined := join(t, srv)
	conn := dial(t, srv, joined.Session)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"equip","weapon":"Club","seq":3}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	reject := readFrame(t, conn)
	if reject["type"] != "commandReject" {
		t.Fatalf("expected a commandReject, got %v", reject["type"])
	}
	if reject["reason"] != hubpkg.CommandRejectInvalidPayload {
		t.Fatalf("expected reason %q, got %v", hubpkg.CommandRejectInvalidPayload, reject["reason"])
	}
}

func TestSessionAnswersHeartbeat(t *testing.T) {
	srv, _ := newTestServer(t)
	joined := join(t, srv)
	conn := dial(t, srv, joined.Session)

	sent := time.Now().Add(-20 * time.Millisecond).UnixMilli()
	msg := `{"type":"heartbeat","sentAt":` + strconv.FormatInt(sent, 10) + `}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	beat := readFrame(t, conn)
	if beat["type"] != "heartbeat" {
		t.Fatalf("expected a heartbeat ack, got %v", beat["type"])
	}
	if beat["clientTime"] != float64(sent) {
		t.Fatalf("expected the client time echoed, got %v", beat["clientTime"])
	}
}

func TestHandlerRejectsUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=bogus"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection closed for an unknown session")
	}
}
