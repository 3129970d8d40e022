// Package net exposes the server's HTTP and websocket surface: joining,
// per-session command intake, and per-tick state broadcasts.
package net

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"guildmaster/server/internal/journal"
	"guildmaster/server/internal/net/proto"
	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/state"
	"guildmaster/server/internal/telemetry"
	"guildmaster/server/logging"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	// DisconnectAfter drops sessions whose heartbeat went silent.
	DisconnectAfter = 3 * heartbeatInterval
)

// Command rejection reasons surfaced to clients alongside the ones the loop
// reports.
const (
	CommandRejectUnknownSession = "unknown_session"
	CommandRejectInvalidPayload = "invalid_payload"
)

// Session tracks one connected client: the opaque token it presents, the
// entity the simulation assigned, and connectivity metadata.
type Session struct {
	Token  string
	Player state.EntityID

	lastHeartbeat time.Time
	lastRTT       time.Duration
	lastAck       uint64
}

// Subscriber serializes websocket writes for one connection.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage sends a frame, holding the write lock and deadline.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	if s == nil || s.conn == nil {
		return errors.New("net: subscriber closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Hub owns the live sessions and bridges the websocket surface to the
// simulation loop and the journal. All world access goes through the loop,
// which serializes it against the tick goroutine.
type Hub struct {
	mu          sync.Mutex
	loop        *sim.Loop
	journal     *journal.Store
	logger      telemetry.Logger
	clock       logging.Clock
	sessions    map[string]*Session
	subscribers map[string]*Subscriber
}

// HubConfig carries the hub's dependencies. Journal is optional; without it
// keyframe requests are nacked.
type HubConfig struct {
	Loop    *sim.Loop
	Journal *journal.Store
	Logger  telemetry.Logger
	Clock   logging.Clock
}

// NewHub constructs a hub over a running simulation loop.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.Loop == nil {
		return nil, errors.New("net: loop is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	return &Hub{
		loop:        cfg.Loop,
		journal:     cfg.Journal,
		logger:      logger,
		clock:       clock,
		sessions:    make(map[string]*Session),
		subscribers: make(map[string]*Subscriber),
	}, nil
}

// Join registers a new player and returns the session token plus the world
// snapshot the client boots from.
func (h *Hub) Join(name string) proto.JoinResponseV1 {
	player := h.loop.AddPlayer(name)
	token := uuid.New().String()

	h.mu.Lock()
	h.sessions[token] = &Session{
		Token:         token,
		Player:        player.ID,
		lastHeartbeat: h.clock.Now(),
	}
	h.mu.Unlock()

	h.logger.Printf("[hub] player joined id=%s session=%s", player.ID, token)
	return proto.JoinResponseV1{
		Session:          token,
		Player:           player.ID,
		Snapshot:         h.loop.Snapshot(),
		KeyframeInterval: int(journal.DefaultKeyframeInterval),
	}
}

// Subscribe attaches a websocket connection to an existing session. A second
// connection for the same session replaces the first.
func (h *Hub) Subscribe(token string, conn *websocket.Conn) (*Subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[token]
	if !ok {
		return nil, false
	}
	session.lastHeartbeat = h.clock.Now()

	if existing, ok := h.subscribers[token]; ok {
		existing.conn.Close()
	}
	sub := &Subscriber{conn: conn}
	h.subscribers[token] = sub
	return sub, true
}

// Disconnect tears down a session and removes its player from the world.
func (h *Hub) Disconnect(token string) {
	h.mu.Lock()
	session, ok := h.sessions[token]
	if ok {
		delete(h.sessions, token)
	}
	sub, subOK := h.subscribers[token]
	if subOK {
		delete(h.subscribers, token)
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if ok {
		h.loop.RemovePlayer(session.Player)
		h.logger.Printf("[hub] player left id=%s session=%s", session.Player, token)
	}
}

// StageCommand validates an inbound message, stamps origin metadata, and
// enqueues the command for the next tick.
func (h *Hub) StageCommand(token string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, CommandRejectInvalidPayload
	}

	h.mu.Lock()
	session, ok := h.sessions[token]
	h.mu.Unlock()
	if !ok {
		return zero, false, CommandRejectUnknownSession
	}

	command.Actor = session.Player
	command.OriginTick = h.loop.Tick()
	command.IssuedAt = h.clock.Now()

	if ok, reason := h.loop.Enqueue(command); !ok {
		return zero, false, reason
	}
	return command, true, ""
}

// UpdateHeartbeat records connectivity metadata and forwards a heartbeat
// command so the simulation sees the actor as live.
func (h *Hub) UpdateHeartbeat(token string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	session, ok := h.sessions[token]
	if !ok {
		h.mu.Unlock()
		return 0, false
	}
	session.lastHeartbeat = receivedAt
	var rtt time.Duration
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt = receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			session.lastRTT = rtt
		}
	}
	rtt = session.lastRTT
	player := session.Player
	h.mu.Unlock()

	h.loop.Enqueue(sim.Command{
		Actor:    player,
		Type:     sim.CommandHeartbeat,
		IssuedAt: receivedAt,
		Heartbeat: &sim.HeartbeatCommand{
			ReceivedAt: receivedAt,
			ClientSent: clientSent,
			RTT:        rtt,
		},
	})
	return rtt, true
}

// RecordAck stores the last broadcast tick a session confirmed.
func (h *Hub) RecordAck(token string, ack uint64) {
	h.mu.Lock()
	if session, ok := h.sessions[token]; ok && ack > session.lastAck {
		session.lastAck = ack
	}
	h.mu.Unlock()
}

// Broadcast fans a completed step out to every subscriber and prunes
// sessions whose heartbeat timed out. Intended to run from the loop's
// AfterStep hook.
func (h *Hub) Broadcast(result sim.LoopStepResult) {
	now := h.clock.Now()
	stale := h.pruneStale(now)
	for _, token := range stale {
		h.Disconnect(token)
	}

	data, err := proto.EncodeStateSnapshot(proto.StateMessageV1{
		Tick:        result.Snapshot.Tick,
		ServerTime:  now.UnixMilli(),
		Players:     result.Snapshot.Players,
		Enemies:     result.Snapshot.Enemies,
		Projectiles: result.Snapshot.Projectiles,
		Maps:        result.Snapshot.Maps,
		Events:      result.Events,
	})
	if err != nil {
		h.logger.Printf("[hub] failed to marshal state broadcast: %v", err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for token, sub := range h.subscribers {
		subs[token] = sub
	}
	h.mu.Unlock()

	for token, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Printf("[hub] dropping slow subscriber session=%s: %v", token, err)
			h.Disconnect(token)
		}
	}
}

func (h *Hub) pruneStale(now time.Time) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var stale []string
	for token, session := range h.sessions {
		if now.Sub(session.lastHeartbeat) > DisconnectAfter {
			stale = append(stale, token)
		}
	}
	return stale
}

// Keyframe answers a keyframe request from the journal window.
func (h *Hub) Keyframe(ctx context.Context, tick uint64) (proto.KeyframeMessageV1, *proto.KeyframeNack) {
	if h.journal == nil {
		return proto.KeyframeMessageV1{}, &proto.KeyframeNack{Tick: tick, Reason: "journal_disabled"}
	}
	snap, err := h.journal.Keyframe(ctx, tick)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return proto.KeyframeMessageV1{}, &proto.KeyframeNack{Tick: tick, Reason: "expired"}
		}
		h.logger.Printf("[hub] keyframe read failed tick=%d: %v", tick, err)
		return proto.KeyframeMessageV1{}, &proto.KeyframeNack{Tick: tick, Reason: "unavailable"}
	}
	replay, err := h.journal.EventsSince(ctx, tick)
	if err != nil {
		h.logger.Printf("[hub] event replay read failed tick=%d: %v", tick, err)
		replay = nil
	}
	return proto.KeyframeMessageV1{Snapshot: snap, Events: replay}, nil
}

// DiagnosticsPlayer exposes per-session connectivity for the diagnostics
// endpoint.
type DiagnosticsPlayer struct {
	Ver           int            `json:"ver"`
	Player        state.EntityID `json:"player"`
	LastHeartbeat int64          `json:"lastHeartbeat"`
	RTTMillis     int64          `json:"rttMillis"`
	LastAck       uint64         `json:"lastAck"`
}

// DiagnosticsSnapshot lists heartbeat data for every live session.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]DiagnosticsPlayer, 0, len(h.sessions))
	for _, session := range h.sessions {
		players = append(players, DiagnosticsPlayer{
			Ver:           proto.Version,
			Player:        session.Player,
			LastHeartbeat: session.lastHeartbeat.UnixMilli(),
			RTTMillis:     session.lastRTT.Milliseconds(),
			LastAck:       session.lastAck,
		})
	}
	return players
}
