package net

import (
	"context"
	"testing"
	"time"

	"guildmaster/server/internal/maps"
	"guildmaster/server/internal/net/proto"
	"guildmaster/server/internal/sim"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	core := sim.NewCore(sim.Deps{}, maps.DefaultRegistry())
	loop := sim.NewLoop(core, sim.LoopConfig{CommandCapacity: 16, PerActorLimit: 8}, sim.LoopHooks{})
	hub, err := NewHub(HubConfig{Loop: loop})
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	return hub
}

func TestHubJoinCreatesSession(t *testing.T) {
	hub := newTestHub(t)

	resp := hub.Join("ada")
	if resp.Session == "" {
		t.Fatalf("expected a session token")
	}
	if !resp.Player.IsPlayer() {
		t.Fatalf("expected a player entity id, got %v", resp.Player)
	}
	if len(resp.Snapshot.Players) != 1 {
		t.Fatalf("expected the join snapshot to contain the player, got %d", len(resp.Snapshot.Players))
	}
	if resp.Snapshot.Players[0].MapID != maps.StartingMap {
		t.Fatalf("expected spawn on %q, got %q", maps.StartingMap, resp.Snapshot.Players[0].MapID)
	}
}

func TestHubStageCommandEnqueues(t *testing.T) {
	hub := newTestHub(t)
	resp := hub.Join("ada")

	cmd, ok, reason := hub.StageCommand(resp.Session, proto.ClientMessage{
		Type: proto.TypeInput,
		DX:   1,
		Seq:  1,
	})
	if !ok {
		t.Fatalf("expected the command staged, got reason %q", reason)
	}
	if cmd.Actor != resp.Player {
		t.Fatalf("expected actor %v stamped, got %v", resp.Player, cmd.Actor)
	}
	if hub.loop.Pending() != 1 {
		t.Fatalf("expected 1 pending command, got %d", hub.loop.Pending())
	}

	if _, ok, reason := hub.StageCommand("bogus", proto.ClientMessage{Type: proto.TypeInput}); ok || reason != CommandRejectUnknownSession {
		t.Fatalf("expected an unknown session rejected, got ok=%v reason=%q", ok, reason)
	}
	if _, ok, reason := hub.StageCommand(resp.Session, proto.ClientMessage{Type: "teleport"}); ok || reason != CommandRejectInvalidPayload {
		t.Fatalf("expected an invalid payload rejected, got ok=%v reason=%q", ok, reason)
	}
}

func TestHubHeartbeatTracksRTT(t *testing.T) {
	hub := newTestHub(t)
	resp := hub.Join("ada")

	now := time.Now()
	rtt, ok := hub.UpdateHeartbeat(resp.Session, now, now.Add(-50*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected the heartbeat accepted")
	}
	if rtt <= 0 || rtt > time.Second {
		t.Fatalf("unexpected rtt %v", rtt)
	}

	diag := hub.DiagnosticsSnapshot()
	if len(diag) != 1 {
		t.Fatalf("expected one diagnostics entry, got %d", len(diag))
	}
	if diag[0].Player != resp.Player {
		t.Fatalf("expected diagnostics for %v, got %v", resp.Player, diag[0].Player)
	}
	if diag[0].RTTMillis <= 0 {
		t.Fatalf("expected a positive rtt, got %d", diag[0].RTTMillis)
	}

	if _, ok := hub.UpdateHeartbeat("bogus", now, 0); ok {
		t.Fatalf("expected an unknown session ignored")
	}
}

func TestHubDisconnectRemovesPlayer(t *testing.T) {
	hub := newTestHub(t)
	resp := hub.Join("ada")

	hub.Disconnect(resp.Session)

	if len(hub.loop.Snapshot().Players) != 0 {
		t.Fatalf("expected the player removed from the world")
	}
	if _, ok, reason := hub.StageCommand(resp.Session, proto.ClientMessage{Type: proto.TypeInput}); ok || reason != CommandRejectUnknownSession {
		t.Fatalf("expected the session gone, got ok=%v reason=%q", ok, reason)
	}
}

func TestHubKeyframeWithoutJournal(t *testing.T) {
	hub := newTestHub(t)

	_, nack := hub.Keyframe(context.Background(), 10)
	if nack == nil || nack.Reason != "journal_disabled" {
		t.Fatalf("expected a journal_disabled nack, got %+v", nack)
	}
}

func TestHubJoinWhileLoopTicks(t *testing.T) {
	hub := newTestHub(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.loop.Advance(sim.LoopTickContext{Tick: uint64(i + 1), Now: time.Now(), Delta: 1.0 / 15})
		}
	}()

	tokens := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		resp := hub.Join("ada")
		if resp.Session == "" {
			t.Fatalf("expected a session token on join %d", i)
		}
		tokens = append(tokens, resp.Session)
	}
	for _, token := range tokens[:4] {
		hub.Disconnect(token)
	}
	<-done

	if got := len(hub.loop.Snapshot().Players); got != 4 {
		t.Fatalf("expected 4 players after the churn, got %d", got)
	}
}
