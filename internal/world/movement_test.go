package world

import (
	"math"
	"testing"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

func newTestPlayer(x, y float64) *state.PlayerState {
	return &state.PlayerState{
		ID:    state.PlayerID(1),
		Pos:   state.Vec2{X: x, Y: y},
		MapID: "starting_area",
	}
}

func TestSubmitInputIntegratesAtMoveSpeed(t *testing.T) {
	queue := &events.Queue{}
	authority := NewAuthority(queue)
	player := newTestPlayer(100, 500)
	bounds := Bounds{Width: 1000, Height: 1000}

	if !authority.SubmitInput(player, state.Vec2{X: 1, Y: 0}, 0.1, 1, bounds, 1) {
		t.Fatalf("expected input to be accepted")
	}
	if player.Pos.X != 120 || player.Pos.Y != 500 {
		t.Fatalf("expected position (120,500), got (%v,%v)", player.Pos.X, player.Pos.Y)
	}

	// The client predicting the same input must agree, so no correction.
	if _, corrected := authority.Reconcile(player, state.Vec2{X: 120, Y: 500}, 1); corrected {
		t.Fatalf("expected no correction when prediction matches")
	}
}

func TestSubmitInputNormalizesDiagonal(t *testing.T) {
	authority := NewAuthority(&events.Queue{})
	player := newTestPlayer(100, 100)
	bounds := Bounds{Width: 1000, Height: 1000}

	authority.SubmitInput(player, state.Vec2{X: 1, Y: 1}, 0.1, 1, bounds, 1)

	moved := player.Pos.Sub(state.Vec2{X: 100, Y: 100}).Length()
	if math.Abs(moved-20) > 1e-9 {
		t.Fatalf("expected diagonal step of 20px, got %v", moved)
	}
}

func TestSubmitInputRejectsStaleSequence(t *testing.T) {
	authority := NewAuthority(&events.Queue{})
	player := newTestPlayer(100, 100)
	bounds := Bounds{Width: 1000, Height: 1000}

	authority.SubmitInput(player, state.Vec2{X: 1, Y: 0}, 0.1, 5, bounds, 1)
	after := player.Pos

	if authority.SubmitInput(player, state.Vec2{X: 1, Y: 0}, 0.1, 5, bounds, 2) {
		t.Fatalf("expected duplicate sequence to be dropped")
	}
	if authority.SubmitInput(player, state.Vec2{X: 1, Y: 0}, 0.1, 4, bounds, 3) {
		t.Fatalf("expected stale sequence to be dropped")
	}
	if player.Pos != after {
		t.Fatalf("expected position unchanged after stale submissions")
	}
	if player.LastInputSeq != 5 {
		t.Fatalf("expected last accepted sequence 5, got %d", player.LastInputSeq)
	}
}

func TestSubmitInputClampsToBounds(t *testing.T) {
	authority := NewAuthority(&events.Queue{})
	player := newTestPlayer(990, 10)
	bounds := Bounds{Width: 1000, Height: 1000}

	authority.SubmitInput(player, state.Vec2{X: 1, Y: -1}, 0.2, 1, bounds, 1)

	if player.Pos.X > bounds.Width || player.Pos.Y < 0 {
		t.Fatalf("expected clamped position, got (%v,%v)", player.Pos.X, player.Pos.Y)
	}
	if player.Pos != bounds.ClampPoint(player.Pos) {
		t.Fatalf("expected position to equal its own clamp")
	}
}

func TestSubmitInputLimitsPositionDelta(t *testing.T) {
	authority := NewAuthority(&events.Queue{})
	player := newTestPlayer(100, 100)
	bounds := Bounds{Width: 10000, Height: 10000}

	// A one-second step at move speed would be 200px; the anti-teleport
	// clamp limits a single update to MaxPositionDelta.
	authority.SubmitInput(player, state.Vec2{X: 1, Y: 0}, 1.0, 1, bounds, 1)

	moved := player.Pos.Sub(state.Vec2{X: 100, Y: 100}).Length()
	if moved > MaxPositionDelta+1e-9 {
		t.Fatalf("expected delta clamped to %v, moved %v", MaxPositionDelta, moved)
	}
}

func TestReconcileEmitsCorrectionBeyondThreshold(t *testing.T) {
	queue := &events.Queue{}
	authority := NewAuthority(queue)
	player := newTestPlayer(100, 100)

	if _, corrected := authority.Reconcile(player, state.Vec2{X: 103, Y: 100}, 7); corrected {
		t.Fatalf("expected divergence within threshold to pass")
	}
	pos, corrected := authority.Reconcile(player, state.Vec2{X: 110, Y: 100}, 7)
	if !corrected {
		t.Fatalf("expected correction beyond threshold")
	}
	if pos != player.Pos {
		t.Fatalf("expected authoritative position returned")
	}

	drained := queue.Drain()
	if len(drained) != 1 || drained[0].Kind != events.KindPositionCorrection {
		t.Fatalf("expected one correction event, got %v", drained)
	}
	if drained[0].Seq != player.LastInputSeq {
		t.Fatalf("expected correction to carry acked sequence")
	}
}

func TestMoveEnemyStopsAtTarget(t *testing.T) {
	authority := NewAuthority(&events.Queue{})
	enemy := &state.EnemyState{Pos: state.Vec2{X: 0, Y: 0}}
	bounds := Bounds{Width: 1000, Height: 1000}

	authority.MoveEnemy(enemy, state.Vec2{X: 5, Y: 0}, 100, 1.0, bounds)

	if enemy.Pos.X != 5 || enemy.Pos.Y != 0 {
		t.Fatalf("expected enemy to stop at target, got (%v,%v)", enemy.Pos.X, enemy.Pos.Y)
	}
}

func TestMoveEnemyCapsSpeed(t *testing.T) {
	authority := NewAuthority(&events.Queue{})
	enemy := &state.EnemyState{Pos: state.Vec2{X: 0, Y: 0}}
	bounds := Bounds{Width: 10000, Height: 10000}

	// A runaway speed value still integrates at MaxSpeed.
	authority.MoveEnemy(enemy, state.Vec2{X: 9000, Y: 0}, 5000, 1.0, bounds)

	if enemy.Pos.X != MaxSpeed {
		t.Fatalf("expected the step capped at %v, got %v", MaxSpeed, enemy.Pos.X)
	}
	if math.Abs(enemy.Vel.Length()-MaxSpeed) > 1e-9 {
		t.Fatalf("expected velocity capped at %v, got %v", MaxSpeed, enemy.Vel.Length())
	}
}

func TestClampVelocityPreservesDirection(t *testing.T) {
	vel := ClampVelocity(state.Vec2{X: 300, Y: 400})
	if math.Abs(vel.Length()-MaxSpeed) > 1e-9 {
		t.Fatalf("expected speed capped at %v, got %v", MaxSpeed, vel.Length())
	}
	if math.Abs(vel.Y/vel.X-400.0/300.0) > 1e-9 {
		t.Fatalf("expected direction preserved")
	}

	under := state.Vec2{X: 10, Y: 0}
	if ClampVelocity(under) != under {
		t.Fatalf("expected velocities under the cap to pass through")
	}
}
