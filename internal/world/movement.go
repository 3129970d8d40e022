// Package world owns the movement authority: per-entity position and
// velocity, input validation, and reconciliation against client predictions.
package world

import (
	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

const (
	// MoveSpeed is the authoritative player speed in pixels per second.
	MoveSpeed = 200.0
	// MaxSpeed caps reported velocities to defeat speed hacking.
	MaxSpeed = 250.0
	// MaxPositionDelta bounds how far a single update may move an entity.
	MaxPositionDelta = 50.0
	// ReconcileThreshold is the divergence, in pixels, beyond which the
	// server issues a position correction.
	ReconcileThreshold = 5.0
)

// Bounds describes the playable rectangle of one map, origin at (0,0).
type Bounds struct {
	Width  float64
	Height float64
}

// ClampPoint limits a point to the bounds rectangle.
func (b Bounds) ClampPoint(p state.Vec2) state.Vec2 {
	return state.Vec2{
		X: state.Clamp(p.X, 0, b.Width),
		Y: state.Clamp(p.Y, 0, b.Height),
	}
}

// Contains reports whether the point lies inside the bounds.
func (b Bounds) Contains(p state.Vec2) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}

// Authority validates and integrates movement for every entity. All mutation
// of positions goes through here; no other subsystem writes them directly.
type Authority struct {
	speed              float64
	maxDelta           float64
	reconcileThreshold float64
	queue              *events.Queue
}

// NewAuthority constructs a movement authority emitting into queue.
func NewAuthority(queue *events.Queue) *Authority {
	return &Authority{
		speed:              MoveSpeed,
		maxDelta:           MaxPositionDelta,
		reconcileThreshold: ReconcileThreshold,
		queue:              queue,
	}
}

// SubmitInput validates one movement intent and integrates it into the
// player's authoritative position. Stale or duplicate sequence numbers are
// dropped without touching state; out-of-bounds results are clamped rather
// than rejected. Returns false when the intent was dropped entirely.
func (a *Authority) SubmitInput(p *state.PlayerState, dir state.Vec2, dt float64, seq uint32, bounds Bounds, tick uint64) bool {
	if a == nil || p == nil || dt <= 0 {
		return false
	}
	if seq <= p.LastInputSeq {
		return false
	}

	unit := dir.Normalize()
	velocity := ClampVelocity(unit.Scale(a.speed))
	proposed := p.Pos.Add(velocity.Scale(dt))

	next := a.clampDelta(p.Pos, proposed)
	next = bounds.ClampPoint(next)

	moved := next != p.Pos
	p.Pos = next
	p.Vel = velocity
	p.LastInputSeq = seq

	if moved {
		a.emitMoved(p.ID, p.MapID, next, tick)
	}
	return true
}

// Reconcile compares a client-predicted position against the authoritative
// one and emits a correction when they diverge past the threshold. The
// returned position is always authoritative.
func (a *Authority) Reconcile(p *state.PlayerState, clientPredicted state.Vec2, tick uint64) (state.Vec2, bool) {
	if a == nil || p == nil {
		return state.Vec2{}, false
	}
	if p.Pos.DistanceTo(clientPredicted) <= a.reconcileThreshold {
		return p.Pos, false
	}
	pos := p.Pos
	a.queue.Emit(events.Event{
		Kind:  events.KindPositionCorrection,
		Tick:  tick,
		Actor: p.ID,
		MapID: p.MapID,
		Pos:   &pos,
		Seq:   p.LastInputSeq,
	})
	return p.Pos, true
}

// MoveEnemy advances an enemy toward target at the given speed, clamped to
// bounds. AI holds no position state of its own; it steers through here.
func (a *Authority) MoveEnemy(e *state.EnemyState, target state.Vec2, speed, dt float64, bounds Bounds) {
	if a == nil || e == nil || dt <= 0 || speed <= 0 {
		return
	}
	to := target.Sub(e.Pos)
	dist := to.Length()
	if dist == 0 {
		e.Vel = state.Vec2{}
		return
	}
	unit := to.Normalize()
	velocity := ClampVelocity(unit.Scale(speed))
	step := velocity.Length() * dt
	if step > dist {
		step = dist
	}
	next := bounds.ClampPoint(e.Pos.Add(unit.Scale(step)))
	e.Vel = velocity
	e.Pos = next
}

// Teleport relocates an entity position without delta validation; used for
// spawns and map transitions where continuity intentionally breaks.
func (a *Authority) Teleport(pos *state.Vec2, vel *state.Vec2, to state.Vec2, bounds Bounds) {
	if pos == nil {
		return
	}
	*pos = bounds.ClampPoint(to)
	if vel != nil {
		*vel = state.Vec2{}
	}
}

func (a *Authority) clampDelta(from, to state.Vec2) state.Vec2 {
	delta := to.Sub(from)
	dist := delta.Length()
	if dist <= a.maxDelta {
		return to
	}
	scale := a.maxDelta / dist
	return from.Add(delta.Scale(scale))
}

func (a *Authority) emitMoved(id state.EntityID, mapID string, pos state.Vec2, tick uint64) {
	if a.queue == nil {
		return
	}
	p := pos
	a.queue.Emit(events.Event{
		Kind:  events.KindPositionUpdated,
		Tick:  tick,
		Actor: id,
		MapID: mapID,
		Pos:   &p,
	})
}

// ClampVelocity scales a reported velocity down to MaxSpeed, preserving
// direction. Velocities at or under the cap pass through unchanged.
func ClampVelocity(vel state.Vec2) state.Vec2 {
	speed := vel.Length()
	if speed <= MaxSpeed {
		return vel
	}
	return vel.Scale(MaxSpeed / speed)
}
