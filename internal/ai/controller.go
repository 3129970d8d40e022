package ai

import (
	"math"
	"sort"
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
	worldpkg "guildmaster/server/internal/world"
)

const (
	// AlertTimeout bounds how long an enemy investigates before giving up.
	AlertTimeout = 5 * time.Second

	// Speed factors applied to the archetype move speed per state.
	PatrolSpeedFactor = 0.4
	AlertSpeedFactor  = 0.7
	ChaseSpeedFactor  = 1.0

	// patrolAngularSpeed advances the patrol circle, radians per second.
	patrolAngularSpeed = 0.5
)

// Mover applies enemy movement with the same clamping rules players get.
type Mover interface {
	MoveEnemy(e *state.EnemyState, target state.Vec2, speed, dt float64, bounds worldpkg.Bounds)
}

// Attacker resolves enemy strikes against players.
type Attacker interface {
	ExecuteEnemyAttack(e *state.EnemyState, target *state.PlayerState, now time.Time, tick uint64) bool
}

// Controller steps every enemy state machine once per tick.
type Controller struct {
	mover    Mover
	attacker Attacker
	queue    *events.Queue
}

// NewController wires a controller against the movement and combat systems.
func NewController(mover Mover, attacker Attacker, queue *events.Queue) *Controller {
	return &Controller{mover: mover, attacker: attacker, queue: queue}
}

// Tick advances all enemies on one map by dt seconds. Enemies step in id
// order so a tick produces the same decisions on every run.
func (c *Controller) Tick(enemies []*state.EnemyState, players []*state.PlayerState, bounds worldpkg.Bounds, dt float64, now time.Time, tick uint64) {
	if c == nil || dt <= 0 || len(enemies) == 0 {
		return
	}
	stepped := make([]*state.EnemyState, 0, len(enemies))
	for _, e := range enemies {
		if e != nil {
			stepped = append(stepped, e)
		}
	}
	sort.Slice(stepped, func(i, j int) bool { return stepped[i].ID.N < stepped[j].ID.N })

	for _, e := range stepped {
		e.StateTimer += dt
		switch e.AIState {
		case state.EnemyAlert:
			c.stepAlert(e, players, bounds, dt, tick)
		case state.EnemyChasing:
			c.stepChase(e, players, bounds, dt, now, tick)
		default:
			c.stepIdle(e, players, bounds, dt, tick)
		}
	}
}

func (c *Controller) stepIdle(e *state.EnemyState, players []*state.PlayerState, bounds worldpkg.Bounds, dt float64, tick uint64) {
	e.PatrolAngle += patrolAngularSpeed * dt
	if e.PatrolAngle > 2*math.Pi {
		e.PatrolAngle -= 2 * math.Pi
	}
	waypoint := e.PatrolCenter.Add(state.Vec2{
		X: math.Cos(e.PatrolAngle),
		Y: math.Sin(e.PatrolAngle),
	}.Scale(e.PatrolRadius))
	c.mover.MoveEnemy(e, waypoint, e.MoveSpeed*PatrolSpeedFactor, dt, bounds)

	if spotted, ok := nearestVisible(players, e.MapID, e.Pos, e.DetectionRange); ok {
		e.TargetID = spotted.ID
		e.LastKnownTarget = spotted.Pos
		c.transition(e, state.EnemyAlert, tick)
	}
}

func (c *Controller) stepAlert(e *state.EnemyState, players []*state.PlayerState, bounds worldpkg.Bounds, dt float64, tick uint64) {
	if spotted, ok := nearestVisible(players, e.MapID, e.Pos, e.DetectionRange); ok {
		e.TargetID = spotted.ID
		e.LastKnownTarget = spotted.Pos
		c.transition(e, state.EnemyChasing, tick)
		return
	}
	if e.LastKnownTarget.DistanceTo(e.PatrolCenter) > e.LeashRange || e.StateTimer >= AlertTimeout.Seconds() {
		e.TargetID = state.EntityID{}
		c.transition(e, state.EnemyIdle, tick)
		return
	}
	c.mover.MoveEnemy(e, e.LastKnownTarget, e.MoveSpeed*AlertSpeedFactor, dt, bounds)
}

func (c *Controller) stepChase(e *state.EnemyState, players []*state.PlayerState, bounds worldpkg.Bounds, dt float64, now time.Time, tick uint64) {
	target, ok := playerByID(players, e.TargetID)
	if !ok || target.Downed || target.MapID != e.MapID {
		// Target gone: fall back to investigating the last known spot.
		c.transition(e, state.EnemyAlert, tick)
		return
	}
	// Leash is measured from the patrol center to the target, not to the
	// enemy, so a target fleeing past the leash breaks pursuit even when the
	// enemy still sits near its anchor.
	if target.Pos.DistanceTo(e.PatrolCenter) > e.LeashRange {
		e.TargetID = state.EntityID{}
		c.transition(e, state.EnemyIdle, tick)
		return
	}
	dist := e.Pos.DistanceTo(target.Pos)
	if dist > e.DetectionRange {
		e.LastKnownTarget = target.Pos
		c.transition(e, state.EnemyAlert, tick)
		return
	}
	e.LastKnownTarget = target.Pos
	if dist <= e.AttackRange {
		c.attacker.ExecuteEnemyAttack(e, target, now, tick)
		return
	}
	c.mover.MoveEnemy(e, target.Pos, e.MoveSpeed*ChaseSpeedFactor, dt, bounds)
}

func (c *Controller) transition(e *state.EnemyState, next state.EnemyAIState, tick uint64) {
	if !e.EnterState(next) {
		return
	}
	c.queue.Emit(events.Event{
		Kind:  events.KindEnemyStateChanged,
		Tick:  tick,
		Actor: e.ID,
		MapID: e.MapID,
		State: string(next),
	})
}

// nearestVisible returns the closest standing player on the map within
// maxRange. Downed players are invisible to enemies.
func nearestVisible(players []*state.PlayerState, mapID string, from state.Vec2, maxRange float64) (*state.PlayerState, bool) {
	var best *state.PlayerState
	bestDist := maxRange
	for _, p := range players {
		if p == nil || p.Downed || p.MapID != mapID {
			continue
		}
		if d := from.DistanceTo(p.Pos); d <= bestDist {
			best, bestDist = p, d
		}
	}
	return best, best != nil
}

func playerByID(players []*state.PlayerState, id state.EntityID) (*state.PlayerState, bool) {
	if id.IsZero() {
		return nil, false
	}
	for _, p := range players {
		if p != nil && p.ID == id {
			return p, true
		}
	}
	return nil, false
}
