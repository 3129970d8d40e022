// Package health tracks health, downed state, invincibility frames, and
// revival processes for players and enemies. All health mutation in the
// simulation funnels through the registry so the validate-then-commit rules
// live in exactly one place.
package health

import (
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

const (
	// InvincibilityWindow follows a non-lethal hit; further damage inside
	// the window is rejected outright.
	InvincibilityWindow = 1500 * time.Millisecond
	// RevivalDuration is how long a revival channel takes to complete.
	RevivalDuration = 3 * time.Second
	// RevivedHealthFraction of max health is restored on revival.
	RevivedHealthFraction = 0.5
)

// Roster is the lookup surface the registry needs; the engine implements it.
type Roster interface {
	Player(id state.EntityID) (*state.PlayerState, bool)
	Enemy(id state.EntityID) (*state.EnemyState, bool)
	// RemoveEnemy deletes a defeated enemy from the world. Enemies have no
	// corpse state; defeat is removal.
	RemoveEnemy(id state.EntityID)
}

// Registry owns downed/invincibility/revival bookkeeping.
type Registry struct {
	roster Roster
	queue  *events.Queue

	revivals  map[state.EntityID]*Revival
	byReviver map[state.EntityID]state.EntityID
}

// NewRegistry constructs a registry over the provided roster.
func NewRegistry(roster Roster, queue *events.Queue) *Registry {
	return &Registry{
		roster:    roster,
		queue:     queue,
		revivals:  make(map[state.EntityID]*Revival),
		byReviver: make(map[state.EntityID]state.EntityID),
	}
}

// ApplyDamage routes damage to the target and reports whether the blow
// downed a player or defeated an enemy. Unknown targets and rejected hits
// return false with no state change.
func (r *Registry) ApplyDamage(target state.EntityID, amount float64, attacker state.EntityID, now time.Time, tick uint64) bool {
	if r == nil || amount <= 0 {
		return false
	}
	switch target.Kind {
	case state.EntityKindPlayer:
		return r.damagePlayer(target, amount, attacker, now, tick)
	case state.EntityKindEnemy:
		return r.damageEnemy(target, amount, attacker, tick)
	default:
		return false
	}
}

func (r *Registry) damagePlayer(target state.EntityID, amount float64, attacker state.EntityID, now time.Time, tick uint64) bool {
	player, ok := r.roster.Player(target)
	if !ok {
		return false
	}
	if player.Downed || player.Invincible(now) {
		return false
	}

	player.Health = player.Health - amount
	if player.Health < 0 {
		player.Health = 0
	}

	r.queue.Emit(events.Event{
		Kind:   events.KindPlayerDamaged,
		Tick:   tick,
		Actor:  attacker,
		Target: target,
		MapID:  player.MapID,
		Amount: amount,
	})

	if player.Health == 0 {
		player.Downed = true
		player.Vel = state.Vec2{}
		r.queue.Emit(events.Event{
			Kind:   events.KindPlayerDowned,
			Tick:   tick,
			Actor:  attacker,
			Target: target,
			MapID:  player.MapID,
		})
		// A downed reviver forfeits the channel it was running.
		r.CancelByReviver(target, tick)
		return true
	}

	player.InvincibleUntil = now.Add(InvincibilityWindow)
	return false
}

func (r *Registry) damageEnemy(target state.EntityID, amount float64, attacker state.EntityID, tick uint64) bool {
	enemy, ok := r.roster.Enemy(target)
	if !ok {
		return false
	}

	enemy.Health -= amount

	if enemy.Health <= 0 {
		mapID := enemy.MapID
		r.roster.RemoveEnemy(target)
		r.queue.Emit(events.Event{
			Kind:   events.KindEnemyDefeated,
			Tick:   tick,
			Actor:  attacker,
			Target: target,
			MapID:  mapID,
		})
		return true
	}

	r.queue.Emit(events.Event{
		Kind:   events.KindEnemyDamaged,
		Tick:   tick,
		Actor:  attacker,
		Target: target,
		MapID:  enemy.MapID,
		Amount: amount,
	})
	return false
}

// Heal restores health to a living player, clamped at max. It returns the
// amount actually applied, which may be less than requested near full health,
// and false when healing was rejected outright.
func (r *Registry) Heal(target state.EntityID, amount float64, tick uint64) (float64, bool) {
	if r == nil || amount <= 0 {
		return 0, false
	}
	player, ok := r.roster.Player(target)
	if !ok || player.Downed {
		return 0, false
	}

	before := player.Health
	after := before + amount
	if after > player.MaxHealth {
		after = player.MaxHealth
	}
	player.Health = after

	applied := after - before
	if applied > 0 {
		r.queue.Emit(events.Event{
			Kind:   events.KindPlayerHealed,
			Tick:   tick,
			Target: target,
			MapID:  player.MapID,
			Amount: applied,
		})
	}
	return applied, true
}
