package combat

import (
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

// World is the slice of simulation state the resolver reads and mutates. The
// engine implements it; tests supply fakes.
type World interface {
	PlayersOnMap(mapID string) []*state.PlayerState
	EnemiesOnMap(mapID string) []*state.EnemyState
	Projectiles() []*state.ProjectileState
	// SpawnProjectile assigns an id and registers the projectile, returning
	// the stored state.
	SpawnProjectile(p state.ProjectileState) *state.ProjectileState
	RemoveProjectile(id state.EntityID)
	MapBounds(mapID string) (float64, float64, bool)
}

// DamageSink receives resolved hits. The health registry implements it and
// reports whether the hit changed the target's standing (player downed or
// enemy defeated).
type DamageSink interface {
	ApplyDamage(target state.EntityID, amount float64, attacker state.EntityID, now time.Time, tick uint64) bool
}

// Resolver turns attack requests into damage and projectiles. All methods run
// on the tick goroutine.
type Resolver struct {
	world World
	sink  DamageSink
	queue *events.Queue
}

// NewResolver wires a resolver against the given world and damage sink.
func NewResolver(world World, sink DamageSink, queue *events.Queue) *Resolver {
	return &Resolver{world: world, sink: sink, queue: queue}
}

// ExecuteAttack resolves one attack by the player toward aim. Melee weapons
// hit every enemy inside the cleave cone; the bow consumes an arrow and
// spawns a projectile. The gate is consulted only once all preconditions
// hold, so a failed attack never burns the cooldown.
func (r *Resolver) ExecuteAttack(p *state.PlayerState, aim state.Vec2, now time.Time, tick uint64) bool {
	if r == nil || p == nil {
		return false
	}
	spec, ok := SpecFor(p.EquippedWeapon)
	if !ok {
		return false
	}
	dir := aim.Normalize()
	if dir.Length() == 0 {
		return false
	}
	if spec.Ranged && p.Inventory.Arrows <= 0 {
		return false
	}
	if !GateAttack(p, now) {
		return false
	}

	r.queue.Emit(events.Event{
		Kind:   events.KindAttackExecuted,
		Tick:   tick,
		Actor:  p.ID,
		MapID:  p.MapID,
		Weapon: spec.Type,
	})

	if spec.Ranged {
		p.Inventory.ConsumeArrow()
		r.spawnArrow(p, spec, dir, tick)
		return true
	}

	// Attackers never cleave allies: the sweep only scans enemies.
	for _, enemy := range r.world.EnemiesOnMap(p.MapID) {
		if !InCone(p.Pos, dir, spec.Range, spec.HalfAngleDeg, enemy.Pos) {
			continue
		}
		r.queue.Emit(events.Event{
			Kind:   events.KindCombatHit,
			Tick:   tick,
			Actor:  p.ID,
			Target: enemy.ID,
			MapID:  p.MapID,
			Amount: spec.Damage,
			Weapon: spec.Type,
		})
		r.sink.ApplyDamage(enemy.ID, spec.Damage, p.ID, now, tick)
	}
	return true
}

func (r *Resolver) spawnArrow(p *state.PlayerState, spec WeaponSpec, dir state.Vec2, tick uint64) {
	stored := r.world.SpawnProjectile(state.ProjectileState{
		OwnerID:  p.ID,
		Pos:      p.Pos,
		Vel:      dir.Scale(spec.ProjectileSpeed),
		MapID:    p.MapID,
		Damage:   spec.Damage,
		TTL:      spec.ProjectileTTL.Seconds(),
		MaxRange: spec.Range,
	})
	if stored == nil {
		return
	}
	pos := stored.Pos
	r.queue.Emit(events.Event{
		Kind:   events.KindProjectileSpawned,
		Tick:   tick,
		Actor:  stored.ID,
		Target: stored.OwnerID,
		MapID:  stored.MapID,
		Pos:    &pos,
	})
}

// ExecuteEnemyAttack resolves one melee strike by an enemy against a player.
// The attempt event fires even when the hit lands on invincibility frames, so
// observers can tell a whiffed swing from a quiet enemy.
func (r *Resolver) ExecuteEnemyAttack(e *state.EnemyState, target *state.PlayerState, now time.Time, tick uint64) bool {
	if r == nil || e == nil || target == nil {
		return false
	}
	if e.MapID != target.MapID || target.Downed {
		return false
	}
	if !e.AttackReady(now) {
		return false
	}
	if e.Pos.DistanceTo(target.Pos) > e.AttackRange {
		return false
	}
	e.LastAttackAt = now
	r.queue.Emit(events.Event{
		Kind:   events.KindEnemyAttacked,
		Tick:   tick,
		Actor:  e.ID,
		Target: target.ID,
		MapID:  e.MapID,
		Amount: e.AttackDamage,
	})
	r.sink.ApplyDamage(target.ID, e.AttackDamage, e.ID, now, tick)
	return true
}
