package combat

import (
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

// ProjectileHitRadius is the collision radius around a projectile center.
const ProjectileHitRadius = 5.0

// AdvanceProjectiles moves every in-flight projectile by dt seconds, applies
// the first overlapping hit, and retires projectiles that expire, exceed
// their travel range, or leave the map. A projectile only ever damages the
// opposing side of its owner.
func (r *Resolver) AdvanceProjectiles(dt float64, now time.Time, tick uint64) {
	if r == nil || dt <= 0 {
		return
	}
	for _, proj := range r.world.Projectiles() {
		step := proj.Vel.Scale(dt)
		proj.Pos = proj.Pos.Add(step)
		proj.Traveled += step.Length()
		proj.TTL -= dt

		if target, ok := r.firstOverlap(proj); ok {
			r.queue.Emit(events.Event{
				Kind:   events.KindCombatHit,
				Tick:   tick,
				Actor:  proj.OwnerID,
				Target: target,
				MapID:  proj.MapID,
				Amount: proj.Damage,
			})
			r.sink.ApplyDamage(target, proj.Damage, proj.OwnerID, now, tick)
			r.retire(proj, "impact", tick)
			continue
		}

		if proj.TTL <= 0 || (proj.MaxRange > 0 && proj.Traveled >= proj.MaxRange) {
			r.retire(proj, "expired", tick)
			continue
		}
		if width, height, ok := r.world.MapBounds(proj.MapID); ok {
			if proj.Pos.X < 0 || proj.Pos.Y < 0 || proj.Pos.X > width || proj.Pos.Y > height {
				r.retire(proj, "out_of_bounds", tick)
			}
		}
	}
}

// firstOverlap finds the nearest entity of the opposing side within the hit
// radius.
func (r *Resolver) firstOverlap(proj *state.ProjectileState) (state.EntityID, bool) {
	var best state.EntityID
	bestDist := ProjectileHitRadius
	found := false
	if proj.OwnerID.IsPlayer() {
		for _, enemy := range r.world.EnemiesOnMap(proj.MapID) {
			if d := proj.Pos.DistanceTo(enemy.Pos); d <= bestDist {
				best, bestDist, found = enemy.ID, d, true
			}
		}
		return best, found
	}
	for _, player := range r.world.PlayersOnMap(proj.MapID) {
		if player.Downed || player.ID == proj.OwnerID {
			continue
		}
		if d := proj.Pos.DistanceTo(player.Pos); d <= bestDist {
			best, bestDist, found = player.ID, d, true
		}
	}
	return best, found
}

func (r *Resolver) retire(proj *state.ProjectileState, reason string, tick uint64) {
	pos := proj.Pos
	r.queue.Emit(events.Event{
		Kind:   events.KindProjectileRemoved,
		Tick:   tick,
		Actor:  proj.ID,
		MapID:  proj.MapID,
		Pos:    &pos,
		Reason: reason,
	})
	r.world.RemoveProjectile(proj.ID)
}
