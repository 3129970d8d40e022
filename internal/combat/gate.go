package combat

import (
	"time"

	"guildmaster/server/internal/state"
)

const (
	// AttackAbility keys the shared attack cooldown in a player's registry.
	AttackAbility = "attack"
	// AttackCooldown is the minimum time between player attacks.
	AttackCooldown = time.Second
	// AnimationLock freezes further attacks while the swing plays out.
	AnimationLock = 500 * time.Millisecond
)

// ReadyCooldown lazily allocates the cooldown registry, refuses to trigger
// while the ability is still cooling down, and records the trigger timestamp
// when it is ready.
func ReadyCooldown(cooldowns *map[string]time.Time, ability string, cooldown time.Duration, now time.Time) bool {
	if cooldowns == nil {
		return false
	}
	if *cooldowns == nil {
		*cooldowns = make(map[string]time.Time)
	}
	if cooldown > 0 {
		if last, ok := (*cooldowns)[ability]; ok {
			if now.Sub(last) < cooldown {
				return false
			}
		}
	}
	(*cooldowns)[ability] = now
	return true
}

// GateAttack decides whether a player may attack right now. A successful gate
// consumes the cooldown and applies the animation lock, so callers must only
// invoke it once they are committed to executing the attack.
func GateAttack(p *state.PlayerState, now time.Time) bool {
	if p == nil || p.Downed {
		return false
	}
	if p.AttackLocked(now) {
		return false
	}
	if !ReadyCooldown(&p.Cooldowns, AttackAbility, AttackCooldown, now) {
		return false
	}
	p.AttackLockedUntil = now.Add(AnimationLock)
	return true
}
