package combat

import (
	"time"

	"guildmaster/server/internal/state"
)

// WeaponSpec describes how a weapon resolves: melee weapons sweep a cone in
// front of the attacker, ranged weapons spawn a projectile that flies until
// it hits, expires, or runs out of range.
type WeaponSpec struct {
	Type   state.WeaponType
	Damage float64
	// Range is the cone reach for melee weapons and the maximum projectile
	// travel distance for ranged ones.
	Range float64
	// HalfAngleDeg is half the cleave arc; zero for ranged weapons.
	HalfAngleDeg float64
	Ranged       bool
	// Projectile parameters, set only when Ranged.
	ProjectileSpeed float64
	ProjectileTTL   time.Duration
}

var weaponSpecs = map[state.WeaponType]WeaponSpec{
	state.WeaponSword: {
		Type:         state.WeaponSword,
		Damage:       25,
		Range:        80,
		HalfAngleDeg: 45,
	},
	state.WeaponAxe: {
		Type:         state.WeaponAxe,
		Damage:       40,
		Range:        60,
		HalfAngleDeg: 22.5,
	},
	state.WeaponBow: {
		Type:            state.WeaponBow,
		Damage:          20,
		Range:           300,
		Ranged:          true,
		ProjectileSpeed: 400,
		ProjectileTTL:   5 * time.Second,
	},
}

// SpecFor returns the combat parameters for a weapon.
func SpecFor(weapon state.WeaponType) (WeaponSpec, bool) {
	spec, ok := weaponSpecs[weapon]
	return spec, ok
}
