package combat

import (
	"math"

	"guildmaster/server/internal/state"
)

// InCone reports whether point lies inside the melee sweep anchored at
// origin, facing along facing, with the given reach and half-angle. A point
// exactly on the attacker always counts; a zero facing never hits anything
// away from the origin.
func InCone(origin, facing state.Vec2, reach, halfAngleDeg float64, point state.Vec2) bool {
	delta := point.Sub(origin)
	dist := delta.Length()
	if dist > reach {
		return false
	}
	if dist == 0 {
		return true
	}
	dir := facing.Normalize()
	if dir.Length() == 0 {
		return false
	}
	cos := dir.Dot(delta.Scale(1 / dist))
	limit := math.Cos(halfAngleDeg * math.Pi / 180)
	return cos >= limit-1e-9
}
