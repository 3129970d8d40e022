package state

// ProjectileState tracks an in-flight projectile until it expires, exceeds
// its travel range, or collides.
type ProjectileState struct {
	ID      EntityID
	OwnerID EntityID
	Pos     Vec2
	Vel     Vec2
	MapID   string
	Damage  float64
	// TTL is the remaining lifetime in seconds.
	TTL float64
	// Traveled accumulates distance flown so MaxRange can cap it.
	Traveled float64
	MaxRange float64
}

// Snapshot returns the wire representation of the projectile.
func (p *ProjectileState) Snapshot() Projectile {
	if p == nil {
		return Projectile{}
	}
	return Projectile{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		X:        p.Pos.X,
		Y:        p.Pos.Y,
		VelX:     p.Vel.X,
		VelY:     p.Vel.Y,
		MapID:    p.MapID,
		Damage:   p.Damage,
		TTL:      p.TTL,
		Traveled: p.Traveled,
		MaxRange: p.MaxRange,
	}
}

// Projectile mirrors the projectile state serialized to clients. The flight
// bookkeeping rides along so a keyframe can rebuild the projectile exactly.
type Projectile struct {
	ID       EntityID `json:"id"`
	OwnerID  EntityID `json:"ownerId"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	VelX     float64  `json:"velX"`
	VelY     float64  `json:"velY"`
	MapID    string   `json:"mapId"`
	Damage   float64  `json:"damage,omitempty"`
	TTL      float64  `json:"ttl,omitempty"`
	Traveled float64  `json:"traveled,omitempty"`
	MaxRange float64  `json:"maxRange,omitempty"`
}
