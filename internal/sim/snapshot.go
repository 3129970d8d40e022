package sim

import "guildmaster/server/internal/state"

// Snapshot is the wire view of the whole simulation at the end of a tick.
// Entities are sorted by id so identical states serialize identically.
type Snapshot struct {
	Tick        uint64             `json:"tick"`
	Players     []state.Player     `json:"players"`
	Enemies     []state.Enemy      `json:"enemies"`
	Projectiles []state.Projectile `json:"projectiles"`
	Maps        []MapStatus        `json:"maps"`
}

// MapStatus reports the lifecycle state of one map instance.
type MapStatus struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Players int    `json:"players"`
}
