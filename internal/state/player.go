package state

import "time"

// WeaponType enumerates the equippable weapon archetypes.
type WeaponType string

const (
	WeaponSword WeaponType = "Sword"
	WeaponAxe   WeaponType = "Axe"
	WeaponBow   WeaponType = "Bow"

	// DefaultWeapon is granted on join.
	DefaultWeapon = WeaponSword
)

// ParseWeapon validates a weapon string received from the client.
func ParseWeapon(value string) (WeaponType, bool) {
	switch WeaponType(value) {
	case WeaponSword, WeaponAxe, WeaponBow:
		return WeaponType(value), true
	default:
		return "", false
	}
}

// DefaultPlayerMaxHealth is the health pool granted on registration.
const DefaultPlayerMaxHealth = 100.0

// PlayerState holds the authoritative server-side state for one player.
// Position and velocity are owned by the movement authority, health and the
// downed flag by the health registry; every other subsystem reads through
// their public contracts.
type PlayerState struct {
	ID        EntityID
	Name      string
	Pos       Vec2
	Vel       Vec2
	MapID     string
	Health    float64
	MaxHealth float64
	Downed    bool

	// LastInputSeq is the last accepted movement sequence number. Inputs
	// that do not strictly exceed it are stale duplicates and are dropped.
	LastInputSeq uint32

	EquippedWeapon WeaponType
	Inventory      Inventory

	// InvincibleUntil marks the end of the post-hit invincibility window.
	InvincibleUntil time.Time

	// AttackLockedUntil covers the swing animation; further attacks are
	// rejected while it holds and movement intents are suppressed.
	AttackLockedUntil time.Time

	// Cooldowns tracks per-ability trigger timestamps.
	Cooldowns map[string]time.Time

	LastHeartbeat time.Time
}

// Invincible reports whether the player holds invincibility frames at now.
func (p *PlayerState) Invincible(now time.Time) bool {
	if p == nil {
		return false
	}
	return now.Before(p.InvincibleUntil)
}

// AttackLocked reports whether the swing animation lock is still active.
func (p *PlayerState) AttackLocked(now time.Time) bool {
	if p == nil {
		return false
	}
	return now.Before(p.AttackLockedUntil)
}

// Snapshot returns the wire representation of the player.
func (p *PlayerState) Snapshot() Player {
	if p == nil {
		return Player{}
	}
	return Player{
		ID:        p.ID,
		Name:      p.Name,
		X:         p.Pos.X,
		Y:         p.Pos.Y,
		MapID:     p.MapID,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Downed:    p.Downed,
		Weapon:    p.EquippedWeapon,
		Arrows:    p.Inventory.Arrows,
		LastSeq:   p.LastInputSeq,
	}
}

// Player mirrors the player state serialized to clients.
type Player struct {
	ID        EntityID   `json:"id"`
	Name      string     `json:"name,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	MapID     string     `json:"mapId"`
	Health    float64    `json:"health"`
	MaxHealth float64    `json:"maxHealth"`
	Downed    bool       `json:"downed,omitempty"`
	Weapon    WeaponType `json:"weapon,omitempty"`
	Arrows    int        `json:"arrows,omitempty"`
	LastSeq   uint32     `json:"lastSeq,omitempty"`
}
