package state

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityKind distinguishes the id spaces that used to share one numeric range.
type EntityKind uint8

const (
	// EntityKindNone is the zero value; an EntityID of this kind refers to nothing.
	EntityKindNone EntityKind = iota
	// EntityKindPlayer identifies a human-controlled character.
	EntityKindPlayer
	// EntityKindEnemy identifies an AI-controlled hostile.
	EntityKindEnemy
	// EntityKindProjectile identifies an in-flight projectile.
	EntityKindProjectile
)

// String returns the lowercase kind label used in wire ids and logs.
func (k EntityKind) String() string {
	switch k {
	case EntityKindPlayer:
		return "player"
	case EntityKindEnemy:
		return "enemy"
	case EntityKindProjectile:
		return "projectile"
	default:
		return "none"
	}
}

// EntityID is a tagged entity identifier. The kind tag replaces the legacy
// convention of carving players and enemies out of one numeric range.
type EntityID struct {
	Kind EntityKind
	N    uint32
}

// PlayerID builds a player entity id.
func PlayerID(n uint32) EntityID { return EntityID{Kind: EntityKindPlayer, N: n} }

// EnemyID builds an enemy entity id.
func EnemyID(n uint32) EntityID { return EntityID{Kind: EntityKindEnemy, N: n} }

// ProjectileID builds a projectile entity id.
func ProjectileID(n uint32) EntityID { return EntityID{Kind: EntityKindProjectile, N: n} }

// IsZero reports whether the id refers to nothing.
func (id EntityID) IsZero() bool { return id.Kind == EntityKindNone }

// IsPlayer reports whether the id names a player.
func (id EntityID) IsPlayer() bool { return id.Kind == EntityKindPlayer }

// IsEnemy reports whether the id names an enemy.
func (id EntityID) IsEnemy() bool { return id.Kind == EntityKindEnemy }

// String renders the id as "kind-<n>", e.g. "player-7".
func (id EntityID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s-%d", id.Kind, id.N)
}

// MarshalText lets EntityID serve as a JSON object key and field value.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the "kind-<n>" form produced by MarshalText.
func (id *EntityID) UnmarshalText(text []byte) error {
	raw := string(text)
	if raw == "" {
		*id = EntityID{}
		return nil
	}
	sep := strings.LastIndexByte(raw, '-')
	if sep <= 0 || sep == len(raw)-1 {
		return fmt.Errorf("malformed entity id %q", raw)
	}
	n, err := strconv.ParseUint(raw[sep+1:], 10, 32)
	if err != nil {
		return fmt.Errorf("malformed entity id %q: %w", raw, err)
	}
	var kind EntityKind
	switch raw[:sep] {
	case "player":
		kind = EntityKindPlayer
	case "enemy":
		kind = EntityKindEnemy
	case "projectile":
		kind = EntityKindProjectile
	default:
		return fmt.Errorf("unknown entity kind %q", raw[:sep])
	}
	*id = EntityID{Kind: kind, N: uint32(n)}
	return nil
}
