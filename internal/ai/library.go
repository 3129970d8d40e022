// Package ai drives enemy behavior through a three-state machine: enemies
// patrol their spawn area, investigate noticed players, and chase until the
// target escapes or the leash pulls them home.
package ai

import (
	"time"

	"guildmaster/server/internal/state"
)

// EnemyAttackCooldown is the shared minimum time between enemy strikes.
const EnemyAttackCooldown = 2 * time.Second

// DefaultPatrolRadius is the circle an enemy walks around its spawn point.
const DefaultPatrolRadius = 50.0

// Config holds the perception and combat tuning for one enemy archetype.
type Config struct {
	Type           state.EnemyType
	MaxHealth      float64
	MoveSpeed      float64
	AttackDamage   float64
	AttackRange    float64
	DetectionRange float64
	LeashRange     float64
}

var library = map[state.EnemyType]Config{
	state.EnemyTypeTest: {
		Type:           state.EnemyTypeTest,
		MaxHealth:      50,
		MoveSpeed:      75,
		AttackDamage:   15,
		AttackRange:    30,
		DetectionRange: 100,
		LeashRange:     200,
	},
	state.EnemyTypeGoblin: {
		Type:           state.EnemyTypeGoblin,
		MaxHealth:      30,
		MoveSpeed:      120,
		AttackDamage:   10,
		AttackRange:    25,
		DetectionRange: 80,
		LeashRange:     150,
	},
	state.EnemyTypeOrc: {
		Type:           state.EnemyTypeOrc,
		MaxHealth:      80,
		MoveSpeed:      60,
		AttackDamage:   25,
		AttackRange:    40,
		DetectionRange: 120,
		LeashRange:     250,
	},
	state.EnemyTypeTroll: {
		Type:           state.EnemyTypeTroll,
		MaxHealth:      150,
		MoveSpeed:      40,
		AttackDamage:   40,
		AttackRange:    50,
		DetectionRange: 100,
		LeashRange:     180,
	},
}

// ConfigFor returns the archetype tuning for an enemy type.
func ConfigFor(enemyType state.EnemyType) (Config, bool) {
	cfg, ok := library[enemyType]
	return cfg, ok
}

// NewEnemy builds a fresh enemy of the given archetype anchored at pos. The
// spawn point becomes the patrol center and leash anchor.
func NewEnemy(id state.EntityID, enemyType state.EnemyType, pos state.Vec2, mapID string) (*state.EnemyState, bool) {
	cfg, ok := ConfigFor(enemyType)
	if !ok {
		return nil, false
	}
	return &state.EnemyState{
		ID:             id,
		Type:           enemyType,
		Pos:            pos,
		MapID:          mapID,
		Health:         cfg.MaxHealth,
		MaxHealth:      cfg.MaxHealth,
		AIState:        state.EnemyIdle,
		PatrolCenter:   pos,
		PatrolRadius:   DefaultPatrolRadius,
		DetectionRange: cfg.DetectionRange,
		LeashRange:     cfg.LeashRange,
		MoveSpeed:      cfg.MoveSpeed,
		AttackDamage:   cfg.AttackDamage,
		AttackRange:    cfg.AttackRange,
		AttackCooldown: EnemyAttackCooldown,
	}, true
}
