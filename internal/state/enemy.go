package state

import "time"

// EnemyAIState enumerates the finite states of the enemy controller.
type EnemyAIState string

const (
	EnemyIdle    EnemyAIState = "Idle"
	EnemyAlert   EnemyAIState = "Alert"
	EnemyChasing EnemyAIState = "Chasing"
)

// EnemyType enumerates the hostile archetypes.
type EnemyType string

const (
	EnemyTypeTest   EnemyType = "TestEnemy"
	EnemyTypeGoblin EnemyType = "Goblin"
	EnemyTypeOrc    EnemyType = "Orc"
	EnemyTypeTroll  EnemyType = "Troll"
)

// EnemyState holds the authoritative server-side state for one enemy.
type EnemyState struct {
	ID        EntityID
	Type      EnemyType
	Pos       Vec2
	Vel       Vec2
	MapID     string
	Health    float64
	MaxHealth float64

	AIState      EnemyAIState
	PatrolCenter Vec2
	PatrolRadius float64
	// PatrolAngle tracks progress along the circular patrol path, radians.
	PatrolAngle float64

	DetectionRange float64
	// LeashRange bounds pursuit by distance from the patrol center, not
	// from the enemy's current position.
	LeashRange float64

	// TargetID is zero while no player is targeted.
	TargetID       EntityID
	LastKnownTarget Vec2
	// StateTimer accumulates seconds spent in the current AI state.
	StateTimer float64

	MoveSpeed      float64
	AttackDamage   float64
	AttackRange    float64
	AttackCooldown time.Duration
	LastAttackAt   time.Time
}

// HasTarget reports whether the enemy is currently tracking a player.
func (e *EnemyState) HasTarget() bool {
	return e != nil && !e.TargetID.IsZero()
}

// AttackReady reports whether the attack cooldown has elapsed at now.
func (e *EnemyState) AttackReady(now time.Time) bool {
	if e == nil {
		return false
	}
	if e.LastAttackAt.IsZero() {
		return true
	}
	return now.Sub(e.LastAttackAt) >= e.AttackCooldown
}

// EnterState switches the AI state and resets the state timer. It returns
// false when the enemy is already in the requested state.
func (e *EnemyState) EnterState(next EnemyAIState) bool {
	if e == nil || e.AIState == next {
		return false
	}
	e.AIState = next
	e.StateTimer = 0
	return true
}

// Snapshot returns the wire representation of the enemy.
func (e *EnemyState) Snapshot() Enemy {
	if e == nil {
		return Enemy{}
	}
	return Enemy{
		ID:        e.ID,
		Type:      e.Type,
		X:         e.Pos.X,
		Y:         e.Pos.Y,
		MapID:     e.MapID,
		Health:    e.Health,
		MaxHealth: e.MaxHealth,
		AIState:   e.AIState,
		TargetID:  e.TargetID,
	}
}

// Enemy mirrors the enemy state serialized to clients.
type Enemy struct {
	ID        EntityID     `json:"id"`
	Type      EnemyType    `json:"type"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	MapID     string       `json:"mapId"`
	Health    float64      `json:"health"`
	MaxHealth float64      `json:"maxHealth"`
	AIState   EnemyAIState `json:"aiState"`
	TargetID  EntityID     `json:"targetId,omitempty"`
}
