// Package events defines the typed gameplay events subsystems queue during a
// tick and collaborators drain afterwards. The queue replaces the engine
// signal wiring of the original client: nothing subscribes, consumers pull.
package events

import "guildmaster/server/internal/state"

// Kind names a gameplay event.
type Kind string

const (
	KindPositionUpdated     Kind = "PositionUpdated"
	KindPositionCorrection  Kind = "PositionCorrectionNeeded"
	KindPlayerDamaged       Kind = "PlayerDamaged"
	KindPlayerHealed        Kind = "PlayerHealed"
	KindPlayerDowned        Kind = "PlayerDowned"
	KindPlayerRevived       Kind = "PlayerRevived"
	KindRevivalStarted      Kind = "RevivalStarted"
	KindRevivalCancelled    Kind = "RevivalCancelled"
	KindEnemyDamaged        Kind = "EnemyDamaged"
	KindEnemyDefeated       Kind = "EnemyDefeated"
	KindEnemyStateChanged   Kind = "EnemyStateChanged"
	KindEnemyAttacked       Kind = "EnemyAttackedPlayer"
	KindAttackExecuted      Kind = "AttackExecuted"
	KindCombatHit           Kind = "CombatHit"
	KindProjectileSpawned   Kind = "ProjectileSpawned"
	KindProjectileRemoved   Kind = "ProjectileRemoved"
	KindTransitionStarted   Kind = "TransitionStarted"
	KindTransitionCompleted Kind = "TransitionCompleted"
	KindTransitionFailed    Kind = "TransitionFailed"
)

// Event is the flat wire form shared by every kind; unused fields stay empty.
type Event struct {
	Kind   Kind             `json:"kind"`
	Tick   uint64           `json:"tick"`
	Actor  state.EntityID   `json:"actor,omitempty"`
	Target state.EntityID   `json:"target,omitempty"`
	MapID  string           `json:"mapId,omitempty"`
	Amount float64          `json:"amount,omitempty"`
	Weapon state.WeaponType `json:"weapon,omitempty"`
	// State carries the new AI state for EnemyStateChanged.
	State string `json:"state,omitempty"`
	// Pos carries the authoritative position for corrections and transitions.
	Pos *state.Vec2 `json:"pos,omitempty"`
	// Seq is the acknowledged input sequence on corrections.
	Seq uint32 `json:"seq,omitempty"`
	// Reason annotates failures, e.g. a rejected transition.
	Reason string `json:"reason,omitempty"`
}

// Queue buffers events emitted during a tick. It is not safe for concurrent
// use; the simulation mutates it only from the tick goroutine.
type Queue struct {
	pending []Event
}

// Emit appends an event to the queue.
func (q *Queue) Emit(event Event) {
	if q == nil {
		return
	}
	q.pending = append(q.pending, event)
}

// Drain returns all pending events in emission order and clears the queue.
func (q *Queue) Drain() []Event {
	if q == nil || len(q.pending) == 0 {
		return nil
	}
	drained := q.pending
	q.pending = nil
	return drained
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.pending)
}
