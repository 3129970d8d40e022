package combat

import (
	"context"

	"guildmaster/server/logging"
)

const (
	// EventAttack is emitted when an attack intent passes the combat gate.
	EventAttack logging.EventType = "combat.attack"
	// EventAttackRejected is emitted when an attack intent is dropped.
	EventAttackRejected logging.EventType = "combat.attack_rejected"
	// EventDamage is emitted when a hit deals damage to a target.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when an enemy is removed by a fatal blow.
	EventDefeat logging.EventType = "combat.defeat"
)

// AttackPayload captures the weapon swing details.
type AttackPayload struct {
	Weapon  string `json:"weapon"`
	Targets int    `json:"targets"`
}

// AttackRejectedPayload names the gate that dropped the intent.
type AttackRejectedPayload struct {
	Weapon string `json:"weapon"`
	Reason string `json:"reason"`
}

// DamagePayload captures the amount dealt to a single target.
type DamagePayload struct {
	Weapon       string  `json:"weapon,omitempty"`
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
}

// Attack publishes a successful attack execution.
func Attack(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttack,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// AttackRejected publishes a dropped attack intent at debug severity;
// rejected intents are expected traffic, not faults.
func AttackRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttackRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Damage publishes a combat damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Defeat publishes a combat defeat event for the eliminated enemy.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
	})
}
