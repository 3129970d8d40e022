package app

import (
	"context"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/state"
	"guildmaster/server/logging"
	logcombat "guildmaster/server/logging/combat"
	loglifecycle "guildmaster/server/logging/lifecycle"
)

// publishGameplayEvents translates the tick's gameplay events into structured
// log events for the router. Only the kinds operators act on are forwarded;
// high-frequency movement traffic stays out of the log stream.
func publishGameplayEvents(pub logging.Publisher, result sim.LoopStepResult) {
	if pub == nil {
		return
	}
	ctx := context.Background()
	for _, event := range result.Events {
		switch event.Kind {
		case events.KindAttackExecuted:
			logcombat.Attack(ctx, pub, event.Tick, entityRef(event.Actor), logcombat.AttackPayload{
				Weapon:  string(event.Weapon),
				Targets: countHits(result.Events, event.Actor, event.Tick),
			})
		case events.KindPlayerDamaged, events.KindEnemyDamaged:
			logcombat.Damage(ctx, pub, event.Tick, entityRef(event.Actor), entityRef(event.Target), logcombat.DamagePayload{
				Weapon:       string(event.Weapon),
				Amount:       event.Amount,
				TargetHealth: targetHealth(result.Snapshot, event.Target),
			})
		case events.KindEnemyDefeated:
			logcombat.Defeat(ctx, pub, event.Tick, entityRef(event.Actor), entityRef(event.Target))
		case events.KindPlayerDowned:
			loglifecycle.PlayerDisconnected(ctx, pub, event.Tick, entityRef(event.Target), loglifecycle.PlayerDisconnectedPayload{
				Reason: "downed",
			})
		}
	}
}

func countHits(batch []events.Event, actor state.EntityID, tick uint64) int {
	count := 0
	for _, event := range batch {
		if event.Kind == events.KindCombatHit && event.Actor == actor && event.Tick == tick {
			count++
		}
	}
	return count
}

func targetHealth(snap sim.Snapshot, id state.EntityID) float64 {
	for _, p := range snap.Players {
		if p.ID == id {
			return p.Health
		}
	}
	for _, e := range snap.Enemies {
		if e.ID == id {
			return e.Health
		}
	}
	return 0
}

func entityRef(id state.EntityID) logging.EntityRef {
	kind := logging.EntityKindUnknown
	switch {
	case id.IsPlayer():
		kind = logging.EntityKindPlayer
	case id.IsEnemy():
		kind = logging.EntityKindEnemy
	case id.Kind == state.EntityKindProjectile:
		kind = logging.EntityKindProjectile
	}
	return logging.EntityRef{ID: id.String(), Kind: kind}
}
