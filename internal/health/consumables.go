package health

import "guildmaster/server/internal/state"

// consumableHealing maps each known consumable to the health it restores.
var consumableHealing = map[state.ConsumableType]float64{
	state.ConsumableFruit:            25,
	state.ConsumableHealthPotion:     50,
	state.ConsumableMegaHealthPotion: 100,
}

// ConsumableHealing reports the restore amount for an item and whether the
// item is a known consumable.
func ConsumableHealing(item state.ConsumableType) (float64, bool) {
	amount, ok := consumableHealing[item]
	return amount, ok
}

// UseConsumable spends one unit of a healing item from the player's
// inventory and applies its restore amount. Unknown items, downed players,
// and empty stacks all reject without consuming anything.
func (r *Registry) UseConsumable(target state.EntityID, item state.ConsumableType, tick uint64) (float64, bool) {
	if r == nil {
		return 0, false
	}
	amount, known := ConsumableHealing(item)
	if !known {
		return 0, false
	}
	player, ok := r.roster.Player(target)
	if !ok || player.Downed {
		return 0, false
	}
	if !player.Inventory.ConsumeItem(item) {
		return 0, false
	}
	applied, _ := r.Heal(target, amount, tick)
	return applied, true
}
