package state

// ConsumableType identifies a stackable healing item.
type ConsumableType string

const (
	ConsumableFruit            ConsumableType = "fruit"
	ConsumableHealthPotion     ConsumableType = "health_potion"
	ConsumableMegaHealthPotion ConsumableType = "mega_health_potion"
)

// Inventory carries the combat-relevant possessions of a player: bow
// ammunition and healing consumables. The wider item economy is out of scope.
type Inventory struct {
	Arrows      int                    `json:"arrows"`
	Consumables map[ConsumableType]int `json:"consumables,omitempty"`
}

// AddArrows grants ammunition. Negative quantities are ignored.
func (inv *Inventory) AddArrows(quantity int) {
	if inv == nil || quantity <= 0 {
		return
	}
	inv.Arrows += quantity
}

// ConsumeArrow removes one arrow, reporting whether one was available.
func (inv *Inventory) ConsumeArrow() bool {
	if inv == nil || inv.Arrows <= 0 {
		return false
	}
	inv.Arrows--
	return true
}

// AddConsumable grants healing items. Negative quantities are ignored.
func (inv *Inventory) AddConsumable(item ConsumableType, quantity int) {
	if inv == nil || quantity <= 0 {
		return
	}
	if inv.Consumables == nil {
		inv.Consumables = make(map[ConsumableType]int, 1)
	}
	inv.Consumables[item] += quantity
}

// ConsumeItem removes one unit of the item, reporting whether one was held.
func (inv *Inventory) ConsumeItem(item ConsumableType) bool {
	if inv == nil || inv.Consumables == nil {
		return false
	}
	count := inv.Consumables[item]
	if count <= 0 {
		return false
	}
	if count == 1 {
		delete(inv.Consumables, item)
	} else {
		inv.Consumables[item] = count - 1
	}
	return true
}

// Clone returns a deep copy safe to persist in snapshots.
func (inv Inventory) Clone() Inventory {
	cloned := Inventory{Arrows: inv.Arrows}
	if len(inv.Consumables) > 0 {
		cloned.Consumables = make(map[ConsumableType]int, len(inv.Consumables))
		for item, count := range inv.Consumables {
			cloned.Consumables[item] = count
		}
	}
	return cloned
}
