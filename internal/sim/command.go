package sim

import (
	"time"

	"guildmaster/server/internal/state"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandMove         CommandType = "Move"
	CommandAttack       CommandType = "Attack"
	CommandUseItem      CommandType = "UseItem"
	CommandStartRevive  CommandType = "StartRevive"
	CommandCancelRevive CommandType = "CancelRevive"
	CommandEquip        CommandType = "Equip"
	CommandTransition   CommandType = "Transition"
	CommandHeartbeat    CommandType = "Heartbeat"
)

// MoveCommand carries one input sample: the direction the client held, the
// client's sequence number, and where the client predicted it would end up.
type MoveCommand struct {
	DX  float64 `json:"dx"`
	DY  float64 `json:"dy"`
	Seq uint32  `json:"seq"`
	// PredictedX/Y let the server decide whether the client drifted far
	// enough to need a correction.
	PredictedX float64 `json:"predictedX"`
	PredictedY float64 `json:"predictedY"`
}

// AttackCommand aims an attack with the equipped weapon.
type AttackCommand struct {
	AimX float64 `json:"aimX"`
	AimY float64 `json:"aimY"`
}

// UseItemCommand consumes one inventory item.
type UseItemCommand struct {
	Item state.ConsumableType `json:"item"`
}

// ReviveCommand starts channeling a revival on a downed teammate.
type ReviveCommand struct {
	Target state.EntityID `json:"target"`
}

// EquipCommand swaps the equipped weapon.
type EquipCommand struct {
	Weapon state.WeaponType `json:"weapon"`
}

// HeartbeatCommand updates connectivity metadata for an actor.
type HeartbeatCommand struct {
	ReceivedAt time.Time     `json:"receivedAt"`
	ClientSent int64         `json:"clientSent"`
	RTT        time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64            `json:"originTick"`
	Actor      state.EntityID    `json:"actor"`
	Type       CommandType       `json:"type"`
	IssuedAt   time.Time         `json:"issuedAt"`
	Move       *MoveCommand      `json:"move,omitempty"`
	Attack     *AttackCommand    `json:"attack,omitempty"`
	UseItem    *UseItemCommand   `json:"useItem,omitempty"`
	Revive     *ReviveCommand    `json:"revive,omitempty"`
	Equip      *EquipCommand     `json:"equip,omitempty"`
	Heartbeat  *HeartbeatCommand `json:"heartbeat,omitempty"`
}
