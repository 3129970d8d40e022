// Package proto defines the versioned websocket payloads exchanged with
// clients and the translation from inbound messages to simulation commands.
package proto

import (
	"encoding/json"
	"fmt"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/state"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for outbound websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
	typeKeyframe      = "keyframe"
	typeKeyframeNack  = "keyframeNack"
)

// Client message type identifiers.
const (
	TypeInput        = "input"
	TypeAttack       = "attack"
	TypeUseItem      = "useItem"
	TypeRevive       = "revive"
	TypeCancelRevive = "cancelRevive"
	TypeEquip        = "equip"
	TypeTransition   = "transition"
	TypeHeartbeat    = "heartbeat"
	TypeKeyframeReq  = "keyframeRequest"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeState        = typeState
	TypeKeyframe     = typeKeyframe
	TypeKeyframeNack = typeKeyframeNack
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`

	// Movement input sample.
	DX         float64 `json:"dx,omitempty"`
	DY         float64 `json:"dy,omitempty"`
	Seq        uint32  `json:"seq,omitempty"`
	PredictedX float64 `json:"predictedX,omitempty"`
	PredictedY float64 `json:"predictedY,omitempty"`

	// Attack aim vector.
	AimX float64 `json:"aimX,omitempty"`
	AimY float64 `json:"aimY,omitempty"`

	Item   string `json:"item,omitempty"`
	Target string `json:"target,omitempty"`
	Weapon string `json:"weapon,omitempty"`

	SentAt       int64   `json:"sentAt,omitempty"`
	Ack          *uint64 `json:"ack,omitempty"`
	KeyframeTick *uint64 `json:"keyframeTick,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand converts a client message into the simulation command it
// requests. Actor and origin metadata are populated by the hub when the
// command is accepted for processing.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeInput:
		return sim.Command{
			Type: sim.CommandMove,
			Move: &sim.MoveCommand{
				DX:         msg.DX,
				DY:         msg.DY,
				Seq:        msg.Seq,
				PredictedX: msg.PredictedX,
				PredictedY: msg.PredictedY,
			},
		}, true
	case TypeAttack:
		return sim.Command{
			Type:   sim.CommandAttack,
			Attack: &sim.AttackCommand{AimX: msg.AimX, AimY: msg.AimY},
		}, true
	case TypeUseItem:
		if msg.Item == "" {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:    sim.CommandUseItem,
			UseItem: &sim.UseItemCommand{Item: state.ConsumableType(msg.Item)},
		}, true
	case TypeRevive:
		target, ok := parseEntityID(msg.Target)
		if !ok {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:   sim.CommandStartRevive,
			Revive: &sim.ReviveCommand{Target: target},
		}, true
	case TypeCancelRevive:
		return sim.Command{Type: sim.CommandCancelRevive}, true
	case TypeEquip:
		weapon, ok := state.ParseWeapon(msg.Weapon)
		if !ok {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:  sim.CommandEquip,
			Equip: &sim.EquipCommand{Weapon: weapon},
		}, true
	case TypeTransition:
		return sim.Command{Type: sim.CommandTransition}, true
	default:
		return sim.Command{}, false
	}
}

func parseEntityID(raw string) (state.EntityID, bool) {
	var id state.EntityID
	if err := id.UnmarshalText([]byte(raw)); err != nil || id.IsZero() {
		return state.EntityID{}, false
	}
	return id, true
}

type stateSnapshot interface {
	ProtoStateSnapshot()
}

// EncodeStateSnapshot renders a state snapshot payload.
func EncodeStateSnapshot(msg stateSnapshot) ([]byte, error) {
	switch payload := msg.(type) {
	case StateMessageV1:
		return EncodeStateMessageV1(payload)
	case *StateMessageV1:
		if payload == nil {
			return json.Marshal(payload)
		}
		return EncodeStateMessageV1(*payload)
	default:
		return json.Marshal(msg)
	}
}

type joinResponse interface {
	ProtoJoinResponse()
}

// EncodeJoinResponse renders a join response payload.
func EncodeJoinResponse(msg joinResponse) ([]byte, error) {
	switch payload := msg.(type) {
	case JoinResponseV1:
		return EncodeJoinResponseV1(payload)
	case *JoinResponseV1:
		if payload == nil {
			return json.Marshal(payload)
		}
		return EncodeJoinResponseV1(*payload)
	default:
		return json.Marshal(msg)
	}
}

// StateMessageV1 captures the version 1 per-tick broadcast layout. Events
// carry everything that happened since the previous broadcast, including the
// position corrections prediction-capable clients reconcile against.
type StateMessageV1 struct {
	Ver         int                `json:"ver"`
	Type        string             `json:"type"`
	Tick        uint64             `json:"t"`
	ServerTime  int64              `json:"serverTime"`
	Players     []state.Player     `json:"players,omitempty"`
	Enemies     []state.Enemy      `json:"enemies,omitempty"`
	Projectiles []state.Projectile `json:"projectiles,omitempty"`
	Maps        []sim.MapStatus    `json:"maps,omitempty"`
	Events      []events.Event     `json:"events,omitempty"`
}

// ProtoStateSnapshot tags the struct as a websocket snapshot payload.
func (StateMessageV1) ProtoStateSnapshot() {}

// EncodeStateMessageV1 renders a versioned state broadcast payload.
func EncodeStateMessageV1(msg StateMessageV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = TypeState
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// JoinResponseV1 captures the version 1 join response layout. Session is the
// opaque token the client presents on the websocket endpoint; Player is the
// entity id the simulation assigned.
type JoinResponseV1 struct {
	Ver              int            `json:"ver"`
	Session          string         `json:"session"`
	Player           state.EntityID `json:"player"`
	Snapshot         sim.Snapshot   `json:"snapshot"`
	KeyframeInterval int            `json:"keyframeInterval,omitempty"`
}

// ProtoJoinResponse tags the struct as a websocket join response payload.
func (JoinResponseV1) ProtoJoinResponse() {}

// EncodeJoinResponseV1 renders a versioned join response payload.
func EncodeJoinResponseV1(msg JoinResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}

// KeyframeMessageV1 answers a keyframe request with a full snapshot plus the
// events recorded after it.
type KeyframeMessageV1 struct {
	Ver      int            `json:"ver"`
	Type     string         `json:"type"`
	Snapshot sim.Snapshot   `json:"snapshot"`
	Events   []events.Event `json:"events,omitempty"`
}

// EncodeKeyframeMessageV1 renders a versioned keyframe payload.
func EncodeKeyframeMessageV1(msg KeyframeMessageV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = TypeKeyframe
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// KeyframeNack notifies the client that a requested keyframe is unavailable
// and it should rejoin from the live broadcast instead.
type KeyframeNack struct {
	Tick   uint64
	Reason string
}

// EncodeKeyframeNack renders a keyframe nack payload.
func EncodeKeyframeNack(msg KeyframeNack) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Tick   uint64 `json:"t"`
		Reason string `json:"reason"`
	}{
		Ver:    Version,
		Type:   typeKeyframeNack,
		Tick:   msg.Tick,
		Reason: msg.Reason,
	}
	return json.Marshal(frame)
}

// CommandAck describes an acknowledgement of an accepted command.
type CommandAck struct {
	Seq  uint32
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint32 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint32
	Reason string
	Retry  bool
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint32 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}
