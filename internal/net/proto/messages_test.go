package proto

import (
	"encoding/json"
	"testing"

	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/state"
)

func TestDecodeClientMessageRejectsUnknownVersion(t *testing.T) {
	if _, err := DecodeClientMessage([]byte(`{"ver":2,"type":"input"}`)); err == nil {
		t.Fatalf("expected a version error")
	}

	msg, err := DecodeClientMessage([]byte(`{"type":"input","dx":1,"seq":5}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected the version defaulted to %d, got %d", Version, msg.Ver)
	}
	if msg.DX != 1 || msg.Seq != 5 {
		t.Fatalf("unexpected fields: %+v", msg)
	}
}

func TestClientCommandMapsInput(t *testing.T) {
	cmd, ok := ClientCommand(ClientMessage{
		Type:       TypeInput,
		DX:         1,
		DY:         -1,
		Seq:        7,
		PredictedX: 123,
		PredictedY: 45,
	})
	if !ok {
		t.Fatalf("expected the input accepted")
	}
	if cmd.Type != sim.CommandMove || cmd.Move == nil {
		t.Fatalf("expected a move command, got %+v", cmd)
	}
	if cmd.Move.Seq != 7 || cmd.Move.PredictedX != 123 {
		t.Fatalf("unexpected move payload: %+v", cmd.Move)
	}
}

func TestClientCommandParsesReviveTarget(t *testing.T) {
	cmd, ok := ClientCommand(ClientMessage{Type: TypeRevive, Target: "player-3"})
	if !ok {
		t.Fatalf("expected the revive accepted")
	}
	if cmd.Revive == nil || cmd.Revive.Target != state.PlayerID(3) {
		t.Fatalf("unexpected revive payload: %+v", cmd.Revive)
	}

	if _, ok := ClientCommand(ClientMessage{Type: TypeRevive, Target: "wizard-3"}); ok {
		t.Fatalf("expected an unknown entity kind rejected")
	}
	if _, ok := ClientCommand(ClientMessage{Type: TypeRevive}); ok {
		t.Fatalf("expected a missing target rejected")
	}
}

func TestClientCommandValidatesEquip(t *testing.T) {
	cmd, ok := ClientCommand(ClientMessage{Type: TypeEquip, Weapon: "Bow"})
	if !ok || cmd.Equip == nil || cmd.Equip.Weapon != state.WeaponBow {
		t.Fatalf("expected the bow accepted, got %+v", cmd)
	}
	if _, ok := ClientCommand(ClientMessage{Type: TypeEquip, Weapon: "Club"}); ok {
		t.Fatalf("expected an unknown weapon rejected")
	}
	if _, ok := ClientCommand(ClientMessage{Type: "teleport"}); ok {
		t.Fatalf("expected an unknown message type rejected")
	}
}

func TestEncodeStateMessageStampsEnvelope(t *testing.T) {
	data, err := EncodeStateSnapshot(StateMessageV1{Tick: 42})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["ver"] != float64(Version) {
		t.Fatalf("expected ver %d, got %v", Version, decoded["ver"])
	}
	if decoded["type"] != TypeState {
		t.Fatalf("expected type %q, got %v", TypeState, decoded["type"])
	}
	if decoded["t"] != float64(42) {
		t.Fatalf("expected tick 42, got %v", decoded["t"])
	}
}
