package lifecycle

import (
	"context"

	"guildmaster/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player joins the world.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a player leaves the world.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventEnemySpawned is emitted when an enemy enters the world.
	EventEnemySpawned logging.EventType = "lifecycle.enemy_spawned"
	// EventMapStateChanged is emitted when a map instance moves between tiers.
	EventMapStateChanged logging.EventType = "lifecycle.map_state_changed"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	MapID  string  `json:"mapId"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerDisconnectedPayload captures the reason a player left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// EnemySpawnedPayload captures the archetype and patrol anchor.
type EnemySpawnedPayload struct {
	Type  string  `json:"type"`
	MapID string  `json:"mapId"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// MapStateChangedPayload captures a lifecycle tier change.
type MapStateChangedPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Players int    `json:"players"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	publish(ctx, pub, EventPlayerJoined, tick, actor, payload)
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload) {
	publish(ctx, pub, EventPlayerDisconnected, tick, actor, payload)
}

// EnemySpawned publishes an enemy spawn event.
func EnemySpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EnemySpawnedPayload) {
	publish(ctx, pub, EventEnemySpawned, tick, actor, payload)
}

// MapStateChanged publishes a map tier change event.
func MapStateChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MapStateChangedPayload) {
	publish(ctx, pub, EventMapStateChanged, tick, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
