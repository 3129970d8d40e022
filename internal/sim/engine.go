package sim

import (
	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Apply([]Command) error
	Step()
	Snapshot() Snapshot
	DrainEvents() []events.Event
}

// EngineCore extends Engine with the dependency accessor and the session
// surface the loop serializes on behalf of transport callers.
type EngineCore interface {
	Engine
	Deps() Deps
	Tick() uint64
	AddPlayer(name string) *state.PlayerState
	RemovePlayer(id state.EntityID) bool
}
