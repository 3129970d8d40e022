package maps

import (
	"sort"
	"time"

	"guildmaster/server/internal/state"
)

// InstanceState tracks how alive a map instance is. Hot instances simulate
// every tick, warm instances keep their enemy state but stop simulating, and
// cold instances hold no runtime state at all.
type InstanceState string

const (
	InstanceCold InstanceState = "Cold"
	InstanceWarm InstanceState = "Warm"
	InstanceHot  InstanceState = "Hot"
)

// WarmTTL is how long an empty instance keeps its state before going cold.
const WarmTTL = 60 * time.Second

// PrefetchRange warms a zone's destination once a player closes within this
// distance of the zone, so crossing never stalls on a cold populate.
const PrefetchRange = 64.0

// Instance is the runtime record for one map.
type Instance struct {
	Def       *Definition
	State     InstanceState
	Players   int
	WarmSince time.Time
}

// World is the slice of the simulation the map manager drives. The engine
// implements it.
type World interface {
	// PopulateMap spawns the definition's enemies when an instance heats up
	// from cold.
	PopulateMap(def *Definition)
	// ClearMap discards all enemy state when an instance goes cold.
	ClearMap(mapID string)
	// ChasersOf lists the enemies on mapID currently chasing the player.
	ChasersOf(player state.EntityID, mapID string) []*state.EnemyState
	// RelocateEnemy moves an enemy to another map; unknown enemies are
	// ignored.
	RelocateEnemy(e *state.EnemyState, mapID string, pos state.Vec2)
	// PursuitOnMap reports whether any enemy on mapID is alerted or
	// chasing. A warm instance with live pursuit keeps simulating.
	PursuitOnMap(mapID string) bool
}

// Heat marks an instance hot because a player entered. A cold instance is
// populated first. It returns the resulting state.
func (m *Manager) Heat(mapID string, now time.Time) (InstanceState, bool) {
	inst, ok := m.ensure(mapID)
	if !ok {
		return InstanceCold, false
	}
	inst.Players++
	if inst.State == InstanceCold {
		m.world.PopulateMap(inst.Def)
	}
	inst.State = InstanceHot
	inst.WarmSince = time.Time{}
	return inst.State, true
}

// Warm prepares an instance nobody is standing on yet: a cold instance is
// populated and parked warm so an arriving player or pursuer finds it live.
// Warm instances get their TTL refreshed; hot instances are left alone.
func (m *Manager) Warm(mapID string, now time.Time) (InstanceState, bool) {
	inst, ok := m.ensure(mapID)
	if !ok {
		return InstanceCold, false
	}
	switch inst.State {
	case InstanceCold:
		m.world.PopulateMap(inst.Def)
		inst.State = InstanceWarm
		inst.WarmSince = now
	case InstanceWarm:
		inst.WarmSince = now
	}
	return inst.State, true
}

// Restore forces an instance into a recovered lifecycle state without
// populating or clearing the world; the caller rebuilds the entities
// separately, so a warm TTL starts fresh from now.
func (m *Manager) Restore(mapID string, st InstanceState, players int, now time.Time) bool {
	if m == nil {
		return false
	}
	inst, ok := m.ensure(mapID)
	if !ok {
		return false
	}
	inst.State = st
	inst.Players = players
	if st == InstanceWarm {
		inst.WarmSince = now
	} else {
		inst.WarmSince = time.Time{}
	}
	return true
}

// Prefetch warms the destinations of zones players are approaching so a
// crossing lands on a live instance. Downed players do not prefetch.
func (m *Manager) Prefetch(players []*state.PlayerState, now time.Time) {
	if m == nil {
		return
	}
	for _, p := range players {
		if p == nil || p.Downed {
			continue
		}
		def, ok := m.registry.Definition(p.MapID)
		if !ok {
			continue
		}
		for _, zone := range def.Zones {
			if zone.DistanceTo(p.Pos) > PrefetchRange {
				continue
			}
			m.Warm(zone.To, now)
		}
	}
}

// Release records a player leaving the instance. The last player out parks
// the instance warm; its enemies stay in place until the TTL expires.
func (m *Manager) Release(mapID string, now time.Time) (InstanceState, bool) {
	inst, ok := m.instances[mapID]
	if !ok {
		return InstanceCold, false
	}
	if inst.Players > 0 {
		inst.Players--
	}
	if inst.Players == 0 && inst.State == InstanceHot {
		inst.State = InstanceWarm
		inst.WarmSince = now
	}
	return inst.State, true
}

// Tick expires warm instances past their TTL and drops stale aggro tokens.
func (m *Manager) Tick(now time.Time, tick uint64) {
	if m == nil {
		return
	}
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		inst := m.instances[id]
		if inst.State != InstanceWarm {
			continue
		}
		// Live pursuit holds the instance warm; cooling it would delete the
		// chasers mid-flight.
		if m.world.PursuitOnMap(id) {
			inst.WarmSince = now
			continue
		}
		if now.Sub(inst.WarmSince) < WarmTTL {
			continue
		}
		inst.State = InstanceCold
		inst.WarmSince = time.Time{}
		m.world.ClearMap(id)
	}
	m.expireTokens(now)
}

// Instance returns the runtime record for a map, if one has been created.
func (m *Manager) Instance(mapID string) (*Instance, bool) {
	if m == nil {
		return nil, false
	}
	inst, ok := m.instances[mapID]
	return inst, ok
}

// InstanceState reports the lifecycle state of a map; never-visited maps are
// cold.
func (m *Manager) InstanceState(mapID string) InstanceState {
	inst, ok := m.Instance(mapID)
	if !ok {
		return InstanceCold
	}
	return inst.State
}

// Simulating reports whether the map should run its tick work. Hot maps
// always simulate; a warm map keeps simulating while an enemy on it is
// still alerted or chasing.
func (m *Manager) Simulating(mapID string) bool {
	switch m.InstanceState(mapID) {
	case InstanceHot:
		return true
	case InstanceWarm:
		return m.world.PursuitOnMap(mapID)
	}
	return false
}

func (m *Manager) ensure(mapID string) (*Instance, bool) {
	if inst, ok := m.instances[mapID]; ok {
		return inst, true
	}
	def, ok := m.registry.Definition(mapID)
	if !ok {
		return nil, false
	}
	inst := &Instance{Def: def, State: InstanceCold}
	m.instances[mapID] = inst
	return inst, true
}
