package maps

import (
	"sort"
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

const (
	// MaxPursuers caps how many chasing enemies follow a player through a
	// transition.
	MaxPursuers = 3
	// PursuitTokenTTL bounds how long a pursuit stays redeemable.
	PursuitTokenTTL = 10 * time.Second
	// pursuerSpacing offsets pursuers from the arrival point so they do not
	// stack on the player.
	pursuerSpacing = 25.0
)

// Manager runs the map side of the simulation: instance lifecycle and
// player transitions, including the pursuers that follow a player across.
type Manager struct {
	registry  *Registry
	world     World
	queue     *events.Queue
	instances map[string]*Instance
	tokens    []pursuitToken
}

// pursuitToken defers moving a chasing enemy onto the destination map until
// the instance is hot, or the token expires.
type pursuitToken struct {
	enemy   *state.EnemyState
	player  state.EntityID
	to      string
	arrival state.Vec2
	offset  float64
	expires time.Time
}

// NewManager wires a map manager over the registry and world.
func NewManager(registry *Registry, world World, queue *events.Queue) *Manager {
	return &Manager{
		registry:  registry,
		world:     world,
		queue:     queue,
		instances: make(map[string]*Instance),
	}
}

// Registry exposes the map definitions the manager was built with.
func (m *Manager) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RequestTransition moves the player through the zone they are standing in.
// The failure event names the reason so clients can surface it; a completed
// transition relocates the player to the arrival point with velocity zeroed
// and drags along up to MaxPursuers chasing enemies.
func (m *Manager) RequestTransition(p *state.PlayerState, now time.Time, tick uint64) bool {
	if m == nil || p == nil {
		return false
	}
	if p.Downed {
		m.fail(p, "", "downed", tick)
		return false
	}
	def, ok := m.registry.Definition(p.MapID)
	if !ok {
		m.fail(p, "", "unknown_map", tick)
		return false
	}
	var zone *Zone
	for i := range def.Zones {
		if def.Zones[i].Contains(p.Pos) {
			zone = &def.Zones[i]
			break
		}
	}
	if zone == nil {
		m.fail(p, "", "not_in_zone", tick)
		return false
	}
	dest, ok := m.registry.Definition(zone.To)
	if !ok {
		m.fail(p, zone.To, "unknown_map", tick)
		return false
	}

	m.queue.Emit(events.Event{
		Kind:  events.KindTransitionStarted,
		Tick:  tick,
		Actor: p.ID,
		MapID: dest.ID,
	})

	m.issueTokens(p, dest.ID, zone.Arrival, now)

	from := p.MapID
	m.Release(from, now)
	m.Heat(dest.ID, now)

	p.MapID = dest.ID
	p.Pos = dest.Bounds().ClampPoint(zone.Arrival)
	p.Vel = state.Vec2{}

	pos := p.Pos
	m.queue.Emit(events.Event{
		Kind:  events.KindTransitionCompleted,
		Tick:  tick,
		Actor: p.ID,
		MapID: dest.ID,
		Pos:   &pos,
	})

	m.redeemTokens(dest.ID, now, tick)
	return true
}

func (m *Manager) fail(p *state.PlayerState, dest, reason string, tick uint64) {
	m.queue.Emit(events.Event{
		Kind:   events.KindTransitionFailed,
		Tick:   tick,
		Actor:  p.ID,
		MapID:  dest,
		Reason: reason,
	})
}

// issueTokens records the nearest chasing enemies so they can follow the
// player onto the destination map.
func (m *Manager) issueTokens(p *state.PlayerState, dest string, arrival state.Vec2, now time.Time) {
	chasers := m.world.ChasersOf(p.ID, p.MapID)
	sort.Slice(chasers, func(i, j int) bool {
		return chasers[i].Pos.DistanceTo(p.Pos) < chasers[j].Pos.DistanceTo(p.Pos)
	})
	if len(chasers) > MaxPursuers {
		chasers = chasers[:MaxPursuers]
	}
	if len(chasers) > 0 {
		// Pursuers must find the destination alive even if the player later
		// leaves it before they cross.
		m.Warm(dest, now)
	}
	for i, chaser := range chasers {
		m.tokens = append(m.tokens, pursuitToken{
			enemy:   chaser,
			player:  p.ID,
			to:      dest,
			arrival: arrival,
			offset:  float64(i+1) * pursuerSpacing,
			expires: now.Add(PursuitTokenTTL),
		})
	}
}

// redeemTokens relocates pending pursuers onto a live destination. They land
// spaced out around the arrival point, alerted to the player's position.
func (m *Manager) redeemTokens(mapID string, now time.Time, tick uint64) {
	if m.InstanceState(mapID) == InstanceCold {
		return
	}
	dest, ok := m.registry.Definition(mapID)
	if !ok {
		return
	}
	kept := m.tokens[:0]
	for _, token := range m.tokens {
		if token.to != mapID {
			kept = append(kept, token)
			continue
		}
		if now.After(token.expires) {
			continue
		}
		landing := dest.Bounds().ClampPoint(token.arrival.Add(state.Vec2{X: token.offset}))
		m.world.RelocateEnemy(token.enemy, mapID, landing)
		token.enemy.TargetID = token.player
		token.enemy.LastKnownTarget = token.arrival
		if token.enemy.EnterState(state.EnemyAlert) {
			m.queue.Emit(events.Event{
				Kind:  events.KindEnemyStateChanged,
				Tick:  tick,
				Actor: token.enemy.ID,
				MapID: mapID,
				State: string(state.EnemyAlert),
			})
		}
	}
	m.tokens = kept
}

func (m *Manager) expireTokens(now time.Time) {
	kept := m.tokens[:0]
	for _, token := range m.tokens {
		if now.After(token.expires) {
			continue
		}
		kept = append(kept, token)
	}
	m.tokens = kept
}
