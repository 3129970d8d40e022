package maps

import (
	"testing"
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

type relocation struct {
	ID    state.EntityID
	MapID string
	Pos   state.Vec2
}

type fakeWorld struct {
	populated []string
	cleared   []string
	chasers   map[string][]*state.EnemyState
	relocated []relocation
	pursuit   map[string]bool
}

func newWorldFake() *fakeWorld {
	return &fakeWorld{
		chasers: make(map[string][]*state.EnemyState),
		pursuit: make(map[string]bool),
	}
}

func (w *fakeWorld) PopulateMap(def *Definition) {
	w.populated = append(w.populated, def.ID)
}

func (w *fakeWorld) ClearMap(mapID string) {
	w.cleared = append(w.cleared, mapID)
}

func (w *fakeWorld) ChasersOf(player state.EntityID, mapID string) []*state.EnemyState {
	var out []*state.EnemyState
	for _, e := range w.chasers[mapID] {
		if e.AIState == state.EnemyChasing && e.TargetID == player {
			out = append(out, e)
		}
	}
	return out
}

func (w *fakeWorld) RelocateEnemy(e *state.EnemyState, mapID string, pos state.Vec2) {
	e.MapID = mapID
	e.Pos = pos
	w.relocated = append(w.relocated, relocation{ID: e.ID, MapID: mapID, Pos: pos})
}

func (w *fakeWorld) PursuitOnMap(mapID string) bool {
	return w.pursuit[mapID]
}

func newTestManager(world World) *Manager {
	return NewManager(DefaultRegistry(), world, &events.Queue{})
}

func TestRegistryRejectsBadConfig(t *testing.T) {
	a := &Definition{ID: "a", Width: 100, Height: 100}
	if _, err := NewRegistry(a, &Definition{ID: "a", Width: 50, Height: 50}); err == nil {
		t.Fatalf("expected a duplicate id error")
	}
	dangling := &Definition{
		ID: "b", Width: 100, Height: 100,
		Zones: []Zone{{X: 0, Y: 0, Width: 8, Height: 8, To: "nowhere"}},
	}
	if _, err := NewRegistry(dangling); err == nil {
		t.Fatalf("expected an unknown destination error")
	}
}

func TestDefaultRegistryLinksTavern(t *testing.T) {
	registry := DefaultRegistry()
	outside, ok := registry.Definition(StartingMap)
	if !ok {
		t.Fatalf("missing starting map")
	}
	if len(outside.Zones) == 0 || outside.Zones[0].To != "tavern_inside" {
		t.Fatalf("expected a doorway into the tavern")
	}
	inside, ok := registry.Definition("tavern_inside")
	if !ok || len(inside.Zones) == 0 || inside.Zones[0].To != StartingMap {
		t.Fatalf("expected a doorway back outside")
	}
}

func TestZoneContainsEdges(t *testing.T) {
	zone := Zone{X: 136, Y: 168, Width: 8, Height: 8}
	if !zone.Contains(state.Vec2{X: 136, Y: 168}) || !zone.Contains(state.Vec2{X: 144, Y: 176}) {
		t.Fatalf("expected zone edges to count as inside")
	}
	if zone.Contains(state.Vec2{X: 135, Y: 168}) || zone.Contains(state.Vec2{X: 136, Y: 177}) {
		t.Fatalf("expected points outside the rectangle rejected")
	}
}

func TestLifecycleHotWarmCold(t *testing.T) {
	world := newWorldFake()
	manager := newTestManager(world)
	now := time.Unix(100, 0)

	if got, _ := manager.Heat(StartingMap, now); got != InstanceHot {
		t.Fatalf("expected Hot after a player entered, got %v", got)
	}
	if len(world.populated) != 1 || world.populated[0] != StartingMap {
		t.Fatalf("expected the cold map populated once, got %v", world.populated)
	}
	if !manager.Simulating(StartingMap) {
		t.Fatalf("expected a hot map to simulate")
	}

	if got, _ := manager.Release(StartingMap, now); got != InstanceWarm {
		t.Fatalf("expected Warm after the last player left, got %v", got)
	}
	manager.Tick(now.Add(30*time.Second), 1)
	if manager.InstanceState(StartingMap) != InstanceWarm {
		t.Fatalf("expected the instance to stay warm inside the TTL")
	}
	if len(world.cleared) != 0 {
		t.Fatalf("expected warm state retained, got clears %v", world.cleared)
	}

	manager.Tick(now.Add(WarmTTL), 2)
	if manager.InstanceState(StartingMap) != InstanceCold {
		t.Fatalf("expected Cold after the TTL")
	}
	if len(world.cleared) != 1 || world.cleared[0] != StartingMap {
		t.Fatalf("expected the map cleared once, got %v", world.cleared)
	}

	// Heating again repopulates from the definition.
	manager.Heat(StartingMap, now.Add(2*WarmTTL))
	if len(world.populated) != 2 {
		t.Fatalf("expected a second populate after going cold, got %v", world.populated)
	}
}

func TestWarmReentryKeepsState(t *testing.T) {
	world := newWorldFake()
	manager := newTestManager(world)
	now := time.Unix(100, 0)

	manager.Heat(StartingMap, now)
	manager.Release(StartingMap, now)
	manager.Heat(StartingMap, now.Add(10*time.Second))

	if len(world.populated) != 1 {
		t.Fatalf("expected no repopulation on warm reentry, got %v", world.populated)
	}
	if manager.InstanceState(StartingMap) != InstanceHot {
		t.Fatalf("expected Hot after reentry")
	}
}

func TestWarmMapSimulatesDuringPursuit(t *testing.T) {
	world := newWorldFake()
	manager := newTestManager(world)
	now := time.Unix(100, 0)

	manager.Heat(StartingMap, now)
	manager.Release(StartingMap, now)

	if manager.Simulating(StartingMap) {
		t.Fatalf("expected an idle warm map to stop simulating")
	}
	world.pursuit[StartingMap] = true
	if !manager.Simulating(StartingMap) {
		t.Fatalf("expected a warm map with live pursuit to keep simulating")
	}
}

func TestPursuitHoldsWarmInstancePastTTL(t *testing.T) {
	world := newWorldFake()
	manager := newTestManager(world)
	now := time.Unix(100, 0)

	manager.Heat(StartingMap, now)
	manager.Release(StartingMap, now)
	world.pursuit[StartingMap] = true

	manager.Tick(now.Add(WarmTTL), 1)
	if manager.InstanceState(StartingMap) != InstanceWarm {
		t.Fatalf("expected pursuit to hold the instance warm past the TTL")
	}
	if len(world.cleared) != 0 {
		t.Fatalf("expected no clear while enemies chase, got %v", world.cleared)
	}

	// Once the pursuit ends the TTL counts down from the last held tick.
	world.pursuit[StartingMap] = false
	manager.Tick(now.Add(WarmTTL+30*time.Second), 2)
	if manager.InstanceState(StartingMap) != InstanceWarm {
		t.Fatalf("expected the TTL restarted after pursuit ended")
	}
	manager.Tick(now.Add(2*WarmTTL), 3)
	if manager.InstanceState(StartingMap) != InstanceCold {
		t.Fatalf("expected Cold once the refreshed TTL ran out")
	}
}

func TestPrefetchWarmsApproachingDestination(t *testing.T) {
	world := newWorldFake()
	manager := newTestManager(world)
	now := time.Unix(100, 0)

	// Standing well away from the doorway warms nothing.
	far := &state.PlayerState{
		ID:    state.PlayerID(1),
		MapID: StartingMap,
		Pos:   state.Vec2{X: 10, Y: 10},
	}
	manager.Prefetch([]*state.PlayerState{far}, now)
	if manager.InstanceState("tavern_inside") != InstanceCold {
		t.Fatalf("expected a distant player to leave the destination cold")
	}

	near := &state.PlayerState{
		ID:    state.PlayerID(2),
		MapID: StartingMap,
		Pos:   state.Vec2{X: 140, Y: 168 - PrefetchRange},
	}
	manager.Prefetch([]*state.PlayerState{near}, now)
	if manager.InstanceState("tavern_inside") != InstanceWarm {
		t.Fatalf("expected the destination warmed ahead of the crossing")
	}
	if len(world.populated) != 1 || world.populated[0] != "tavern_inside" {
		t.Fatalf("expected the destination populated once, got %v", world.populated)
	}

	// Downed players do not prefetch.
	down := &state.PlayerState{
		ID:     state.PlayerID(3),
		MapID:  StartingMap,
		Pos:    near.Pos,
		Downed: true,
	}
	fresh := newTestManager(newWorldFake())
	fresh.Prefetch([]*state.PlayerState{down}, now)
	if fresh.InstanceState("tavern_inside") != InstanceCold {
		t.Fatalf("expected a downed player to warm nothing")
	}
}

func TestTransitionMovesPlayerThroughZone(t *testing.T) {
	world := newWorldFake()
	queue := &events.Queue{}
	manager := NewManager(DefaultRegistry(), world, queue)
	now := time.Unix(100, 0)
	manager.Heat(StartingMap, now)

	player := &state.PlayerState{
		ID:    state.PlayerID(1),
		MapID: StartingMap,
		Pos:   state.Vec2{X: 140, Y: 170},
	}

	if !manager.RequestTransition(player, now, 1) {
		t.Fatalf("expected the transition to complete")
	}
	if player.MapID != "tavern_inside" {
		t.Fatalf("expected the player inside, got %q", player.MapID)
	}
	if (player.Pos != state.Vec2{X: 176, Y: 88}) {
		t.Fatalf("expected arrival at the doorway, got %+v", player.Pos)
	}
	if (player.Vel != state.Vec2{}) {
		t.Fatalf("expected velocity zeroed, got %+v", player.Vel)
	}
	if manager.InstanceState("tavern_inside") != InstanceHot {
		t.Fatalf("expected the destination hot")
	}
	if manager.InstanceState(StartingMap) != InstanceWarm {
		t.Fatalf("expected the origin warm")
	}

	var started, completed bool
	for _, event := range queue.Drain() {
		switch event.Kind {
		case events.KindTransitionStarted:
			started = true
		case events.KindTransitionCompleted:
			completed = event.MapID == "tavern_inside"
		}
	}
	if !started || !completed {
		t.Fatalf("expected start and completion events")
	}
}

func TestTransitionFailsOutsideZone(t *testing.T) {
	world := newWorldFake()
	queue := &events.Queue{}
	manager := NewManager(DefaultRegistry(), world, queue)
	now := time.Unix(100, 0)
	manager.Heat(StartingMap, now)

	player := &state.PlayerState{
		ID:    state.PlayerID(1),
		MapID: StartingMap,
		Pos:   state.Vec2{X: 10, Y: 10},
	}
	if manager.RequestTransition(player, now, 1) {
		t.Fatalf("expected the transition to fail away from any zone")
	}
	if player.MapID != StartingMap {
		t.Fatalf("expected the player unmoved")
	}

	var reason string
	for _, event := range queue.Drain() {
		if event.Kind == events.KindTransitionFailed {
			reason = event.Reason
		}
	}
	if reason != "not_in_zone" {
		t.Fatalf("expected a not_in_zone failure, got %q", reason)
	}
}

func TestTransitionRejectsDownedPlayer(t *testing.T) {
	manager := newTestManager(newWorldFake())
	player := &state.PlayerState{
		ID:     state.PlayerID(1),
		MapID:  StartingMap,
		Pos:    state.Vec2{X: 140, Y: 170},
		Downed: true,
	}
	if manager.RequestTransition(player, time.Unix(100, 0), 1) {
		t.Fatalf("expected a downed player's transition rejected")
	}
}

func TestTransitionDragsNearestPursuers(t *testing.T) {
	world := newWorldFake()
	manager := newTestManager(world)
	now := time.Unix(100, 0)
	manager.Heat(StartingMap, now)

	player := &state.PlayerState{
		ID:    state.PlayerID(1),
		MapID: StartingMap,
		Pos:   state.Vec2{X: 140, Y: 170},
	}

	for i := uint32(1); i <= 5; i++ {
		world.chasers[StartingMap] = append(world.chasers[StartingMap], &state.EnemyState{
			ID:       state.EnemyID(i),
			Type:     state.EnemyTypeGoblin,
			MapID:    StartingMap,
			Pos:      state.Vec2{X: 140 + float64(i)*10, Y: 170},
			AIState:  state.EnemyChasing,
			TargetID: player.ID,
		})
	}

	if !manager.RequestTransition(player, now, 1) {
		t.Fatalf("expected the transition to complete")
	}
	if len(world.relocated) != MaxPursuers {
		t.Fatalf("expected %d pursuers dragged along, got %d", MaxPursuers, len(world.relocated))
	}
	for i, moved := range world.relocated {
		if moved.MapID != "tavern_inside" {
			t.Fatalf("expected pursuer %d on the destination map, got %q", i, moved.MapID)
		}
		// The nearest three chasers follow, in distance order.
		if moved.ID != state.EnemyID(uint32(i+1)) {
			t.Fatalf("expected pursuer order by distance, got %v at %d", moved.ID, i)
		}
	}
	for _, e := range world.chasers[StartingMap][:MaxPursuers] {
		if e.AIState != state.EnemyAlert {
			t.Fatalf("expected relocated pursuers alerted, got %v", e.AIState)
		}
		if e.TargetID != player.ID {
			t.Fatalf("expected pursuers to keep the player targeted")
		}
	}
	if world.chasers[StartingMap][3].MapID != StartingMap {
		t.Fatalf("expected the fourth chaser left behind")
	}
}
