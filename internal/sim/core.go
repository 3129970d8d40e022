package sim

import (
	"sort"
	"time"

	"guildmaster/server/internal/ai"
	"guildmaster/server/internal/combat"
	"guildmaster/server/internal/events"
	"guildmaster/server/internal/health"
	"guildmaster/server/internal/maps"
	"guildmaster/server/internal/state"
	worldpkg "guildmaster/server/internal/world"
)

const (
	// DefaultTickRate is the simulation frequency in ticks per second.
	DefaultTickRate = 15

	commandsAppliedMetricKey = "sim_commands_applied_total"
	commandsUnknownMetricKey = "sim_commands_unknown_actor_total"
	ticksMetricKey           = "sim_ticks_total"
)

// Starting kit granted on registration.
const (
	startingArrows  = 30
	startingFruit   = 3
	startingPotions = 1
)

// Core owns all entity state and drives the subsystems in a fixed order each
// tick. It is not safe for concurrent use; the loop serializes access.
type Core struct {
	deps     Deps
	queue    *events.Queue
	registry *maps.Registry
	maps     *maps.Manager
	movement *worldpkg.Authority
	health   *health.Registry
	combat   *combat.Resolver
	ai       *ai.Controller

	tick         uint64
	tickInterval float64

	players     map[state.EntityID]*state.PlayerState
	enemies     map[state.EntityID]*state.EnemyState
	projectiles map[state.EntityID]*state.ProjectileState

	nextPlayer     uint32
	nextEnemy      uint32
	nextProjectile uint32
}

// NewCore wires a simulation core over the given map registry.
func NewCore(deps Deps, registry *maps.Registry) *Core {
	c := &Core{
		deps:         deps.normalized(),
		queue:        &events.Queue{},
		registry:     registry,
		tickInterval: 1.0 / DefaultTickRate,
		players:      make(map[state.EntityID]*state.PlayerState),
		enemies:      make(map[state.EntityID]*state.EnemyState),
		projectiles:  make(map[state.EntityID]*state.ProjectileState),
	}
	c.movement = worldpkg.NewAuthority(c.queue)
	c.health = health.NewRegistry(c, c.queue)
	c.combat = combat.NewResolver(c, c.health, c.queue)
	c.ai = ai.NewController(c.movement, c.combat, c.queue)
	c.maps = maps.NewManager(registry, c, c.queue)
	return c
}

// Deps returns the injected infrastructure dependencies.
func (c *Core) Deps() Deps {
	if c == nil {
		return Deps{}
	}
	return c.deps
}

// Tick reports the last completed tick number.
func (c *Core) Tick() uint64 {
	if c == nil {
		return 0
	}
	return c.tick
}

// Maps exposes the map manager for callers outside the tick loop.
func (c *Core) Maps() *maps.Manager {
	if c == nil {
		return nil
	}
	return c.maps
}

// AddPlayer registers a new player at the starting map's spawn point with the
// default kit and heats the instance.
func (c *Core) AddPlayer(name string) *state.PlayerState {
	if c == nil {
		return nil
	}
	def, ok := c.registry.Definition(maps.StartingMap)
	if !ok {
		return nil
	}
	c.nextPlayer++
	p := &state.PlayerState{
		ID:             state.PlayerID(c.nextPlayer),
		Name:           name,
		Pos:            def.Spawn,
		MapID:          def.ID,
		Health:         state.DefaultPlayerMaxHealth,
		MaxHealth:      state.DefaultPlayerMaxHealth,
		EquippedWeapon: state.DefaultWeapon,
		LastHeartbeat:  c.deps.Clock.Now(),
	}
	p.Inventory.AddArrows(startingArrows)
	p.Inventory.AddConsumable(state.ConsumableFruit, startingFruit)
	p.Inventory.AddConsumable(state.ConsumableHealthPotion, startingPotions)
	c.players[p.ID] = p
	c.maps.Heat(def.ID, c.deps.Clock.Now())
	return p
}

// RemovePlayer drops a player from the simulation, cancelling any revival
// they were part of and releasing their map instance.
func (c *Core) RemovePlayer(id state.EntityID) bool {
	if c == nil {
		return false
	}
	p, ok := c.players[id]
	if !ok {
		return false
	}
	c.health.CancelRevival(id, c.tick)
	c.health.CancelByReviver(id, c.tick)
	c.maps.Release(p.MapID, c.deps.Clock.Now())
	delete(c.players, id)
	return true
}

// SpawnEnemy places a fresh enemy of the archetype on a map.
func (c *Core) SpawnEnemy(enemyType state.EnemyType, pos state.Vec2, mapID string) (*state.EnemyState, bool) {
	if c == nil {
		return nil, false
	}
	c.nextEnemy++
	enemy, ok := ai.NewEnemy(state.EnemyID(c.nextEnemy), enemyType, pos, mapID)
	if !ok {
		c.nextEnemy--
		return nil, false
	}
	c.enemies[enemy.ID] = enemy
	return enemy, true
}

// SpawnTestEnemy places a TestEnemy with the widened test perception ranges
// used by combat smoke setups.
func (c *Core) SpawnTestEnemy(pos state.Vec2, mapID string) (*state.EnemyState, bool) {
	enemy, ok := c.SpawnEnemy(state.EnemyTypeTest, pos, mapID)
	if !ok {
		return nil, false
	}
	enemy.DetectionRange = 120
	enemy.PatrolRadius = 100
	return enemy, true
}

// Apply stages the effects of one batch of commands. Commands for unknown
// actors are skipped and counted.
func (c *Core) Apply(cmds []Command) error {
	if c == nil || len(cmds) == 0 {
		return nil
	}
	now := c.deps.Clock.Now()
	tick := c.tick + 1
	for _, cmd := range cmds {
		p, ok := c.players[cmd.Actor]
		if !ok {
			c.deps.Metrics.Add(commandsUnknownMetricKey, 1)
			continue
		}
		switch cmd.Type {
		case CommandMove:
			c.applyMove(p, cmd.Move, now, tick)
		case CommandAttack:
			if cmd.Attack != nil {
				c.combat.ExecuteAttack(p, state.Vec2{X: cmd.Attack.AimX, Y: cmd.Attack.AimY}, now, tick)
			}
		case CommandUseItem:
			if cmd.UseItem != nil {
				c.health.UseConsumable(p.ID, cmd.UseItem.Item, tick)
			}
		case CommandStartRevive:
			if cmd.Revive != nil {
				c.health.StartRevival(cmd.Revive.Target, p.ID, now, tick)
			}
		case CommandCancelRevive:
			c.health.CancelByReviver(p.ID, tick)
		case CommandEquip:
			if cmd.Equip != nil && !p.AttackLocked(now) {
				if weapon, valid := state.ParseWeapon(string(cmd.Equip.Weapon)); valid {
					p.EquippedWeapon = weapon
				}
			}
		case CommandTransition:
			c.maps.RequestTransition(p, now, tick)
		case CommandHeartbeat:
			if cmd.Heartbeat != nil {
				p.LastHeartbeat = cmd.Heartbeat.ReceivedAt
			}
		}
		c.deps.Metrics.Add(commandsAppliedMetricKey, 1)
	}
	return nil
}

func (c *Core) applyMove(p *state.PlayerState, move *MoveCommand, now time.Time, tick uint64) {
	if move == nil {
		return
	}
	def, ok := c.registry.Definition(p.MapID)
	if !ok {
		return
	}
	dir := state.Vec2{X: move.DX, Y: move.DY}
	if p.AttackLocked(now) {
		// The swing roots the player; the sequence is still consumed so the
		// client snaps back instead of resending stale inputs.
		dir = state.Vec2{}
	}
	if !c.movement.SubmitInput(p, dir, c.tickInterval, move.Seq, def.Bounds(), tick) {
		return
	}
	c.movement.Reconcile(p, state.Vec2{X: move.PredictedX, Y: move.PredictedY}, tick)
}

// Step advances the simulation one fixed tick: revival channels, projectile
// flight, enemy AI on hot maps, then map lifecycle.
func (c *Core) Step() {
	if c == nil {
		return
	}
	c.tick++
	now := c.deps.Clock.Now()
	dt := c.tickInterval

	c.health.TickRevivals(dt, now, c.tick)
	c.combat.AdvanceProjectiles(dt, now, c.tick)

	for _, mapID := range c.registry.IDs() {
		if !c.maps.Simulating(mapID) {
			continue
		}
		def, ok := c.registry.Definition(mapID)
		if !ok {
			continue
		}
		c.ai.Tick(c.EnemiesOnMap(mapID), c.PlayersOnMap(mapID), def.Bounds(), dt, now, c.tick)
	}

	c.maps.Prefetch(c.sortedPlayers(), now)
	c.maps.Tick(now, c.tick)
	c.deps.Metrics.Add(ticksMetricKey, 1)
}

// Snapshot renders the current state in wire form, sorted for determinism.
func (c *Core) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	snap := Snapshot{Tick: c.tick}
	for _, p := range c.sortedPlayers() {
		snap.Players = append(snap.Players, p.Snapshot())
	}
	for _, e := range c.sortedEnemies() {
		snap.Enemies = append(snap.Enemies, e.Snapshot())
	}
	for _, proj := range c.sortedProjectiles() {
		snap.Projectiles = append(snap.Projectiles, proj.Snapshot())
	}
	for _, mapID := range c.registry.IDs() {
		inst, ok := c.maps.Instance(mapID)
		if !ok {
			continue
		}
		snap.Maps = append(snap.Maps, MapStatus{
			ID:      mapID,
			State:   string(inst.State),
			Players: inst.Players,
		})
	}
	return snap
}

// ApplySnapshot replaces the core's state with a previously rendered
// snapshot, as when recovering from a journal keyframe. Transient subsystem
// state that never reaches the wire, revival timers and ability cooldowns,
// restarts empty. Pending events are discarded.
func (c *Core) ApplySnapshot(snap Snapshot) {
	if c == nil {
		return
	}
	now := c.deps.Clock.Now()

	c.tick = snap.Tick
	c.players = make(map[state.EntityID]*state.PlayerState, len(snap.Players))
	c.enemies = make(map[state.EntityID]*state.EnemyState, len(snap.Enemies))
	c.projectiles = make(map[state.EntityID]*state.ProjectileState, len(snap.Projectiles))
	c.nextPlayer = 0
	c.nextEnemy = 0
	c.nextProjectile = 0
	c.queue.Drain()

	for _, p := range snap.Players {
		restored := &state.PlayerState{
			ID:             p.ID,
			Name:           p.Name,
			Pos:            state.Vec2{X: p.X, Y: p.Y},
			MapID:          p.MapID,
			Health:         p.Health,
			MaxHealth:      p.MaxHealth,
			Downed:         p.Downed,
			LastInputSeq:   p.LastSeq,
			EquippedWeapon: p.Weapon,
			LastHeartbeat:  now,
		}
		if restored.EquippedWeapon == "" {
			restored.EquippedWeapon = state.DefaultWeapon
		}
		restored.Inventory.AddArrows(p.Arrows)
		c.players[restored.ID] = restored
		if restored.ID.N > c.nextPlayer {
			c.nextPlayer = restored.ID.N
		}
	}

	for _, e := range snap.Enemies {
		pos := state.Vec2{X: e.X, Y: e.Y}
		restored, ok := ai.NewEnemy(e.ID, e.Type, pos, e.MapID)
		if !ok {
			continue
		}
		restored.Health = e.Health
		restored.MaxHealth = e.MaxHealth
		restored.AIState = e.AIState
		restored.TargetID = e.TargetID
		if restored.HasTarget() {
			restored.LastKnownTarget = pos
		}
		c.enemies[restored.ID] = restored
		if restored.ID.N > c.nextEnemy {
			c.nextEnemy = restored.ID.N
		}
	}

	for _, proj := range snap.Projectiles {
		restored := &state.ProjectileState{
			ID:       proj.ID,
			OwnerID:  proj.OwnerID,
			Pos:      state.Vec2{X: proj.X, Y: proj.Y},
			Vel:      state.Vec2{X: proj.VelX, Y: proj.VelY},
			MapID:    proj.MapID,
			Damage:   proj.Damage,
			TTL:      proj.TTL,
			Traveled: proj.Traveled,
			MaxRange: proj.MaxRange,
		}
		c.projectiles[restored.ID] = restored
		if restored.ID.N > c.nextProjectile {
			c.nextProjectile = restored.ID.N
		}
	}

	c.maps = maps.NewManager(c.registry, c, c.queue)
	for _, status := range snap.Maps {
		c.maps.Restore(status.ID, maps.InstanceState(status.State), status.Players, now)
	}
}

// DrainEvents returns the gameplay events emitted since the last drain.
func (c *Core) DrainEvents() []events.Event {
	if c == nil {
		return nil
	}
	return c.queue.Drain()
}

// Player implements health.Roster.
func (c *Core) Player(id state.EntityID) (*state.PlayerState, bool) {
	p, ok := c.players[id]
	return p, ok
}

// Enemy implements health.Roster.
func (c *Core) Enemy(id state.EntityID) (*state.EnemyState, bool) {
	e, ok := c.enemies[id]
	return e, ok
}

// RemoveEnemy implements health.Roster.
func (c *Core) RemoveEnemy(id state.EntityID) {
	delete(c.enemies, id)
}

// PlayersOnMap lists the players on a map sorted by id.
func (c *Core) PlayersOnMap(mapID string) []*state.PlayerState {
	var out []*state.PlayerState
	for _, p := range c.players {
		if p.MapID == mapID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.N < out[j].ID.N })
	return out
}

// EnemiesOnMap lists the enemies on a map sorted by id.
func (c *Core) EnemiesOnMap(mapID string) []*state.EnemyState {
	var out []*state.EnemyState
	for _, e := range c.enemies {
		if e.MapID == mapID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.N < out[j].ID.N })
	return out
}

// Projectiles lists the in-flight projectiles on simulating maps, sorted by
// id. Projectiles on warm maps hold still until the map heats back up.
func (c *Core) Projectiles() []*state.ProjectileState {
	var out []*state.ProjectileState
	for _, proj := range c.projectiles {
		if c.maps.Simulating(proj.MapID) {
			out = append(out, proj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.N < out[j].ID.N })
	return out
}

// SpawnProjectile implements combat.World.
func (c *Core) SpawnProjectile(p state.ProjectileState) *state.ProjectileState {
	c.nextProjectile++
	p.ID = state.ProjectileID(c.nextProjectile)
	stored := p
	c.projectiles[stored.ID] = &stored
	return &stored
}

// RemoveProjectile implements combat.World.
func (c *Core) RemoveProjectile(id state.EntityID) {
	delete(c.projectiles, id)
}

// MapBounds implements combat.World.
func (c *Core) MapBounds(mapID string) (float64, float64, bool) {
	def, ok := c.registry.Definition(mapID)
	if !ok {
		return 0, 0, false
	}
	return def.Width, def.Height, true
}

// PopulateMap implements maps.World: a cold instance heating up gets its
// definition's enemies.
func (c *Core) PopulateMap(def *maps.Definition) {
	if def == nil {
		return
	}
	for _, spawn := range def.Enemies {
		c.SpawnEnemy(spawn.Type, spawn.Pos, def.ID)
	}
}

// ClearMap implements maps.World: a cooling instance drops all of its
// runtime entities.
func (c *Core) ClearMap(mapID string) {
	for id, e := range c.enemies {
		if e.MapID == mapID {
			delete(c.enemies, id)
		}
	}
	for id, proj := range c.projectiles {
		if proj.MapID == mapID {
			delete(c.projectiles, id)
		}
	}
}

// ChasersOf implements maps.World.
func (c *Core) ChasersOf(player state.EntityID, mapID string) []*state.EnemyState {
	var out []*state.EnemyState
	for _, e := range c.EnemiesOnMap(mapID) {
		if e.AIState == state.EnemyChasing && e.TargetID == player {
			out = append(out, e)
		}
	}
	return out
}

// PursuitOnMap implements maps.World.
func (c *Core) PursuitOnMap(mapID string) bool {
	for _, e := range c.enemies {
		if e.MapID != mapID {
			continue
		}
		if e.AIState == state.EnemyAlert || e.AIState == state.EnemyChasing {
			return true
		}
	}
	return false
}

// RelocateEnemy implements maps.World.
func (c *Core) RelocateEnemy(e *state.EnemyState, mapID string, pos state.Vec2) {
	if e == nil {
		return
	}
	if _, ok := c.enemies[e.ID]; !ok {
		return
	}
	e.MapID = mapID
	e.Pos = pos
	e.Vel = state.Vec2{}
	e.PatrolCenter = pos
}

func (c *Core) sortedPlayers() []*state.PlayerState {
	out := make([]*state.PlayerState, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.N < out[j].ID.N })
	return out
}

func (c *Core) sortedEnemies() []*state.EnemyState {
	out := make([]*state.EnemyState, 0, len(c.enemies))
	for _, e := range c.enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.N < out[j].ID.N })
	return out
}

func (c *Core) sortedProjectiles() []*state.ProjectileState {
	out := make([]*state.ProjectileState, 0, len(c.projectiles))
	for _, proj := range c.projectiles {
		out = append(out, proj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.N < out[j].ID.N })
	return out
}

var _ EngineCore = (*Core)(nil)
var _ health.Roster = (*Core)(nil)
var _ combat.World = (*Core)(nil)
var _ maps.World = (*Core)(nil)
