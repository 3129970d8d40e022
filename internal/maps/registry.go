// Package maps owns the world layout: map definitions, per-map instance
// lifecycle, and the authority that moves players between maps.
package maps

import (
	"fmt"
	"math"
	"sort"

	"guildmaster/server/internal/state"
	worldpkg "guildmaster/server/internal/world"
)

// StartingMap receives players with no saved location and is the fallback for
// unknown destinations.
const StartingMap = "tavern_outside"

// Zone is an axis-aligned trigger rectangle. A player standing inside it may
// transition to the destination map, arriving at the paired point.
type Zone struct {
	X       float64
	Y       float64
	Width   float64
	Height  float64
	To      string
	Arrival state.Vec2
}

// Contains reports whether p lies inside the zone, edges included.
func (z Zone) Contains(p state.Vec2) bool {
	return p.X >= z.X && p.X <= z.X+z.Width &&
		p.Y >= z.Y && p.Y <= z.Y+z.Height
}

// DistanceTo returns the distance from p to the nearest edge of the zone,
// zero when p is inside.
func (z Zone) DistanceTo(p state.Vec2) float64 {
	dx := math.Max(math.Max(z.X-p.X, 0), p.X-(z.X+z.Width))
	dy := math.Max(math.Max(z.Y-p.Y, 0), p.Y-(z.Y+z.Height))
	return math.Hypot(dx, dy)
}

// EnemySpawn places one enemy when a map instance goes hot.
type EnemySpawn struct {
	Type state.EnemyType
	Pos  state.Vec2
}

// Definition is the static layout of one map.
type Definition struct {
	ID     string
	Width  float64
	Height float64
	// Spawn is where freshly joined players appear.
	Spawn   state.Vec2
	Zones   []Zone
	Enemies []EnemySpawn
}

// Bounds returns the playable rectangle of the map.
func (d *Definition) Bounds() worldpkg.Bounds {
	if d == nil {
		return worldpkg.Bounds{}
	}
	return worldpkg.Bounds{Width: d.Width, Height: d.Height}
}

// Registry stores every known map definition.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry indexes the given definitions. Duplicate ids and zones pointing
// at unknown maps are configuration errors.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, def := range defs {
		if def == nil || def.ID == "" {
			return nil, fmt.Errorf("maps: definition without an id")
		}
		if _, dup := r.defs[def.ID]; dup {
			return nil, fmt.Errorf("maps: duplicate definition %q", def.ID)
		}
		r.defs[def.ID] = def
	}
	for _, def := range r.defs {
		for _, zone := range def.Zones {
			if _, ok := r.defs[zone.To]; !ok {
				return nil, fmt.Errorf("maps: %q has a zone to unknown map %q", def.ID, zone.To)
			}
		}
	}
	return r, nil
}

// Definition returns the layout for a map id.
func (r *Registry) Definition(id string) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.defs[id]
	return def, ok
}

// IDs lists every registered map id in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry builds the shipped world: the tavern exterior and interior,
// linked by doorway zones. Coordinates sit on the 8 px tile grid.
func DefaultRegistry() *Registry {
	outside := &Definition{
		ID:     "tavern_outside",
		Width:  320,
		Height: 240,
		Spawn:  state.Vec2{X: 160, Y: 120},
		Zones: []Zone{{
			X: 136, Y: 168, Width: 8, Height: 8,
			To:      "tavern_inside",
			Arrival: state.Vec2{X: 176, Y: 88},
		}},
		Enemies: []EnemySpawn{
			{Type: state.EnemyTypeGoblin, Pos: state.Vec2{X: 60, Y: 60}},
			{Type: state.EnemyTypeGoblin, Pos: state.Vec2{X: 260, Y: 180}},
			{Type: state.EnemyTypeOrc, Pos: state.Vec2{X: 280, Y: 40}},
		},
	}
	inside := &Definition{
		ID:     "tavern_inside",
		Width:  240,
		Height: 160,
		Spawn:  state.Vec2{X: 120, Y: 80},
		Zones: []Zone{{
			X: 176, Y: 96, Width: 8, Height: 8,
			To:      "tavern_outside",
			Arrival: state.Vec2{X: 116, Y: 188},
		}},
	}
	registry, err := NewRegistry(outside, inside)
	if err != nil {
		panic(err)
	}
	return registry
}
