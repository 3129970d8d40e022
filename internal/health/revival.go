package health

import (
	"sort"
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

// Revival tracks a single in-progress revival channel.
type Revival struct {
	TargetID  state.EntityID
	ReviverID state.EntityID
	StartedAt time.Time
	// Progress advances linearly from 0 to 1 over RevivalDuration.
	Progress float64
}

// StartRevival begins reviving a downed player. It fails when the target is
// not downed, the reviver is downed or is the target, a revival is already
// running for the target, or the reviver is already channeling another one.
func (r *Registry) StartRevival(target, reviver state.EntityID, now time.Time, tick uint64) bool {
	if r == nil || target == reviver {
		return false
	}
	downed, ok := r.roster.Player(target)
	if !ok || !downed.Downed {
		return false
	}
	channeler, ok := r.roster.Player(reviver)
	if !ok || channeler.Downed {
		return false
	}
	if _, active := r.revivals[target]; active {
		return false
	}
	if _, busy := r.byReviver[reviver]; busy {
		return false
	}

	r.revivals[target] = &Revival{TargetID: target, ReviverID: reviver, StartedAt: now}
	r.byReviver[reviver] = target
	r.queue.Emit(events.Event{
		Kind:   events.KindRevivalStarted,
		Tick:   tick,
		Actor:  reviver,
		Target: target,
		MapID:  downed.MapID,
	})
	return true
}

// CancelRevival aborts the revival running for target, if any.
func (r *Registry) CancelRevival(target state.EntityID, tick uint64) bool {
	if r == nil {
		return false
	}
	revival, ok := r.revivals[target]
	if !ok {
		return false
	}
	delete(r.revivals, target)
	delete(r.byReviver, revival.ReviverID)
	r.queue.Emit(events.Event{
		Kind:   events.KindRevivalCancelled,
		Tick:   tick,
		Actor:  revival.ReviverID,
		Target: target,
	})
	return true
}

// ActiveRevival returns the revival running for target, if any.
func (r *Registry) ActiveRevival(target state.EntityID) (Revival, bool) {
	if r == nil {
		return Revival{}, false
	}
	revival, ok := r.revivals[target]
	if !ok {
		return Revival{}, false
	}
	return *revival, true
}

// TickRevivals advances every active revival by dt seconds. Channels whose
// reviver went down or disappeared cancel; channels reaching full progress
// atomically revive the target at half max health.
func (r *Registry) TickRevivals(dt float64, now time.Time, tick uint64) {
	if r == nil || dt <= 0 || len(r.revivals) == 0 {
		return
	}

	// Iterate in id order so event emission stays deterministic.
	targets := make([]state.EntityID, 0, len(r.revivals))
	for target := range r.revivals {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].N < targets[j].N })

	for _, target := range targets {
		revival := r.revivals[target]
		channeler, ok := r.roster.Player(revival.ReviverID)
		if !ok || channeler.Downed {
			r.CancelRevival(target, tick)
			continue
		}
		downed, ok := r.roster.Player(target)
		if !ok || !downed.Downed {
			r.CancelRevival(target, tick)
			continue
		}

		revival.Progress += dt / RevivalDuration.Seconds()
		if revival.Progress < 1 {
			continue
		}

		downed.Downed = false
		downed.Health = downed.MaxHealth * RevivedHealthFraction
		delete(r.revivals, target)
		delete(r.byReviver, revival.ReviverID)
		r.queue.Emit(events.Event{
			Kind:   events.KindPlayerRevived,
			Tick:   tick,
			Actor:  revival.ReviverID,
			Target: target,
			MapID:  downed.MapID,
			Amount: downed.Health,
		})
	}
}

// CancelByReviver aborts whatever revival the reviver is channeling, if any.
func (r *Registry) CancelByReviver(reviver state.EntityID, tick uint64) bool {
	if r == nil {
		return false
	}
	target, ok := r.byReviver[reviver]
	if !ok {
		return false
	}
	return r.CancelRevival(target, tick)
}
