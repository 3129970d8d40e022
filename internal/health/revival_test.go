package health

import (
	"testing"
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
)

func downPlayer(p *state.PlayerState) {
	p.Health = 0
	p.Downed = true
}

func TestStartRevivalConstraints(t *testing.T) {
	roster := newFakeRoster()
	registry := NewRegistry(roster, &events.Queue{})
	downed := roster.addPlayer(1, 100)
	reviver := roster.addPlayer(2, 100)
	now := time.Unix(100, 0)

	if registry.StartRevival(downed.ID, reviver.ID, now, 1) {
		t.Fatalf("expected revival on a standing player to fail")
	}

	downPlayer(downed)
	if registry.StartRevival(downed.ID, downed.ID, now, 1) {
		t.Fatalf("expected self-revival to fail")
	}
	if !registry.StartRevival(downed.ID, reviver.ID, now, 1) {
		t.Fatalf("expected revival to start")
	}
	if _, active := registry.ActiveRevival(downed.ID); !active {
		t.Fatalf("expected an active revival for the target")
	}
}

func TestStartRevivalExclusivePerTarget(t *testing.T) {
	roster := newFakeRoster()
	registry := NewRegistry(roster, &events.Queue{})
	downed := roster.addPlayer(1, 100)
	first := roster.addPlayer(2, 100)
	second := roster.addPlayer(3, 100)
	now := time.Unix(100, 0)
	downPlayer(downed)

	registry.StartRevival(downed.ID, first.ID, now, 1)
	registry.TickRevivals(1.0, now.Add(time.Second), 2)

	if registry.StartRevival(downed.ID, second.ID, now.Add(time.Second), 2) {
		t.Fatalf("expected a second revival on the same target to fail")
	}
	revival, _ := registry.ActiveRevival(downed.ID)
	if revival.ReviverID != first.ID {
		t.Fatalf("expected the first reviver to keep the channel, got %v", revival.ReviverID)
	}
	if revival.Progress < 0.3 || revival.Progress > 0.4 {
		t.Fatalf("expected roughly 1/3 progress to survive, got %v", revival.Progress)
	}
}

func TestStartRevivalExclusivePerReviver(t *testing.T) {
	roster := newFakeRoster()
	registry := NewRegistry(roster, &events.Queue{})
	firstDown := roster.addPlayer(1, 100)
	secondDown := roster.addPlayer(2, 100)
	reviver := roster.addPlayer(3, 100)
	now := time.Unix(100, 0)
	downPlayer(firstDown)
	downPlayer(secondDown)

	registry.StartRevival(firstDown.ID, reviver.ID, now, 1)
	if registry.StartRevival(secondDown.ID, reviver.ID, now, 1) {
		t.Fatalf("expected a busy reviver to be rejected")
	}
}

func TestTickRevivalsCompletesAtHalfHealth(t *testing.T) {
	roster := newFakeRoster()
	queue := &events.Queue{}
	registry := NewRegistry(roster, queue)
	downed := roster.addPlayer(1, 100)
	reviver := roster.addPlayer(2, 100)
	now := time.Unix(100, 0)
	downPlayer(downed)

	registry.StartRevival(downed.ID, reviver.ID, now, 1)
	queue.Drain()

	for i := 0; i < 30; i++ {
		registry.TickRevivals(0.1, now.Add(time.Duration(i)*100*time.Millisecond), uint64(2+i))
	}

	if downed.Downed {
		t.Fatalf("expected the target to be revived")
	}
	if downed.Health != 50 {
		t.Fatalf("expected revival at half max health, got %v", downed.Health)
	}
	if _, active := registry.ActiveRevival(downed.ID); active {
		t.Fatalf("expected the channel to be cleared after completion")
	}

	var revived bool
	for _, event := range queue.Drain() {
		if event.Kind == events.KindPlayerRevived && event.Target == downed.ID {
			revived = true
		}
	}
	if !revived {
		t.Fatalf("expected a revived event for the target")
	}
}

func TestTickRevivalsCancelsWhenReviverGoesDown(t *testing.T) {
	roster := newFakeRoster()
	queue := &events.Queue{}
	registry := NewRegistry(roster, queue)
	downed := roster.addPlayer(1, 100)
	reviver := roster.addPlayer(2, 100)
	now := time.Unix(100, 0)
	downPlayer(downed)

	registry.StartRevival(downed.ID, reviver.ID, now, 1)
	registry.TickRevivals(1.0, now.Add(time.Second), 2)

	// Reviver takes a lethal hit mid-channel.
	registry.ApplyDamage(reviver.ID, 200, state.EnemyID(1), now.Add(time.Second), 3)
	registry.TickRevivals(1.0, now.Add(2*time.Second), 4)

	if _, active := registry.ActiveRevival(downed.ID); active {
		t.Fatalf("expected the channel to cancel when the reviver went down")
	}
	if !downed.Downed {
		t.Fatalf("expected the target to remain downed")
	}

	var cancelled bool
	for _, event := range queue.Drain() {
		if event.Kind == events.KindRevivalCancelled && event.Target == downed.ID {
			cancelled = true
		}
	}
	if !cancelled {
		t.Fatalf("expected a cancellation event")
	}
}

func TestCancelRevivalFreesReviver(t *testing.T) {
	roster := newFakeRoster()
	registry := NewRegistry(roster, &events.Queue{})
	firstDown := roster.addPlayer(1, 100)
	secondDown := roster.addPlayer(2, 100)
	reviver := roster.addPlayer(3, 100)
	now := time.Unix(100, 0)
	downPlayer(firstDown)
	downPlayer(secondDown)

	registry.StartRevival(firstDown.ID, reviver.ID, now, 1)
	if !registry.CancelRevival(firstDown.ID, 2) {
		t.Fatalf("expected cancellation to succeed")
	}
	if !registry.StartRevival(secondDown.ID, reviver.ID, now, 3) {
		t.Fatalf("expected the reviver to be free after cancellation")
	}
}
