package journal

import (
	"context"
	"time"

	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/telemetry"
)

const (
	// DefaultKeyframeInterval writes a keyframe every N ticks.
	DefaultKeyframeInterval uint64 = 15
	// DefaultWriteTimeout bounds each redis round trip from the tick loop.
	DefaultWriteTimeout = 250 * time.Millisecond
)

// Recorder bridges the fixed-timestep loop to the store: every drained event
// batch is persisted, and a full keyframe is written on a fixed tick cadence.
// Failures feed the resync policy instead of blocking the simulation.
type Recorder struct {
	store    *Store
	policy   *Policy
	logger   telemetry.Logger
	interval uint64
	timeout  time.Duration
}

// NewRecorder constructs a recorder writing keyframes every interval ticks.
func NewRecorder(store *Store, interval uint64, logger telemetry.Logger) *Recorder {
	if interval == 0 {
		interval = DefaultKeyframeInterval
	}
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &Recorder{
		store:    store,
		policy:   NewPolicy(),
		logger:   logger,
		interval: interval,
		timeout:  DefaultWriteTimeout,
	}
}

// ObserveStep persists the step's event batch and, on cadence, a keyframe.
// Intended to run from the loop's AfterStep hook.
func (r *Recorder) ObserveStep(result sim.LoopStepResult) {
	if r == nil || r.store == nil {
		return
	}
	tick := result.Snapshot.Tick

	if len(result.Events) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.RecordEvents(ctx, tick, result.Events)
		cancel()
		if err != nil {
			r.policy.NoteDroppedWrite("events", tick)
			r.logger.Printf("[journal] event batch dropped tick=%d err=%v", tick, err)
		} else {
			r.policy.NoteWrite()
		}
	}

	if tick%r.interval == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.RecordKeyframe(ctx, result.Snapshot)
		cancel()
		if err != nil {
			r.policy.NoteDroppedWrite("keyframe", tick)
			r.logger.Printf("[journal] keyframe dropped tick=%d err=%v", tick, err)
		} else {
			r.policy.NoteWrite()
		}
	}

	if signal, ok := r.policy.Consume(); ok {
		r.logger.Printf("[journal] resync recommended: %s", signal.Summary())
	}
}
