package sim

import (
	"sync"
	"time"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/state"
	"guildmaster/server/internal/telemetry"
	"guildmaster/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to
	// per-actor queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is
	// saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// LoopTickContext carries the timing of one tick into the hooks.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult reports what one tick produced.
type LoopStepResult struct {
	Tick     uint64
	Now      time.Time
	Delta    float64
	Snapshot Snapshot
	Commands []Command
	Events   []events.Event

	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// LoopHooks lets the hosting process observe loop activity without the loop
// importing transport or persistence packages.
type LoopHooks struct {
	Prepare        func(LoopTickContext)
	NextTick       func() uint64
	AfterStep      func(LoopStepResult)
	OnQueueWarning func(length int)
	OnCommandDrop  func(reason string, cmd Command)
}

// Loop coordinates command ingestion and the fixed-timestep simulation
// runner. The core itself is single-threaded; coreMu serializes the tick
// goroutine against session calls arriving from transport goroutines.
type Loop struct {
	coreMu  sync.Mutex
	core    EngineCore
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics

	queueMu       sync.Mutex
	perActorCount map[state.EntityID]int
	dropCounts    map[state.EntityID]uint64
}

// NewLoop wraps the provided engine core with a ring-buffer queue and loop.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	deps := core.Deps()
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		perActorCount: make(map[state.EntityID]int),
		dropCounts:    make(map[state.EntityID]uint64),
	}
}

// Deps returns the injected dependencies for the underlying engine.
func (l *Loop) Deps() Deps {
	if l == nil {
		return Deps{}
	}
	return l.core.Deps()
}

// Apply delegates to the underlying engine.
func (l *Loop) Apply(cmds []Command) error {
	if l == nil {
		return nil
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	return l.core.Apply(cmds)
}

// Step delegates to the underlying engine.
func (l *Loop) Step() {
	if l == nil {
		return
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	l.core.Step()
}

// Snapshot delegates to the underlying engine.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	return l.core.Snapshot()
}

// DrainEvents delegates to the underlying engine.
func (l *Loop) DrainEvents() []events.Event {
	if l == nil {
		return nil
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	return l.core.DrainEvents()
}

// Tick reports the engine's last completed tick.
func (l *Loop) Tick() uint64 {
	if l == nil {
		return 0
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	return l.core.Tick()
}

// AddPlayer registers a player between ticks. Transport goroutines must join
// through here rather than touching the engine directly.
func (l *Loop) AddPlayer(name string) *state.PlayerState {
	if l == nil {
		return nil
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	return l.core.AddPlayer(name)
}

// RemovePlayer drops a player between ticks.
func (l *Loop) RemovePlayer(id state.EntityID) bool {
	if l == nil {
		return false
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	return l.core.RemovePlayer(id)
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && !cmd.Actor.IsZero() {
		count := l.perActorCount[cmd.Actor]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.Actor)
		} else {
			l.perActorCount[cmd.Actor] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.Actor)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	l.coreMu.Lock()
	defer l.coreMu.Unlock()
	_ = l.core.Apply(commands)
	l.core.Step()
	return LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Snapshot: l.core.Snapshot(),
		Commands: commands,
		Events:   l.core.DrainEvents(),
	}
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	clock := l.core.Deps().Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	last := clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}
	budgetDuration := time.Second / time.Duration(tickRate)

	var tick uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			if l.hooks.NextTick != nil {
				tick = l.hooks.NextTick()
			} else {
				tick++
			}

			start := clock.Now()
			result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: dt})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budgetDuration
			result.ClampedDelta = clamped
			result.MaxDelta = maxDt

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[state.EntityID]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actor state.EntityID) uint64 {
	if actor.IsZero() {
		return 0
	}
	count := l.dropCounts[actor] + 1
	l.dropCounts[actor] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if reason == CommandRejectQueueLimit && count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s count=%d limit=%d",
			cmd.Actor,
			cmd.Type,
			count,
			l.config.PerActorLimit,
		)
	}
}

// Ensure Loop implements Engine.
var _ Engine = (*Loop)(nil)

// Ensure the buffer's metric plumbing matches the telemetry contract.
var _ telemetryMetrics = (telemetry.Metrics)(nil)
