package journal

import "fmt"

// ResyncReason names a write the journal failed to persist.
type ResyncReason struct {
	Kind string
	Tick uint64
}

// ResyncSignal summarizes the drops that made the journal window untrustworthy.
type ResyncSignal struct {
	DroppedWrites uint64
	TotalWrites   uint64
	Reasons       []ResyncReason
}

// Policy tracks journal write failures and decides when the recorded window
// can no longer be trusted for replay, so consumers should fall back to a
// fresh keyframe.
type Policy struct {
	totalWrites   uint64
	droppedWrites uint64
	pending       bool
	reasons       []ResyncReason
}

const droppedWriteThresholdPerTenThousand = 1
const resyncReasonLimit = 8

// NewPolicy constructs an empty policy.
func NewPolicy() *Policy {
	return &Policy{reasons: make([]ResyncReason, 0, resyncReasonLimit)}
}

// NoteWrite records a successful journal write.
func (p *Policy) NoteWrite() {
	if p == nil {
		return
	}
	if p.totalWrites == ^uint64(0) {
		p.totalWrites = p.totalWrites / 2
		p.droppedWrites = p.droppedWrites / 2
	}
	p.totalWrites++
}

// NoteDroppedWrite records a failed journal write and re-evaluates whether a
// resync is warranted.
func (p *Policy) NoteDroppedWrite(kind string, tick uint64) {
	if p == nil {
		return
	}
	p.droppedWrites++
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, ResyncReason{Kind: kind, Tick: tick})
	}
	p.evaluate()
}

func (p *Policy) evaluate() {
	if p == nil || p.pending || p.droppedWrites == 0 {
		return
	}
	total := p.totalWrites
	if total == 0 {
		total = 1
	}
	if p.droppedWrites*10000 >= total*droppedWriteThresholdPerTenThousand {
		p.pending = true
	}
}

// Consume returns the pending resync signal, if any, and resets the counters.
func (p *Policy) Consume() (ResyncSignal, bool) {
	if p == nil || !p.pending {
		return ResyncSignal{}, false
	}
	signal := ResyncSignal{
		DroppedWrites: p.droppedWrites,
		TotalWrites:   p.totalWrites,
		Reasons:       append([]ResyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.totalWrites = 0
	p.droppedWrites = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

// Summary renders the signal for log output.
func (s ResyncSignal) Summary() string {
	if s.DroppedWrites == 0 && s.TotalWrites == 0 {
		return ""
	}
	return fmt.Sprintf("dropped_writes=%d total_writes=%d reasons=%v", s.DroppedWrites, s.TotalWrites, s.Reasons)
}
