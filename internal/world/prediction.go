package world

import "guildmaster/server/internal/state"

// PredictedInput records one client-side prediction awaiting acknowledgement.
type PredictedInput struct {
	Seq uint32
	Dir state.Vec2
	Dt  float64
}

// Predictor is the client half of the reconciliation loop: a fixed-capacity
// ring of unacknowledged inputs keyed by sequence number. When the server
// corrects, the predictor snaps to the authoritative position and replays
// every buffered input newer than the acknowledged sequence.
type Predictor struct {
	ring  []PredictedInput
	head  int
	count int
	seq   uint32
	pos   state.Vec2
	speed float64
}

// NewPredictor constructs a predictor starting at pos. Capacity bounds how
// many unacknowledged inputs survive; older entries are evicted.
func NewPredictor(capacity int, start state.Vec2) *Predictor {
	if capacity < 1 {
		capacity = 1
	}
	return &Predictor{
		ring:  make([]PredictedInput, capacity),
		pos:   start,
		speed: MoveSpeed,
	}
}

// Position returns the current predicted position.
func (p *Predictor) Position() state.Vec2 {
	if p == nil {
		return state.Vec2{}
	}
	return p.pos
}

// Pending reports the number of unacknowledged inputs.
func (p *Predictor) Pending() int {
	if p == nil {
		return 0
	}
	return p.count
}

// Predict integrates one input locally and buffers it for replay. It returns
// the sequence number to submit alongside the input.
func (p *Predictor) Predict(dir state.Vec2, dt float64) (uint32, state.Vec2) {
	if p == nil || dt <= 0 {
		return 0, state.Vec2{}
	}
	p.seq++
	input := PredictedInput{Seq: p.seq, Dir: dir, Dt: dt}

	idx := (p.head + p.count) % len(p.ring)
	if p.count == len(p.ring) {
		// Ring full: evict the oldest prediction.
		p.head = (p.head + 1) % len(p.ring)
		p.count--
	}
	p.ring[idx] = input
	p.count++

	p.pos = integrate(p.pos, input, p.speed)
	return p.seq, p.pos
}

// Acknowledge drops buffered inputs with sequence <= acked without replaying.
func (p *Predictor) Acknowledge(acked uint32) {
	if p == nil {
		return
	}
	for p.count > 0 && p.ring[p.head].Seq <= acked {
		p.head = (p.head + 1) % len(p.ring)
		p.count--
	}
}

// Correct snaps to the authoritative position and replays every buffered
// input newer than the acknowledged sequence, returning the new prediction.
func (p *Predictor) Correct(authoritative state.Vec2, acked uint32) state.Vec2 {
	if p == nil {
		return state.Vec2{}
	}
	p.Acknowledge(acked)
	p.pos = authoritative
	for i := 0; i < p.count; i++ {
		input := p.ring[(p.head+i)%len(p.ring)]
		p.pos = integrate(p.pos, input, p.speed)
	}
	return p.pos
}

func integrate(pos state.Vec2, input PredictedInput, speed float64) state.Vec2 {
	return pos.Add(input.Dir.Normalize().Scale(speed * input.Dt))
}
