package world

import (
	"math"
	"testing"

	"guildmaster/server/internal/state"
)

func TestPredictorMatchesAuthorityForSameInputs(t *testing.T) {
	predictor := NewPredictor(32, state.Vec2{X: 100, Y: 500})

	seq, pos := predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1)
	if seq != 1 {
		t.Fatalf("expected first sequence 1, got %d", seq)
	}
	if pos.X != 120 || pos.Y != 500 {
		t.Fatalf("expected predicted position (120,500), got (%v,%v)", pos.X, pos.Y)
	}
}

func TestPredictorCorrectReplaysUnackedInputs(t *testing.T) {
	predictor := NewPredictor(32, state.Vec2{})

	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1) // seq 1
	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1) // seq 2
	predictor.Predict(state.Vec2{X: 0, Y: 1}, 0.1) // seq 3

	// Server acknowledged seq 1 at an authoritative position that differs
	// from local prediction; inputs 2 and 3 replay on top of it.
	pos := predictor.Correct(state.Vec2{X: 10, Y: 0}, 1)

	if math.Abs(pos.X-30) > 1e-9 || math.Abs(pos.Y-20) > 1e-9 {
		t.Fatalf("expected replayed position (30,20), got (%v,%v)", pos.X, pos.Y)
	}
	if predictor.Pending() != 2 {
		t.Fatalf("expected 2 pending inputs after ack, got %d", predictor.Pending())
	}
}

func TestPredictorEvictsOldestWhenFull(t *testing.T) {
	predictor := NewPredictor(2, state.Vec2{})

	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1)
	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1)
	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1)

	if predictor.Pending() != 2 {
		t.Fatalf("expected ring capped at 2 entries, got %d", predictor.Pending())
	}

	// Only the two newest inputs replay after a correction.
	pos := predictor.Correct(state.Vec2{}, 0)
	if math.Abs(pos.X-40) > 1e-9 {
		t.Fatalf("expected replay of 2 inputs (40px), got %v", pos.X)
	}
}

func TestPredictorAcknowledgeDropsWithoutMoving(t *testing.T) {
	predictor := NewPredictor(8, state.Vec2{})
	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1)
	predictor.Predict(state.Vec2{X: 1, Y: 0}, 0.1)
	before := predictor.Position()

	predictor.Acknowledge(2)

	if predictor.Pending() != 0 {
		t.Fatalf("expected all inputs acknowledged")
	}
	if predictor.Position() != before {
		t.Fatalf("expected acknowledge to leave the prediction untouched")
	}
}
