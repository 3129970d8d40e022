package sim

import (
	"math/rand"
	"time"

	"guildmaster/server/internal/telemetry"
	"guildmaster/server/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation
// engine.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
	RNG     *rand.Rand
}

func (d Deps) normalized() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.NopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Clock == nil {
		d.Clock = logging.ClockFunc(time.Now)
	}
	if d.RNG == nil {
		d.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return d
}
