package simulation

import (
	"context"

	"guildmaster/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when the simulation loop exceeds the allotted tick budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventCommandRejected is emitted when a staged command is dropped before the tick.
	EventCommandRejected logging.EventType = "simulation.command_rejected"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// CommandRejectedPayload names the throttle that dropped the command.
type CommandRejectedPayload struct {
	CommandType string `json:"commandType"`
	Reason      string `json:"reason"`
}

// TickBudgetOverrun publishes a warning when the simulation exceeds the configured tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// CommandRejected publishes a dropped command at debug severity.
func CommandRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
