// Package nudge subscribes to progress events and notifies users. The only
// channel today is the structured log.
package nudge

import (
	"context"
	"log/slog"

	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/eventbus"
)

// Register subscribes the nudge handlers to bus. Redelivered events are
// dropped.
func Register(bus eventbus.Bus, logger *slog.Logger) {
	logger = logger.With("component", "nudge")
	tracker := NewTracker()
	bus.Register(events.EventTypeMilestoneReach, Once(MilestoneHandler(logger), tracker, DeliveryKey, logger))
	bus.Register(events.EventTypeGoalCompleted, Once(CompletionHandler(logger), tracker, DeliveryKey, logger))
	bus.Register(events.EventTypeCommitmentAccepted, Once(CommitmentHandler(logger), tracker, DeliveryKey, logger))
}

// MilestoneHandler congratulates a user on a milestone.
func MilestoneHandler(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		var m events.MilestoneAttained
		switch ev := e.(type) {
		case events.MilestoneAttained:
			m = ev
		case *events.MilestoneAttained:
			m = *ev
		default:
			logger.Warn("unexpected event", "type", e.Type())
			return nil
		}
		logger.InfoContext(ctx, "milestone attained",
			"user_id", m.UserID,
			"goal_id", m.GoalID,
			"goal", m.GoalName,
			"pct", m.Pct,
			"month", m.Month,
		)
		return nil
	}
}

// CompletionHandler tells a user a goal is fully funded.
func CompletionHandler(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		var c events.GoalCompleted
		switch ev := e.(type) {
		case events.GoalCompleted:
			c = ev
		case *events.GoalCompleted:
			c = *ev
		default:
			logger.Warn("unexpected event", "type", e.Type())
			return nil
		}
		logger.InfoContext(ctx, "goal completed",
			"user_id", c.UserID,
			"goal_id", c.GoalID,
			"goal", c.GoalName,
			"month", c.Month,
		)
		return nil
	}
}

// CommitmentHandler confirms an accepted plan.
func CommitmentHandler(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		var c events.CommitmentAccepted
		switch ev := e.(type) {
		case events.CommitmentAccepted:
			c = ev
		case *events.CommitmentAccepted:
			c = *ev
		default:
			logger.Warn("unexpected event", "type", e.Type())
			return nil
		}
		logger.InfoContext(ctx, "plan committed",
			"user_id", c.UserID,
			"plan_code", c.PlanCode,
			"savings_budget", c.SavingsBudget,
			"goals", c.GoalCount,
		)
		return nil
	}
}
