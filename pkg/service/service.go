// Package service holds the helpers shared by the application services.
// The services themselves live in sub-packages:
//   - goal: life context, goal submission, update, archive and ranking
//   - budget: recommendations and plan commitments
//   - progress: per-goal progress with milestones
//   - tracking: the monthly contribution tracking batch
//   - nudge: event subscribers that notify users
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/planning/allocation"
	"github.com/amirasaad/finplan/pkg/repository"
	"github.com/google/uuid"
)

// Publish emits events in order. It must be called after the transaction
// that produced them committed; failures are logged and never returned.
func Publish(ctx context.Context, bus eventbus.Bus, logger *slog.Logger, evts ...events.Event) {
	if bus == nil {
		return
	}
	for _, e := range evts {
		if err := bus.Emit(ctx, e); err != nil {
			logger.Warn("failed to publish event", "type", e.Type(), "error", err)
		}
	}
}

// Reexpand regenerates the user's commitment over goals and materializes the
// result as the allocation set of month. It reports false when the user has
// no commitment.
func Reexpand(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	goals []*goal.Goal,
	month period.Month,
	now time.Time,
) (bool, error) {
	budgets, err := uow.BudgetRepository()
	if err != nil {
		return false, err
	}
	c, err := budgets.GetCommitment(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	allocs, err := allocation.Expand(c.SavingsBudget, goals, now)
	if err != nil {
		return false, err
	}
	for i := range allocs {
		allocs[i].PlanCode = c.PlanCode
		allocs[i].Month = month
	}
	c.SetAllocations(allocs)
	if err := budgets.UpsertCommitment(ctx, c); err != nil {
		return false, err
	}
	if err := budgets.ReplaceAllocations(ctx, userID, month, allocs); err != nil {
		return false, err
	}
	return true, nil
}
