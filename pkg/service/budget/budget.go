// Package budget provides the recommendation and plan commitment use cases.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/planning/allocation"
	"github.com/amirasaad/finplan/pkg/planning/recommend"
	"github.com/amirasaad/finplan/pkg/provider"
	"github.com/amirasaad/finplan/pkg/repository"
	"github.com/amirasaad/finplan/pkg/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrailingMonths is the number of completed months averaged into the
// recommendation aggregate.
const TrailingMonths = 3

// AllocationInput is one user-chosen goal amount in a commitment.
type AllocationInput struct {
	GoalID        uuid.UUID
	MonthlyAmount decimal.Decimal
}

// CommitInput is a plan the user accepts. Empty Allocations are expanded
// from the ranked goals.
type CommitInput struct {
	PlanCode    string
	Allocations []AllocationInput
}

// Service provides budget operations.
type Service struct {
	uow        repository.UnitOfWork
	aggregates provider.AggregateProvider
	bus        eventbus.Bus
	categories *goal.Catalog
	templates  *budget.Catalog
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a budget Service.
func New(
	uow repository.UnitOfWork,
	aggregates provider.AggregateProvider,
	bus eventbus.Bus,
	categories *goal.Catalog,
	templates *budget.Catalog,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:        uow,
		aggregates: aggregates,
		bus:        bus,
		categories: categories,
		templates:  templates,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Recommendations returns exactly three personalized plans, balanced first,
// or the balanced plan alone with zero amounts when there is no income
// history. Every generated set is audited.
func (s *Service) Recommendations(
	ctx context.Context,
	userID uuid.UUID,
) (result recommend.Result, err error) {
	logger := s.logger.With("user_id", userID, "op", "recommendations")
	now := s.now()
	month := period.Of(now)

	avg, err := s.trailingAverage(ctx, userID, month)
	if err != nil {
		logger.Error("failed to read aggregates", "error", err)
		return recommend.Result{}, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		goals, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		ranked, err := goals.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		lc, err := goals.GetLifeContext(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		result, err = recommend.Recommend(recommend.Input{
			Aggregate:   avg,
			Goals:       ranked,
			LifeContext: lc,
			Categories:  s.categories,
			Templates:   s.templates,
			Now:         now,
		})
		if err != nil {
			return err
		}
		budgets, err := uow.BudgetRepository()
		if err != nil {
			return err
		}
		return budgets.RecordRecommendations(ctx, &budget.RecommendationAudit{
			ID:              uuid.New(),
			UserID:          userID,
			Month:           month,
			LowData:         result.LowData,
			Aggregate:       avg,
			Recommendations: result.Recommendations,
			CreatedAt:       now.UTC(),
		})
	})
	if err != nil {
		logger.Error("failed to generate recommendations", "error", err)
		return recommend.Result{}, err
	}

	codes := make([]string, 0, len(result.Recommendations))
	for _, r := range result.Recommendations {
		codes = append(codes, r.PlanCode)
	}
	logger.Info("recommendations generated", "plans", codes, "low_data", result.LowData)
	service.Publish(ctx, s.bus, logger, events.RecommendationsGenerated{
		FlowEvent: events.NewFlowEvent(userID, now),
		Month:     month.String(),
		PlanCodes: codes,
		LowData:   result.LowData,
	})
	return result, nil
}

// trailingAverage averages the aggregates of the months before month that
// the provider has. Missing months are skipped; with none the result is a
// zero, low-data aggregate.
func (s *Service) trailingAverage(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (budget.MonthlyAggregate, error) {
	var found []budget.MonthlyAggregate
	for _, m := range month.Trailing(TrailingMonths) {
		agg, err := s.aggregates.GetMonthlyAggregate(ctx, userID, m)
		if errors.Is(err, domain.ErrDataUnavailable) {
			continue
		}
		if err != nil {
			return budget.MonthlyAggregate{}, fmt.Errorf("aggregate %s: %w", m, err)
		}
		found = append(found, *agg)
	}
	avg := budget.Average(found)
	avg.UserID = userID
	if avg.Month.IsZero() {
		avg.Month = month.Prev()
	}
	return avg, nil
}

// Commit validates and stores the user's plan, replacing any earlier one,
// and materializes the current month's allocations.
func (s *Service) Commit(
	ctx context.Context,
	userID uuid.UUID,
	in CommitInput,
) (c *budget.Commitment, allocs []budget.GoalAllocation, err error) {
	logger := s.logger.With("user_id", userID, "op", "commit", "plan_code", in.PlanCode)
	tmpl, ok := s.templates.Lookup(in.PlanCode)
	if !ok {
		return nil, nil, domain.Validation(domain.CodeUnknownPlan, "unknown plan_code %q", in.PlanCode)
	}
	now := s.now()
	month := period.Of(now)

	avg, err := s.trailingAverage(ctx, userID, month)
	if err != nil {
		logger.Error("failed to read aggregates", "error", err)
		return nil, nil, err
	}
	_, _, savings, err := recommend.Amounts(tmpl, avg.Income)
	if err != nil {
		return nil, nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		goals, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		ranked, err := goals.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(in.Allocations) == 0 {
			allocs, err = allocation.Expand(savings, ranked, now)
		} else {
			allocs, err = validateAllocations(in.Allocations, ranked, savings)
		}
		if err != nil {
			return err
		}
		for i := range allocs {
			allocs[i].PlanCode = tmpl.PlanCode
			allocs[i].Month = month
		}

		c = &budget.Commitment{
			ID:            uuid.New(),
			UserID:        userID,
			PlanCode:      tmpl.PlanCode,
			Month:         month,
			SavingsBudget: savings,
			CommittedAt:   now.UTC(),
		}
		c.SetAllocations(allocs)
		budgets, err := uow.BudgetRepository()
		if err != nil {
			return err
		}
		if err := budgets.UpsertCommitment(ctx, c); err != nil {
			return err
		}
		return budgets.ReplaceAllocations(ctx, userID, month, allocs)
	})
	if err != nil {
		logger.Error("failed to commit plan", "error", err)
		return nil, nil, err
	}

	logger.Info("plan committed", "savings_budget", savings, "goals", len(allocs))
	service.Publish(ctx, s.bus, logger, events.CommitmentAccepted{
		FlowEvent:     events.NewFlowEvent(userID, now),
		PlanCode:      c.PlanCode,
		Month:         month.String(),
		SavingsBudget: savings,
		GoalCount:     len(allocs),
	})
	return c, allocs, nil
}

// validateAllocations checks user-chosen amounts against the active goals
// and the plan's savings budget.
func validateAllocations(
	inputs []AllocationInput,
	goals []*goal.Goal,
	savings decimal.Decimal,
) ([]budget.GoalAllocation, error) {
	active := make(map[uuid.UUID]*goal.Goal, len(goals))
	for _, g := range goals {
		if g.IsActive() {
			active[g.ID] = g
		}
	}
	seen := make(map[uuid.UUID]bool, len(inputs))
	amounts := make([]decimal.Decimal, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := active[in.GoalID]; !ok {
			return nil, domain.Validation(domain.CodeAllocationUnknownGoal, "goal %s is not an active goal", in.GoalID)
		}
		if seen[in.GoalID] {
			return nil, domain.Validation(domain.CodeInvalidRequest, "goal %s is allocated twice", in.GoalID)
		}
		seen[in.GoalID] = true
		if in.MonthlyAmount.IsNegative() {
			return nil, domain.Validation(domain.CodeAllocationNegative, "allocation for goal %s is negative", in.GoalID)
		}
		amounts = append(amounts, money.Round(in.MonthlyAmount))
	}
	if total := money.Sum(amounts...); !money.WithinTolerance(total, savings) {
		return nil, domain.Validation(domain.CodeAllocationSumMismatch,
			"allocations sum to %s, plan savings budget is %s", total, savings)
	}

	total := money.Sum(amounts...)
	allocs := make([]budget.GoalAllocation, len(inputs))
	for i, in := range inputs {
		g := active[in.GoalID]
		weight := decimal.Zero
		if total.IsPositive() {
			weight = amounts[i].Div(total).Round(6)
		}
		allocs[i] = budget.GoalAllocation{
			GoalID:        g.ID,
			Name:          g.Name,
			PriorityRank:  g.PriorityRank,
			Weight:        weight,
			MonthlyAmount: amounts[i],
		}
	}
	return allocs, nil
}
