// Package goal provides the goal and life-context use cases. Every mutation
// recomputes the user's ranking inside the same transaction and regenerates
// the committed allocations when the goal set changed.
package goal

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/planning/priority"
	"github.com/amirasaad/finplan/pkg/repository"
	goalrepo "github.com/amirasaad/finplan/pkg/repository/goal"
	"github.com/amirasaad/finplan/pkg/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recompute triggers carried by GoalsRanked.
const (
	TriggerLifeContext = "life_context"
	TriggerSubmit      = "goal_submitted"
	TriggerUpdate      = "goal_updated"
	TriggerArchive     = "goal_archived"
)

// Input describes one goal in a submission.
type Input struct {
	Category       string
	Name           string
	GoalType       goal.Horizon
	LinkedTxnType  goal.TxnType
	EstimatedCost  decimal.Decimal
	TargetDate     *time.Time
	CurrentSavings decimal.Decimal
	Importance     int
	Notes          string
}

// Update holds the fields a user may change on an active goal. Nil fields
// are left untouched.
type Update struct {
	Name           *string
	EstimatedCost  *decimal.Decimal
	TargetDate     *time.Time
	CurrentSavings *decimal.Decimal
	Importance     *int
	Notes          *string
}

// Service provides goal operations.
type Service struct {
	uow        repository.UnitOfWork
	bus        eventbus.Bus
	categories *goal.Catalog
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a goal Service.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	categories *goal.Catalog,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:        uow,
		bus:        bus,
		categories: categories,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UpsertLifeContext stores the user's life context and re-ranks the goals.
func (s *Service) UpsertLifeContext(
	ctx context.Context,
	lc *goal.LifeContext,
) (ranked []*goal.Goal, err error) {
	logger := s.logger.With("user_id", lc.UserID, "op", "upsert_life_context")
	if err = lc.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	lc.UpdatedAt = now.UTC()
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		if err := repo.UpsertLifeContext(ctx, lc); err != nil {
			return err
		}
		ranked, err = s.rerank(ctx, uow, lc.UserID, now, false)
		return err
	})
	if err != nil {
		logger.Error("failed to upsert life context", "error", err)
		return nil, err
	}
	service.Publish(ctx, s.bus, logger, rankedEvent(lc.UserID, TriggerLifeContext, ranked, now))
	return ranked, nil
}

// Submit creates goals for a user with a life context and returns the
// created goals with their new ranks.
func (s *Service) Submit(
	ctx context.Context,
	userID uuid.UUID,
	inputs []Input,
) (created []*goal.Goal, err error) {
	logger := s.logger.With("user_id", userID, "op", "submit_goals")
	if len(inputs) == 0 {
		return nil, domain.Validation(domain.CodeInvalidRequest, "at least one goal is required")
	}
	now := s.now()

	built := make([]*goal.Goal, 0, len(inputs))
	for _, in := range inputs {
		g, err := s.build(userID, in, now)
		if err != nil {
			return nil, err
		}
		built = append(built, g)
	}

	var ranked []*goal.Goal
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		if _, err := lifeContext(ctx, repo, userID); err != nil {
			return err
		}
		if err := repo.Upsert(ctx, built...); err != nil {
			return err
		}
		ranked, err = s.rerank(ctx, uow, userID, now, true)
		return err
	})
	if err != nil {
		logger.Error("failed to submit goals", "error", err)
		return nil, err
	}

	byID := make(map[uuid.UUID]*goal.Goal, len(ranked))
	for _, g := range ranked {
		byID[g.ID] = g
	}
	for _, g := range built {
		created = append(created, byID[g.ID])
	}
	logger.Info("goals submitted", "count", len(created))
	service.Publish(ctx, s.bus, logger, rankedEvent(userID, TriggerSubmit, ranked, now))
	return created, nil
}

func (s *Service) build(userID uuid.UUID, in Input, now time.Time) (*goal.Goal, error) {
	var def goal.CategoryDef
	ok := false
	if s.categories != nil {
		def, ok = s.categories.Lookup(in.Category, in.Name)
	}
	if !ok {
		return nil, domain.Validation(domain.CodeGoalUnknownCategory, "unknown goal category %q", in.Category)
	}
	return goal.New(userID, def).
		WithName(in.Name).
		WithHorizon(in.GoalType).
		WithLinkedTxnType(in.LinkedTxnType).
		WithEstimatedCost(in.EstimatedCost).
		WithTargetDate(in.TargetDate).
		WithCurrentSavings(in.CurrentSavings).
		WithImportance(in.Importance).
		WithNotes(in.Notes).
		Build(now)
}

// Update changes an active goal and re-ranks the user's goals.
func (s *Service) Update(
	ctx context.Context,
	userID, goalID uuid.UUID,
	upd Update,
) (updated *goal.Goal, err error) {
	logger := s.logger.With("user_id", userID, "goal_id", goalID, "op", "update_goal")
	now := s.now()
	var ranked []*goal.Goal
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		g, err := activeGoal(ctx, repo, userID, goalID)
		if err != nil {
			return err
		}
		weighted, err := apply(g, upd, now)
		if err != nil {
			return err
		}
		g.UpdatedAt = now.UTC()
		if err := repo.Upsert(ctx, g); err != nil {
			return err
		}
		ranked, err = s.rerank(ctx, uow, userID, now, weighted)
		return err
	})
	if err != nil {
		logger.Error("failed to update goal", "error", err)
		return nil, err
	}
	for _, g := range ranked {
		if g.ID == goalID {
			updated = g
		}
	}
	service.Publish(ctx, s.bus, logger, rankedEvent(userID, TriggerUpdate, ranked, now))
	return updated, nil
}

// apply validates and copies the changed fields. A changed current savings
// moves the starting point by the same delta so tracked history still adds up.
// It reports whether an allocation weight input (cost, target date or
// savings) changed.
func apply(g *goal.Goal, upd Update, now time.Time) (weighted bool, err error) {
	if upd.EstimatedCost != nil {
		if err := goal.ValidateCost(*upd.EstimatedCost); err != nil {
			return false, err
		}
		next := money.Round(*upd.EstimatedCost)
		weighted = weighted || !next.Equal(g.EstimatedCost)
		g.EstimatedCost = next
	}
	if upd.Importance != nil {
		if err := goal.ValidateImportance(*upd.Importance); err != nil {
			return false, err
		}
		g.Importance = *upd.Importance
	}
	if upd.TargetDate != nil {
		if upd.TargetDate.Before(now) {
			return false, domain.Validation(domain.CodeGoalPastTargetDate,
				"target_date %s is in the past", upd.TargetDate.Format(time.DateOnly))
		}
		next := upd.TargetDate.UTC()
		weighted = weighted || !next.Equal(g.TargetDate)
		g.TargetDate = next
	}
	if upd.CurrentSavings != nil {
		if upd.CurrentSavings.IsNegative() {
			return false, domain.Validation(domain.CodeGoalInvalidSavings, "current_savings must not be negative")
		}
		next := money.Round(*upd.CurrentSavings)
		weighted = weighted || !next.Equal(g.CurrentSavings)
		g.StartingSavings = g.StartingSavings.Add(next.Sub(g.CurrentSavings))
		g.CurrentSavings = next
	}
	if upd.Name != nil && *upd.Name != "" {
		g.Name = *upd.Name
	}
	if upd.Notes != nil {
		g.Notes = *upd.Notes
	}
	return weighted, nil
}

// Archive soft-deletes a goal. Its history stays; it stops taking
// allocations and attribution from the month after archival.
func (s *Service) Archive(ctx context.Context, userID, goalID uuid.UUID) error {
	logger := s.logger.With("user_id", userID, "goal_id", goalID, "op", "archive_goal")
	now := s.now()
	var ranked []*goal.Goal
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		g, err := activeGoal(ctx, repo, userID, goalID)
		if err != nil {
			return err
		}
		g.Archive(now)
		g.UpdatedAt = now.UTC()
		if err := repo.Upsert(ctx, g); err != nil {
			return err
		}
		ranked, err = s.rerank(ctx, uow, userID, now, true)
		return err
	})
	if err != nil {
		logger.Error("failed to archive goal", "error", err)
		return err
	}
	logger.Info("goal archived")
	service.Publish(ctx, s.bus, logger,
		events.GoalArchived{FlowEvent: events.NewFlowEvent(userID, now), GoalID: goalID},
		rankedEvent(userID, TriggerArchive, ranked, now),
	)
	return nil
}

// List returns the user's goals, active ones by rank first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) (goals []*goal.Goal, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		goals, err = repo.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	Sort(goals)
	return goals, nil
}

// Sort orders goals active by rank first, then the rest by ID.
func Sort(goals []*goal.Goal) {
	slices.SortStableFunc(goals, func(a, b *goal.Goal) int {
		if a.IsActive() != b.IsActive() {
			if a.IsActive() {
				return -1
			}
			return 1
		}
		if a.IsActive() {
			if c := cmp.Compare(a.PriorityRank, b.PriorityRank); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}

// rerank recomputes the full goal set and stores the new scores and ranks.
// The commitment is re-expanded for the current month only when reexpand is
// set or an active goal's rank moved; other edits keep the committed amounts.
func (s *Service) rerank(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	now time.Time,
	reexpand bool,
) ([]*goal.Goal, error) {
	repo, err := uow.GoalRepository()
	if err != nil {
		return nil, err
	}
	lc, err := lifeContext(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	goals, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := make(map[uuid.UUID]int, len(goals))
	for _, g := range goals {
		before[g.ID] = g.PriorityRank
	}
	ranked, err := priority.Recompute(goals, lc, s.categories, now)
	if err != nil {
		return nil, err
	}
	if len(ranked) > 0 {
		if err := repo.Upsert(ctx, ranked...); err != nil {
			return nil, err
		}
	}
	for _, g := range ranked {
		if g.IsActive() && before[g.ID] != g.PriorityRank {
			reexpand = true
		}
	}
	if !reexpand {
		return ranked, nil
	}
	if _, err := service.Reexpand(ctx, uow, userID, ranked, period.Of(now), now); err != nil {
		return nil, err
	}
	return ranked, nil
}

func lifeContext(ctx context.Context, repo goalrepo.Repository, userID uuid.UUID) (*goal.LifeContext, error) {
	lc, err := repo.GetLifeContext(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Validation(domain.CodeLifeContextRequired, "life context is required before submitting goals")
	}
	return lc, err
}

func activeGoal(ctx context.Context, repo goalrepo.Repository, userID, goalID uuid.UUID) (*goal.Goal, error) {
	g, err := repo.Get(ctx, userID, goalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.ErrNotFound, domain.CodeGoalNotFound, "goal %s not found", goalID)
	}
	if err != nil {
		return nil, err
	}
	if !g.IsActive() {
		return nil, domain.Validation(domain.CodeGoalNotActive, "goal %s is %s", goalID, g.Status)
	}
	return g, nil
}

func rankedEvent(userID uuid.UUID, trigger string, ranked []*goal.Goal, now time.Time) events.GoalsRanked {
	e := events.GoalsRanked{FlowEvent: events.NewFlowEvent(userID, now), Trigger: trigger}
	for _, g := range priority.Active(ranked) {
		e.Goals = append(e.Goals, events.RankedGoal{GoalID: g.ID, PriorityRank: g.PriorityRank, Score: g.PriorityScore})
	}
	return e
}
