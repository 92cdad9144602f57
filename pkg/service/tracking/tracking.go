// Package tracking runs the monthly contribution tracking batch.
//
// Each (user, month) is tracked in one transaction: contributions,
// snapshots, milestones, goal transitions and regenerated allocations commit
// together or not at all. Runs for different users proceed concurrently;
// runs for the same user are serialized by a lock. Re-running a month yields
// the same rows.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/amirasaad/finplan/pkg/lock"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/planning/priority"
	engine "github.com/amirasaad/finplan/pkg/planning/tracking"
	"github.com/amirasaad/finplan/pkg/provider"
	"github.com/amirasaad/finplan/pkg/repository"
	budgetrepo "github.com/amirasaad/finplan/pkg/repository/budget"
	"github.com/amirasaad/finplan/pkg/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Stages reported for failed users.
const (
	StageLock    = "lock"
	StageFetch   = "fetch_actual"
	StageCompute = "compute"
	StagePersist = "persist"
)

// Options tunes the batch.
type Options struct {
	// Concurrency bounds the number of users tracked at once.
	Concurrency int
	// UserTimeout bounds one user's run, lock wait included.
	UserTimeout time.Duration
	// Fallback attributes savings when there is no usable plan.
	Fallback engine.FallbackPolicy
}

// Failure describes one user whose month could not be tracked.
type Failure struct {
	UserID uuid.UUID
	Month  period.Month
	Stage  string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("track %s for %s at %s: %v", f.Month, f.UserID, f.Stage, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Report summarizes a batch run.
type Report struct {
	Month     period.Month
	Processed int
	// Skipped counts users without an aggregate for the month and users
	// not started because the batch was cancelled.
	Skipped int
	Failed  []Failure
}

// Service runs tracking batches.
type Service struct {
	uow        repository.UnitOfWork
	aggregates provider.AggregateProvider
	bus        eventbus.Bus
	locker     lock.Locker
	categories *goal.Catalog
	opts       Options
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a tracking Service.
func New(
	uow repository.UnitOfWork,
	aggregates provider.AggregateProvider,
	bus eventbus.Bus,
	locker lock.Locker,
	categories *goal.Catalog,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Fallback == "" {
		opts.Fallback = engine.FallbackEqual
	}
	return &Service{
		uow:        uow,
		aggregates: aggregates,
		bus:        bus,
		locker:     locker,
		categories: categories,
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RunMonth tracks month for userIDs, or for every user owning a goal when
// none are given. A failing user never stops the others. The returned error
// is only set when the batch could not start or was cancelled; per-user
// failures are in the report.
func (s *Service) RunMonth(ctx context.Context, month period.Month, userIDs ...uuid.UUID) (*Report, error) {
	logger := s.logger.With("month", month.String(), "op", "track_month")
	if month.IsZero() {
		return nil, domain.Validation(domain.CodeInvalidRequest, "month is required")
	}
	if len(userIDs) == 0 {
		repo, err := s.uow.GoalRepository()
		if err != nil {
			return nil, err
		}
		if userIDs, err = repo.ListUserIDs(ctx); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
	}

	report := &Report{Month: month}
	var mu sync.Mutex
	record := func(processed, skipped bool, f *Failure) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case f != nil:
			report.Failed = append(report.Failed, *f)
		case skipped:
			report.Skipped++
		case processed:
			report.Processed++
		}
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, userID := range userIDs {
		if ctx.Err() != nil {
			record(false, true, nil)
			mu.Lock()
			report.Skipped += len(userIDs) - i - 1
			mu.Unlock()
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				record(false, true, nil)
				return nil
			}
			skipped, f := s.trackUser(ctx, userID, month)
			if f != nil {
				logger.Error("tracking failed", "user_id", userID, "stage", f.Stage, "error", f.Err)
			}
			record(!skipped, skipped, f)
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("tracking finished",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// TrackUser tracks a single user's month outside a batch.
func (s *Service) TrackUser(ctx context.Context, userID uuid.UUID, month period.Month) error {
	skipped, f := s.trackUser(ctx, userID, month)
	if f != nil {
		return *f
	}
	if skipped {
		return domain.DataUnavailable(domain.CodeAggregateUnavailable, "no aggregate for %s", month)
	}
	return nil
}

func (s *Service) trackUser(ctx context.Context, userID uuid.UUID, month period.Month) (bool, *Failure) {
	logger := s.logger.With("user_id", userID, "month", month.String())
	fail := func(stage string, err error) *Failure {
		return &Failure{UserID: userID, Month: month, Stage: stage, Err: err}
	}
	if s.opts.UserTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UserTimeout)
		defer cancel()
	}

	release, err := s.locker.Lock(ctx, "tracking:"+userID.String())
	if err != nil {
		return false, fail(StageLock, err)
	}
	defer release()

	actual, err := s.aggregates.GetActualSavingsTotal(ctx, userID, month)
	if errors.Is(err, domain.ErrDataUnavailable) {
		logger.Warn("skipping user without aggregate", "error", err)
		return true, nil
	}
	if err != nil {
		return false, fail(StageFetch, err)
	}

	now := s.now()
	var (
		stage string
		out   runOutcome
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		out, stage, err = s.track(ctx, uow, userID, month, actual, now)
		return err
	})
	if err != nil {
		if stage == "" {
			stage = StagePersist
		}
		return false, fail(stage, err)
	}

	if !out.changed {
		logger.Info("month unchanged", "actual_total", actual)
		return false, nil
	}
	logger.Info("month tracked",
		"actual_total", actual,
		"pro_rata", out.result.ProRata,
		"milestones", len(out.milestones),
		"completed", len(out.result.Completed),
	)
	service.Publish(ctx, s.bus, logger, out.events(userID, month, actual, now)...)
	return false, nil
}

type runOutcome struct {
	result     engine.Result
	milestones []events.MilestoneAttained
	// changed is false when the run wrote nothing, as on a replay.
	changed bool
}

func (o runOutcome) events(userID uuid.UUID, month period.Month, actual decimal.Decimal, now time.Time) []events.Event {
	var out []events.Event
	for _, m := range o.milestones {
		out = append(out, m)
	}
	for _, g := range o.result.Completed {
		out = append(out, events.GoalCompleted{
			FlowEvent: events.NewFlowEvent(userID, now),
			GoalID:    g.ID,
			GoalName:  g.Name,
			Month:     month.String(),
		})
	}
	return append(out, events.MonthTracked{
		FlowEvent:   events.NewFlowEvent(userID, now),
		Month:       month.String(),
		ActualTotal: actual,
		Goals:       len(o.result.Contributions),
	})
}

// track runs inside the user's transaction. It returns the stage that
// failed along with the error.
func (s *Service) track(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	month period.Month,
	actual decimal.Decimal,
	now time.Time,
) (runOutcome, string, error) {
	var out runOutcome
	goals, err := uow.GoalRepository()
	if err != nil {
		return out, StageCompute, err
	}
	budgets, err := uow.BudgetRepository()
	if err != nil {
		return out, StageCompute, err
	}
	tracked, err := uow.ProgressRepository()
	if err != nil {
		return out, StageCompute, err
	}

	all, err := goals.ListByUser(ctx, userID)
	if err != nil {
		return out, StageCompute, err
	}
	planned, materialized, err := s.plannedAmounts(ctx, budgets, userID, month, all)
	if err != nil {
		return out, StageCompute, err
	}
	out.changed = materialized
	stored, err := tracked.ListContributions(ctx, userID, month)
	if err != nil {
		return out, StageCompute, err
	}
	var ranks map[uuid.UUID]int
	storedContrib := make(map[uuid.UUID]progress.Contribution, len(stored))
	for _, c := range stored {
		if ranks == nil {
			ranks = make(map[uuid.UUID]int, len(stored))
		}
		ranks[c.GoalID] = c.PriorityRank
		storedContrib[c.GoalID] = c
	}
	storedSnaps, err := tracked.ListSnapshots(ctx, userID, month)
	if err != nil {
		return out, StageCompute, err
	}
	storedSnap := make(map[uuid.UUID]progress.Snapshot, len(storedSnaps))
	for _, snap := range storedSnaps {
		storedSnap[snap.GoalID] = snap
	}
	prior, err := tracked.SumActualBefore(ctx, userID, month)
	if err != nil {
		return out, StageCompute, err
	}
	latest, err := tracked.LatestSnapshots(ctx, userID, month)
	if err != nil {
		return out, StageCompute, err
	}
	prevPct := make(map[uuid.UUID]decimal.Decimal, len(latest))
	for id, snap := range latest {
		prevPct[id] = snap.ProgressPct
	}
	recorded, err := tracked.ListMilestones(ctx, userID)
	if err != nil {
		return out, StageCompute, err
	}
	seen := make(map[uuid.UUID]map[int]bool, len(recorded))
	for id, ms := range recorded {
		seen[id] = make(map[int]bool, len(ms))
		for _, m := range ms {
			seen[id][m.Pct] = true
		}
	}

	res, err := engine.Track(engine.Input{
		UserID:      userID,
		Month:       month,
		Goals:       all,
		Planned:     planned,
		ActualTotal: actual,
		PriorActual: prior,
		PrevPct:     prevPct,
		Milestones:  seen,
		Ranks:       ranks,
		Fallback:    s.opts.Fallback,
	})
	if err != nil {
		return out, StageCompute, err
	}
	out.result = res

	var contribs []progress.Contribution
	for _, c := range res.Contributions {
		if prev, ok := storedContrib[c.GoalID]; !ok || !prev.SameAs(c) {
			contribs = append(contribs, c)
		}
	}
	var snaps []progress.Snapshot
	for _, snap := range res.Snapshots {
		if prev, ok := storedSnap[snap.GoalID]; !ok || !prev.SameAs(snap) {
			snaps = append(snaps, snap)
		}
	}
	if err := tracked.UpsertContributions(ctx, contribs); err != nil {
		return out, StagePersist, err
	}
	if err := tracked.UpsertSnapshots(ctx, snaps); err != nil {
		return out, StagePersist, err
	}
	inserted, err := tracked.InsertMilestonesIfAbsent(ctx, res.Milestones)
	if err != nil {
		return out, StagePersist, err
	}
	if len(contribs) > 0 || len(snaps) > 0 || len(inserted) > 0 {
		out.changed = true
	}

	byID := make(map[uuid.UUID]*goal.Goal, len(all))
	for _, g := range all {
		byID[g.ID] = g
	}
	for _, m := range inserted {
		name := ""
		if g, ok := byID[m.GoalID]; ok {
			name = g.Name
		}
		out.milestones = append(out.milestones, events.MilestoneAttained{
			FlowEvent:  events.NewFlowEvent(userID, now),
			GoalID:     m.GoalID,
			GoalName:   name,
			Pct:        m.Pct,
			Month:      m.Month.String(),
			AttainedAt: m.AttainedAt,
		})
	}

	changed, err := s.applyTransitions(ctx, uow, userID, month, all, byID, res, now)
	if err != nil {
		return out, StagePersist, err
	}
	if len(changed) > 0 {
		out.changed = true
		if err := goals.Upsert(ctx, changed...); err != nil {
			return out, StagePersist, err
		}
	}
	return out, "", nil
}

// plannedAmounts returns the month's planned amount per goal, or nil when
// the user has no commitment. The month's materialized allocations win;
// without them the commitment's amounts are materialized for the month,
// which is reported by the second result.
func (s *Service) plannedAmounts(
	ctx context.Context,
	budgets budgetrepo.Repository,
	userID uuid.UUID,
	month period.Month,
	goals []*goal.Goal,
) (map[uuid.UUID]decimal.Decimal, bool, error) {
	c, err := budgets.GetCommitment(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	allocs, err := budgets.ListAllocations(ctx, userID, month)
	if err != nil {
		return nil, false, err
	}
	materialized := false
	if len(allocs) == 0 && !month.Before(c.Month) {
		allocs = materialize(c, month, goals)
		if len(allocs) > 0 {
			if err := budgets.ReplaceAllocations(ctx, userID, month, allocs); err != nil {
				return nil, false, err
			}
			materialized = true
		}
	}
	planned := make(map[uuid.UUID]decimal.Decimal, len(allocs))
	for _, a := range allocs {
		planned[a.GoalID] = a.MonthlyAmount
	}
	return planned, materialized, nil
}

func materialize(c *budget.Commitment, month period.Month, goals []*goal.Goal) []budget.GoalAllocation {
	var allocs []budget.GoalAllocation
	for _, g := range goals {
		amount, ok := c.Allocations[g.ID]
		if !ok {
			continue
		}
		allocs = append(allocs, budget.GoalAllocation{
			GoalID:        g.ID,
			Name:          g.Name,
			PriorityRank:  g.PriorityRank,
			PlanCode:      c.PlanCode,
			Month:         month,
			Weight:        decimal.Zero,
			MonthlyAmount: amount,
		})
	}
	return allocs
}

// applyTransitions moves savings forward, completes goals and, when a goal
// completed, re-ranks the rest and regenerates next month's allocations. It
// returns the goals to store.
func (s *Service) applyTransitions(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	month period.Month,
	all []*goal.Goal,
	byID map[uuid.UUID]*goal.Goal,
	res engine.Result,
	now time.Time,
) ([]*goal.Goal, error) {
	dirty := make(map[uuid.UUID]bool)
	for _, snap := range res.Snapshots {
		g := byID[snap.GoalID]
		if g == nil || month.Before(g.TrackedThrough) {
			continue
		}
		if g.CurrentSavings.Equal(snap.SavingsClose) && g.TrackedThrough == month {
			continue
		}
		g.CurrentSavings = snap.SavingsClose
		g.TrackedThrough = month
		g.UpdatedAt = now.UTC()
		dirty[g.ID] = true
	}
	for _, done := range res.Completed {
		g := byID[done.ID]
		if g == nil {
			continue
		}
		g.Complete(month)
		g.UpdatedAt = now.UTC()
		dirty[g.ID] = true
	}

	if len(res.Completed) > 0 {
		repo, err := uow.GoalRepository()
		if err != nil {
			return nil, err
		}
		lc, err := repo.GetLifeContext(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			ranked, err := priority.Recompute(all, lc, s.categories, now)
			if err != nil {
				return nil, err
			}
			for _, r := range ranked {
				g := byID[r.ID]
				if g.PriorityRank != r.PriorityRank || g.PriorityScore != r.PriorityScore {
					g.PriorityRank, g.PriorityScore = r.PriorityRank, r.PriorityScore
					dirty[g.ID] = true
				}
			}
		}
		if _, err := service.Reexpand(ctx, uow, userID, all, month.Next(), now); err != nil {
			return nil, err
		}
	}

	var changed []*goal.Goal
	for _, g := range all {
		if dirty[g.ID] {
			changed = append(changed, g)
		}
	}
	return changed, nil
}
