package goal

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/finplan/infra/eventbus"
	infrarepo "github.com/amirasaad/finplan/infra/repository"
	"github.com/amirasaad/finplan/internal/fixtures/catalog"
	"github.com/amirasaad/finplan/internal/fixtures/testdb"
	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc *Service
	uow *infrarepo.UoW
	bus *eventbus.MemoryEventBus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	uow := infrarepo.NewUoW(testdb.New(t))
	bus := eventbus.NewWithMemory(logger)
	svc := New(uow, bus, catalog.MustLoadEmbedded().Goals, logger).
		WithClock(func() time.Time { return fixedNow })
	return fixture{svc: svc, uow: uow, bus: bus}
}

func newLifeContext(userID uuid.UUID) *goal.LifeContext {
	return &goal.LifeContext{
		UserID:           userID,
		AgeBand:          goal.Age25To34,
		Employment:       goal.EmploymentSalaried,
		IncomeRegularity: goal.IncomeStable,
		RegionCode:       "IN",
	}
}

func twoGoals() []Input {
	return []Input{
		{Category: "travel", Name: "Travel", EstimatedCost: decimal.NewFromInt(200000), Importance: 2},
		{Category: "emergency", Name: "Emergency Fund", EstimatedCost: decimal.NewFromInt(300000), Importance: 5},
	}
}

func TestSubmit_RequiresLifeContext(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), uuid.New(), twoGoals())
	require.Error(t, err)
	assert.Equal(t, domain.CodeLifeContextRequired, domain.CodeOf(err))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmit_RanksGoals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.UpsertLifeContext(ctx, newLifeContext(userID))
	require.NoError(t, err)

	created, err := f.svc.Submit(ctx, userID, twoGoals())
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Travel", created[0].Name)
	assert.Equal(t, 2, created[0].PriorityRank)
	assert.Equal(t, "Emergency Fund", created[1].Name)
	assert.Equal(t, 1, created[1].PriorityRank)
	assert.True(t, created[1].PriorityScore > created[0].PriorityScore)

	published := f.bus.Published()
	require.Len(t, published, 2)
	ranked, ok := published[1].(events.GoalsRanked)
	require.True(t, ok)
	assert.Equal(t, TriggerSubmit, ranked.Trigger)
	require.Len(t, ranked.Goals, 2)
	assert.Equal(t, created[1].ID, ranked.Goals[0].GoalID)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := f.svc.UpsertLifeContext(ctx, newLifeContext(userID))
	require.NoError(t, err)

	past := fixedNow.AddDate(0, -1, 0)
	tests := []struct {
		name string
		in   Input
		code string
	}{
		{"unknown category", Input{Category: "yacht", EstimatedCost: decimal.NewFromInt(1), Importance: 1}, domain.CodeGoalUnknownCategory},
		{"zero cost", Input{Category: "travel", EstimatedCost: decimal.Zero, Importance: 1}, domain.CodeGoalInvalidCost},
		{"importance", Input{Category: "travel", EstimatedCost: decimal.NewFromInt(10), Importance: 6}, domain.CodeGoalInvalidImportance},
		{"past target", Input{Category: "travel", EstimatedCost: decimal.NewFromInt(10), Importance: 3, TargetDate: &past}, domain.CodeGoalPastTargetDate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, userID, []Input{tc.in})
			require.Error(t, err)
			assert.Equal(t, tc.code, domain.CodeOf(err))
		})
	}

	goals, err := f.svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := f.svc.UpsertLifeContext(ctx, newLifeContext(userID))
	require.NoError(t, err)
	created, err := f.svc.Submit(ctx, userID, twoGoals())
	require.NoError(t, err)
	travel := created[0]

	savings := decimal.NewFromInt(5000)
	updated, err := f.svc.Update(ctx, userID, travel.ID, Update{CurrentSavings: &savings})
	require.NoError(t, err)
	assert.True(t, updated.CurrentSavings.Equal(savings))
	assert.True(t, updated.StartingSavings.Equal(savings))

	past := fixedNow.AddDate(0, 0, -1)
	_, err = f.svc.Update(ctx, userID, travel.ID, Update{TargetDate: &past})
	assert.Equal(t, domain.CodeGoalPastTargetDate, domain.CodeOf(err))

	_, err = f.svc.Update(ctx, uuid.New(), travel.ID, Update{})
	assert.Equal(t, domain.CodeGoalNotFound, domain.CodeOf(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchive_ReranksAndReexpands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := f.svc.UpsertLifeContext(ctx, newLifeContext(userID))
	require.NoError(t, err)
	created, err := f.svc.Submit(ctx, userID, twoGoals())
	require.NoError(t, err)
	travel, emergency := created[0], created[1]

	budgets, err := f.uow.BudgetRepository()
	require.NoError(t, err)
	require.NoError(t, budgets.UpsertCommitment(ctx, &budget.Commitment{
		ID:            uuid.New(),
		UserID:        userID,
		PlanCode:      budget.BalancedPlanCode,
		Month:         period.Of(fixedNow),
		SavingsBudget: decimal.NewFromInt(20000),
		Allocations: map[uuid.UUID]decimal.Decimal{
			travel.ID:    decimal.NewFromInt(8000),
			emergency.ID: decimal.NewFromInt(12000),
		},
		CommittedAt: fixedNow,
	}))

	require.NoError(t, f.svc.Archive(ctx, userID, emergency.ID))

	goals, err := f.svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, travel.ID, goals[0].ID)
	assert.Equal(t, 1, goals[0].PriorityRank)
	assert.Equal(t, goal.StatusArchived, goals[1].Status)
	assert.Equal(t, 0, goals[1].PriorityRank)
	require.NotNil(t, goals[1].ArchivedAt)

	allocs, err := budgets.ListAllocations(ctx, userID, period.Of(fixedNow))
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, travel.ID, allocs[0].GoalID)
	assert.True(t, allocs[0].MonthlyAmount.Equal(decimal.NewFromInt(20000)))

	c, err := budgets.GetCommitment(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, c.Allocations, 1)

	err = f.svc.Archive(ctx, userID, emergency.ID)
	assert.Equal(t, domain.CodeGoalNotActive, domain.CodeOf(err))
}

func TestUpdate_KeepsCommittedAmountsUnlessWeightsChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := f.svc.UpsertLifeContext(ctx, newLifeContext(userID))
	require.NoError(t, err)
	created, err := f.svc.Submit(ctx, userID, twoGoals())
	require.NoError(t, err)
	travel, emergency := created[0], created[1]

	month := period.Of(fixedNow)
	budgets, err := f.uow.BudgetRepository()
	require.NoError(t, err)
	require.NoError(t, budgets.UpsertCommitment(ctx, &budget.Commitment{
		ID:            uuid.New(),
		UserID:        userID,
		PlanCode:      budget.BalancedPlanCode,
		Month:         month,
		SavingsBudget: decimal.NewFromInt(20000),
		Allocations: map[uuid.UUID]decimal.Decimal{
			emergency.ID: decimal.NewFromInt(12000),
			travel.ID:    decimal.NewFromInt(8000),
		},
		CommittedAt: fixedNow,
	}))
	require.NoError(t, budgets.ReplaceAllocations(ctx, userID, month, []budget.GoalAllocation{
		{GoalID: emergency.ID, PriorityRank: 1, PlanCode: budget.BalancedPlanCode, Month: month, MonthlyAmount: decimal.NewFromInt(12000)},
		{GoalID: travel.ID, PriorityRank: 2, PlanCode: budget.BalancedPlanCode, Month: month, MonthlyAmount: decimal.NewFromInt(8000)},
	}))

	amounts := func() map[uuid.UUID]decimal.Decimal {
		t.Helper()
		allocs, err := budgets.ListAllocations(ctx, userID, month)
		require.NoError(t, err)
		out := make(map[uuid.UUID]decimal.Decimal, len(allocs))
		for _, a := range allocs {
			out[a.GoalID] = a.MonthlyAmount
		}
		return out
	}

	notes, name := "just a note", "Japan trip"
	_, err = f.svc.Update(ctx, userID, travel.ID, Update{Notes: &notes, Name: &name})
	require.NoError(t, err)
	same := 5
	_, err = f.svc.Update(ctx, userID, emergency.ID, Update{Importance: &same})
	require.NoError(t, err)
	_, err = f.svc.UpsertLifeContext(ctx, newLifeContext(userID))
	require.NoError(t, err)

	got := amounts()
	assert.True(t, got[emergency.ID].Equal(decimal.NewFromInt(12000)))
	assert.True(t, got[travel.ID].Equal(decimal.NewFromInt(8000)))
	c, err := budgets.GetCommitment(ctx, userID)
	require.NoError(t, err)
	assert.True(t, c.Allocations[travel.ID].Equal(decimal.NewFromInt(8000)))

	cost := decimal.NewFromInt(50000)
	_, err = f.svc.Update(ctx, userID, travel.ID, Update{EstimatedCost: &cost})
	require.NoError(t, err)
	got = amounts()
	assert.False(t, got[travel.ID].Equal(decimal.NewFromInt(8000)))
	assert.True(t, got[travel.ID].Add(got[emergency.ID]).Equal(decimal.NewFromInt(20000)))
}

func TestUpsertLifeContext_Invalid(t *testing.T) {
	f := newFixture(t)
	lc := newLifeContext(uuid.New())
	lc.IncomeRegularity = "chaotic"
	_, err := f.svc.UpsertLifeContext(context.Background(), lc)
	assert.Equal(t, domain.CodeLifeContextInvalid, domain.CodeOf(err))
	assert.Empty(t, f.bus.Published())
}
