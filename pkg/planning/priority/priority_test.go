package priority

import (
	"math/rand"
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *goal.Catalog {
	t.Helper()
	cat, err := goal.NewCatalog([]goal.CategoryDef{
		{Category: goal.CategoryEmergency, Name: "Emergency Fund", DefaultHorizon: goal.HorizonShort, LinkedTxnType: goal.TxnAssets, IsMandatory: true, DisplayOrder: 1},
		{Category: goal.CategoryDebt, Name: "Debt Repayment", DefaultHorizon: goal.HorizonShort, LinkedTxnType: goal.TxnNeeds, DebtLinked: true, DisplayOrder: 2},
		{Category: "education", Name: "Child Education", DefaultHorizon: goal.HorizonLong, LinkedTxnType: goal.TxnAssets, Dependents: goal.RelevantChildren, DisplayOrder: 3},
		{Category: "family", Name: "Family Care", DefaultHorizon: goal.HorizonMedium, LinkedTxnType: goal.TxnNeeds, Dependents: goal.RelevantAny, DisplayOrder: 4},
		{Category: "travel", Name: "Vacation", DefaultHorizon: goal.HorizonShort, LinkedTxnType: goal.TxnWants, DisplayOrder: 5},
	})
	require.NoError(t, err)
	return cat
}

func lifeContext() *goal.LifeContext {
	return &goal.LifeContext{
		AgeBand:          goal.Age35To44,
		Dependents:       goal.Dependents{Children: 2, ParentsInCare: true},
		Employment:       goal.EmploymentSalaried,
		IncomeRegularity: goal.IncomeStable,
	}
}

func newGoal(category string, cost, saved int64, importance int, target time.Time) *goal.Goal {
	return &goal.Goal{
		ID:             uuid.New(),
		Category:       category,
		EstimatedCost:  decimal.NewFromInt(cost),
		CurrentSavings: decimal.NewFromInt(saved),
		Importance:     importance,
		TargetDate:     target,
		Status:         goal.StatusActive,
	}
}

func TestScore_Components(t *testing.T) {
	t.Parallel()
	cat := testCatalog(t)
	lc := lifeContext()

	emergency := newGoal(goal.CategoryEmergency, 150000, 20000, 5, now.AddDate(0, 8, 0))
	def, _ := cat.Lookup(emergency.Category, "")
	b := Score(emergency, def, lc, now)
	assert.Equal(t, SafetyPoints, b.Safety)
	assert.Zero(t, b.Liability)
	assert.InDelta(t, 18.67, b.Urgency, 0.05)
	assert.Equal(t, 15.0, b.Importance)
	assert.InDelta(t, 63.67, b.Total, 0.05)

	debt := newGoal(goal.CategoryDebt, 1000, 250, 1, now.AddDate(20, 0, 0))
	def, _ = cat.Lookup(debt.Category, "")
	b = Score(debt, def, lc, now)
	assert.InDelta(t, 17.5, b.Liability, 1e-9)
	assert.Zero(t, b.Urgency, "beyond the urgency horizon")

	family := newGoal("family", 1000, 0, 2, now.AddDate(3, 0, 0))
	def, _ = cat.Lookup(family.Category, "")
	assert.Equal(t, DependencyMax, Score(family, def, lc, now).Dependency)

	overdue := newGoal("travel", 1000, 0, 5, now.AddDate(0, -2, 0))
	def, _ = cat.Lookup(overdue.Category, "")
	assert.Equal(t, UrgencyMax, Score(overdue, def, lc, now).Urgency)
}

func TestScore_Bounds(t *testing.T) {
	t.Parallel()
	cat := testCatalog(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		defs := cat.All()
		def := defs[rng.Intn(len(defs))]
		g := newGoal(def.Category, int64(rng.Intn(100000)+1), int64(rng.Intn(150000)), rng.Intn(5)+1,
			now.AddDate(0, rng.Intn(200)-24, 0))
		b := Score(g, def, lifeContext(), now)
		assert.GreaterOrEqual(t, b.Total, 0.0)
		assert.LessOrEqual(t, b.Total, 100.0)
		assert.LessOrEqual(t, b.Liability, LiabilityMax)
	}
}

func TestRecompute_ScenarioA(t *testing.T) {
	t.Parallel()
	emergency := newGoal(goal.CategoryEmergency, 150000, 20000, 5, now.AddDate(0, 8, 0))
	vacation := newGoal("travel", 5000, 0, 3, now.AddDate(1, 0, 0))

	ranked, err := Recompute([]*goal.Goal{vacation, emergency}, lifeContext(), testCatalog(t), now)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, emergency.ID, ranked[0].ID)
	assert.Equal(t, 1, ranked[0].PriorityRank)
	assert.Equal(t, 2, ranked[1].PriorityRank)
	assert.Zero(t, emergency.PriorityRank, "input must not be modified")
}

func TestRecompute_TieBreakAndDenseRanks(t *testing.T) {
	t.Parallel()
	cat := testCatalog(t)
	later := newGoal("travel", 1000, 0, 3, now.AddDate(15, 0, 0))
	sooner := newGoal("travel", 1000, 0, 3, now.AddDate(12, 0, 0))
	archived := newGoal("travel", 1000, 0, 3, now.AddDate(1, 0, 0))
	archived.Archive(now)
	archived.PriorityRank = 4
	completed := newGoal(goal.CategoryEmergency, 1000, 1000, 5, now.AddDate(1, 0, 0))
	completed.Status = goal.StatusCompleted

	ranked, err := Recompute([]*goal.Goal{later, archived, sooner, completed}, lifeContext(), cat, now)
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	assert.Equal(t, sooner.ID, ranked[0].ID, "beyond the urgency horizon scores tie, soonest target wins")
	assert.Equal(t, 1, ranked[0].PriorityRank)
	assert.Equal(t, later.ID, ranked[1].ID)
	assert.Equal(t, 2, ranked[1].PriorityRank)
	for _, g := range ranked[2:] {
		assert.False(t, g.IsActive())
		assert.Zero(t, g.PriorityRank)
	}
}

func TestRecompute_RanksArePermutation(t *testing.T) {
	t.Parallel()
	cat := testCatalog(t)
	rng := rand.New(rand.NewSource(42))
	defs := cat.All()
	for run := 0; run < 50; run++ {
		n := rng.Intn(12) + 1
		goals := make([]*goal.Goal, n)
		for i := range goals {
			def := defs[rng.Intn(len(defs))]
			goals[i] = newGoal(def.Category, int64(rng.Intn(5000)+1), int64(rng.Intn(5000)), rng.Intn(5)+1,
				now.AddDate(0, rng.Intn(36)+1, 0))
		}
		ranked, err := Recompute(goals, lifeContext(), cat, now)
		require.NoError(t, err)

		seen := make(map[int]bool, n)
		for i, g := range ranked {
			assert.Equal(t, i+1, g.PriorityRank)
			seen[g.PriorityRank] = true
			if i > 0 {
				prev := ranked[i-1]
				assert.GreaterOrEqual(t, prev.PriorityScore, g.PriorityScore)
				if prev.PriorityScore == g.PriorityScore {
					assert.False(t, prev.TargetDate.After(g.TargetDate))
				}
			}
		}
		assert.Len(t, seen, n)
	}
}

func TestRecompute_Errors(t *testing.T) {
	t.Parallel()
	cat := testCatalog(t)
	_, err := Recompute(nil, nil, cat, now)
	assert.Equal(t, domain.CodeLifeContextRequired, domain.CodeOf(err))

	bad := newGoal("travel", 0, 0, 3, now.AddDate(1, 0, 0))
	_, err = Recompute([]*goal.Goal{bad}, lifeContext(), cat, now)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.CodeGoalInvalidCost, domain.CodeOf(err))

	bad = newGoal("travel", 10, 0, 9, now.AddDate(1, 0, 0))
	_, err = Recompute([]*goal.Goal{bad}, lifeContext(), cat, now)
	assert.Equal(t, domain.CodeGoalInvalidImportance, domain.CodeOf(err))
}

func TestActive(t *testing.T) {
	t.Parallel()
	a := newGoal("travel", 1, 0, 1, now)
	a.PriorityRank = 2
	b := newGoal("travel", 1, 0, 1, now)
	b.PriorityRank = 1
	c := newGoal("travel", 1, 0, 1, now)
	c.Status = goal.StatusArchived
	got := Active([]*goal.Goal{a, c, b})
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
}
