package allocation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func ranked(rank int, cost, saved int64, months int) *goal.Goal {
	return &goal.Goal{
		ID:             uuid.New(),
		EstimatedCost:  decimal.NewFromInt(cost),
		CurrentSavings: decimal.NewFromInt(saved),
		TargetDate:     now.AddDate(0, months, 0),
		PriorityRank:   rank,
		Status:         goal.StatusActive,
	}
}

func TestExpand_SumsExactly(t *testing.T) {
	t.Parallel()
	goals := []*goal.Goal{
		ranked(1, 150000, 20000, 8),
		ranked(2, 30000, 0, 24),
		ranked(3, 9000, 3000, 60),
	}
	allocs, err := Expand(decimal.NewFromInt(20000), goals, now)
	require.NoError(t, err)
	require.Len(t, allocs, 3)

	total := decimal.Zero
	for _, a := range allocs {
		assert.True(t, a.MonthlyAmount.IsPositive())
		assert.True(t, a.MonthlyAmount.Equal(money.Round(a.MonthlyAmount)), "amounts are in minor units")
		total = total.Add(a.MonthlyAmount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(20000)))
	assert.True(t, allocs[0].MonthlyAmount.GreaterThan(allocs[1].MonthlyAmount))
	assert.True(t, allocs[1].MonthlyAmount.GreaterThan(allocs[2].MonthlyAmount))
}

func TestExpand_InactiveGoalsGetNothing(t *testing.T) {
	t.Parallel()
	done := ranked(0, 1000, 1000, 6)
	done.Status = goal.StatusCompleted
	archived := ranked(0, 1000, 0, 6)
	archived.Status = goal.StatusArchived
	only := ranked(1, 5000, 0, 12)

	allocs, err := Expand(decimal.NewFromInt(750), []*goal.Goal{done, only, archived}, now)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, only.ID, allocs[0].GoalID)
	assert.True(t, allocs[0].MonthlyAmount.Equal(decimal.NewFromInt(750)))
}

func TestExpand_EdgeCases(t *testing.T) {
	t.Parallel()
	allocs, err := Expand(decimal.NewFromInt(100), nil, now)
	require.NoError(t, err)
	assert.Empty(t, allocs)

	_, err = Expand(decimal.NewFromInt(-1), []*goal.Goal{ranked(1, 10, 0, 1)}, now)
	assert.ErrorIs(t, err, domain.ErrValidation)

	allocs, err = Expand(decimal.Zero, []*goal.Goal{ranked(1, 10, 0, 1), ranked(2, 10, 0, 1)}, now)
	require.NoError(t, err)
	for _, a := range allocs {
		assert.True(t, a.MonthlyAmount.IsZero())
	}

	// fully funded goals still share the budget
	allocs, err = Expand(decimal.NewFromInt(100), []*goal.Goal{ranked(1, 10, 10, 1), ranked(2, 10, 10, 1)}, now)
	require.NoError(t, err)
	assert.True(t, money.Sum(allocs[0].MonthlyAmount, allocs[1].MonthlyAmount).Equal(decimal.NewFromInt(100)))
}

func TestWeights_Monotonic(t *testing.T) {
	t.Parallel()
	base := func() []*goal.Goal {
		return []*goal.Goal{ranked(1, 10000, 0, 24), ranked(2, 10000, 0, 24)}
	}

	w := Weights(base(), now)
	assert.True(t, w[0].Weight.GreaterThan(w[1].Weight), "higher rank weighs more")

	goals := base()
	goals[1].TargetDate = now.AddDate(0, 3, 0)
	w = Weights(goals, now)
	assert.True(t, w[1].Urgency.GreaterThan(w[0].Urgency), "closer deadline weighs more")

	goals = base()
	goals[1].EstimatedCost = decimal.NewFromInt(40000)
	w = Weights(goals, now)
	assert.True(t, w[1].Gap.GreaterThan(w[0].Gap), "larger gap weighs more")

	goals = base()
	goals[0].TargetDate = now.AddDate(0, -1, 0)
	w = Weights(goals, now)
	assert.True(t, w[0].Urgency.Equal(decimal.NewFromInt(1)))
}

func TestExpand_Property(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(11))
	for run := 0; run < 200; run++ {
		n := rng.Intn(8) + 1
		goals := make([]*goal.Goal, n)
		for i := range goals {
			goals[i] = ranked(i+1, int64(rng.Intn(100000)+1), int64(rng.Intn(50000)), rng.Intn(120)-6)
		}
		budget := decimal.New(int64(rng.Intn(10000000)), -2)
		allocs, err := Expand(budget, goals, now)
		require.NoError(t, err)
		total := decimal.Zero
		for _, a := range allocs {
			assert.False(t, a.MonthlyAmount.IsNegative())
			total = total.Add(a.MonthlyAmount)
		}
		assert.True(t, total.Equal(budget), "run %d: %s != %s", run, total, budget)

		again, err := Expand(budget, goals, now)
		require.NoError(t, err)
		require.Len(t, again, len(allocs))
		for i := range allocs {
			assert.True(t, allocs[i].MonthlyAmount.Equal(again[i].MonthlyAmount), "deterministic")
		}
	}
}
