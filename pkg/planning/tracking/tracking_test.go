package tracking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/planning/allocation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	user  = uuid.New()
	month = period.MustParse("2026-05")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func activeGoal(rank int, cost string) *goal.Goal {
	return &goal.Goal{
		ID:             uuid.New(),
		UserID:         user,
		Name:           "goal",
		EstimatedCost:  dec(cost),
		CurrentSavings: decimal.Zero,
		Importance:     3,
		TargetDate:     month.AddMonths(24).End(),
		PriorityRank:   rank,
		Status:         goal.StatusActive,
	}
}

func actualOf(res Result, id uuid.UUID) decimal.Decimal {
	for _, c := range res.Contributions {
		if c.GoalID == id {
			return c.ActualAmount
		}
	}
	return decimal.Decimal{}
}

func contributionOf(res Result, id uuid.UUID) progress.Contribution {
	for _, c := range res.Contributions {
		if c.GoalID == id {
			return c
		}
	}
	return progress.Contribution{}
}

func snapshotOf(res Result, id uuid.UUID) progress.Snapshot {
	for _, s := range res.Snapshots {
		if s.GoalID == id {
			return s
		}
	}
	return progress.Snapshot{}
}

func TestTrack_ScenarioC_EqualFallback(t *testing.T) {
	t.Parallel()
	a, b := activeGoal(1, "100000"), activeGoal(2, "50000")
	res, err := Track(Input{UserID: user, Month: month, Goals: []*goal.Goal{a, b}, ActualTotal: dec("10000")})
	require.NoError(t, err)

	assert.False(t, res.ProRata)
	require.Len(t, res.Contributions, 2)
	assert.True(t, actualOf(res, a.ID).Equal(dec("5000")))
	assert.True(t, actualOf(res, b.ID).Equal(dec("5000")))
	for _, c := range res.Contributions {
		assert.True(t, c.PlannedAmount.IsZero())
	}
}

func TestTrack_TopPriorityFallback(t *testing.T) {
	t.Parallel()
	a, b := activeGoal(2, "100000"), activeGoal(1, "50000")
	res, err := Track(Input{UserID: user, Month: month, Goals: []*goal.Goal{a, b}, ActualTotal: dec("900"), Fallback: FallbackTopPriority})
	require.NoError(t, err)
	assert.True(t, actualOf(res, b.ID).Equal(dec("900")))
	assert.True(t, actualOf(res, a.ID).IsZero())
}

func TestTrack_ProRata(t *testing.T) {
	t.Parallel()
	a, b := activeGoal(1, "100000"), activeGoal(2, "100000")
	in := Input{
		UserID:      user,
		Month:       month,
		Goals:       []*goal.Goal{a, b},
		Planned:     map[uuid.UUID]decimal.Decimal{a.ID: dec("12000"), b.ID: dec("8000")},
		ActualTotal: dec("10000"),
	}
	res, err := Track(in)
	require.NoError(t, err)
	assert.True(t, res.ProRata)
	assert.True(t, actualOf(res, a.ID).Equal(dec("6000")))
	assert.True(t, actualOf(res, b.ID).Equal(dec("4000")))
	assert.True(t, contributionOf(res, a.ID).PlannedAmount.Equal(dec("12000")))
	assert.Equal(t, 1, contributionOf(res, a.ID).PriorityRank)

	// a plan that sums to zero falls back
	in.Planned = map[uuid.UUID]decimal.Decimal{a.ID: decimal.Zero}
	res, err = Track(in)
	require.NoError(t, err)
	assert.False(t, res.ProRata)
	assert.True(t, actualOf(res, a.ID).Equal(dec("5000")))
}

func TestTrack_Snapshot(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "10000")
	g.StartingSavings = dec("1000")
	res, err := Track(Input{
		UserID:      user,
		Month:       month,
		Goals:       []*goal.Goal{g},
		ActualTotal: dec("1500"),
		PriorActual: map[uuid.UUID]decimal.Decimal{g.ID: dec("1500")},
		PrevPct:     map[uuid.UUID]decimal.Decimal{g.ID: dec("25")},
		Milestones:  map[uuid.UUID]map[int]bool{g.ID: {25: true}},
	})
	require.NoError(t, err)
	require.Len(t, res.Snapshots, 1)
	snap := res.Snapshots[0]
	assert.True(t, snap.SavingsOpen.Equal(dec("2500")))
	assert.True(t, snap.SavingsClose.Equal(dec("4000")))
	assert.True(t, snap.ProgressPct.Equal(dec("40")))
	assert.True(t, snap.RemainingAmount.Equal(dec("6000")))
	require.NotNil(t, snap.ProjectedCompletion)
	assert.Equal(t, month.AddMonths(4).End(), *snap.ProjectedCompletion)
	assert.Empty(t, res.Milestones)
	assert.Empty(t, res.Completed)
}

func TestTrack_NoProjectionWithoutSavings(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "10000")
	res, err := Track(Input{UserID: user, Month: month, Goals: []*goal.Goal{g}, ActualTotal: decimal.Zero})
	require.NoError(t, err)
	assert.Nil(t, res.Snapshots[0].ProjectedCompletion)
}

func TestTrack_ScenarioD_Completion(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "100000")
	other := activeGoal(2, "100000")
	in := Input{
		UserID:      user,
		Month:       month,
		Goals:       []*goal.Goal{g, other},
		Planned:     map[uuid.UUID]decimal.Decimal{g.ID: dec("8400"), other.ID: decimal.Zero},
		ActualTotal: dec("8400"),
		PriorActual: map[uuid.UUID]decimal.Decimal{g.ID: dec("92000")},
		PrevPct:     map[uuid.UUID]decimal.Decimal{g.ID: dec("92")},
		Milestones:  map[uuid.UUID]map[int]bool{g.ID: {25: true, 50: true, 75: true}},
	}
	res, err := Track(in)
	require.NoError(t, err)

	snap := snapshotOf(res, g.ID)
	assert.True(t, snap.ProgressPct.Equal(dec("100.4")))
	assert.True(t, snap.RemainingAmount.IsZero())
	require.Len(t, res.Milestones, 1)
	assert.Equal(t, 100, res.Milestones[0].Pct)
	assert.Equal(t, month.End(), res.Milestones[0].AttainedAt)

	require.Len(t, res.Completed, 1)
	done := res.Completed[0]
	assert.Equal(t, goal.StatusCompleted, done.Status)
	assert.Equal(t, month, done.CompletedMonth)
	assert.Equal(t, goal.StatusActive, g.Status, "input goal untouched")

	// next month the completed goal is neither planned nor attributed
	next := month.Next()
	allocs, err := allocation.Expand(dec("8400"), []*goal.Goal{done, other}, next.Start())
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, other.ID, allocs[0].GoalID)
	assert.NotContains(t, Eligible([]*goal.Goal{done, other}, next), done)
	assert.Contains(t, Eligible([]*goal.Goal{done, other}, month), done)
}

func TestTrack_BackfillsOnCompletion(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "1000")
	res, err := Track(Input{UserID: user, Month: month, Goals: []*goal.Goal{g}, ActualTotal: dec("1200")})
	require.NoError(t, err)
	pcts := make([]int, 0, len(res.Milestones))
	for _, m := range res.Milestones {
		pcts = append(pcts, m.Pct)
	}
	assert.Equal(t, []int{25, 50, 75, 100}, pcts)
	assert.Len(t, res.Completed, 1)
}

func TestTrack_CrossingOnlyNewThresholds(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "1000")
	res, err := Track(Input{
		UserID:      user,
		Month:       month,
		Goals:       []*goal.Goal{g},
		ActualTotal: dec("300"),
		PriorActual: map[uuid.UUID]decimal.Decimal{g.ID: dec("200")},
		PrevPct:     map[uuid.UUID]decimal.Decimal{g.ID: dec("20")},
	})
	require.NoError(t, err)
	require.Len(t, res.Milestones, 2)
	assert.Equal(t, 25, res.Milestones[0].Pct)
	assert.Equal(t, 50, res.Milestones[1].Pct)
}

func TestTrack_Idempotent(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "1000")
	in := Input{UserID: user, Month: month, Goals: []*goal.Goal{g}, ActualTotal: dec("600")}
	first, err := Track(in)
	require.NoError(t, err)
	second, err := Track(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// replay after the first run was persisted
	recorded := map[int]bool{}
	for _, m := range first.Milestones {
		recorded[m.Pct] = true
	}
	in.Milestones = map[uuid.UUID]map[int]bool{g.ID: recorded}
	replay, err := Track(in)
	require.NoError(t, err)
	assert.Empty(t, replay.Milestones)
	assert.Equal(t, first.Contributions, replay.Contributions)
	assert.Equal(t, first.Snapshots, replay.Snapshots)
}

func TestTrack_ReplayOfCompletionMonth(t *testing.T) {
	t.Parallel()
	g := activeGoal(1, "1000")
	g.Complete(month)
	res, err := Track(Input{
		UserID:      user,
		Month:       month,
		Goals:       []*goal.Goal{g},
		ActualTotal: dec("1000"),
		Milestones:  map[uuid.UUID]map[int]bool{g.ID: {25: true, 50: true, 75: true, 100: true}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Contributions, 1)
	assert.Empty(t, res.Milestones)
	assert.Empty(t, res.Completed, "already completed goals do not transition again")
}

func TestTrack_ArchivedGoals(t *testing.T) {
	t.Parallel()
	kept := activeGoal(1, "1000")
	archived := activeGoal(2, "1000")
	archived.Archive(time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC))

	res, err := Track(Input{UserID: user, Month: month, Goals: []*goal.Goal{kept, archived}, ActualTotal: dec("100")})
	require.NoError(t, err)
	require.Len(t, res.Contributions, 1)
	assert.Equal(t, kept.ID, res.Contributions[0].GoalID)

	prev, err := Track(Input{UserID: user, Month: month.Prev(), Goals: []*goal.Goal{kept, archived}, ActualTotal: dec("100")})
	require.NoError(t, err)
	assert.Len(t, prev.Contributions, 2, "months that ended before archival still attribute")
}

func TestTrack_NoEligibleGoals(t *testing.T) {
	t.Parallel()
	res, err := Track(Input{UserID: user, Month: month, ActualTotal: dec("50")})
	require.NoError(t, err)
	assert.Empty(t, res.Contributions)
	assert.True(t, res.Unattributed.Equal(dec("50")))
}

func TestTrack_SumMatchesActualTotal(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	for run := 0; run < 200; run++ {
		n := rng.Intn(6) + 1
		goals := make([]*goal.Goal, n)
		planned := map[uuid.UUID]decimal.Decimal{}
		for i := range goals {
			goals[i] = activeGoal(i+1, "100000")
			if rng.Intn(2) == 0 {
				planned[goals[i].ID] = decimal.New(int64(rng.Intn(500000)), -2)
			}
		}
		if rng.Intn(3) == 0 {
			planned = nil
		}
		total := decimal.New(int64(rng.Intn(5000000)), -2)
		res, err := Track(Input{UserID: user, Month: month, Goals: goals, Planned: planned, ActualTotal: total})
		require.NoError(t, err)

		sum := decimal.Zero
		for _, c := range res.Contributions {
			sum = sum.Add(c.ActualAmount)
		}
		assert.True(t, money.WithinTolerance(sum, total))
		assert.True(t, sum.Equal(total))
		for _, s := range res.Snapshots {
			assert.True(t, s.ProgressPct.Equal(progress.Percent(s.SavingsClose, dec("100000"))))
		}
	}
}

func TestParseFallback(t *testing.T) {
	p, err := ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackEqual, p)
	p, err = ParseFallback("top_priority")
	require.NoError(t, err)
	assert.Equal(t, FallbackTopPriority, p)
	_, err = ParseFallback("random")
	assert.Error(t, err)
}

// completeAndRerank mirrors what the tracking service stores after a run:
// completed goals lose their rank and the rest move up.
func completeAndRerank(res Result, goals []*goal.Goal) []*goal.Goal {
	done := make(map[uuid.UUID]*goal.Goal, len(res.Completed))
	for _, g := range res.Completed {
		done[g.ID] = g
	}
	out := make([]*goal.Goal, 0, len(goals))
	rank := 1
	for _, g := range goals {
		if c, ok := done[g.ID]; ok {
			cp := *c
			cp.PriorityRank = 0
			out = append(out, &cp)
			continue
		}
		cp := *g
		cp.PriorityRank = rank
		rank++
		out = append(out, &cp)
	}
	return out
}

func storedRanks(res Result) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(res.Contributions))
	for _, c := range res.Contributions {
		out[c.GoalID] = c.PriorityRank
	}
	return out
}

func TestTrack_ReplayAfterCompletionIsStable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		fallback FallbackPolicy
		total    string
	}{
		{"equal odd cent", FallbackEqual, "100.01"},
		{"top priority", FallbackTopPriority, "100"},
		{"top priority odd cent", FallbackTopPriority, "100.01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			small, large := activeGoal(1, "50"), activeGoal(2, "100000")
			in := Input{
				UserID:      user,
				Month:       month,
				Goals:       []*goal.Goal{small, large},
				ActualTotal: dec(tc.total),
				Fallback:    tc.fallback,
			}
			first, err := Track(in)
			require.NoError(t, err)
			require.Len(t, first.Completed, 1)
			assert.Equal(t, small.ID, first.Completed[0].ID)

			in.Goals = completeAndRerank(first, in.Goals)
			in.Ranks = storedRanks(first)
			in.PrevPct = nil
			recorded := map[int]bool{}
			for _, m := range first.Milestones {
				if m.GoalID == small.ID {
					recorded[m.Pct] = true
				}
			}
			in.Milestones = map[uuid.UUID]map[int]bool{small.ID: recorded}

			replay, err := Track(in)
			require.NoError(t, err)
			assert.Equal(t, first.Contributions, replay.Contributions)
			assert.Equal(t, first.Snapshots, replay.Snapshots)
			assert.Empty(t, replay.Completed)
			assert.Empty(t, replay.Milestones)
			assert.True(t, snapshotOf(replay, small.ID).Complete())
		})
	}
}

func TestTrack_OrderIgnoresInputOrderAndStatus(t *testing.T) {
	t.Parallel()
	a, b, c := activeGoal(1, "1000"), activeGoal(2, "1000"), activeGoal(3, "1000")
	in := Input{UserID: user, Month: month, Goals: []*goal.Goal{a, b, c}, ActualTotal: dec("100.01")}
	first, err := Track(in)
	require.NoError(t, err)

	in.Goals = []*goal.Goal{c, a, b}
	shuffled, err := Track(in)
	require.NoError(t, err)
	assert.Equal(t, first.Contributions, shuffled.Contributions)

	odd := 0
	for _, c := range first.Contributions {
		if c.ActualAmount.Equal(dec("33.33")) {
			odd++
		}
	}
	assert.Equal(t, 1, odd)
}

func TestTrack_TopPriorityUsesStoredRank(t *testing.T) {
	t.Parallel()
	a, b := activeGoal(1, "100000"), activeGoal(2, "100000")
	res, err := Track(Input{
		UserID:      user,
		Month:       month,
		Goals:       []*goal.Goal{a, b},
		ActualTotal: dec("500"),
		Ranks:       map[uuid.UUID]int{a.ID: 2, b.ID: 1},
		Fallback:    FallbackTopPriority,
	})
	require.NoError(t, err)
	assert.True(t, actualOf(res, b.ID).Equal(dec("500")))
	assert.Equal(t, 1, contributionOf(res, b.ID).PriorityRank)
}
