package progress_test

import (
	"context"
	"testing"
	"time"

	progressrepo "github.com/amirasaad/finplan/infra/repository/progress"
	"github.com/amirasaad/finplan/internal/fixtures/testdb"
	"github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = decimal.RequireFromString

func TestRepository_ContributionsUpsertAndSum(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := progressrepo.New(testdb.New(t))
	user, goalID := uuid.New(), uuid.New()
	jan, feb, mar := period.MustParse("2026-01"), period.MustParse("2026-02"), period.MustParse("2026-03")

	require.NoError(t, repo.UpsertContributions(ctx, []progress.Contribution{
		{UserID: user, Month: jan, GoalID: goalID, PlannedAmount: d("100"), ActualAmount: d("90.25")},
		{UserID: user, Month: feb, GoalID: goalID, PlannedAmount: d("100"), ActualAmount: d("50")},
	}))
	// replay of February overwrites rather than duplicates
	require.NoError(t, repo.UpsertContributions(ctx, []progress.Contribution{
		{UserID: user, Month: feb, GoalID: goalID, PlannedAmount: d("100"), ActualAmount: d("110")},
	}))

	rows, err := repo.ListContributions(ctx, user, feb)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ActualAmount.Equal(d("110")))

	sums, err := repo.SumActualBefore(ctx, user, mar)
	require.NoError(t, err)
	assert.True(t, sums[goalID].Equal(d("200.25")), sums[goalID].String())

	sums, err = repo.SumActualBefore(ctx, user, jan)
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestRepository_Snapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := progressrepo.New(testdb.New(t))
	user, goalID := uuid.New(), uuid.New()
	proj := time.Date(2027, 6, 30, 23, 59, 59, 0, time.UTC)

	snap := func(month, pct string) progress.Snapshot {
		return progress.Snapshot{
			UserID: user, Month: period.MustParse(month), GoalID: goalID,
			ProgressPct: d(pct), SavingsOpen: d("10"), SavingsClose: d("20"), RemainingAmount: d("80"),
			ProjectedCompletion: &proj,
		}
	}
	require.NoError(t, repo.UpsertSnapshots(ctx, []progress.Snapshot{snap("2026-01", "10"), snap("2026-02", "20")}))
	require.NoError(t, repo.UpsertSnapshots(ctx, []progress.Snapshot{snap("2026-02", "25.5")}))

	latest, err := repo.LatestSnapshots(ctx, user, period.Month{})
	require.NoError(t, err)
	require.Contains(t, latest, goalID)
	assert.Equal(t, "2026-02", latest[goalID].Month.String())
	assert.True(t, latest[goalID].ProgressPct.Equal(d("25.5")))
	require.NotNil(t, latest[goalID].ProjectedCompletion)
	assert.True(t, latest[goalID].ProjectedCompletion.Equal(proj))

	before, err := repo.LatestSnapshots(ctx, user, period.MustParse("2026-02"))
	require.NoError(t, err)
	assert.Equal(t, "2026-01", before[goalID].Month.String())
}

func TestRepository_InsertMilestonesIfAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := progressrepo.New(testdb.New(t))
	user, goalID := uuid.New(), uuid.New()
	month := period.MustParse("2026-03")

	ms := func(pcts ...int) []progress.Milestone {
		out := make([]progress.Milestone, 0, len(pcts))
		for _, p := range pcts {
			out = append(out, progress.Milestone{UserID: user, GoalID: goalID, Pct: p, Month: month, AttainedAt: month.End()})
		}
		return out
	}

	inserted, err := repo.InsertMilestonesIfAbsent(ctx, ms(25, 50))
	require.NoError(t, err)
	assert.Len(t, inserted, 2)

	inserted, err = repo.InsertMilestonesIfAbsent(ctx, ms(25, 50, 75))
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, 75, inserted[0].Pct)

	all, err := repo.ListMilestones(ctx, user)
	require.NoError(t, err)
	require.Len(t, all[goalID], 3)
	assert.Equal(t, []int{25, 50, 75}, []int{all[goalID][0].Pct, all[goalID][1].Pct, all[goalID][2].Pct})
	assert.Equal(t, "2026-03", all[goalID][0].Month.String())
}

func TestRepository_MonthRowsKeepRankAndValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := progressrepo.New(testdb.New(t))
	user, goalID := uuid.New(), uuid.New()
	may := period.MustParse("2026-05")
	proj := may.AddMonths(3).End()

	want := progress.Contribution{UserID: user, Month: may, GoalID: goalID, PlannedAmount: d("10"), ActualAmount: d("50.01"), PriorityRank: 2}
	require.NoError(t, repo.UpsertContributions(ctx, []progress.Contribution{want}))
	rows, err := repo.ListContributions(ctx, user, may)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].PriorityRank)
	assert.True(t, rows[0].SameAs(want))

	snap := progress.Snapshot{
		UserID: user, Month: may, GoalID: goalID,
		ProgressPct: d("33.3333"), SavingsOpen: d("0"), SavingsClose: d("50.01"),
		RemainingAmount: d("99.99"), ProjectedCompletion: &proj,
	}
	require.NoError(t, repo.UpsertSnapshots(ctx, []progress.Snapshot{snap}))
	snaps, err := repo.ListSnapshots(ctx, user, may)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].SameAs(snap))

	empty, err := repo.ListSnapshots(ctx, user, may.Next())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
