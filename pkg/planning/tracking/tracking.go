// Package tracking attributes a month's actual savings to goals and derives
// progress snapshots, milestones and completions.
//
// Track is pure. Running it twice over the same input yields the same rows,
// which is what makes the monthly batch safe to replay: persistence upserts
// by natural key and inserts milestones only when absent.
package tracking

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FallbackPolicy decides how actual savings are attributed when there is no
// usable plan for the month.
type FallbackPolicy string

const (
	// FallbackEqual splits the total equally across eligible goals.
	FallbackEqual FallbackPolicy = "equal"
	// FallbackTopPriority gives the total to the highest-priority goal.
	FallbackTopPriority FallbackPolicy = "top_priority"
)

// ParseFallback maps a config value to a policy. Empty means FallbackEqual.
func ParseFallback(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(s) {
	case "", FallbackEqual:
		return FallbackEqual, nil
	case FallbackTopPriority:
		return FallbackTopPriority, nil
	}
	return "", fmt.Errorf("unknown attribution fallback %q", s)
}

// Input is the immutable state a tracking run reads.
type Input struct {
	UserID uuid.UUID
	Month  period.Month
	// Goals is every goal of the user, any status.
	Goals []*goal.Goal
	// Planned holds the planned amount per goal for Month; nil when the
	// user has no commitment.
	Planned map[uuid.UUID]decimal.Decimal
	// ActualTotal is the externally measured savings of Month.
	ActualTotal decimal.Decimal
	// PriorActual is the cumulative actual attribution per goal over the
	// months before Month.
	PriorActual map[uuid.UUID]decimal.Decimal
	// PrevPct is the progress of each goal's latest snapshot before Month.
	PrevPct map[uuid.UUID]decimal.Decimal
	// Milestones lists the thresholds already recorded per goal.
	Milestones map[uuid.UUID]map[int]bool
	// Ranks holds the priority rank stored with Month's contributions by an
	// earlier run. Goals missing from it use their live rank.
	Ranks    map[uuid.UUID]int
	Fallback FallbackPolicy
}

// Result holds the rows to persist for (UserID, Month).
type Result struct {
	Contributions []progress.Contribution
	Snapshots     []progress.Snapshot
	// Milestones only holds thresholds not recorded before.
	Milestones []progress.Milestone
	// Completed holds copies of goals that moved to completed in this run.
	Completed []*goal.Goal
	// ProRata is false when the fallback policy was used.
	ProRata bool
	// Unattributed is the part of ActualTotal no goal could take.
	Unattributed decimal.Decimal
}

// Eligible returns the goals taking part in attribution for m, ordered by
// ID. The order must not depend on status or rank: both change when a goal
// completes, and a replay of the month has to split the same way.
func Eligible(goals []*goal.Goal, m period.Month) []*goal.Goal {
	out := make([]*goal.Goal, 0, len(goals))
	for _, g := range goals {
		if g.EligibleFor(m) {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b *goal.Goal) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// RankOf returns the rank g is attributed with for the month: the rank
// stored by an earlier run when there is one, else the live rank of an
// active goal. Zero means unranked.
func (in Input) RankOf(g *goal.Goal) int {
	if r, ok := in.Ranks[g.ID]; ok {
		return r
	}
	if g.IsActive() {
		return g.PriorityRank
	}
	return 0
}

// top returns the index of the best-ranked goal, the first one when none is
// ranked.
func top(eligible []*goal.Goal, in Input) int {
	best, bestRank := 0, 0
	for i, g := range eligible {
		r := in.RankOf(g)
		if r > 0 && (bestRank == 0 || r < bestRank) {
			best, bestRank = i, r
		}
	}
	return best
}

// Track computes contributions, snapshots, new milestones and completions for
// one user and month.
func Track(in Input) (Result, error) {
	res := Result{Unattributed: decimal.Zero}
	eligible := Eligible(in.Goals, in.Month)
	total := money.Round(in.ActualTotal)
	if len(eligible) == 0 {
		res.Unattributed = total
		return res, nil
	}

	actual, proRata, err := attribute(eligible, in, total)
	if err != nil {
		return Result{}, err
	}
	res.ProRata = proRata
	if sum := money.Sum(actual...); !money.WithinTolerance(sum, total) {
		return Result{}, domain.Consistency(domain.CodeAttributionDrift,
			"attributed %s of %s for %s", sum, total, in.Month)
	}

	for i, g := range eligible {
		planned := decimal.Zero
		if in.Planned != nil {
			planned = money.Round(in.Planned[g.ID])
		}
		res.Contributions = append(res.Contributions, progress.Contribution{
			UserID:        in.UserID,
			Month:         in.Month,
			GoalID:        g.ID,
			PlannedAmount: planned,
			ActualAmount:  actual[i],
			PriorityRank:  in.RankOf(g),
		})

		snap := snapshot(in, g, actual[i])
		res.Snapshots = append(res.Snapshots, snap)
		res.Milestones = append(res.Milestones, milestones(in, g, snap.ProgressPct)...)

		if snap.Complete() && g.IsActive() {
			done := *g
			done.CurrentSavings = snap.SavingsClose
			done.Complete(in.Month)
			res.Completed = append(res.Completed, &done)
		}
	}
	return res, nil
}

// attribute splits total across eligible goals, pro rata to the plan when
// it has a positive total, otherwise by the fallback policy.
func attribute(eligible []*goal.Goal, in Input, total decimal.Decimal) ([]decimal.Decimal, bool, error) {
	weights := make([]decimal.Decimal, len(eligible))
	plannedSum := decimal.Zero
	if in.Planned != nil {
		for i, g := range eligible {
			p := in.Planned[g.ID]
			if p.IsNegative() {
				p = decimal.Zero
			}
			weights[i] = p
			plannedSum = plannedSum.Add(p)
		}
	}
	if plannedSum.IsPositive() {
		shares, err := money.Split(total, weights)
		if err != nil {
			return nil, false, domain.Consistency(domain.CodeAttributionDrift, "pro-rata attribution: %v", err)
		}
		return shares, true, nil
	}

	if in.Fallback == FallbackTopPriority {
		shares := make([]decimal.Decimal, len(eligible))
		for i := range shares {
			shares[i] = decimal.Zero
		}
		shares[top(eligible, in)] = total
		return shares, false, nil
	}
	shares, err := money.SplitEqual(total, len(eligible))
	if err != nil {
		return nil, false, domain.Consistency(domain.CodeAttributionDrift, "equal attribution: %v", err)
	}
	return shares, false, nil
}

func snapshot(in Input, g *goal.Goal, actual decimal.Decimal) progress.Snapshot {
	open := money.Round(g.StartingSavings.Add(in.PriorActual[g.ID]))
	closing := open.Add(actual)
	remaining := money.Max(decimal.Zero, g.EstimatedCost.Sub(closing))
	snap := progress.Snapshot{
		UserID:          in.UserID,
		Month:           in.Month,
		GoalID:          g.ID,
		ProgressPct:     progress.Percent(closing, g.EstimatedCost),
		SavingsOpen:     open,
		SavingsClose:    closing,
		RemainingAmount: remaining,
	}
	if actual.IsPositive() {
		months := remaining.Div(actual).Ceil().IntPart()
		at := in.Month.AddMonths(int(months)).End()
		snap.ProjectedCompletion = &at
	}
	return snap
}

// milestones returns thresholds crossed this month (prev < t <= cur) that are
// not recorded yet. Reaching 100 backfills every lower threshold still
// missing so the recorded set stays monotonic.
func milestones(in Input, g *goal.Goal, cur decimal.Decimal) []progress.Milestone {
	prev := in.PrevPct[g.ID]
	existing := in.Milestones[g.ID]
	reachedFull := cur.GreaterThanOrEqual(decimal.NewFromInt(100))

	var out []progress.Milestone
	for _, t := range progress.Thresholds {
		td := decimal.NewFromInt(int64(t))
		if existing[t] || cur.LessThan(td) {
			continue
		}
		if prev.LessThan(td) || reachedFull {
			out = append(out, progress.Milestone{
				UserID:     in.UserID,
				GoalID:     g.ID,
				Pct:        t,
				Month:      in.Month,
				AttainedAt: in.Month.End(),
			})
		}
	}
	return out
}
