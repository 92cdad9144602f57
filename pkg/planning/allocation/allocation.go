// Package allocation expands a savings budget into per-goal monthly amounts.
package allocation

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/shopspring/decimal"
)

// Component weights of the blended allocation weight.
var (
	PriorityShare = decimal.RequireFromString("0.4")
	UrgencyShare  = decimal.RequireFromString("0.3")
	GapShare      = decimal.RequireFromString("0.3")
)

// weightScale is the precision weights are rounded to before splitting, so
// float noise in the urgency term cannot change the outcome.
const weightScale int32 = 6

// Weighted is an active goal with its blended weight.
type Weighted struct {
	Goal     *goal.Goal
	Priority decimal.Decimal
	Urgency  decimal.Decimal
	Gap      decimal.Decimal
	Weight   decimal.Decimal
}

// Weights computes the blended weight of every active goal, in rank order:
//
//	priority = (N - position + 1) / N
//	urgency  = 1 / (1 + months_left/12), 1 once the target date has passed
//	gap      = gap / Σgap, or 1/N when nothing is left to fund
//	weight   = 0.4·priority + 0.3·urgency + 0.3·gap
func Weights(goals []*goal.Goal, now time.Time) []Weighted {
	active := make([]*goal.Goal, 0, len(goals))
	for _, g := range goals {
		if g.IsActive() {
			active = append(active, g)
		}
	}
	slices.SortFunc(active, func(a, b *goal.Goal) int {
		if c := cmp.Compare(a.PriorityRank, b.PriorityRank); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	if len(active) == 0 {
		return nil
	}

	n := decimal.NewFromInt(int64(len(active)))
	totalGap := decimal.Zero
	for _, g := range active {
		totalGap = totalGap.Add(g.Gap())
	}

	out := make([]Weighted, len(active))
	for i, g := range active {
		w := Weighted{Goal: g}
		w.Priority = n.Sub(decimal.NewFromInt(int64(i))).Div(n)
		months := math.Max(0, period.MonthsUntil(now, g.TargetDate))
		w.Urgency = decimal.NewFromFloat(1 / (1 + months/12)).Round(weightScale)
		if totalGap.IsPositive() {
			w.Gap = g.Gap().Div(totalGap)
		} else {
			w.Gap = decimal.NewFromInt(1).Div(n)
		}
		w.Weight = PriorityShare.Mul(w.Priority).
			Add(UrgencyShare.Mul(w.Urgency)).
			Add(GapShare.Mul(w.Gap)).
			Round(weightScale)
		out[i] = w
	}
	return out
}

// Expand distributes savingsBudget across the active goals. The amounts sum
// to the rounded budget exactly; the rounding remainder goes to the goal with
// the highest weight. Inactive goals receive nothing and are omitted.
func Expand(savingsBudget decimal.Decimal, goals []*goal.Goal, now time.Time) ([]budget.GoalAllocation, error) {
	if savingsBudget.IsNegative() {
		return nil, domain.Validation(domain.CodeAllocationNegative, "savings budget %s is negative", savingsBudget)
	}
	weighted := Weights(goals, now)
	if len(weighted) == 0 {
		return nil, nil
	}

	weights := make([]decimal.Decimal, len(weighted))
	for i, w := range weighted {
		weights[i] = w.Weight
	}
	amounts, err := money.Split(savingsBudget, weights)
	if err != nil {
		return nil, domain.Consistency(domain.CodeAllocationDrift, "split savings budget: %v", err)
	}

	allocs := make([]budget.GoalAllocation, len(weighted))
	for i, w := range weighted {
		allocs[i] = budget.GoalAllocation{
			GoalID:        w.Goal.ID,
			Name:          w.Goal.Name,
			PriorityRank:  w.Goal.PriorityRank,
			Weight:        w.Weight,
			MonthlyAmount: amounts[i],
		}
	}
	if total := budget.TotalAllocated(allocs); !money.WithinTolerance(total, savingsBudget) {
		return nil, domain.Consistency(domain.CodeAllocationDrift,
			"allocations sum to %s, savings budget is %s", total, savingsBudget)
	}
	return allocs, nil
}
