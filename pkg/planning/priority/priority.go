// Package priority scores and ranks a user's goals.
//
// Recompute is a pure function over the full goal set. Callers invoke it after
// every goal or life-context mutation and persist the result; there is no
// incremental update.
package priority

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/shopspring/decimal"
)

// Component caps. They add up to 100.
const (
	SafetyPoints       = 30.0
	LiabilityMax       = 20.0
	UrgencyMax         = 20.0
	DependencyMax      = 15.0
	ImportanceMax      = 15.0
	ImportanceFactor   = 3.0
	liabilityBase      = 10.0
	childrenPoints     = 10.0
	parentsPoints      = 5.0
	urgencyHorizonMths = 120.0
)

// Breakdown is the per-component score of a goal.
type Breakdown struct {
	Safety     float64 `json:"safety"`
	Liability  float64 `json:"liability"`
	Urgency    float64 `json:"urgency"`
	Dependency float64 `json:"dependency"`
	Importance float64 `json:"importance"`
	Total      float64 `json:"total"`
}

// Score computes the priority score of g. Past or immediate target dates get
// full urgency.
func Score(g *goal.Goal, def goal.CategoryDef, lc *goal.LifeContext, now time.Time) Breakdown {
	var b Breakdown
	if def.IsMandatory {
		b.Safety = SafetyPoints
	}
	if def.DebtLinked {
		b.Liability = liabilityBase + liabilityBase*gapRatio(g)
	}

	monthsLeft := period.MonthsUntil(now, g.TargetDate)
	b.Urgency = clamp(UrgencyMax*(1-monthsLeft/urgencyHorizonMths), 0, UrgencyMax)

	if lc != nil {
		children := lc.Dependents.Children > 0
		parents := lc.Dependents.ParentsInCare
		switch def.Dependents {
		case goal.RelevantChildren:
			if children {
				b.Dependency += childrenPoints
			}
		case goal.RelevantParents:
			if parents {
				b.Dependency += parentsPoints
			}
		case goal.RelevantAny:
			if children {
				b.Dependency += childrenPoints
			}
			if parents {
				b.Dependency += parentsPoints
			}
		}
		b.Dependency = math.Min(b.Dependency, DependencyMax)
	}

	b.Importance = math.Min(float64(g.Importance)*ImportanceFactor, ImportanceMax)
	b.Total = round2(clamp(b.Safety+b.Liability+b.Urgency+b.Dependency+b.Importance, 0, 100))
	return b
}

// gapRatio is the unfunded share of the goal, clamped to [0,1].
func gapRatio(g *goal.Goal) float64 {
	if !g.EstimatedCost.IsPositive() {
		return 0
	}
	r := g.Gap().Div(g.EstimatedCost)
	return clamp(r.InexactFloat64(), 0, 1)
}

// Recompute scores every active goal of the set and assigns dense ranks
// 1..N: score descending, then target date ascending, then ID. Inactive
// goals are returned with rank 0 after the active ones. The input is not
// modified.
func Recompute(goals []*goal.Goal, lc *goal.LifeContext, catalog *goal.Catalog, now time.Time) ([]*goal.Goal, error) {
	if lc == nil {
		return nil, domain.Validation(domain.CodeLifeContextRequired, "life context is required before ranking goals")
	}
	var active, inactive []*goal.Goal
	for _, g := range goals {
		cp := *g
		if !cp.IsActive() {
			cp.PriorityRank = 0
			inactive = append(inactive, &cp)
			continue
		}
		if err := goal.ValidateCost(cp.EstimatedCost); err != nil {
			return nil, err
		}
		if err := goal.ValidateImportance(cp.Importance); err != nil {
			return nil, err
		}
		var def goal.CategoryDef
		if catalog != nil {
			def, _ = catalog.Lookup(cp.Category, cp.Name)
		}
		cp.PriorityScore = Score(&cp, def, lc, now).Total
		active = append(active, &cp)
	}

	slices.SortFunc(active, Compare)
	for i, g := range active {
		g.PriorityRank = i + 1
	}
	slices.SortFunc(inactive, func(a, b *goal.Goal) int { return cmp.Compare(a.ID.String(), b.ID.String()) })
	return append(active, inactive...), nil
}

// Compare orders goals by score descending, target date ascending, then ID.
func Compare(a, b *goal.Goal) int {
	if c := cmp.Compare(b.PriorityScore, a.PriorityScore); c != 0 {
		return c
	}
	if c := a.TargetDate.Compare(b.TargetDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// Active filters the ranked set down to active goals, rank order.
func Active(ranked []*goal.Goal) []*goal.Goal {
	out := make([]*goal.Goal, 0, len(ranked))
	for _, g := range ranked {
		if g.IsActive() {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b *goal.Goal) int { return cmp.Compare(a.PriorityRank, b.PriorityRank) })
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
