// Package recommend selects and personalizes budget templates.
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/planning/allocation"
	"github.com/shopspring/decimal"
)

// Count is the number of recommendations offered when income data exists.
const Count = 3

// LowDataReason explains the single balanced recommendation.
const LowDataReason = "Not enough income history yet, so start with the balanced split."

// Input is everything a recommendation run reads. Aggregate is the
// trailing average, Goals the ranked goal set.
type Input struct {
	Aggregate   budget.MonthlyAggregate
	Goals       []*goal.Goal
	LifeContext *goal.LifeContext
	Categories  *goal.Catalog
	Templates   *budget.Catalog
	Now         time.Time
}

// Result is the outcome of Recommend.
type Result struct {
	Recommendations []budget.Recommendation
	State           budget.State
	LowData         bool
}

// BuildState derives the rule evaluation state from goals, life context and
// the average aggregate.
func BuildState(in Input) budget.State {
	var s budget.State
	for _, g := range in.Goals {
		if !g.IsActive() {
			continue
		}
		s.ActiveGoalCount++
		var def goal.CategoryDef
		if in.Categories != nil {
			def, _ = in.Categories.Lookup(g.Category, g.Name)
		}
		if g.Category == goal.CategoryEmergency {
			s.HasEmergencyGoal = true
		}
		if g.Category == goal.CategoryDebt || def.DebtLinked {
			s.HasDebtGoal = true
		}
	}
	_, s.WantsRatio, _ = in.Aggregate.Ratios()
	if in.LifeContext != nil {
		s.IncomeRegularity = in.LifeContext.IncomeRegularity
	}
	return s
}

// Pick is a selected template with the predicates that made it eligible.
// Filler picks were not eligible and only complete the set.
type Pick struct {
	Template budget.Template
	Matched  []string
	Filler   bool
}

// Recommend returns exactly Count recommendations with the balanced template
// first, or only the balanced one with zero amounts when income is not
// positive.
func Recommend(in Input) (Result, error) {
	state := BuildState(in)
	res := Result{State: state}

	balanced := in.Templates.Balanced()
	if in.Aggregate.LowData() {
		res.LowData = true
		rec, err := personalize(Pick{Template: balanced}, in)
		if err != nil {
			return Result{}, err
		}
		rec.Reason = LowDataReason
		res.Recommendations = []budget.Recommendation{rec}
		return res, nil
	}

	picks := Select(in.Templates, state)
	for _, p := range picks {
		rec, err := personalize(p, in)
		if err != nil {
			return Result{}, err
		}
		res.Recommendations = append(res.Recommendations, rec)
	}
	return res, nil
}

// Select picks the balanced template, then eligible templates in display
// order, then fills the remaining slots by descending display order.
func Select(templates *budget.Catalog, state budget.State) []Pick {
	balanced := templates.Balanced()
	_, balancedMatched := balanced.Eligibility.Evaluate(state)
	picks := []Pick{{Template: balanced, Matched: balancedMatched}}
	chosen := map[string]bool{balanced.PlanCode: true}

	all := templates.All()
	for _, t := range all {
		if len(picks) == Count {
			break
		}
		if chosen[t.PlanCode] {
			continue
		}
		if ok, matched := t.Eligibility.Evaluate(state); ok {
			picks = append(picks, Pick{Template: t, Matched: matched})
			chosen[t.PlanCode] = true
		}
	}
	for i := len(all) - 1; i >= 0 && len(picks) < Count; i-- {
		t := all[i]
		if chosen[t.PlanCode] {
			continue
		}
		picks = append(picks, Pick{Template: t, Filler: true})
		chosen[t.PlanCode] = true
	}
	return picks
}

func personalize(p Pick, in Input) (budget.Recommendation, error) {
	t := p.Template
	rec := budget.Recommendation{
		PlanCode:      t.PlanCode,
		Name:          t.Name,
		NeedsPct:      t.NeedsPct,
		WantsPct:      t.WantsPct,
		SavingsPct:    t.SavingsPct,
		NeedsBudget:   decimal.Zero,
		WantsBudget:   decimal.Zero,
		SavingsBudget: decimal.Zero,
		Reason:        reason(p),
	}
	var err error
	rec.NeedsBudget, rec.WantsBudget, rec.SavingsBudget, err = Amounts(t, in.Aggregate.Income)
	if err != nil {
		return budget.Recommendation{}, err
	}
	preview, err := allocation.Expand(rec.SavingsBudget, in.Goals, in.Now)
	if err != nil {
		return budget.Recommendation{}, err
	}
	for i := range preview {
		preview[i].PlanCode = t.PlanCode
	}
	if preview == nil {
		preview = []budget.GoalAllocation{}
	}
	rec.GoalPreview = preview
	return rec, nil
}

// Amounts splits income into the template's needs, wants and savings budgets.
// Non-positive income yields zero budgets.
func Amounts(t budget.Template, income decimal.Decimal) (needs, wants, savings decimal.Decimal, err error) {
	if !income.IsPositive() {
		return decimal.Zero, decimal.Zero, decimal.Zero, nil
	}
	amounts, err := money.Split(income, []decimal.Decimal{t.NeedsPct, t.WantsPct, t.SavingsPct})
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("split income for %s: %w", t.PlanCode, err)
	}
	return amounts[0], amounts[1], amounts[2], nil
}

func reason(p Pick) string {
	switch {
	case p.Filler:
		return strings.TrimSpace(p.Template.Description + " Offered as an alternative plan.")
	case len(p.Matched) > 0:
		return "Recommended because " + strings.Join(p.Matched, " and ") + "."
	}
	return p.Template.Description
}
