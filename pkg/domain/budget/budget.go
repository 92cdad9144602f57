// Package budget holds budget templates, their eligibility rules, monthly
// aggregates and user commitments.
package budget

import (
	"time"

	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyAggregate is the externally computed income/spend split of a month.
type MonthlyAggregate struct {
	UserID uuid.UUID
	Month  period.Month
	Income decimal.Decimal
	Needs  decimal.Decimal
	Wants  decimal.Decimal
	Assets decimal.Decimal
}

// Average returns the mean of aggs over the months present. An empty input
// yields a zero aggregate.
func Average(aggs []MonthlyAggregate) MonthlyAggregate {
	var avg MonthlyAggregate
	if len(aggs) == 0 {
		return avg
	}
	avg.UserID = aggs[0].UserID
	avg.Month = aggs[len(aggs)-1].Month
	var income, needs, wants, assets []decimal.Decimal
	for _, a := range aggs {
		income = append(income, a.Income)
		needs = append(needs, a.Needs)
		wants = append(wants, a.Wants)
		assets = append(assets, a.Assets)
	}
	n := decimal.NewFromInt(int64(len(aggs)))
	avg.Income = money.Round(money.Sum(income...).Div(n))
	avg.Needs = money.Round(money.Sum(needs...).Div(n))
	avg.Wants = money.Round(money.Sum(wants...).Div(n))
	avg.Assets = money.Round(money.Sum(assets...).Div(n))
	return avg
}

// LowData reports whether income is too thin to derive ratios.
func (a MonthlyAggregate) LowData() bool { return !a.Income.IsPositive() }

// Ratios returns needs, wants and savings as fractions of income. All are zero
// for low-data aggregates.
func (a MonthlyAggregate) Ratios() (needs, wants, savings decimal.Decimal) {
	if a.LowData() {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	return a.Needs.Div(a.Income), a.Wants.Div(a.Income), a.Assets.Div(a.Income)
}

// GoalAllocation is the monthly amount planned for one goal.
type GoalAllocation struct {
	GoalID        uuid.UUID       `json:"goal_id"`
	Name          string          `json:"name,omitempty"`
	PriorityRank  int             `json:"priority_rank"`
	PlanCode      string          `json:"plan_code,omitempty"`
	Month         period.Month    `json:"-"`
	Weight        decimal.Decimal `json:"weight"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
}

// TotalAllocated sums the monthly amounts.
func TotalAllocated(allocs []GoalAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.MonthlyAmount)
	}
	return total
}

// Recommendation is a computed, personalized template.
type Recommendation struct {
	PlanCode      string           `json:"plan_code"`
	Name          string           `json:"name"`
	NeedsPct      decimal.Decimal  `json:"needs_pct"`
	WantsPct      decimal.Decimal  `json:"wants_pct"`
	SavingsPct    decimal.Decimal  `json:"savings_pct"`
	NeedsBudget   decimal.Decimal  `json:"needs_budget"`
	WantsBudget   decimal.Decimal  `json:"wants_budget"`
	SavingsBudget decimal.Decimal  `json:"savings_budget"`
	Reason        string           `json:"reason"`
	GoalPreview   []GoalAllocation `json:"goal_preview"`
}

// Commitment is the plan a user accepted. One per user; the latest wins.
type Commitment struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PlanCode      string
	Month         period.Month
	SavingsBudget decimal.Decimal
	Allocations   map[uuid.UUID]decimal.Decimal
	CommittedAt   time.Time
}

// PlannedTotal sums the committed goal amounts.
func (c *Commitment) PlannedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, amt := range c.Allocations {
		total = total.Add(amt)
	}
	return total
}

// SetAllocations replaces the goal map from expanded allocations.
func (c *Commitment) SetAllocations(allocs []GoalAllocation) {
	c.Allocations = make(map[uuid.UUID]decimal.Decimal, len(allocs))
	for _, a := range allocs {
		c.Allocations[a.GoalID] = a.MonthlyAmount
	}
}

// RecommendationAudit records a generated recommendation set. It is not a
// source of truth; commitments are validated against the catalog.
type RecommendationAudit struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Month           period.Month
	LowData         bool
	Aggregate       MonthlyAggregate
	Recommendations []Recommendation
	CreatedAt       time.Time
}
