// Package progress holds the per-month outputs of contribution tracking.
package progress

import (
	"time"

	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Thresholds are the milestone percentages, ascending.
var Thresholds = []int{25, 50, 75, 100}

// PctScale is the number of decimal places kept for progress percentages.
// Percentages are truncated, never rounded up, so a threshold only counts as
// reached when the saved amount really covers it.
const PctScale int32 = 4

// Contribution is the planned and attributed saving of a goal in a month.
// Unique on (UserID, Month, GoalID).
type Contribution struct {
	UserID        uuid.UUID
	Month         period.Month
	GoalID        uuid.UUID
	PlannedAmount decimal.Decimal
	ActualAmount  decimal.Decimal
	// PriorityRank is the rank the goal was attributed with; zero when it
	// had none.
	PriorityRank int
}

// SameAs reports whether c holds the same values as o.
func (c Contribution) SameAs(o Contribution) bool {
	return c.PlannedAmount.Equal(o.PlannedAmount) &&
		c.ActualAmount.Equal(o.ActualAmount) &&
		c.PriorityRank == o.PriorityRank
}

// Snapshot is the cumulative state of a goal at the end of a month.
// Unique on (UserID, Month, GoalID).
type Snapshot struct {
	UserID              uuid.UUID
	Month               period.Month
	GoalID              uuid.UUID
	ProgressPct         decimal.Decimal
	SavingsOpen         decimal.Decimal
	SavingsClose        decimal.Decimal
	RemainingAmount     decimal.Decimal
	ProjectedCompletion *time.Time
}

// SameAs reports whether s holds the same values as o.
func (s Snapshot) SameAs(o Snapshot) bool {
	if (s.ProjectedCompletion == nil) != (o.ProjectedCompletion == nil) {
		return false
	}
	if s.ProjectedCompletion != nil && !s.ProjectedCompletion.Equal(*o.ProjectedCompletion) {
		return false
	}
	return s.ProgressPct.Equal(o.ProgressPct) &&
		s.SavingsOpen.Equal(o.SavingsOpen) &&
		s.SavingsClose.Equal(o.SavingsClose) &&
		s.RemainingAmount.Equal(o.RemainingAmount)
}

// Complete reports whether the snapshot reached 100%.
func (s Snapshot) Complete() bool {
	return s.ProgressPct.GreaterThanOrEqual(decimal.NewFromInt(100))
}

// Milestone is the first crossing of a threshold. Unique on
// (UserID, GoalID, Pct) and written once.
type Milestone struct {
	UserID     uuid.UUID
	GoalID     uuid.UUID
	Pct        int
	Month      period.Month
	AttainedAt time.Time
}

// Percent returns close/cost as a truncated percentage.
func Percent(close, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return close.Mul(decimal.NewFromInt(100)).Div(cost).Truncate(PctScale)
}
