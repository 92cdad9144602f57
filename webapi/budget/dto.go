package budget

import (
	"time"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	budgetsvc "github.com/amirasaad/finplan/pkg/service/budget"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommitRequest is the body of POST /budget/commit. GoalAllocations maps
// goal ids to monthly amounts; leave it empty to split the plan's savings
// budget by priority.
type CommitRequest struct {
	PlanCode        string                     `json:"plan_code" validate:"required,max=64"`
	GoalAllocations map[string]decimal.Decimal `json:"goal_allocations" validate:"omitempty,max=50,dive,keys,uuid,endkeys"`
}

func (r *CommitRequest) toInput() (budgetsvc.CommitInput, error) {
	in := budgetsvc.CommitInput{PlanCode: r.PlanCode}
	for raw, amount := range r.GoalAllocations {
		id, err := uuid.Parse(raw)
		if err != nil {
			return in, err
		}
		in.Allocations = append(in.Allocations, budgetsvc.AllocationInput{GoalID: id, MonthlyAmount: amount})
	}
	return in, nil
}

// RecommendationsResponse is the data of GET /budget/recommendations.
type RecommendationsResponse struct {
	Recommendations []budget.Recommendation `json:"recommendations"`
	LowData         bool                    `json:"low_data"`
}

// CommitmentResponse is the data of POST /budget/commit.
type CommitmentResponse struct {
	CommitmentID    string                  `json:"commitment_id"`
	PlanCode        string                  `json:"plan_code"`
	Month           string                  `json:"month"`
	SavingsBudget   decimal.Decimal         `json:"savings_budget"`
	CommittedAt     string                  `json:"committed_at"`
	GoalAllocations []budget.GoalAllocation `json:"goal_allocations"`
}

func toCommitmentResponse(c *budget.Commitment, allocs []budget.GoalAllocation) CommitmentResponse {
	if allocs == nil {
		allocs = []budget.GoalAllocation{}
	}
	return CommitmentResponse{
		CommitmentID:    c.ID.String(),
		PlanCode:        c.PlanCode,
		Month:           c.Month.String(),
		SavingsBudget:   c.SavingsBudget,
		CommittedAt:     c.CommittedAt.Format(time.RFC3339),
		GoalAllocations: allocs,
	}
}
