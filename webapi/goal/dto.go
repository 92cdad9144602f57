package goal

import (
	"time"

	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/domain/progress"
	goalsvc "github.com/amirasaad/finplan/pkg/service/goal"
	progresssvc "github.com/amirasaad/finplan/pkg/service/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//revive:disable

const dateLayout = time.DateOnly

// LifeContextRequest is the body of PUT /life-context.
type LifeContextRequest struct {
	AgeBand    string `json:"age_band" validate:"required"`
	Dependents struct {
		Children      int  `json:"children" validate:"gte=0,lte=20"`
		ParentsInCare bool `json:"parents_in_care"`
	} `json:"dependents"`
	Employment       string `json:"employment" validate:"required"`
	IncomeRegularity string `json:"income_regularity" validate:"required"`
	RegionCode       string `json:"region_code" validate:"omitempty,max=16"`
}

func (r *LifeContextRequest) toDomain(userID uuid.UUID) *goal.LifeContext {
	return &goal.LifeContext{
		UserID:  userID,
		AgeBand: goal.AgeBand(r.AgeBand),
		Dependents: goal.Dependents{
			Children:      r.Dependents.Children,
			ParentsInCare: r.Dependents.ParentsInCare,
		},
		Employment:       goal.Employment(r.Employment),
		IncomeRegularity: goal.IncomeRegularity(r.IncomeRegularity),
		RegionCode:       r.RegionCode,
	}
}

// GoalRequest is one goal in a submission. Cost, importance and dates are
// checked by the domain so clients get the stable error codes.
type GoalRequest struct {
	Category       string          `json:"category" validate:"required,max=64"`
	Name           string          `json:"name" validate:"omitempty,max=120"`
	GoalType       string          `json:"goal_type" validate:"omitempty,oneof=short medium long"`
	LinkedTxnType  string          `json:"linked_txn_type" validate:"omitempty,oneof=needs wants assets"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
	TargetDate     string          `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
	CurrentSavings decimal.Decimal `json:"current_savings"`
	Importance     int             `json:"importance"`
	Notes          string          `json:"notes" validate:"max=1000"`
}

// SubmitRequest is the body of POST /goals/submit.
type SubmitRequest struct {
	Goals []GoalRequest `json:"goals" validate:"required,min=1,max=50,dive"`
}

func (r *SubmitRequest) toInputs() ([]goalsvc.Input, error) {
	out := make([]goalsvc.Input, 0, len(r.Goals))
	for _, g := range r.Goals {
		target, err := parseDate(g.TargetDate)
		if err != nil {
			return nil, err
		}
		out = append(out, goalsvc.Input{
			Category:       g.Category,
			Name:           g.Name,
			GoalType:       goal.Horizon(g.GoalType),
			LinkedTxnType:  goal.TxnType(g.LinkedTxnType),
			EstimatedCost:  g.EstimatedCost,
			TargetDate:     target,
			CurrentSavings: g.CurrentSavings,
			Importance:     g.Importance,
			Notes:          g.Notes,
		})
	}
	return out, nil
}

// UpdateRequest is the body of PATCH /goals/:id. Absent fields are kept.
type UpdateRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=120"`
	EstimatedCost  *decimal.Decimal `json:"estimated_cost"`
	TargetDate     *string          `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
	CurrentSavings *decimal.Decimal `json:"current_savings"`
	Importance     *int             `json:"importance"`
	Notes          *string          `json:"notes" validate:"omitempty,max=1000"`
}

func (r *UpdateRequest) toUpdate() (goalsvc.Update, error) {
	upd := goalsvc.Update{
		Name:           r.Name,
		EstimatedCost:  r.EstimatedCost,
		CurrentSavings: r.CurrentSavings,
		Importance:     r.Importance,
		Notes:          r.Notes,
	}
	if r.TargetDate != nil {
		t, err := parseDate(*r.TargetDate)
		if err != nil {
			return upd, err
		}
		upd.TargetDate = t
	}
	return upd, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GoalDTO is the API representation of a goal.
type GoalDTO struct {
	ID             string          `json:"id"`
	Category       string          `json:"category"`
	Name           string          `json:"name"`
	GoalType       string          `json:"goal_type"`
	LinkedTxnType  string          `json:"linked_txn_type"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
	TargetDate     string          `json:"target_date"`
	CurrentSavings decimal.Decimal `json:"current_savings"`
	Importance     int             `json:"importance"`
	PriorityScore  float64         `json:"priority_score"`
	PriorityRank   int             `json:"priority_rank,omitempty"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	CompletedMonth string          `json:"completed_month,omitempty"`
}

func toGoalDTO(g *goal.Goal) GoalDTO {
	dto := GoalDTO{
		ID:             g.ID.String(),
		Category:       g.Category,
		Name:           g.Name,
		GoalType:       string(g.Type),
		LinkedTxnType:  string(g.LinkedTxnType),
		EstimatedCost:  g.EstimatedCost,
		TargetDate:     g.TargetDate.Format(dateLayout),
		CurrentSavings: g.CurrentSavings,
		Importance:     g.Importance,
		PriorityScore:  g.PriorityScore,
		PriorityRank:   g.PriorityRank,
		Status:         string(g.Status),
		Notes:          g.Notes,
	}
	if !g.CompletedMonth.IsZero() {
		dto.CompletedMonth = g.CompletedMonth.String()
	}
	return dto
}

func toGoalDTOs(goals []*goal.Goal) []GoalDTO {
	out := make([]GoalDTO, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalDTO(g))
	}
	return out
}

// CreatedGoal is one entry of goals_created.
type CreatedGoal struct {
	GoalID       string `json:"goal_id"`
	PriorityRank int    `json:"priority_rank"`
}

// SubmitResponse is the data of POST /goals/submit.
type SubmitResponse struct {
	GoalsCreated []CreatedGoal `json:"goals_created"`
}

// MilestoneDTO is an attained threshold.
type MilestoneDTO struct {
	Pct        int    `json:"pct"`
	Month      string `json:"month"`
	AttainedAt string `json:"attained_at"`
}

// ProgressDTO is the progress of one goal as of its latest tracked month.
// Goals not tracked yet report their current savings and no month.
type ProgressDTO struct {
	GoalID                  string          `json:"goal_id"`
	Name                    string          `json:"name"`
	Status                  string          `json:"status"`
	PriorityRank            int             `json:"priority_rank"`
	Month                   string          `json:"month,omitempty"`
	ProgressPct             decimal.Decimal `json:"progress_pct"`
	CurrentSavingsClose     decimal.Decimal `json:"current_savings_close"`
	RemainingAmount         decimal.Decimal `json:"remaining_amount"`
	ProjectedCompletionDate *string         `json:"projected_completion_date"`
	Milestones              []MilestoneDTO  `json:"milestones"`
}

// ProgressResponse is the data of GET /goals/progress.
type ProgressResponse struct {
	Goals []ProgressDTO `json:"goals"`
}

func toProgressResponse(in []progresssvc.GoalProgress) ProgressResponse {
	out := ProgressResponse{Goals: make([]ProgressDTO, 0, len(in))}
	for _, p := range in {
		dto := ProgressDTO{
			GoalID:       p.Goal.ID.String(),
			Name:         p.Goal.Name,
			Status:       string(p.Goal.Status),
			PriorityRank: p.Goal.PriorityRank,
			Milestones:   make([]MilestoneDTO, 0, len(p.Milestones)),
		}
		if s := p.Latest; s != nil {
			dto.Month = s.Month.String()
			dto.ProgressPct = s.ProgressPct
			dto.CurrentSavingsClose = s.SavingsClose
			dto.RemainingAmount = s.RemainingAmount
			if s.ProjectedCompletion != nil {
				at := s.ProjectedCompletion.Format(dateLayout)
				dto.ProjectedCompletionDate = &at
			}
		} else {
			dto.ProgressPct = progress.Percent(p.Goal.CurrentSavings, p.Goal.EstimatedCost)
			dto.CurrentSavingsClose = p.Goal.CurrentSavings
			dto.RemainingAmount = p.Goal.Gap()
		}
		for _, m := range p.Milestones {
			dto.Milestones = append(dto.Milestones, MilestoneDTO{
				Pct:        m.Pct,
				Month:      m.Month.String(),
				AttainedAt: m.AttainedAt.Format(time.RFC3339),
			})
		}
		out.Goals = append(out.Goals, dto)
	}
	return out
}
