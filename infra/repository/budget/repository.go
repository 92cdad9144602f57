package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirasaad/finplan/infra/repository/gormerr"
	domain "github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	repo "github.com/amirasaad/finplan/pkg/repository/budget"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// New creates a budget repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// GetCommitment implements budget.Repository.
func (r *repository) GetCommitment(ctx context.Context, userID uuid.UUID) (*domain.Commitment, error) {
	var row Commitment
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	month, err := period.Parse(row.Month)
	if err != nil {
		return nil, fmt.Errorf("commitment %s: %w", row.ID, err)
	}
	var raw map[string]decimal.Decimal
	if len(row.Allocations) > 0 {
		if err := json.Unmarshal(row.Allocations, &raw); err != nil {
			return nil, fmt.Errorf("commitment %s allocations: %w", row.ID, err)
		}
	}
	allocs := make(map[uuid.UUID]decimal.Decimal, len(raw))
	for k, v := range raw {
		id, err := uuid.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("commitment %s allocations: %w", row.ID, err)
		}
		allocs[id] = v
	}
	return &domain.Commitment{
		ID:            row.ID,
		UserID:        row.UserID,
		PlanCode:      row.PlanCode,
		Month:         month,
		SavingsBudget: row.SavingsBudget,
		Allocations:   allocs,
		CommittedAt:   row.CommittedAt.UTC(),
	}, nil
}

// UpsertCommitment implements budget.Repository.
func (r *repository) UpsertCommitment(ctx context.Context, c *domain.Commitment) error {
	raw := make(map[string]decimal.Decimal, len(c.Allocations))
	for id, amt := range c.Allocations {
		raw[id.String()] = amt
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	row := Commitment{
		UserID:        c.UserID,
		ID:            c.ID,
		PlanCode:      c.PlanCode,
		Month:         c.Month.String(),
		SavingsBudget: c.SavingsBudget,
		Allocations:   datatypes.JSON(body),
		CommittedAt:   c.CommittedAt,
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error)
}

// ListAllocations implements budget.Repository.
func (r *repository) ListAllocations(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) ([]domain.GoalAllocation, error) {
	var rows []GoalAllocation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month.String()).
		Order("priority_rank ASC, goal_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make([]domain.GoalAllocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.GoalAllocation{
			GoalID:        row.GoalID,
			PriorityRank:  row.PriorityRank,
			PlanCode:      row.PlanCode,
			Month:         month,
			Weight:        row.Weight,
			MonthlyAmount: row.MonthlyAmount,
		})
	}
	return out, nil
}

// ReplaceAllocations implements budget.Repository. Callers run it inside a
// unit of work so the delete and upsert land together.
func (r *repository) ReplaceAllocations(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
	allocs []domain.GoalAllocation,
) error {
	db := r.db.WithContext(ctx)
	keep := make([]uuid.UUID, 0, len(allocs))
	for _, a := range allocs {
		keep = append(keep, a.GoalID)
	}
	del := db.Where("user_id = ? AND month = ?", userID, month.String())
	if len(keep) > 0 {
		del = del.Where("goal_id NOT IN ?", keep)
	}
	if err := del.Delete(&GoalAllocation{}).Error; err != nil {
		return gormerr.MapGormErrorToDomain(err)
	}
	if len(allocs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]GoalAllocation, len(allocs))
	for i, a := range allocs {
		rows[i] = GoalAllocation{
			UserID:        userID,
			Month:         month.String(),
			GoalID:        a.GoalID,
			PlanCode:      a.PlanCode,
			PriorityRank:  a.PriorityRank,
			Weight:        a.Weight,
			MonthlyAmount: a.MonthlyAmount,
			UpdatedAt:     now,
		}
	}
	return gormerr.MapGormErrorToDomain(db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}, {Name: "goal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_code", "priority_rank", "weight", "monthly_amount", "updated_at",
			}),
		}).
		Create(&rows).Error)
}

// RecordRecommendations implements budget.Repository.
func (r *repository) RecordRecommendations(ctx context.Context, audit *domain.RecommendationAudit) error {
	recs, err := json.Marshal(audit.Recommendations)
	if err != nil {
		return err
	}
	agg, err := json.Marshal(aggregateDoc{
		Income: audit.Aggregate.Income,
		Needs:  audit.Aggregate.Needs,
		Wants:  audit.Aggregate.Wants,
		Assets: audit.Aggregate.Assets,
	})
	if err != nil {
		return err
	}
	row := RecommendationAudit{
		ID:              audit.ID,
		UserID:          audit.UserID,
		Month:           audit.Month.String(),
		LowData:         audit.LowData,
		Aggregate:       datatypes.JSON(agg),
		Recommendations: datatypes.JSON(recs),
		CreatedAt:       audit.CreatedAt,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).Create(&row).Error)
}

type aggregateDoc struct {
	Income decimal.Decimal `json:"income"`
	Needs  decimal.Decimal `json:"needs"`
	Wants  decimal.Decimal `json:"wants"`
	Assets decimal.Decimal `json:"assets"`
}
