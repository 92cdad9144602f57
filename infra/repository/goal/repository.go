package goal

import (
	"context"
	"fmt"

	"github.com/amirasaad/finplan/infra/repository/gormerr"
	domain "github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/period"
	repo "github.com/amirasaad/finplan/pkg/repository/goal"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// New creates a goal repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Get implements goal.Repository.
func (r *repository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Goal, error) {
	var row Goal
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	return toDomain(&row)
}

// ListByUser implements goal.Repository.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Goal, error) {
	var rows []Goal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make([]*domain.Goal, 0, len(rows))
	for i := range rows {
		g, err := toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Upsert implements goal.Repository.
func (r *repository) Upsert(ctx context.Context, goals ...*domain.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	rows := make([]Goal, len(goals))
	for i, g := range goals {
		rows[i] = toModel(g)
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error)
}

// ListUserIDs implements goal.Repository.
func (r *repository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Goal{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, gormerr.MapGormErrorToDomain(err)
}

// GetLifeContext implements goal.Repository.
func (r *repository) GetLifeContext(ctx context.Context, userID uuid.UUID) (*domain.LifeContext, error) {
	var row LifeContext
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	return &domain.LifeContext{
		UserID:  row.UserID,
		AgeBand: domain.AgeBand(row.AgeBand),
		Dependents: domain.Dependents{
			Children:      row.Children,
			ParentsInCare: row.ParentsInCare,
		},
		Employment:       domain.Employment(row.Employment),
		IncomeRegularity: domain.IncomeRegularity(row.IncomeRegularity),
		RegionCode:       row.RegionCode,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// UpsertLifeContext implements goal.Repository.
func (r *repository) UpsertLifeContext(ctx context.Context, lc *domain.LifeContext) error {
	row := LifeContext{
		UserID:           lc.UserID,
		AgeBand:          string(lc.AgeBand),
		Children:         lc.Dependents.Children,
		ParentsInCare:    lc.Dependents.ParentsInCare,
		Employment:       string(lc.Employment),
		IncomeRegularity: string(lc.IncomeRegularity),
		RegionCode:       lc.RegionCode,
		UpdatedAt:        lc.UpdatedAt,
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error)
}

func toModel(g *domain.Goal) Goal {
	return Goal{
		ID:              g.ID,
		UserID:          g.UserID,
		Category:        g.Category,
		Name:            g.Name,
		GoalType:        string(g.Type),
		LinkedTxnType:   string(g.LinkedTxnType),
		EstimatedCost:   g.EstimatedCost,
		TargetDate:      g.TargetDate.UTC(),
		CurrentSavings:  g.CurrentSavings,
		StartingSavings: g.StartingSavings,
		Importance:      g.Importance,
		PriorityScore:   g.PriorityScore,
		PriorityRank:    g.PriorityRank,
		Status:          string(g.Status),
		Notes:           g.Notes,
		CompletedMonth:  g.CompletedMonth.String(),
		ArchivedAt:      g.ArchivedAt,
		TrackedThrough:  g.TrackedThrough.String(),
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

func toDomain(row *Goal) (*domain.Goal, error) {
	completed, err := period.ParseOrZero(row.CompletedMonth)
	if err != nil {
		return nil, fmt.Errorf("goal %s: completed_month: %w", row.ID, err)
	}
	tracked, err := period.ParseOrZero(row.TrackedThrough)
	if err != nil {
		return nil, fmt.Errorf("goal %s: tracked_through: %w", row.ID, err)
	}
	var archivedAt = row.ArchivedAt
	if archivedAt != nil {
		utc := archivedAt.UTC()
		archivedAt = &utc
	}
	return &domain.Goal{
		ID:              row.ID,
		UserID:          row.UserID,
		Category:        row.Category,
		Name:            row.Name,
		Type:            domain.Horizon(row.GoalType),
		LinkedTxnType:   domain.TxnType(row.LinkedTxnType),
		EstimatedCost:   row.EstimatedCost,
		TargetDate:      row.TargetDate.UTC(),
		CurrentSavings:  row.CurrentSavings,
		StartingSavings: row.StartingSavings,
		Importance:      row.Importance,
		PriorityScore:   row.PriorityScore,
		PriorityRank:    row.PriorityRank,
		Status:          domain.Status(row.Status),
		Notes:           row.Notes,
		CompletedMonth:  completed,
		ArchivedAt:      archivedAt,
		TrackedThrough:  tracked,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}
