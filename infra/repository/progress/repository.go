package progress

import (
	"context"
	"time"

	"github.com/amirasaad/finplan/infra/repository/gormerr"
	domain "github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/period"
	repo "github.com/amirasaad/finplan/pkg/repository/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var monthGoalKey = []clause.Column{{Name: "user_id"}, {Name: "month"}, {Name: "goal_id"}}

type repository struct {
	db *gorm.DB
}

// New creates a progress repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// UpsertContributions implements progress.Repository.
func (r *repository) UpsertContributions(ctx context.Context, rows []domain.Contribution) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]Contribution, len(rows))
	for i, c := range rows {
		models[i] = Contribution{
			UserID:        c.UserID,
			Month:         c.Month.String(),
			GoalID:        c.GoalID,
			PlannedAmount: c.PlannedAmount,
			ActualAmount:  c.ActualAmount,
			PriorityRank:  c.PriorityRank,
			UpdatedAt:     now,
		}
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   monthGoalKey,
			DoUpdates: clause.AssignmentColumns([]string{"planned_amount", "actual_amount", "priority_rank", "updated_at"}),
		}).
		Create(&models).Error)
}

// UpsertSnapshots implements progress.Repository.
func (r *repository) UpsertSnapshots(ctx context.Context, rows []domain.Snapshot) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]Snapshot, len(rows))
	for i, s := range rows {
		models[i] = Snapshot{
			UserID:              s.UserID,
			Month:               s.Month.String(),
			GoalID:              s.GoalID,
			ProgressPct:         s.ProgressPct,
			SavingsOpen:         s.SavingsOpen,
			SavingsClose:        s.SavingsClose,
			RemainingAmount:     s.RemainingAmount,
			ProjectedCompletion: s.ProjectedCompletion,
			UpdatedAt:           now,
		}
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: monthGoalKey,
			DoUpdates: clause.AssignmentColumns([]string{
				"progress_pct", "savings_open", "savings_close",
				"remaining_amount", "projected_completion", "updated_at",
			}),
		}).
		Create(&models).Error)
}

// InsertMilestonesIfAbsent implements progress.Repository. Each row is
// inserted on its own so the affected-row count tells which ones were new.
func (r *repository) InsertMilestonesIfAbsent(
	ctx context.Context,
	rows []domain.Milestone,
) ([]domain.Milestone, error) {
	var inserted []domain.Milestone
	db := r.db.WithContext(ctx)
	for _, m := range rows {
		model := Milestone{
			UserID:     m.UserID,
			GoalID:     m.GoalID,
			Pct:        m.Pct,
			Month:      m.Month.String(),
			AttainedAt: m.AttainedAt.UTC(),
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if res.Error != nil {
			return nil, gormerr.MapGormErrorToDomain(res.Error)
		}
		if res.RowsAffected == 1 {
			inserted = append(inserted, m)
		}
	}
	return inserted, nil
}

// ListContributions implements progress.Repository.
func (r *repository) ListContributions(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) ([]domain.Contribution, error) {
	var rows []Contribution
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month.String()).
		Order("goal_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make([]domain.Contribution, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Contribution{
			UserID:        row.UserID,
			Month:         month,
			GoalID:        row.GoalID,
			PlannedAmount: row.PlannedAmount,
			ActualAmount:  row.ActualAmount,
			PriorityRank:  row.PriorityRank,
		})
	}
	return out, nil
}

// ListSnapshots implements progress.Repository.
func (r *repository) ListSnapshots(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) ([]domain.Snapshot, error) {
	var rows []Snapshot
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month.String()).
		Order("goal_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make([]domain.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSnapshot(row, month))
	}
	return out, nil
}

// SumActualBefore implements progress.Repository. Summation happens here
// rather than in SQL so every driver yields exact decimals.
func (r *repository) SumActualBefore(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []Contribution
	err := r.db.WithContext(ctx).
		Select("goal_id", "actual_amount").
		Where("user_id = ? AND month < ?", userID, month.String()).
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, row := range rows {
		sums[row.GoalID] = sums[row.GoalID].Add(row.ActualAmount)
	}
	return sums, nil
}

// LatestSnapshots implements progress.Repository.
func (r *repository) LatestSnapshots(
	ctx context.Context,
	userID uuid.UUID,
	before period.Month,
) (map[uuid.UUID]domain.Snapshot, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !before.IsZero() {
		q = q.Where("month < ?", before.String())
	}
	var rows []Snapshot
	if err := q.Order("month ASC").Find(&rows).Error; err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make(map[uuid.UUID]domain.Snapshot, len(rows))
	for _, row := range rows {
		m, err := period.Parse(row.Month)
		if err != nil {
			return nil, err
		}
		out[row.GoalID] = toSnapshot(row, m)
	}
	return out, nil
}

// ListMilestones implements progress.Repository.
func (r *repository) ListMilestones(
	ctx context.Context,
	userID uuid.UUID,
) (map[uuid.UUID][]domain.Milestone, error) {
	var rows []Milestone
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("goal_id ASC, pct ASC").
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make(map[uuid.UUID][]domain.Milestone)
	for _, row := range rows {
		m, err := period.Parse(row.Month)
		if err != nil {
			return nil, err
		}
		out[row.GoalID] = append(out[row.GoalID], domain.Milestone{
			UserID:     row.UserID,
			GoalID:     row.GoalID,
			Pct:        row.Pct,
			Month:      m,
			AttainedAt: row.AttainedAt.UTC(),
		})
	}
	return out, nil
}

func toSnapshot(row Snapshot, m period.Month) domain.Snapshot {
	return domain.Snapshot{
		UserID:              row.UserID,
		Month:               m,
		GoalID:              row.GoalID,
		ProgressPct:         row.ProgressPct,
		SavingsOpen:         row.SavingsOpen,
		SavingsClose:        row.SavingsClose,
		RemainingAmount:     row.RemainingAmount,
		ProjectedCompletion: utcPtr(row.ProjectedCompletion),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
