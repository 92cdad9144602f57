package aggregate

import (
	"context"
	"time"

	"github.com/amirasaad/finplan/infra/repository/gormerr"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	repo "github.com/amirasaad/finplan/pkg/repository/aggregate"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// New creates an aggregate repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Get implements aggregate.Repository.
func (r *repository) Get(ctx context.Context, userID uuid.UUID, month period.Month) (*budget.MonthlyAggregate, error) {
	var row MonthlyAggregate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month.String()).
		First(&row).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	agg := toDomain(row, month)
	return &agg, nil
}

// List implements aggregate.Repository.
func (r *repository) List(
	ctx context.Context,
	userID uuid.UUID,
	months []period.Month,
) ([]budget.MonthlyAggregate, error) {
	if len(months) == 0 {
		return nil, nil
	}
	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = m.String()
	}
	var rows []MonthlyAggregate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month IN ?", userID, keys).
		Order("month ASC").
		Find(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	out := make([]budget.MonthlyAggregate, 0, len(rows))
	for _, row := range rows {
		m, err := period.Parse(row.Month)
		if err != nil {
			return nil, err
		}
		out = append(out, toDomain(row, m))
	}
	return out, nil
}

// Upsert implements aggregate.Repository.
func (r *repository) Upsert(ctx context.Context, aggs ...budget.MonthlyAggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]MonthlyAggregate, len(aggs))
	for i, a := range aggs {
		rows[i] = MonthlyAggregate{
			UserID:    a.UserID,
			Month:     a.Month.String(),
			Income:    a.Income,
			Needs:     a.Needs,
			Wants:     a.Wants,
			Assets:    a.Assets,
			UpdatedAt: now,
		}
	}
	return gormerr.MapGormErrorToDomain(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"income", "needs", "wants", "assets", "updated_at"}),
		}).
		Create(&rows).Error)
}

func toDomain(row MonthlyAggregate, m period.Month) budget.MonthlyAggregate {
	return budget.MonthlyAggregate{
		UserID: row.UserID,
		Month:  m,
		Income: row.Income,
		Needs:  row.Needs,
		Wants:  row.Wants,
		Assets: row.Assets,
	}
}
