package aggregate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyAggregate is a row written by the transaction pipeline.
type MonthlyAggregate struct {
	UserID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Month     string          `gorm:"size:7;primaryKey"`
	Income    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Needs     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Wants     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Assets    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	UpdatedAt time.Time
}

// TableName specifies the table name for the MonthlyAggregate model.
func (MonthlyAggregate) TableName() string {
	return "monthly_aggregates"
}
