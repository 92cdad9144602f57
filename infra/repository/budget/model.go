package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Commitment is the persisted plan a user accepted. One row per user.
type Commitment struct {
	UserID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	PlanCode      string          `gorm:"size:40;not null"`
	Month         string          `gorm:"size:7;not null"`
	SavingsBudget decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	// Allocations maps goal id to the committed monthly amount.
	Allocations datatypes.JSON `gorm:"type:json;not null"`
	CommittedAt time.Time      `gorm:"not null"`
}

// TableName specifies the table name for the Commitment model.
func (Commitment) TableName() string {
	return "budget_commitments"
}

// GoalAllocation is an allocation materialized for a tracked month.
type GoalAllocation struct {
	UserID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Month         string          `gorm:"size:7;primaryKey"`
	GoalID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PlanCode      string          `gorm:"size:40;not null"`
	PriorityRank  int             `gorm:"not null;default:0"`
	Weight        decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0"`
	MonthlyAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	UpdatedAt     time.Time
}

// TableName specifies the table name for the GoalAllocation model.
func (GoalAllocation) TableName() string {
	return "goal_allocations"
}

// RecommendationAudit records a generated recommendation set.
type RecommendationAudit struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index"`
	Month           string         `gorm:"size:7;not null"`
	LowData         bool           `gorm:"not null;default:false"`
	Aggregate       datatypes.JSON `gorm:"type:json"`
	Recommendations datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt       time.Time
}

// TableName specifies the table name for the RecommendationAudit model.
func (RecommendationAudit) TableName() string {
	return "recommendation_audits"
}
