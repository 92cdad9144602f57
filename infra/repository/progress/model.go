package progress

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contribution is the planned and attributed saving of a goal in a month.
type Contribution struct {
	UserID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Month         string          `gorm:"size:7;primaryKey"`
	GoalID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PlannedAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	ActualAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	PriorityRank  int             `gorm:"not null;default:0"`
	UpdatedAt     time.Time
}

// TableName specifies the table name for the Contribution model.
func (Contribution) TableName() string {
	return "goal_contributions"
}

// Snapshot is the end-of-month progress of a goal.
type Snapshot struct {
	UserID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Month               string          `gorm:"size:7;primaryKey"`
	GoalID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProgressPct         decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	SavingsOpen         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	SavingsClose        decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	RemainingAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	ProjectedCompletion *time.Time
	UpdatedAt           time.Time
}

// TableName specifies the table name for the Snapshot model.
func (Snapshot) TableName() string {
	return "progress_snapshots"
}

// Milestone is a threshold a goal crossed. Rows are never updated.
type Milestone struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	GoalID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Pct        int       `gorm:"primaryKey;autoIncrement:false"`
	Month      string    `gorm:"size:7;not null"`
	AttainedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for the Milestone model.
func (Milestone) TableName() string {
	return "goal_milestones"
}
