package goal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Goal represents a goal record in the database.
type Goal struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Category        string          `gorm:"size:50;not null"`
	Name            string          `gorm:"size:120;not null"`
	GoalType        string          `gorm:"size:10;not null"`
	LinkedTxnType   string          `gorm:"size:10;not null"`
	EstimatedCost   decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	TargetDate      time.Time       `gorm:"not null"`
	CurrentSavings  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	StartingSavings decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Importance      int             `gorm:"not null"`
	PriorityScore   float64         `gorm:"type:decimal(5,2);not null;default:0"`
	PriorityRank    int             `gorm:"not null;default:0"`
	Status          string          `gorm:"size:12;not null;index"`
	Notes           string          `gorm:"type:text"`
	CompletedMonth  string          `gorm:"size:7"`
	ArchivedAt      *time.Time
	TrackedThrough  string `gorm:"size:7"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName specifies the table name for the Goal model.
func (Goal) TableName() string {
	return "goals"
}

// LifeContext represents a user's life context record.
type LifeContext struct {
	UserID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AgeBand          string    `gorm:"size:12;not null"`
	Children         int       `gorm:"not null;default:0"`
	ParentsInCare    bool      `gorm:"not null;default:false"`
	Employment       string    `gorm:"size:20;not null"`
	IncomeRegularity string    `gorm:"size:12;not null"`
	RegionCode       string    `gorm:"size:10"`
	UpdatedAt        time.Time
}

// TableName specifies the table name for the LifeContext model.
func (LifeContext) TableName() string {
	return "life_contexts"
}
