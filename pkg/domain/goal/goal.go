package goal

import (
	"strings"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/money"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a goal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

const (
	MinImportance = 1
	MaxImportance = 5
)

// Goal is a user savings goal.
//
// Invariants:
//   - EstimatedCost is positive and Importance is within [1,5].
//   - Only active goals carry a PriorityRank (> 0).
//   - Goals are archived, never deleted, once they have contribution history.
type Goal struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Category        string
	Name            string
	Type            Horizon
	LinkedTxnType   TxnType
	EstimatedCost   decimal.Decimal
	TargetDate      time.Time
	CurrentSavings  decimal.Decimal
	StartingSavings decimal.Decimal
	Importance      int
	PriorityScore   float64
	PriorityRank    int
	Status          Status
	Notes           string
	CompletedMonth  period.Month
	ArchivedAt      *time.Time
	TrackedThrough  period.Month
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive reports whether the goal still takes allocations.
func (g *Goal) IsActive() bool { return g.Status == StatusActive }

// Gap is the funding still missing, never negative.
func (g *Goal) Gap() decimal.Decimal {
	return money.Max(decimal.Zero, g.EstimatedCost.Sub(g.CurrentSavings))
}

// EligibleFor reports whether the goal takes part in attribution for month m.
// Completed goals keep their completion month and everything before it.
// Archived goals keep every month that ended before archival.
func (g *Goal) EligibleFor(m period.Month) bool {
	switch g.Status {
	case StatusActive:
		return true
	case StatusCompleted:
		return !g.CompletedMonth.IsZero() && !m.After(g.CompletedMonth)
	case StatusArchived:
		return g.ArchivedAt != nil && g.ArchivedAt.After(m.End())
	}
	return false
}

// Validate checks the fields that a user controls.
func (g *Goal) Validate(now time.Time) error {
	if err := ValidateCost(g.EstimatedCost); err != nil {
		return err
	}
	if err := ValidateImportance(g.Importance); err != nil {
		return err
	}
	if g.CurrentSavings.IsNegative() {
		return domain.Validation(domain.CodeGoalInvalidSavings, "current_savings must not be negative")
	}
	if g.TargetDate.Before(now) {
		return domain.Validation(domain.CodeGoalPastTargetDate, "target_date %s is in the past", g.TargetDate.Format(time.DateOnly))
	}
	return nil
}

// ValidateCost rejects non-positive costs.
func ValidateCost(cost decimal.Decimal) error {
	if !cost.IsPositive() {
		return domain.Validation(domain.CodeGoalInvalidCost, "estimated_cost must be positive, got %s", cost)
	}
	return nil
}

// ValidateImportance rejects importance outside [1,5].
func ValidateImportance(importance int) error {
	if importance < MinImportance || importance > MaxImportance {
		return domain.Validation(domain.CodeGoalInvalidImportance,
			"importance must be between %d and %d, got %d", MinImportance, MaxImportance, importance)
	}
	return nil
}

// Archive soft-deletes the goal.
func (g *Goal) Archive(now time.Time) {
	at := now.UTC()
	g.Status = StatusArchived
	g.ArchivedAt = &at
	g.PriorityRank = 0
}

// Complete marks the goal completed in month m.
func (g *Goal) Complete(m period.Month) {
	g.Status = StatusCompleted
	g.CompletedMonth = m
	g.PriorityRank = 0
}

// Builder provides a fluent API for constructing goals from user input.
type Builder struct {
	id             uuid.UUID
	userID         uuid.UUID
	def            CategoryDef
	name           string
	horizon        Horizon
	linkedTxnType  TxnType
	estimatedCost  decimal.Decimal
	targetDate     *time.Time
	currentSavings decimal.Decimal
	importance     int
	notes          string
}

// New starts a goal for def with a fresh ID.
func New(userID uuid.UUID, def CategoryDef) *Builder {
	return &Builder{id: uuid.New(), userID: userID, def: def}
}

func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithName overrides the catalog name.
func (b *Builder) WithName(name string) *Builder {
	b.name = strings.TrimSpace(name)
	return b
}

// WithHorizon overrides the catalog default horizon.
func (b *Builder) WithHorizon(h Horizon) *Builder {
	b.horizon = h
	return b
}

// WithLinkedTxnType overrides the catalog bucket. Build rejects it for
// categories that are not override eligible.
func (b *Builder) WithLinkedTxnType(t TxnType) *Builder {
	b.linkedTxnType = t
	return b
}

func (b *Builder) WithEstimatedCost(cost decimal.Decimal) *Builder {
	b.estimatedCost = cost
	return b
}

// WithTargetDate sets an explicit target date; nil derives it from the horizon.
func (b *Builder) WithTargetDate(t *time.Time) *Builder {
	b.targetDate = t
	return b
}

func (b *Builder) WithCurrentSavings(s decimal.Decimal) *Builder {
	b.currentSavings = s
	return b
}

func (b *Builder) WithImportance(i int) *Builder {
	b.importance = i
	return b
}

func (b *Builder) WithNotes(notes string) *Builder {
	b.notes = notes
	return b
}

// Build resolves the derived fields and validates the goal.
func (b *Builder) Build(now time.Time) (*Goal, error) {
	if b.userID == uuid.Nil {
		return nil, domain.Validation(domain.CodeInvalidRequest, "user is required")
	}
	horizon := b.def.DefaultHorizon
	if b.horizon != "" {
		if !b.horizon.Valid() {
			return nil, domain.Validation(domain.CodeGoalInvalidType, "unknown goal_type %q", b.horizon)
		}
		horizon = b.horizon
	}
	linked := b.def.LinkedTxnType
	if b.linkedTxnType != "" && b.linkedTxnType != linked {
		if !b.def.OverrideEligible {
			return nil, domain.Validation(domain.CodeGoalOverrideNotAllowed,
				"category %s does not allow overriding linked_txn_type", b.def.Category)
		}
		if !b.linkedTxnType.Valid() {
			return nil, domain.Validation(domain.CodeGoalOverrideNotAllowed, "unknown linked_txn_type %q", b.linkedTxnType)
		}
		linked = b.linkedTxnType
	}
	target := horizon.DefaultTargetDate(now)
	if b.targetDate != nil {
		target = b.targetDate.UTC()
	}
	name := b.name
	if name == "" {
		name = b.def.Name
	}
	savings := money.Round(b.currentSavings)

	g := &Goal{
		ID:              b.id,
		UserID:          b.userID,
		Category:        b.def.Category,
		Name:            name,
		Type:            horizon,
		LinkedTxnType:   linked,
		EstimatedCost:   money.Round(b.estimatedCost),
		TargetDate:      target,
		CurrentSavings:  savings,
		StartingSavings: savings,
		Importance:      b.importance,
		Status:          StatusActive,
		Notes:           b.notes,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if err := g.Validate(now); err != nil {
		return nil, err
	}
	return g, nil
}
