package budget

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
)

// Repository defines data access for commitments, materialized allocations
// and recommendation audits.
type Repository interface {
	// GetCommitment returns the user's active commitment, or domain.ErrNotFound.
	GetCommitment(ctx context.Context, userID uuid.UUID) (*budget.Commitment, error)

	// UpsertCommitment stores c as the user's only commitment.
	UpsertCommitment(ctx context.Context, c *budget.Commitment) error

	// ListAllocations returns the allocations materialized for (userID, month).
	ListAllocations(ctx context.Context, userID uuid.UUID, month period.Month) ([]budget.GoalAllocation, error)

	// ReplaceAllocations makes allocs the exact allocation set of
	// (userID, month): rows are upserted by goal and stale goals removed.
	ReplaceAllocations(ctx context.Context, userID uuid.UUID, month period.Month, allocs []budget.GoalAllocation) error

	// RecordRecommendations stores an audit row for a generated set.
	RecordRecommendations(ctx context.Context, audit *budget.RecommendationAudit) error
}
