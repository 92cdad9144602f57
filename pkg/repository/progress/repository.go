package progress

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines data access for tracking outputs. Writes are keyed by
// natural keys so replays never duplicate rows.
type Repository interface {
	// UpsertContributions upserts by (user_id, month, goal_id).
	UpsertContributions(ctx context.Context, rows []progress.Contribution) error

	// UpsertSnapshots upserts by (user_id, month, goal_id).
	UpsertSnapshots(ctx context.Context, rows []progress.Snapshot) error

	// InsertMilestonesIfAbsent inserts rows whose (user_id, goal_id, pct)
	// is new and returns only those.
	InsertMilestonesIfAbsent(ctx context.Context, rows []progress.Milestone) ([]progress.Milestone, error)

	// ListContributions returns the user's contributions for month.
	ListContributions(ctx context.Context, userID uuid.UUID, month period.Month) ([]progress.Contribution, error)

	// ListSnapshots returns the user's snapshots for month.
	ListSnapshots(ctx context.Context, userID uuid.UUID, month period.Month) ([]progress.Snapshot, error)

	// SumActualBefore sums actual contributions per goal over months before month.
	SumActualBefore(ctx context.Context, userID uuid.UUID, month period.Month) (map[uuid.UUID]decimal.Decimal, error)

	// LatestSnapshots returns each goal's most recent snapshot before month.
	// A zero month means no upper bound.
	LatestSnapshots(ctx context.Context, userID uuid.UUID, before period.Month) (map[uuid.UUID]progress.Snapshot, error)

	// ListMilestones returns the user's milestones per goal, ascending pct.
	ListMilestones(ctx context.Context, userID uuid.UUID) (map[uuid.UUID][]progress.Milestone, error)
}
