package aggregate

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
)

// Repository reads and writes the monthly aggregates produced by the
// transaction pipeline.
type Repository interface {
	// Get returns the aggregate of (userID, month), or domain.ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID, month period.Month) (*budget.MonthlyAggregate, error)

	// List returns the aggregates present for the given months, oldest first.
	List(ctx context.Context, userID uuid.UUID, months []period.Month) ([]budget.MonthlyAggregate, error)

	// Upsert inserts or replaces aggregates by (user_id, month).
	Upsert(ctx context.Context, aggs ...budget.MonthlyAggregate) error
}
