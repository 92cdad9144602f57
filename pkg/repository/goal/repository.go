package goal

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/google/uuid"
)

// Repository defines data access for goals and life contexts.
type Repository interface {
	// Get returns a goal owned by userID, or domain.ErrNotFound.
	Get(ctx context.Context, userID, id uuid.UUID) (*goal.Goal, error)

	// ListByUser returns every goal of the user, any status.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*goal.Goal, error)

	// Upsert inserts or replaces goals by ID.
	Upsert(ctx context.Context, goals ...*goal.Goal) error

	// ListUserIDs returns the users that own at least one goal, sorted.
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)

	// GetLifeContext returns the user's life context, or domain.ErrNotFound.
	GetLifeContext(ctx context.Context, userID uuid.UUID) (*goal.LifeContext, error)

	// UpsertLifeContext inserts or replaces the user's life context.
	UpsertLifeContext(ctx context.Context, lc *goal.LifeContext) error
}
