package repository

import (
	"context"
	"reflect"

	"github.com/amirasaad/finplan/pkg/repository/aggregate"
	"github.com/amirasaad/finplan/pkg/repository/budget"
	"github.com/amirasaad/finplan/pkg/repository/goal"
	"github.com/amirasaad/finplan/pkg/repository/progress"
)

// UnitOfWork defines the contract for transactional work and type-safe repository access.
//
// Do runs the given function in a transaction boundary, providing a UnitOfWork for repository access.
// All repositories obtained from the UnitOfWork passed to fn share that transaction, so a tracking
// run's contributions, snapshots, milestones and goal transitions commit or roll back together.
// Example usage:
//
//	err := uow.Do(ctx, func(uow UnitOfWork) error {
//		goals, err := uow.GoalRepository()
//		...
//	})
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// If the function returns an error, the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns a repository of the requested type, bound to the current transaction/session.
	GetRepository(repoType reflect.Type) (any, error)

	// Type-safe repository access methods (convenience methods)
	GoalRepository() (goal.Repository, error)
	BudgetRepository() (budget.Repository, error)
	ProgressRepository() (progress.Repository, error)
	AggregateRepository() (aggregate.Repository, error)
}
