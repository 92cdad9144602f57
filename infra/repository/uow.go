package repository

import (
	"context"
	"fmt"
	"reflect"

	aggregaterepo "github.com/amirasaad/finplan/infra/repository/aggregate"
	budgetrepo "github.com/amirasaad/finplan/infra/repository/budget"
	goalrepo "github.com/amirasaad/finplan/infra/repository/goal"
	progressrepo "github.com/amirasaad/finplan/infra/repository/progress"
	"github.com/amirasaad/finplan/pkg/repository"
	"github.com/amirasaad/finplan/pkg/repository/aggregate"
	"github.com/amirasaad/finplan/pkg/repository/budget"
	"github.com/amirasaad/finplan/pkg/repository/goal"
	"github.com/amirasaad/finplan/pkg/repository/progress"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
// Repositories obtained inside Do share the transaction; outside Do they run
// on the plain connection.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*goal.Repository)(nil)).Elem():      func(db *gorm.DB) any { return goalrepo.New(db) },
			reflect.TypeOf((*budget.Repository)(nil)).Elem():    func(db *gorm.DB) any { return budgetrepo.New(db) },
			reflect.TypeOf((*progress.Repository)(nil)).Elem():  func(db *gorm.DB) any { return progressrepo.New(db) },
			reflect.TypeOf((*aggregate.Repository)(nil)).Elem(): func(db *gorm.DB) any { return aggregaterepo.New(db) },
		},
	}
}

// Do runs the given function in a transaction boundary, providing a UoW with repository access.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry}
		return fn(txnUow)
	})
}

// GetRepository returns the repository registered for repoType, bound to
// the current session.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	return constructor(u.session()), nil
}

// GoalRepository returns the goal repository bound to the current session.
func (u *UoW) GoalRepository() (goal.Repository, error) {
	return get[goal.Repository](u)
}

// BudgetRepository returns the budget repository bound to the current session.
func (u *UoW) BudgetRepository() (budget.Repository, error) {
	return get[budget.Repository](u)
}

// ProgressRepository returns the progress repository bound to the current session.
func (u *UoW) ProgressRepository() (progress.Repository, error) {
	return get[progress.Repository](u)
}

// AggregateRepository returns the aggregate repository bound to the current session.
func (u *UoW) AggregateRepository() (aggregate.Repository, error) {
	return get[aggregate.Repository](u)
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func get[T any](u *UoW) (T, error) {
	var zero T
	repoAny, err := u.GetRepository(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	r, ok := repoAny.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected repository type %T", repoAny)
	}
	return r, nil
}
