// Package app assembles the services over their dependencies.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/amirasaad/finplan/pkg/lock"
	engine "github.com/amirasaad/finplan/pkg/planning/tracking"
	"github.com/amirasaad/finplan/pkg/provider"
	"github.com/amirasaad/finplan/pkg/repository"
	budgetsvc "github.com/amirasaad/finplan/pkg/service/budget"
	goalsvc "github.com/amirasaad/finplan/pkg/service/goal"
	progresssvc "github.com/amirasaad/finplan/pkg/service/progress"
	trackingsvc "github.com/amirasaad/finplan/pkg/service/tracking"
)

// Deps contains all the dependencies needed by the services.
type Deps struct {
	Uow        repository.UnitOfWork
	Aggregates provider.AggregateProvider
	EventBus   eventbus.Bus
	Locker     lock.Locker
	Categories *goal.Catalog
	Templates  *budget.Catalog
	Logger     *slog.Logger

	closers []func() error
}

// OnClose registers fn to run on Close, in reverse order.
func (d *Deps) OnClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases connections and background workers.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

type App struct {
	Deps            *Deps
	Config          *config.App
	GoalService     *goalsvc.Service
	BudgetService   *budgetsvc.Service
	ProgressService *progresssvc.Service
	TrackingService *trackingsvc.Service
}

func New(deps *Deps, cfg *config.App) (*App, error) {
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	opts := trackingsvc.Options{Fallback: engine.FallbackEqual}
	if cfg.Tracking != nil {
		fallback, err := engine.ParseFallback(cfg.Tracking.Fallback)
		if err != nil {
			return nil, fmt.Errorf("tracking config: %w", err)
		}
		opts = trackingsvc.Options{
			Concurrency: cfg.Tracking.Concurrency,
			UserTimeout: cfg.Tracking.UserTimeout,
			Fallback:    fallback,
		}
	}

	app.GoalService = goalsvc.New(deps.Uow, deps.EventBus, deps.Categories, deps.Logger)
	app.BudgetService = budgetsvc.New(
		deps.Uow,
		deps.Aggregates,
		deps.EventBus,
		deps.Categories,
		deps.Templates,
		deps.Logger,
	)
	app.ProgressService = progresssvc.New(deps.Uow, deps.Logger)
	app.TrackingService = trackingsvc.New(
		deps.Uow,
		deps.Aggregates,
		deps.EventBus,
		deps.Locker,
		deps.Categories,
		opts,
		deps.Logger,
	)
	return app, nil
}
