// Package progress provides the read side of contribution tracking.
package progress

import (
	"context"
	"log/slog"

	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/amirasaad/finplan/pkg/domain/progress"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/repository"
	goalsvc "github.com/amirasaad/finplan/pkg/service/goal"
	"github.com/google/uuid"
)

// GoalProgress is a goal with its latest snapshot and attained milestones.
// Latest is nil until the goal has been tracked once.
type GoalProgress struct {
	Goal       *goal.Goal
	Latest     *progress.Snapshot
	Milestones []progress.Milestone
}

// Service provides progress queries.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// New creates a progress Service.
func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{uow: uow, logger: logger}
}

// GoalsProgress returns every goal of the user, active ones by rank first.
func (s *Service) GoalsProgress(ctx context.Context, userID uuid.UUID) (out []GoalProgress, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		goals, err := uow.GoalRepository()
		if err != nil {
			return err
		}
		tracked, err := uow.ProgressRepository()
		if err != nil {
			return err
		}
		list, err := goals.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		latest, err := tracked.LatestSnapshots(ctx, userID, period.Month{})
		if err != nil {
			return err
		}
		milestones, err := tracked.ListMilestones(ctx, userID)
		if err != nil {
			return err
		}
		goalsvc.Sort(list)
		for _, g := range list {
			gp := GoalProgress{Goal: g, Milestones: milestones[g.ID]}
			if snap, ok := latest[g.ID]; ok {
				gp.Latest = &snap
			}
			if gp.Milestones == nil {
				gp.Milestones = []progress.Milestone{}
			}
			out = append(out, gp)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to load progress", "user_id", userID, "error", err)
		return nil, err
	}
	return out, nil
}
