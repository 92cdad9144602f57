package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/finplan/infra"
	"github.com/amirasaad/finplan/infra/initializer"
	"github.com/amirasaad/finplan/pkg/app"
	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var flagEnvFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "finplan",
		Short:         "FinPlan operator CLI",
		Long:          "Run the monthly contribution tracking batch and database migrations.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file searched upward from the working directory")
	root.AddCommand(newTrackCmd(), newMigrateCmd())
	return root
}

func newTrackCmd() *cobra.Command {
	var (
		month string
		users []string
	)
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Attribute a month's savings to goals",
		Long: "Computes contributions, progress snapshots and milestones for every user, " +
			"or only the given users. Safe to re-run for the same month.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := period.Parse(month)
			if err != nil {
				return fmt.Errorf("invalid --month: %w", err)
			}
			ids := make([]uuid.UUID, 0, len(users))
			for _, raw := range users {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid --user %q: %w", raw, err)
				}
				ids = append(ids, id)
			}
			return runTrack(cmd, m, ids)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to track (YYYY-MM)")
	cmd.Flags().StringArrayVar(&users, "user", nil, "User id to track; repeatable")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func runTrack(cmd *cobra.Command, m period.Month, ids []uuid.UUID) (err error) {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() {
		err = errors.Join(err, deps.Close())
	}()
	a, err := app.New(deps, cfg)
	if err != nil {
		return err
	}

	report, err := a.TrackingService.RunMonth(cmd.Context(), m, ids...)
	if report != nil {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "month=%s processed=%d skipped=%d failed=%d\n",
			report.Month, report.Processed, report.Skipped, len(report.Failed))
		for _, f := range report.Failed {
			_, _ = fmt.Fprintf(out, "  user=%s stage=%s error=%v\n", f.UserID, f.Stage, f.Err)
		}
	}
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d users failed", len(report.Failed))
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagEnvFile)
			if err != nil {
				return fmt.Errorf("failed to load application configuration: %w", err)
			}
			db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close() //nolint: errcheck
			}
			if err := infra.Migrate(db); err != nil {
				return err
			}
			slog.Info("database migrated", "driver", cfg.DB.Driver)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}
