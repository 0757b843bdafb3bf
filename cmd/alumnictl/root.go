package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"alumni/internal/admin"
	"alumni/internal/config"
	"alumni/internal/errtrack"
	"alumni/internal/jobs"
	"alumni/internal/notify"
	"alumni/internal/store"
)

type cli struct {
	cfg    config.App
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "alumnictl",
		Short:         "Operate the alumni membership service",
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			c.cfg = config.Load()
			c.logger = config.NewLogger(c.cfg)
		},
	}
	root.AddCommand(c.migrateCmd(), c.createAdminCmd(), c.jobsCmd())
	return root
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Apply or roll back schema migrations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := store.Migrate(c.cfg.DatabaseURL); err != nil {
				return err
			}
			c.logger.Info().Msg("migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := store.MigrateDown(c.cfg.DatabaseURL, steps); err != nil {
				return err
			}
			c.logger.Info().Int("steps", steps).Msg("migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}

func (c *cli) createAdminCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the admin account and print its id for ADMIN_UUID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := store.NewDB(ctx, c.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			a, err := admin.NewService(db.Client, c.logger).Create(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ADMIN_UUID=%s\n", a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin login email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) jobsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Run scheduled membership jobs against the API"}

	var spec string
	run := &cobra.Command{
		Use:   "run",
		Short: "Run every job on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if spec == "" {
				spec = c.cfg.Scheduler.Spec
			}
			next, err := jobs.NextRun(spec, time.Now())
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", spec, err)
			}
			runner, flush, err := c.runner()
			if err != nil {
				return err
			}
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			c.logger.Info().Time("next_run", next).Msg("waiting for next run")
			return runner.Schedule(ctx, spec)
		},
	}
	run.Flags().StringVar(&spec, "schedule", "", "cron spec, defaults to SCHEDULER_SPEC")

	once := &cobra.Command{
		Use:       "once <job>",
		Short:     "Run one job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !jobs.Known(args[0]) {
				return fmt.Errorf("%w: %s (known: %v)", jobs.ErrUnknownJob, args[0], jobs.Names)
			}
			runner, flush, err := c.runner()
			if err != nil {
				return err
			}
			defer flush()
			return runner.Run(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(run, once)
	return cmd
}

func (c *cli) runner() (*jobs.Runner, func(), error) {
	flush, err := errtrack.Init(c.cfg.SentryDSN, c.cfg.Env)
	if err != nil {
		c.logger.Warn().Err(err).Msg("sentry init failed, error tracking disabled")
	}
	sender, err := notify.NewSender(c.cfg.Email)
	if err != nil {
		return nil, flush, err
	}
	if sender == nil {
		return nil, flush, fmt.Errorf("email provider %q has no credentials", c.cfg.Email.Provider)
	}
	// Jobs send synchronously, so the dispatcher needs no queue.
	mailer := notify.NewDispatcher(nil, sender, c.logger)
	api := jobs.NewClient(c.cfg.Scheduler.APIBaseURL, c.cfg.JobSecret)
	r := jobs.NewRunner(api, mailer, c.cfg.SiteDomain, c.cfg.Scheduler.ExpiryReminderDays, c.logger)
	return r, flush, nil
}
