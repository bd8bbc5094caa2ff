package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/congresbot/congresbot/cmd/congresbot/modules"
	migrations "github.com/congresbot/congresbot/db"
	"github.com/congresbot/congresbot/internal/boot"
	"github.com/congresbot/congresbot/internal/config"
	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/schedule"
	"github.com/congresbot/congresbot/internal/subscriptions"
	"github.com/congresbot/congresbot/internal/version"
)

// Exit codes.
const (
	exitConfigLoad    = 1
	exitConfigMissing = 2
)

func newRootCommand() *cobra.Command {
	configPath := os.Getenv("CONFIG_PATH")

	root := &cobra.Command{
		Use:           "congresbot",
		Short:         "Telegram bot linking chats to Congressus",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "path to the TOML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot, the scheduler and the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:       "migrate up|down|version|force VERSION",
			Short:     "Apply or inspect database migrations",
			Args:      cobra.RangeArgs(1, 2),
			ValidArgs: db.MigrateCommands,
			RunE: func(_ *cobra.Command, args []string) error {
				return runMigrate(configPath, args[0], args[1:])
			},
		},
		&cobra.Command{
			Use:   "broadcast birthday|status",
			Short: "Run a broadcast job once and print the delivery report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBroadcast(cmd.Context(), configPath, args[0])
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "congresbot %s\n", version.Get())
			},
		},
	)
	return root
}

func loadConfig(path string) (config.Config, *boot.RuntimeConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, &exitError{code: exitConfigLoad, err: fmt.Errorf("load config: %w", err)}
	}
	rc, err := boot.ProvideRuntimeConfig(cfg)
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			return config.Config{}, nil, &exitError{code: exitConfigMissing, err: err}
		}
		return config.Config{}, nil, &exitError{code: exitConfigLoad, err: err}
	}
	return cfg, rc, nil
}

func fxLogger(logger *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, rc, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	app := fx.New(
		fx.Supply(cfg, rc),
		modules.InfraModule,
		modules.BotModule,
		modules.DomainModule,
		modules.ChannelModule,
		modules.ScheduleModule,
		modules.StartupModule,
		modules.ServerModule,
		fx.StopTimeout(rc.ShutdownTimeout),
		fx.WithLogger(fxLogger),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	sig := <-app.Wait()
	slog.Info("shutting down", slog.String("signal", fmt.Sprint(sig.Signal)))

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if sig.ExitCode != 0 {
		return &exitError{code: sig.ExitCode, err: errors.New("shut down after failure")}
	}
	return nil
}

func runMigrate(configPath, command string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &exitError{code: exitConfigLoad, err: fmt.Errorf("load config: %w", err)}
	}
	log := modules.ProvideLogger(cfg)

	fsys, err := migrations.Migrations()
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return db.RunMigrate(log, cfg.Postgres, fsys, command, args)
}

func runBroadcast(ctx context.Context, configPath, rawCategory string) error {
	category := subscriptions.Category(rawCategory)
	if !slices.Contains(subscriptions.Categories, category) {
		return fmt.Errorf("unknown category %q", rawCategory)
	}

	cfg, rc, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var sched *schedule.Service
	app := fx.New(
		fx.Supply(cfg, rc),
		modules.InfraModule,
		modules.BotModule,
		modules.DomainModule,
		modules.ScheduleModule,
		fx.Populate(&sched),
		fx.WithLogger(fxLogger),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.ShutdownTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	report, err := sched.Run(ctx, jobFor(category))
	if err != nil {
		return err
	}
	fmt.Printf("%s broadcast: sent=%d skipped=%d failed=%d\n", category, report.Sent(), report.Skipped(), report.Failed())
	if report.Failed() > 0 {
		return fmt.Errorf("%d deliveries failed", report.Failed())
	}
	return nil
}

func jobFor(category subscriptions.Category) string {
	if category == subscriptions.CategoryStatus {
		return schedule.StatusJob
	}
	return schedule.BirthdayJob
}
