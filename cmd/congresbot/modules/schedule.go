package modules

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/congresbot/congresbot/internal/birthdays"
	"github.com/congresbot/congresbot/internal/boot"
	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/config"
	"github.com/congresbot/congresbot/internal/schedule"
)

// ScheduleModule provides the job scheduler with the default jobs registered.
var ScheduleModule = fx.Module(
	"schedule",
	fx.Provide(ProvideScheduleService),
)

// StartupModule runs the scheduler and announces the bot coming online.
var StartupModule = fx.Module(
	"startup",
	fx.Invoke(startScheduleService),
)

// ProvideScheduleService creates the scheduler and registers every default job.
func ProvideScheduleService(log *slog.Logger, dispatcher *broadcast.Dispatcher, bdays *birthdays.Service, cfg config.Config, rc *boot.RuntimeConfig) (*schedule.Service, error) {
	svc := schedule.NewService(log, dispatcher, rc.Location)
	for _, job := range schedule.DefaultJobs(cfg.Schedule.BirthdayCron, bdays.MessageFactory()) {
		if err := svc.Register(job); err != nil {
			return nil, fmt.Errorf("register %s job: %w", job.Name, err)
		}
	}
	return svc, nil
}

func startScheduleService(lc fx.Lifecycle, log *slog.Logger, svc *schedule.Service) {
	statusCtx, cancelStatus := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			svc.Start()
			if next, ok := svc.Next(schedule.BirthdayJob); ok {
				log.Info("birthday broadcast scheduled", slog.Time("next", next))
			}
			go func() {
				if _, err := svc.Run(statusCtx, schedule.StatusJob); err != nil {
					log.Warn("startup status broadcast failed", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelStatus()
			return svc.Stop(ctx)
		},
	})
}
