package modules

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/congresbot/congresbot/internal/birthdays"
	"github.com/congresbot/congresbot/internal/boot"
	"github.com/congresbot/congresbot/internal/commands"
	"github.com/congresbot/congresbot/internal/config"
	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/linking"
	"github.com/congresbot/congresbot/internal/subscriptions"
	"github.com/congresbot/congresbot/internal/telegram"
)

// BotModule provides the connected Telegram bot.
var BotModule = fx.Module(
	"bot",
	fx.Provide(ProvideBot),
)

// ChannelModule routes incoming updates to the command router.
var ChannelModule = fx.Module(
	"channel",
	fx.Provide(provideCommandRouter),
	fx.Invoke(startBot),
)

// ProvideBot connects to the Bot API and stops update delivery on shutdown.
func ProvideBot(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, rc *boot.RuntimeConfig, httpClient *http.Client) (*telegram.Bot, error) {
	bot, err := telegram.New(log, telegram.Config{
		Token:         cfg.Telegram.Token,
		WebhookURL:    rc.WebhookURL,
		WebhookSecret: rc.WebhookSecret,
		HTTPClient:    httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: bot.Stop,
	})
	return bot, nil
}

type routerParams struct {
	fx.In

	Logger        *slog.Logger
	Bot           *telegram.Bot
	Transactor    db.Transactor
	Linking       *linking.Service
	Subscriptions *subscriptions.Service
	Birthdays     *birthdays.Service
}

func provideCommandRouter(params routerParams) *commands.Router {
	return commands.NewRouter(params.Logger, commands.Deps{
		Messenger:     params.Bot,
		Transactor:    params.Transactor,
		Linking:       params.Linking,
		Subscriptions: params.Subscriptions,
		Birthdays:     params.Birthdays,
		BotUsername:   params.Bot.Username(),
	})
}

func startBot(lc fx.Lifecycle, log *slog.Logger, bot *telegram.Bot, router *commands.Router) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := bot.Start(ctx, router.Handle); err != nil {
				return fmt.Errorf("telegram start: %w", err)
			}
			log.Info("telegram bot started",
				slog.String("username", bot.Username()),
				slog.Bool("webhook", bot.UsesWebhook()))
			return nil
		},
	})
}
