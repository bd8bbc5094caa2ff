package modules

import (
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/congresbot/congresbot/internal/birthdays"
	"github.com/congresbot/congresbot/internal/boot"
	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/config"
	"github.com/congresbot/congresbot/internal/congressus"
	"github.com/congresbot/congresbot/internal/db/sqlc"
	"github.com/congresbot/congresbot/internal/linking"
	"github.com/congresbot/congresbot/internal/subscriptions"
	"github.com/congresbot/congresbot/internal/telegram"
)

// DomainModule provides the Congressus clients and the linking, subscription,
// birthday and broadcast services.
var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		provideOAuthClient,
		provideMembersClient,
		provideLinkingService,
		provideSubscriptionsService,
		provideBirthdaysService,
		provideDispatcher,
	),
)

func provideOAuthClient(log *slog.Logger, cfg config.Config, rc *boot.RuntimeConfig, httpClient *http.Client) *congressus.OAuthClient {
	return congressus.NewOAuthClient(log, congressus.OAuthConfig{
		Domain:       cfg.Congressus.Domain,
		ClientID:     cfg.Congressus.ClientID,
		ClientSecret: cfg.Congressus.ClientSecret,
		Scope:        cfg.Congressus.Scope,
		RedirectURL:  rc.RedirectURL,
	}, httpClient)
}

func provideMembersClient(log *slog.Logger, cfg config.Config, httpClient *http.Client) *congressus.MembersClient {
	return congressus.NewMembersClient(log, cfg.Congressus.MembersAPIURL, cfg.Congressus.APIToken, httpClient)
}

func provideLinkingService(log *slog.Logger, queries *sqlc.Queries, provider *congressus.OAuthClient, rc *boot.RuntimeConfig) *linking.Service {
	return linking.NewService(log, queries, provider, rc.StateTTL)
}

func provideSubscriptionsService(log *slog.Logger, queries *sqlc.Queries) *subscriptions.Service {
	return subscriptions.NewService(log, queries)
}

func provideBirthdaysService(log *slog.Logger, members *congressus.MembersClient, rc *boot.RuntimeConfig) *birthdays.Service {
	return birthdays.NewService(log, members, rc.Location)
}

func provideDispatcher(log *slog.Logger, subs *subscriptions.Service, bot *telegram.Bot, cfg config.Config) *broadcast.Dispatcher {
	return broadcast.NewDispatcher(log, subs, bot, cfg.Broadcast.SendsPerSecond)
}
