package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/congresbot/congresbot/internal/boot"
	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/db/sqlc"
	"github.com/congresbot/congresbot/internal/linking"
)

// Plain-text bodies shown in the browser after the provider redirect.
const (
	callbackLinked        = "Your Telegram account is now connected to Congressus. You can close this window."
	callbackInvalidState  = "This login link is invalid or has already been used. Send /connect to the bot for a new one."
	callbackConflict      = "This Congressus account is already connected to another Telegram account."
	callbackProviderError = "Congressus could not confirm the login. Please try again later."
	callbackInternalError = "Something went wrong. Please try again later."
)

// OAuthHandler receives the provider redirect that completes account linking.
type OAuthHandler struct {
	service *linking.Service
	tx      db.Transactor
	logger  *slog.Logger
}

// NewOAuthHandler creates an OAuthHandler.
func NewOAuthHandler(log *slog.Logger, service *linking.Service, tx db.Transactor) *OAuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OAuthHandler{
		service: service,
		tx:      tx,
		logger:  log.With(slog.String("handler", "oauth")),
	}
}

// Register mounts GET /oauth/callback.
func (h *OAuthHandler) Register(e *echo.Echo) {
	e.GET(boot.CallbackPath, h.Callback)
}

// Callback completes the link for ?code=&state= inside one transaction and
// answers with a plain-text status page.
func (h *OAuthHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.QueryParam("code")
	state := c.QueryParam("state")

	var (
		outcome     linking.Outcome
		providerErr error
	)
	err := h.tx.Do(ctx, func(q *sqlc.Queries) error {
		svc := h.service
		if q != nil {
			svc = svc.WithStore(q)
		}
		o, err := svc.CompleteLink(ctx, code, state)
		if o == "" {
			return err
		}
		outcome, providerErr = o, err
		return nil
	})
	if err != nil {
		h.logger.Error("complete link failed", slog.Any("error", err))
		return c.String(http.StatusInternalServerError, callbackInternalError)
	}

	switch outcome {
	case linking.OutcomeLinked:
		return c.String(http.StatusOK, callbackLinked)
	case linking.OutcomeConflict:
		return c.String(http.StatusForbidden, callbackConflict)
	case linking.OutcomeProviderError:
		h.logger.Error("oauth code exchange failed", slog.Any("error", providerErr))
		return c.String(http.StatusInternalServerError, callbackProviderError)
	default:
		h.logger.Info("invalid oauth state presented", slog.Bool("state_present", state != ""))
		return c.String(http.StatusForbidden, callbackInvalidState)
	}
}
