package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/congresbot/congresbot/internal/boot"
	"github.com/congresbot/congresbot/internal/telegram"
)

// WebhookReceiver accepts Telegram push deliveries.
type WebhookReceiver interface {
	UsesWebhook() bool
	CheckWebhookSecret(secret string) error
	PushWebhook(ctx context.Context, r *http.Request) error
}

// WebhookHandler forwards Telegram webhook posts to the bot.
type WebhookHandler struct {
	receiver WebhookReceiver
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(log *slog.Logger, receiver WebhookReceiver) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		receiver: receiver,
		logger:   log.With(slog.String("handler", "telegram_webhook")),
	}
}

// Register mounts POST /telegram/webhook/:secret when the bot runs in webhook mode.
func (h *WebhookHandler) Register(e *echo.Echo) {
	if h.receiver == nil || !h.receiver.UsesWebhook() {
		return
	}
	e.POST(boot.WebhookPathPrefix+":secret", h.Receive)
}

// Receive validates the path secret and queues the update.
func (h *WebhookHandler) Receive(c echo.Context) error {
	if err := h.receiver.CheckWebhookSecret(c.Param("secret")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err := h.receiver.PushWebhook(c.Request().Context(), c.Request()); err != nil {
		if errors.Is(err, telegram.ErrNotStarted) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "bot not started")
		}
		h.logger.Warn("webhook update rejected", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid update")
	}
	return c.NoContent(http.StatusOK)
}
