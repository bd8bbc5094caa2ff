// Package telegram wraps the Bot API: outgoing messages, chat membership
// checks and update delivery by long polling or webhook.
package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pollTimeoutSeconds = 30
	webhookBuffer      = 100
)

// Errors returned by the bot.
var (
	ErrNotStarted     = errors.New("telegram bot not started")
	ErrAlreadyStarted = errors.New("telegram bot already started")
	ErrWebhookSecret  = errors.New("telegram webhook secret mismatch")
)

// Config configures the Bot API client.
type Config struct {
	Token string
	// APIEndpoint overrides tgbotapi.APIEndpoint (format with token and method).
	APIEndpoint   string
	WebhookURL    string
	WebhookSecret string
	HTTPClient    *http.Client
}

// UpdateHandler processes one update. Updates are handed over one at a time.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Bot is a connected Telegram bot.
type Bot struct {
	api           *tgbotapi.BotAPI
	webhookURL    string
	webhookSecret string
	incoming      chan tgbotapi.Update
	logger        *slog.Logger

	mu           sync.Mutex
	started      bool
	stopLoop     context.CancelFunc
	cancelHandle context.CancelFunc
	done         chan struct{}
}

// New authenticates against the Bot API (getMe) and returns the bot.
func New(log *slog.Logger, cfg Config) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("adapter", "telegram"))
	if err := tgbotapi.SetLogger(&slogBotLogger{log: log}); err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(cfg.APIEndpoint)
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	api, err := tgbotapi.NewBotAPIWithClient(strings.TrimSpace(cfg.Token), endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info("authorized", slog.String("username", api.Self.UserName))
	return &Bot{
		api:           api,
		webhookURL:    strings.TrimSpace(cfg.WebhookURL),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		incoming:      make(chan tgbotapi.Update, webhookBuffer),
		logger:        log,
	}, nil
}

// Username returns the bot's @username without the at sign.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// UsesWebhook reports whether updates arrive by webhook instead of polling.
func (b *Bot) UsesWebhook() bool {
	return b.webhookURL != ""
}

// Send delivers plain text to chatID.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// SendMarkdown delivers MarkdownV2 text to chatID. Literal content must be
// escaped with EscapeMarkdown.
func (b *Bot) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send markdown to %d: %w", chatID, err)
	}
	return nil
}

// IsChatAdmin reports whether userID is an administrator or the creator of chatID.
func (b *Bot) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	return member.IsAdministrator() || member.IsCreator(), nil
}

// Start begins delivering updates to handler. In webhook mode the webhook is
// registered with Telegram; otherwise any webhook is removed and long polling starts.
func (b *Bot) Start(ctx context.Context, handler UpdateHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyStarted
	}

	var source <-chan tgbotapi.Update
	if b.UsesWebhook() {
		wh, err := tgbotapi.NewWebhook(b.webhookURL)
		if err != nil {
			return fmt.Errorf("build webhook: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		source = b.incoming
		b.logger.Info("receiving updates by webhook")
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = pollTimeoutSeconds
		source = b.api.GetUpdatesChan(updateConfig)
		b.logger.Info("receiving updates by polling")
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	handleCtx, cancelHandle := context.WithCancel(context.WithoutCancel(ctx))
	b.stopLoop = stopLoop
	b.cancelHandle = cancelHandle
	b.done = make(chan struct{})
	b.started = true
	go b.loop(loopCtx, handleCtx, source, handler)
	return nil
}

func (b *Bot) loop(loopCtx, handleCtx context.Context, source <-chan tgbotapi.Update, handler UpdateHandler) {
	defer close(b.done)
	for {
		select {
		case <-loopCtx.Done():
			return
		case update, ok := <-source:
			if !ok {
				b.logger.Info("updates channel closed")
				return
			}
			handler(handleCtx, update)
		}
	}
}

// Stop halts update delivery and waits for the update in progress until ctx
// is done, after which its context is canceled.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	stopLoop, cancelHandle, done := b.stopLoop, b.cancelHandle, b.done
	b.mu.Unlock()

	stopLoop()
	if !b.UsesWebhook() {
		b.api.StopReceivingUpdates()
	}
	defer cancelHandle()
	select {
	case <-done:
		b.logger.Info("stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for update handler: %w", ctx.Err())
	}
}

// CheckWebhookSecret compares secret with the configured one in constant time.
func (b *Bot) CheckWebhookSecret(secret string) error {
	if b.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(b.webhookSecret)) != 1 {
		return ErrWebhookSecret
	}
	return nil
}

// PushWebhook decodes an update posted by Telegram and queues it for the handler.
func (b *Bot) PushWebhook(ctx context.Context, r *http.Request) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started || !b.UsesWebhook() {
		return ErrNotStarted
	}
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	select {
	case b.incoming <- *update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
