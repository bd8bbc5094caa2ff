// Package commands turns Telegram updates into linking and subscription
// operations and replies to the chat.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/db/sqlc"
	"github.com/congresbot/congresbot/internal/linking"
	"github.com/congresbot/congresbot/internal/logger"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

// Messenger is the outgoing side of the Telegram bot.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// BirthdaySource renders today's birthday message.
type BirthdaySource interface {
	Message(ctx context.Context) (string, error)
}

type handlerFunc func(req *request) error

// command is a registered handler; store marks handlers that need a transaction.
type command struct {
	run   handlerFunc
	store bool
}

// Router dispatches bot commands. Each update is handled inside its own
// transaction and replies are sent only after it commits.
type Router struct {
	messenger   Messenger
	tx          db.Transactor
	linking     *linking.Service
	subs        *subscriptions.Service
	birthdays   BirthdaySource
	botUsername string
	logger      *slog.Logger
	commands    map[string]command
}

// Deps groups the collaborators of the router.
type Deps struct {
	Messenger     Messenger
	Transactor    db.Transactor
	Linking       *linking.Service
	Subscriptions *subscriptions.Service
	Birthdays     BirthdaySource
	BotUsername   string
}

// NewRouter creates a router with every command registered.
func NewRouter(log *slog.Logger, deps Deps) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{
		messenger:   deps.Messenger,
		tx:          deps.Transactor,
		linking:     deps.Linking,
		subs:        deps.Subscriptions,
		birthdays:   deps.Birthdays,
		botUsername: strings.TrimPrefix(strings.TrimSpace(deps.BotUsername), "@"),
		logger:      log.With(slog.String("service", "commands")),
	}
	r.commands = map[string]command{
		"connect":    {run: r.connect, store: true},
		"disconnect": {run: r.disconnect, store: true},
		"start":      {run: r.subscribe, store: true},
		"cancel":     {run: r.unsubscribe, store: true},
		"birthday":   {run: r.birthday},
		"help":       {run: r.help},
	}
	return r
}

type reply struct {
	text     string
	markdown bool
}

// request is the state of one update while it is handled.
type request struct {
	ctx     context.Context
	msg     *tgbotapi.Message
	args    []string
	linking *linking.Service
	subs    *subscriptions.Service
	logger  *slog.Logger
	replies []reply
}

func (req *request) reply(text string) {
	req.replies = append(req.replies, reply{text: text})
}

func (req *request) replyMarkdown(text string) {
	req.replies = append(req.replies, reply{text: text, markdown: true})
}

func (req *request) chatID() int64 {
	return req.msg.Chat.ID
}

func (req *request) userID() int64 {
	return req.msg.From.ID
}

// Handle processes one update; it matches telegram.UpdateHandler.
func (r *Router) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || !msg.IsCommand() {
		return
	}
	if !r.addressedToUs(msg) {
		return
	}
	name := strings.ToLower(msg.Command())
	cmd, ok := r.commands[name]
	if !ok {
		return
	}

	done := logger.Track()
	log := r.logger.With(
		slog.Int("update_id", update.UpdateID),
		slog.Int64("chat_id", msg.Chat.ID),
		slog.Int64("user_id", msg.From.ID),
		slog.String("command", name),
	)
	ctx = logger.WithContext(ctx, log)
	req := &request{
		ctx:    ctx,
		msg:    msg,
		args:   strings.Fields(msg.CommandArguments()),
		logger: log,
	}

	if err := r.run(ctx, req, cmd); err != nil {
		log.Error("error during message handling",
			slog.Any("error", err),
			slog.String("text", msg.Text),
			done(),
		)
		if sendErr := r.messenger.Send(ctx, msg.Chat.ID, replyFailure); sendErr != nil {
			log.Error("send failure reply", slog.Any("error", sendErr))
		}
		return
	}

	for _, rep := range req.replies {
		var err error
		if rep.markdown {
			err = r.messenger.SendMarkdown(ctx, msg.Chat.ID, rep.text)
		} else {
			err = r.messenger.Send(ctx, msg.Chat.ID, rep.text)
		}
		if err != nil {
			log.Error("send reply", slog.Any("error", err))
		}
	}
	log.Debug("message handled", done())
}

// run executes cmd, inside a transaction when it touches the store, converting
// a panic into an error after the transaction has been rolled back.
func (r *Router) run(ctx context.Context, req *request, cmd command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	if !cmd.store {
		return cmd.run(req)
	}
	return r.tx.Do(ctx, func(q *sqlc.Queries) error {
		req.linking, req.subs = r.linking, r.subs
		if q != nil {
			req.linking = r.linking.WithStore(q)
			req.subs = r.subs.WithStore(q)
		}
		return cmd.run(req)
	})
}

// addressedToUs drops "/cmd@otherbot" commands in groups with several bots.
func (r *Router) addressedToUs(msg *tgbotapi.Message) bool {
	withAt := msg.CommandWithAt()
	at := strings.IndexByte(withAt, '@')
	if at < 0 || r.botUsername == "" {
		return true
	}
	return strings.EqualFold(withAt[at+1:], r.botUsername)
}

// chatName is the display name used in logs: the sender's full name in
// private chats and the title otherwise.
func chatName(msg *tgbotapi.Message) string {
	if msg.Chat.IsPrivate() {
		return strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	return msg.Chat.Title
}
