package commands

import (
	"errors"
	"log/slog"

	"github.com/congresbot/congresbot/internal/birthdays"
	"github.com/congresbot/congresbot/internal/linking"
	"github.com/congresbot/congresbot/internal/subscriptions"
	"github.com/congresbot/congresbot/internal/telegram"
)

func (r *Router) connect(req *request) error {
	authURL, err := req.linking.InitiateLink(req.ctx, linking.Chat{
		ID:      req.chatID(),
		UserID:  req.userID(),
		Private: req.msg.Chat.IsPrivate(),
	})
	if errors.Is(err, linking.ErrPrivateChatRequired) {
		req.reply(replyPrivateOnly)
		return nil
	}
	if err != nil {
		return err
	}
	req.replyMarkdown(telegram.EscapeMarkdown(replyConnectPrefix) +
		telegram.MarkdownLink(replyConnectLabel, authURL) +
		telegram.EscapeMarkdown(replyConnectSuffix))
	return nil
}

func (r *Router) disconnect(req *request) error {
	outcome, err := req.linking.InitiateUnlink(req.ctx, req.userID())
	if err != nil {
		return err
	}
	req.reply(unlinkReplies[outcome])
	return nil
}

func (r *Router) subscribe(req *request) error {
	category := r.category(req)
	authorized, err := r.authorized(req)
	if err != nil {
		return err
	}
	outcome, err := req.subs.Subscribe(req.ctx, req.chatID(), category, authorized)
	if err != nil {
		return err
	}
	if outcome == subscriptions.OutcomeSubscribed {
		req.logger.Info("register subscription",
			slog.String("category", string(category)),
			slog.String("chat_name", chatName(req.msg)),
		)
		req.reply(subscribedReply(category))
		return nil
	}
	req.reply(subscriptionReplies[outcome])
	return nil
}

func (r *Router) unsubscribe(req *request) error {
	category := r.category(req)
	authorized, err := r.authorized(req)
	if err != nil {
		return err
	}
	outcome, err := req.subs.Unsubscribe(req.ctx, req.chatID(), category, authorized)
	if err != nil {
		return err
	}
	if outcome == subscriptions.OutcomeUnsubscribed {
		req.logger.Info("remove subscription",
			slog.String("category", string(category)),
			slog.String("chat_name", chatName(req.msg)),
		)
	}
	req.reply(subscriptionReplies[outcome])
	return nil
}

func (r *Router) birthday(req *request) error {
	if r.birthdays == nil {
		req.reply(replyNoBirthdays)
		return nil
	}
	text, err := r.birthdays.Message(req.ctx)
	if errors.Is(err, birthdays.ErrNoBirthdays) {
		req.reply(replyNoBirthdays)
		return nil
	}
	if err != nil {
		return err
	}
	req.reply(text)
	return nil
}

func (r *Router) help(req *request) error {
	req.reply(replyHelp)
	return nil
}

func (r *Router) category(req *request) subscriptions.Category {
	if len(req.args) == 0 {
		return subscriptions.ParseCategory("")
	}
	return subscriptions.ParseCategory(req.args[0])
}

// authorized reports whether the sender may manage the chat's subscriptions:
// anyone in a private chat, administrators and the creator elsewhere.
func (r *Router) authorized(req *request) (bool, error) {
	if req.msg.Chat.IsPrivate() {
		return true, nil
	}
	return r.messenger.IsChatAdmin(req.ctx, req.chatID(), req.userID())
}
