package commands

import (
	"github.com/congresbot/congresbot/internal/linking"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

const (
	replyFailure       = "Something went wrong, please try again later."
	replyPrivateOnly   = "Send /connect to me in a private chat."
	replyConnectPrefix = "Open "
	replyConnectLabel  = "this link"
	replyConnectSuffix = " and log in to Congressus to connect your account."
	replyNoBirthdays   = "Nobody has a birthday today."
)

const replyHelp = `Commands:
/connect - connect your Congressus account (private chat)
/disconnect - disconnect your Congressus account
/start [birthday|status] - subscribe this chat
/cancel [birthday|status] - unsubscribe this chat
/birthday - show today's birthdays
/help - show this message`

var unlinkReplies = map[linking.Outcome]string{
	linking.OutcomeUnlinked:    "Your Congressus account has been disconnected.",
	linking.OutcomeNotLinked:   "Your account was not connected.",
	linking.OutcomeUnknownUser: "I don't know you yet. Use /connect first.",
}

var subscriptionReplies = map[subscriptions.Outcome]string{
	subscriptions.OutcomeSubscribed:        "Subscribed.",
	subscriptions.OutcomeAlreadySubscribed: "This chat was already subscribed.",
	subscriptions.OutcomeUnsubscribed:      "Unsubscribed.",
	subscriptions.OutcomeNotSubscribed:     "This chat was not subscribed.",
	subscriptions.OutcomeForbidden:         "Only chat administrators can do that.",
}

func subscribedReply(category subscriptions.Category) string {
	if category == subscriptions.CategoryBirthday {
		return "Subscribed. Birthdays are announced shortly after midnight."
	}
	return subscriptionReplies[subscriptions.OutcomeSubscribed]
}
