package subscriptions

import (
	"context"
	"strings"
	"time"

	"github.com/congresbot/congresbot/internal/db/sqlc"
)

// Category is a notification stream a chat can subscribe to.
type Category string

const (
	CategoryBirthday Category = "birthday"
	CategoryStatus   Category = "status"
)

// Categories lists every known category.
var Categories = []Category{CategoryBirthday, CategoryStatus}

// ParseCategory matches raw case-insensitively against the known categories.
// Anything else, including the empty string, yields CategoryBirthday.
func ParseCategory(raw string) Category {
	normalized := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range Categories {
		if c == normalized {
			return c
		}
	}
	return CategoryBirthday
}

// Outcome is the result of a subscribe or unsubscribe request.
type Outcome string

const (
	OutcomeSubscribed        Outcome = "subscribed"
	OutcomeAlreadySubscribed Outcome = "already_subscribed"
	OutcomeUnsubscribed      Outcome = "unsubscribed"
	OutcomeNotSubscribed     Outcome = "not_subscribed"
	OutcomeForbidden         Outcome = "forbidden"
)

// Subscription is a chat's registration for one category.
type Subscription struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the subscription persistence used by the registry. *sqlc.Queries satisfies it.
type Store interface {
	GetChatSubscription(ctx context.Context, arg sqlc.GetChatSubscriptionParams) (sqlc.ChatSubscription, error)
	CreateChatSubscription(ctx context.Context, arg sqlc.CreateChatSubscriptionParams) (sqlc.ChatSubscription, error)
	DeleteChatSubscription(ctx context.Context, id int64) error
	ListChatSubscriptionsByType(ctx context.Context, type_ string) ([]sqlc.ChatSubscription, error)
}
