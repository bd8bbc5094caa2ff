// Package subscriptions manages which chats receive which broadcast categories.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/db/sqlc"
)

// Service is the subscription registry.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a subscription registry.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "subscriptions")),
	}
}

// WithStore returns a copy of the registry bound to store, typically a transaction.
func (s *Service) WithStore(store Store) *Service {
	cp := *s
	cp.store = store
	return &cp
}

// Subscribe registers chatID for category. authorized reports whether the
// requester may manage the chat's subscriptions.
func (s *Service) Subscribe(ctx context.Context, chatID int64, category Category, authorized bool) (Outcome, error) {
	if !authorized {
		return OutcomeForbidden, nil
	}
	_, found, err := s.find(ctx, chatID, category)
	if err != nil {
		return "", err
	}
	if found {
		return OutcomeAlreadySubscribed, nil
	}
	_, err = s.store.CreateChatSubscription(ctx, sqlc.CreateChatSubscriptionParams{
		TelegramChatID: chatID,
		Type:           string(category),
	})
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when a concurrent insert won.
		if errors.Is(err, pgx.ErrNoRows) {
			return OutcomeAlreadySubscribed, nil
		}
		return "", fmt.Errorf("create subscription: %w", err)
	}
	s.logger.Debug("subscription created", slog.Int64("chat_id", chatID), slog.String("category", string(category)))
	return OutcomeSubscribed, nil
}

// Unsubscribe removes chatID's registration for category.
func (s *Service) Unsubscribe(ctx context.Context, chatID int64, category Category, authorized bool) (Outcome, error) {
	if !authorized {
		return OutcomeForbidden, nil
	}
	row, found, err := s.find(ctx, chatID, category)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeNotSubscribed, nil
	}
	if err := s.store.DeleteChatSubscription(ctx, row.ID); err != nil {
		return "", fmt.Errorf("delete subscription: %w", err)
	}
	s.logger.Debug("subscription removed", slog.Int64("chat_id", chatID), slog.String("category", string(category)))
	return OutcomeUnsubscribed, nil
}

// ListByCategory returns every chat subscribed to category.
func (s *Service) ListByCategory(ctx context.Context, category Category) ([]Subscription, error) {
	rows, err := s.store.ListChatSubscriptionsByType(ctx, string(category))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	items := make([]Subscription, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSubscription(row))
	}
	return items, nil
}

func (s *Service) find(ctx context.Context, chatID int64, category Category) (sqlc.ChatSubscription, bool, error) {
	row, err := s.store.GetChatSubscription(ctx, sqlc.GetChatSubscriptionParams{
		TelegramChatID: chatID,
		Type:           string(category),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sqlc.ChatSubscription{}, false, nil
		}
		return sqlc.ChatSubscription{}, false, fmt.Errorf("get subscription: %w", err)
	}
	return row, true, nil
}

func toSubscription(row sqlc.ChatSubscription) Subscription {
	return Subscription{
		ID:        row.ID,
		ChatID:    row.TelegramChatID,
		Category:  Category(row.Type),
		CreatedAt: db.TimeFromPg(row.CreatedAt),
	}
}
