// Package linking associates Telegram users with Congressus accounts through
// a one-time OAuth correlation token.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/db/sqlc"
)

// Service runs the link and unlink flows.
type Service struct {
	store    Store
	provider Provider
	stateTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a linking service. A zero stateTTL leaves pending tokens valid until used.
func NewService(log *slog.Logger, store Store, provider Provider, stateTTL time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		provider: provider,
		stateTTL: stateTTL,
		now:      time.Now,
		logger:   log.With(slog.String("service", "linking")),
	}
}

// WithStore returns a copy of the service bound to store, typically a transaction.
func (s *Service) WithStore(store Store) *Service {
	cp := *s
	cp.store = store
	return &cp
}

// InitiateLink issues a fresh correlation token for the chat's user and returns
// the provider authorize URL. Any earlier pending token is replaced.
func (s *Service) InitiateLink(ctx context.Context, chat Chat) (string, error) {
	if !chat.Private {
		return "", ErrPrivateChatRequired
	}
	telegramID := chat.UserID
	if telegramID == 0 {
		telegramID = chat.ID
	}
	user, err := s.store.UpsertUserByTelegramID(ctx, telegramID)
	if err != nil {
		return "", fmt.Errorf("find or create user: %w", err)
	}

	state := uuid.NewString()
	var expiresAt time.Time
	if s.stateTTL > 0 {
		expiresAt = s.now().UTC().Add(s.stateTTL)
	}
	if _, err := s.store.SetUserOAuthState(ctx, sqlc.SetUserOAuthStateParams{
		ID:                  user.ID,
		OauthState:          db.StringToText(state),
		OauthStateExpiresAt: db.TimeToPg(expiresAt),
	}); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	s.logger.Info("link initiated", slog.Int64("telegram_id", telegramID))
	return s.provider.AuthCodeURL(state), nil
}

// CompleteLink consumes the token named by state and links the account the
// provider reports for code. For OutcomeProviderError the provider error is
// returned alongside the outcome; any other non-nil error is an infrastructure
// failure and the outcome is empty.
func (s *Service) CompleteLink(ctx context.Context, code, state string) (Outcome, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return OutcomeInvalidState, nil
	}
	user, err := s.store.GetUserByOAuthState(ctx, db.StringToText(state))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OutcomeInvalidState, nil
		}
		return "", fmt.Errorf("find user by oauth state: %w", err)
	}
	if s.expired(user) {
		s.logger.Info("expired oauth state presented", slog.Int64("telegram_id", user.TelegramID))
		return OutcomeInvalidState, nil
	}

	externalID, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return OutcomeProviderError, err
	}

	others, err := s.store.CountOtherUsersByCongressusID(ctx, sqlc.CountOtherUsersByCongressusIDParams{
		CongressusID: db.StringToText(externalID),
		ID:           user.ID,
	})
	if err != nil {
		return "", fmt.Errorf("count users by congressus id: %w", err)
	}
	if others > 0 {
		return s.conflict(ctx, user)
	}

	// The unique index still guards against a concurrent link committed after
	// the count; the savepoint keeps the transaction usable when it fires.
	err = s.store.Savepoint(ctx, func() error {
		_, err := s.store.LinkUserCongressusID(ctx, sqlc.LinkUserCongressusIDParams{
			ID:           user.ID,
			CongressusID: db.StringToText(externalID),
			OauthState:   db.StringToText(state),
		})
		return err
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Another callback consumed the token in the meantime.
		return OutcomeInvalidState, nil
	case db.IsUniqueViolation(err):
		return s.conflict(ctx, user)
	case err != nil:
		return "", fmt.Errorf("link user: %w", err)
	}
	s.logger.Info("account linked", slog.Int64("telegram_id", user.TelegramID))
	return OutcomeLinked, nil
}

func (s *Service) conflict(ctx context.Context, user sqlc.User) (Outcome, error) {
	if err := s.store.ClearUserOAuthState(ctx, user.ID); err != nil {
		return "", fmt.Errorf("clear oauth state: %w", err)
	}
	s.logger.Warn("congressus account already linked elsewhere", slog.Int64("telegram_id", user.TelegramID))
	return OutcomeConflict, nil
}

func (s *Service) expired(user sqlc.User) bool {
	expiresAt := db.TimeFromPg(user.OauthStateExpiresAt)
	return !expiresAt.IsZero() && !s.now().Before(expiresAt)
}

// InitiateUnlink removes the Congressus account from the user's record.
func (s *Service) InitiateUnlink(ctx context.Context, telegramID int64) (Outcome, error) {
	user, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OutcomeUnknownUser, nil
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if !user.CongressusID.Valid {
		return OutcomeNotLinked, nil
	}
	if _, err := s.store.UnlinkUserCongressusID(ctx, user.ID); err != nil {
		return "", fmt.Errorf("unlink user: %w", err)
	}
	s.logger.Info("account unlinked", slog.Int64("telegram_id", telegramID))
	return OutcomeUnlinked, nil
}
