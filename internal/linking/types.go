package linking

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/congresbot/congresbot/internal/db/sqlc"
)

// Outcome is the result of a linking operation, mapped to replies and HTTP codes by callers.
type Outcome string

const (
	OutcomeLinked        Outcome = "linked"
	OutcomeInvalidState  Outcome = "invalid_state"
	OutcomeProviderError Outcome = "provider_error"
	OutcomeConflict      Outcome = "conflict"
	OutcomeUnlinked      Outcome = "unlinked"
	OutcomeNotLinked     Outcome = "not_linked"
	OutcomeUnknownUser   Outcome = "unknown_user"
)

// ErrPrivateChatRequired is returned when linking is initiated outside a private chat.
var ErrPrivateChatRequired = errors.New("linking requires a private chat")

// Chat identifies where a link request came from.
type Chat struct {
	ID      int64
	UserID  int64
	Private bool
}

// Store is the identity record persistence used by the service. *sqlc.Queries satisfies it.
type Store interface {
	UpsertUserByTelegramID(ctx context.Context, telegramID int64) (sqlc.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (sqlc.User, error)
	GetUserByOAuthState(ctx context.Context, oauthState pgtype.Text) (sqlc.User, error)
	SetUserOAuthState(ctx context.Context, arg sqlc.SetUserOAuthStateParams) (sqlc.User, error)
	CountOtherUsersByCongressusID(ctx context.Context, arg sqlc.CountOtherUsersByCongressusIDParams) (int64, error)
	LinkUserCongressusID(ctx context.Context, arg sqlc.LinkUserCongressusIDParams) (sqlc.User, error)
	ClearUserOAuthState(ctx context.Context, id int64) error
	UnlinkUserCongressusID(ctx context.Context, id int64) (sqlc.User, error)
	Savepoint(ctx context.Context, fn func() error) error
}

// Provider is the OAuth authorization server.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}
