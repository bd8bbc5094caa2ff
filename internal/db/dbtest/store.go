// Package dbtest provides an in-memory stand-in for the generated queries.
package dbtest

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/congresbot/congresbot/internal/db/sqlc"
)

// Store mirrors the users and chat_subscriptions queries over maps, including
// their unique constraints. The zero value is not usable; call NewStore.
type Store struct {
	mu         sync.Mutex
	nextUserID int64
	nextSubID  int64
	users      map[int64]*sqlc.User
	subs       []sqlc.ChatSubscription
	writes     int

	// FailCreateSubscription makes CreateChatSubscription return no row, as
	// if a concurrent insert won the ON CONFLICT race.
	FailCreateSubscription bool

	// AbortOnUniqueViolation makes a unique violation abort the emulated
	// transaction: every later statement fails with SQLSTATE 25P02 until the
	// enclosing Savepoint rolls back.
	AbortOnUniqueViolation bool
	aborted                bool
}

var errAborted = &pgconn.PgError{Code: "25P02", Message: "current transaction is aborted, commands ignored until end of transaction block"}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{users: map[int64]*sqlc.User{}}
}

func (s *Store) uniqueViolation(constraint string) error {
	if s.AbortOnUniqueViolation {
		s.aborted = true
	}
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
}

func (s *Store) UpsertUserByTelegramID(_ context.Context, telegramID int64) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	if u := s.userByTelegramID(telegramID); u != nil {
		return *u, nil
	}
	s.nextUserID++
	u := &sqlc.User{ID: s.nextUserID, TelegramID: telegramID, CreatedAt: now(), UpdatedAt: now()}
	s.users[u.ID] = u
	s.writes++
	return *u, nil
}

func (s *Store) GetUserByTelegramID(_ context.Context, telegramID int64) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	if u := s.userByTelegramID(telegramID); u != nil {
		return *u, nil
	}
	return sqlc.User{}, pgx.ErrNoRows
}

func (s *Store) GetUserByCongressusID(_ context.Context, congressusID pgtype.Text) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	for _, u := range s.users {
		if u.CongressusID.Valid && u.CongressusID.String == congressusID.String {
			return *u, nil
		}
	}
	return sqlc.User{}, pgx.ErrNoRows
}

func (s *Store) GetUserByOAuthState(_ context.Context, state pgtype.Text) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	for _, u := range s.users {
		if u.OauthState.Valid && u.OauthState.String == state.String {
			return *u, nil
		}
	}
	return sqlc.User{}, pgx.ErrNoRows
}

func (s *Store) SetUserOAuthState(_ context.Context, arg sqlc.SetUserOAuthStateParams) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	u, ok := s.users[arg.ID]
	if !ok {
		return sqlc.User{}, pgx.ErrNoRows
	}
	u.OauthState = arg.OauthState
	u.OauthStateExpiresAt = arg.OauthStateExpiresAt
	u.UpdatedAt = now()
	s.writes++
	return *u, nil
}

func (s *Store) CountOtherUsersByCongressusID(_ context.Context, arg sqlc.CountOtherUsersByCongressusIDParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return 0, errAborted
	}
	var n int64
	for _, u := range s.users {
		if u.ID != arg.ID && u.CongressusID.Valid && u.CongressusID.String == arg.CongressusID.String {
			n++
		}
	}
	return n, nil
}

func (s *Store) LinkUserCongressusID(_ context.Context, arg sqlc.LinkUserCongressusIDParams) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	u, ok := s.users[arg.ID]
	if !ok || !u.OauthState.Valid || u.OauthState.String != arg.OauthState.String {
		return sqlc.User{}, pgx.ErrNoRows
	}
	for _, other := range s.users {
		if other.ID != u.ID && other.CongressusID.Valid && other.CongressusID.String == arg.CongressusID.String {
			return sqlc.User{}, s.uniqueViolation("users_congressus_id_unique")
		}
	}
	u.CongressusID = arg.CongressusID
	u.OauthState = pgtype.Text{}
	u.OauthStateExpiresAt = pgtype.Timestamptz{}
	u.UpdatedAt = now()
	s.writes++
	return *u, nil
}

func (s *Store) ClearUserOAuthState(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return errAborted
	}
	if u, ok := s.users[id]; ok {
		u.OauthState = pgtype.Text{}
		u.OauthStateExpiresAt = pgtype.Timestamptz{}
		s.writes++
	}
	return nil
}

func (s *Store) UnlinkUserCongressusID(_ context.Context, id int64) (sqlc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.User{}, errAborted
	}
	u, ok := s.users[id]
	if !ok {
		return sqlc.User{}, pgx.ErrNoRows
	}
	u.CongressusID = pgtype.Text{}
	u.UpdatedAt = now()
	s.writes++
	return *u, nil
}

func (s *Store) GetChatSubscription(_ context.Context, arg sqlc.GetChatSubscriptionParams) (sqlc.ChatSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.ChatSubscription{}, errAborted
	}
	for _, row := range s.subs {
		if row.TelegramChatID == arg.TelegramChatID && row.Type == arg.Type {
			return row, nil
		}
	}
	return sqlc.ChatSubscription{}, pgx.ErrNoRows
}

func (s *Store) CreateChatSubscription(_ context.Context, arg sqlc.CreateChatSubscriptionParams) (sqlc.ChatSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return sqlc.ChatSubscription{}, errAborted
	}
	if s.FailCreateSubscription {
		return sqlc.ChatSubscription{}, pgx.ErrNoRows
	}
	for _, row := range s.subs {
		if row.TelegramChatID == arg.TelegramChatID && row.Type == arg.Type {
			return sqlc.ChatSubscription{}, pgx.ErrNoRows
		}
	}
	s.nextSubID++
	row := sqlc.ChatSubscription{ID: s.nextSubID, TelegramChatID: arg.TelegramChatID, Type: arg.Type, CreatedAt: now()}
	s.subs = append(s.subs, row)
	s.writes++
	return row, nil
}

func (s *Store) DeleteChatSubscription(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return errAborted
	}
	for i, row := range s.subs {
		if row.ID == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			s.writes++
			return nil
		}
	}
	return nil
}

func (s *Store) ListChatSubscriptionsByType(_ context.Context, type_ string) ([]sqlc.ChatSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return nil, errAborted
	}
	var out []sqlc.ChatSubscription
	for _, row := range s.subs {
		if row.Type == type_ {
			out = append(out, row)
		}
	}
	return out, nil
}

// Savepoint runs fn; when fn fails, every change it made is undone and an
// aborted transaction becomes usable again.
func (s *Store) Savepoint(_ context.Context, fn func() error) error {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return errAborted
	}
	users := make(map[int64]sqlc.User, len(s.users))
	for id, u := range s.users {
		users[id] = *u
	}
	subs := append([]sqlc.ChatSubscription(nil), s.subs...)
	s.mu.Unlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users = make(map[int64]*sqlc.User, len(users))
		for id, u := range users {
			s.users[id] = &u
		}
		s.subs = subs
		s.aborted = false
		return err
	}
	return nil
}

// Aborted reports whether the emulated transaction is aborted.
func (s *Store) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// SetCongressusID links telegramID's record directly, as a concurrent
// committed transaction would.
func (s *Store) SetCongressusID(telegramID int64, congressusID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByTelegramID(telegramID); u != nil {
		u.CongressusID = pgtype.Text{String: congressusID, Valid: true}
	}
}

// User returns the record for telegramID and whether it exists.
func (s *Store) User(telegramID int64) (sqlc.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByTelegramID(telegramID); u != nil {
		return *u, true
	}
	return sqlc.User{}, false
}

// UserCount returns the number of identity records.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Subscriptions returns a copy of every subscription row.
func (s *Store) Subscriptions() []sqlc.ChatSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sqlc.ChatSubscription(nil), s.subs...)
}

// Writes counts mutating calls that changed state.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) userByTelegramID(telegramID int64) *sqlc.User {
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			return u
		}
	}
	return nil
}

// Transactor runs units of work directly against Store. Do passes nil
// queries, which callers treat as "use the services as constructed".
type Transactor struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

// Do runs fn and returns its error, or Err when set.
func (t *Transactor) Do(_ context.Context, fn func(q *sqlc.Queries) error) error {
	t.mu.Lock()
	t.Calls++
	t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	return fn(nil)
}
