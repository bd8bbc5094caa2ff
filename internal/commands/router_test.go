package commands

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congresbot/congresbot/internal/birthdays"
	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/db/dbtest"
	"github.com/congresbot/congresbot/internal/linking"
	"github.com/congresbot/congresbot/internal/schedule"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

type sentMessage struct {
	chatID   int64
	text     string
	markdown bool
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	admins map[int64]bool
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeMessenger) SendMarkdown(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, markdown: true})
	return nil
}

func (f *fakeMessenger) IsChatAdmin(_ context.Context, _ int64, userID int64) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeMessenger) last(t *testing.T) sentMessage {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type stubProvider struct{}

func (stubProvider) AuthCodeURL(state string) string {
	return "https://vereniging.example/oauth/authorize?state=" + url.QueryEscape(state)
}

func (stubProvider) Exchange(context.Context, string) (string, error) {
	return "c-1", nil
}

type stubBirthdays struct {
	text  string
	err   error
	panic bool
}

func (s stubBirthdays) Message(context.Context) (string, error) {
	if s.panic {
		panic("members api exploded")
	}
	return s.text, s.err
}

type fixture struct {
	store     *dbtest.Store
	tx        *dbtest.Transactor
	messenger *fakeMessenger
	subs      *subscriptions.Service
	router    *Router
}

func newFixture(source BirthdaySource) *fixture {
	store := dbtest.NewStore()
	tx := &dbtest.Transactor{}
	messenger := &fakeMessenger{admins: map[int64]bool{}}
	subs := subscriptions.NewService(nil, store)
	router := NewRouter(nil, Deps{
		Messenger:     messenger,
		Transactor:    tx,
		Linking:       linking.NewService(nil, store, stubProvider{}, time.Hour),
		Subscriptions: subs,
		Birthdays:     source,
		BotUsername:   "congresbot",
	})
	return &fixture{store: store, tx: tx, messenger: messenger, subs: subs, router: router}
}

func (f *fixture) send(chatID int64, chatType string, userID int64, text string) {
	f.router.Handle(context.Background(), commandUpdate(chatID, chatType, userID, text))
}

func commandUpdate(chatID int64, chatType string, userID int64, text string) tgbotapi.Update {
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType, Title: "Board"},
			From:      &tgbotapi.User{ID: userID, FirstName: "Ada", LastName: "Lovelace"},
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		},
	}
}

func TestConnectPrivateChat(t *testing.T) {
	f := newFixture(nil)
	f.send(7, "private", 7, "/connect")

	reply := f.messenger.last(t)
	assert.True(t, reply.markdown)
	assert.Equal(t, int64(7), reply.chatID)
	assert.Contains(t, reply.text, "https://vereniging.example/oauth/authorize?state=")

	u, ok := f.store.User(7)
	require.True(t, ok)
	assert.True(t, u.OauthState.Valid)
	assert.Contains(t, reply.text, u.OauthState.String)
}

func TestConnectGroupChatRefused(t *testing.T) {
	f := newFixture(nil)
	f.send(-100, "supergroup", 7, "/connect")

	reply := f.messenger.last(t)
	assert.Equal(t, replyPrivateOnly, reply.text)
	assert.Zero(t, f.store.UserCount())
}

func TestDisconnect(t *testing.T) {
	f := newFixture(nil)
	f.send(7, "private", 7, "/disconnect")
	assert.Equal(t, unlinkReplies[linking.OutcomeUnknownUser], f.messenger.last(t).text)

	f.send(7, "private", 7, "/connect")
	f.send(7, "private", 7, "/disconnect")
	assert.Equal(t, unlinkReplies[linking.OutcomeNotLinked], f.messenger.last(t).text)
}

func TestSubscribeInGroupRequiresAdmin(t *testing.T) {
	f := newFixture(nil)

	f.send(-100, "group", 7, "/start status")
	assert.Equal(t, subscriptionReplies[subscriptions.OutcomeForbidden], f.messenger.last(t).text)
	assert.Empty(t, f.store.Subscriptions())

	f.messenger.admins[7] = true
	f.send(-100, "group", 7, "/start status")
	assert.Equal(t, subscriptionReplies[subscriptions.OutcomeSubscribed], f.messenger.last(t).text)

	f.send(-100, "group", 7, "/start STATUS")
	assert.Equal(t, subscriptionReplies[subscriptions.OutcomeAlreadySubscribed], f.messenger.last(t).text)

	rows := f.store.Subscriptions()
	require.Len(t, rows, 1)
	assert.Equal(t, "status", rows[0].Type)
	assert.Equal(t, int64(-100), rows[0].TelegramChatID)
}

func TestSubscribeUnknownCategoryFallsBackToBirthday(t *testing.T) {
	f := newFixture(nil)
	f.send(7, "private", 7, "/start weather")

	rows := f.store.Subscriptions()
	require.Len(t, rows, 1)
	assert.Equal(t, "birthday", rows[0].Type)
	assert.Equal(t, subscribedReply(subscriptions.CategoryBirthday), f.messenger.last(t).text)
}

func TestCancel(t *testing.T) {
	f := newFixture(nil)
	f.send(7, "private", 7, "/cancel")
	assert.Equal(t, subscriptionReplies[subscriptions.OutcomeNotSubscribed], f.messenger.last(t).text)
	writes := f.store.Writes()

	f.send(7, "private", 7, "/start")
	f.send(7, "private", 7, "/cancel birthday")
	assert.Equal(t, subscriptionReplies[subscriptions.OutcomeUnsubscribed], f.messenger.last(t).text)
	assert.Empty(t, f.store.Subscriptions())
	assert.Equal(t, writes+2, f.store.Writes())
}

func TestBirthdayCommand(t *testing.T) {
	f := newFixture(stubBirthdays{text: "🎂 Ada"})
	f.send(-100, "group", 7, "/birthday")
	assert.Equal(t, "🎂 Ada", f.messenger.last(t).text)

	f = newFixture(stubBirthdays{err: birthdays.ErrNoBirthdays})
	f.send(-100, "group", 7, "/birthday")
	assert.Equal(t, replyNoBirthdays, f.messenger.last(t).text)
}

func TestHandlerErrorSendsGenericReply(t *testing.T) {
	f := newFixture(stubBirthdays{err: errors.New("members api: status 401")})
	f.send(-100, "group", 7, "/birthday")

	msgs := f.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, replyFailure, msgs[0].text)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	f := newFixture(stubBirthdays{panic: true})
	require.NotPanics(t, func() { f.send(-100, "group", 7, "/birthday") })
	assert.Equal(t, replyFailure, f.messenger.last(t).text)
}

func TestTransactionFailureDropsReplies(t *testing.T) {
	f := newFixture(nil)
	f.tx.Err = errors.New("commit tx: connection reset")
	f.send(7, "private", 7, "/connect")

	msgs := f.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, replyFailure, msgs[0].text)
}

func TestCommandsWithoutStoreSkipTransaction(t *testing.T) {
	f := newFixture(stubBirthdays{text: "🎂 Ada"})
	f.tx.Err = errors.New("pool exhausted")

	f.send(-100, "group", 7, "/help")
	f.send(-100, "group", 7, "/birthday")

	msgs := f.messenger.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, replyHelp, msgs[0].text)
	assert.Equal(t, "🎂 Ada", msgs[1].text)
	assert.Zero(t, f.tx.Calls)

	f.send(-100, "group", 7, "/cancel status")
	assert.Equal(t, 1, f.tx.Calls)
}

func TestIgnoredUpdates(t *testing.T) {
	f := newFixture(nil)
	f.router.Handle(context.Background(), tgbotapi.Update{UpdateID: 1})
	f.router.Handle(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "hello",
		Chat: &tgbotapi.Chat{ID: 1, Type: "private"},
		From: &tgbotapi.User{ID: 1},
	}})
	f.send(-100, "group", 7, "/start@otherbot status")
	f.send(-100, "group", 7, "/unknown")

	assert.Empty(t, f.messenger.messages())
	assert.Zero(t, f.tx.Calls)
}

func TestCommandAddressedToThisBot(t *testing.T) {
	f := newFixture(nil)
	f.send(-100, "group", 7, "/help@CongresBot")
	assert.Equal(t, replyHelp, f.messenger.last(t).text)
}

func TestChatName(t *testing.T) {
	private := commandUpdate(7, "private", 7, "/start").Message
	assert.Equal(t, "Ada Lovelace", chatName(private))
	group := commandUpdate(-100, "group", 7, "/start").Message
	assert.Equal(t, "Board", chatName(group))
}

func TestStartStatusThenStartupBroadcast(t *testing.T) {
	f := newFixture(nil)
	f.send(7, "private", 7, "/start status")

	dispatcher := broadcast.NewDispatcher(nil, f.subs, f.messenger, 0)
	sched := schedule.NewService(nil, dispatcher, time.UTC)
	for _, job := range schedule.DefaultJobs("0 5 0 * * *", broadcast.Static("unused")) {
		require.NoError(t, sched.Register(job))
	}
	before := len(f.messenger.messages())

	report, err := sched.Run(context.Background(), schedule.StatusJob)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent())

	sent := f.messenger.messages()[before:]
	require.Len(t, sent, 1)
	assert.Equal(t, int64(7), sent[0].chatID)
	assert.Equal(t, schedule.StatusMessage, sent[0].text)
}
