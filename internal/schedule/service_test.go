package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

type mockBroadcaster struct {
	mu         sync.Mutex
	categories []subscriptions.Category
	texts      []string
	err        error
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, category subscriptions.Category, factory broadcast.MessageFactory) (broadcast.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return broadcast.Report{}, m.err
	}
	text, err := factory(ctx, 1)
	m.categories = append(m.categories, category)
	m.texts = append(m.texts, text)
	return broadcast.Report{Category: category, Results: []broadcast.Result{{ChatID: 1, Err: err}}}, nil
}

func TestRegisterDefaultJobs(t *testing.T) {
	b := &mockBroadcaster{}
	svc := NewService(nil, b, time.UTC)
	for _, job := range DefaultJobs("0 5 0 * * *", broadcast.Static("hb")) {
		require.NoError(t, svc.Register(job))
	}

	svc.Start()
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	next, ok := svc.Next(BirthdayJob)
	require.True(t, ok)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 5, next.Minute())

	_, ok = svc.Next(StatusJob)
	assert.False(t, ok)
}

func TestRegisterUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)
	svc := NewService(nil, &mockBroadcaster{}, loc)
	require.NoError(t, svc.Register(Job{Name: "daily", Pattern: "0 5 0 * * *", Factory: broadcast.Static("x")}))
	svc.Start()
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	next, ok := svc.Next("daily")
	require.True(t, ok)
	local := next.In(loc)
	assert.Equal(t, 0, local.Hour())
	assert.Equal(t, 5, local.Minute())
}

func TestRegisterRejectsInvalidJobs(t *testing.T) {
	svc := NewService(nil, &mockBroadcaster{}, nil)

	assert.Error(t, svc.Register(Job{Name: "", Factory: broadcast.Static("x")}))
	assert.Error(t, svc.Register(Job{Name: "nofactory"}))
	assert.Error(t, svc.Register(Job{Name: "bad", Pattern: "every day", Factory: broadcast.Static("x")}))

	require.NoError(t, svc.Register(Job{Name: "once", Factory: broadcast.Static("x")}))
	assert.ErrorIs(t, svc.Register(Job{Name: "once", Factory: broadcast.Static("y")}), ErrDuplicateJob)
}

func TestRunStatusJob(t *testing.T) {
	b := &mockBroadcaster{}
	svc := NewService(nil, b, nil)
	for _, job := range DefaultJobs("@daily", broadcast.Static("hb")) {
		require.NoError(t, svc.Register(job))
	}

	report, err := svc.Run(context.Background(), StatusJob)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent())
	assert.Equal(t, []subscriptions.Category{subscriptions.CategoryStatus}, b.categories)
	assert.Equal(t, []string{StatusMessage}, b.texts)
}

func TestRunUnknownJob(t *testing.T) {
	svc := NewService(nil, &mockBroadcaster{}, nil)
	_, err := svc.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunPropagatesBroadcastError(t *testing.T) {
	b := &mockBroadcaster{err: errors.New("db down")}
	svc := NewService(nil, b, nil)
	require.NoError(t, svc.Register(Job{Name: "status", Category: subscriptions.CategoryStatus, Factory: broadcast.Static("x")}))

	_, err := svc.Run(context.Background(), "status")
	assert.ErrorContains(t, err, "db down")
}

func TestRunRecoversPanic(t *testing.T) {
	svc := NewService(nil, &mockBroadcaster{}, nil)
	require.NoError(t, svc.Register(Job{Name: "boom", Factory: func(context.Context, int64) (string, error) {
		panic("factory exploded")
	}}))

	_, err := svc.Run(context.Background(), "boom")
	assert.ErrorContains(t, err, "panicked")
}

func TestStopWithoutRunningJobs(t *testing.T) {
	svc := NewService(nil, &mockBroadcaster{}, nil)
	svc.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.Stop(ctx))
	assert.Error(t, svc.jobCtx.Err())
}
