package gatekeeper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moderbot/internal/gatekeeper"
	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/testsupport"
)

type fakeGate struct {
	ok      bool
	missing []store.Subscription
	err     error
	calls   int
}

func (f *fakeGate) Satisfied(context.Context, int64) (bool, []store.Subscription, error) {
	f.calls++
	return f.ok, f.missing, f.err
}

const userID int64 = 77

func setup(t *testing.T, gate *fakeGate, now time.Time) (*gatekeeper.Gatekeeper, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var subs gatekeeper.SubscriptionGate
	if gate != nil {
		subs = gate
	}
	g := gatekeeper.New(st, subs, cfg, nil, gatekeeper.WithNow(func() time.Time { return now }))
	return g, st
}

func addPosts(t *testing.T, st *store.Store, at time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := st.CreatePost(context.Background(), store.NewPost{AuthorID: userID, Text: "🧑 post", SubmittedAt: at})
		require.NoError(t, err)
	}
}

func TestCanSubmitOrder(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("ban wins over everything", func(t *testing.T) {
		gate := &fakeGate{ok: false}
		g, st := setup(t, gate, now)
		require.NoError(t, st.CreateBan(ctx, store.Ban{UserID: userID, Reason: "spam", Admin: store.Actor{ID: 1, Username: "root"}}))
		addPosts(t, st, now, 5)

		v, err := g.CanSubmit(ctx, userID)
		require.NoError(t, err)
		assert.False(t, v.Allowed)
		assert.Equal(t, gatekeeper.Banned, v.Reason)
		require.NotNil(t, v.Ban)
		assert.Equal(t, "spam", v.Ban.Reason)
		assert.Equal(t, services.KindPolicy, v.Kind())
		assert.Zero(t, gate.calls)
	})

	t.Run("subscription before rate limit", func(t *testing.T) {
		gate := &fakeGate{missing: []store.Subscription{{Username: "news"}}}
		g, st := setup(t, gate, now)
		addPosts(t, st, now, 5)

		v, err := g.CanSubmit(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, gatekeeper.SubscriptionRequired, v.Reason)
		require.Len(t, v.Missing, 1)
	})

	t.Run("rate limited at cap", func(t *testing.T) {
		g, st := setup(t, &fakeGate{ok: true}, now)
		addPosts(t, st, now.Add(-time.Hour), 5)

		v, err := g.CanSubmit(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, gatekeeper.RateLimited, v.Reason)
		assert.Equal(t, 5, v.Used)
		assert.Equal(t, 5, v.Limit)
	})

	t.Run("yesterday does not count", func(t *testing.T) {
		g, st := setup(t, &fakeGate{ok: true}, now)
		addPosts(t, st, time.Date(2026, 5, 9, 23, 59, 59, 0, time.UTC), 5)
		addPosts(t, st, now, 4)

		v, err := g.CanSubmit(ctx, userID)
		require.NoError(t, err)
		assert.True(t, v.Allowed)
		assert.True(t, v.Subscribed)
		assert.Empty(t, v.Kind())
	})
}

func TestAdminsSkipSubscriptionGate(t *testing.T) {
	gate := &fakeGate{ok: false}
	g, _ := setup(t, gate, time.Now().UTC())

	v, err := g.CanSubmit(context.Background(), testsupport.AdminID)
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.False(t, v.Subscribed)
	assert.Zero(t, gate.calls)
}

func TestSubscriptionErrorsPropagate(t *testing.T) {
	g, _ := setup(t, &fakeGate{err: errors.New("db down")}, time.Now().UTC())
	_, err := g.CanSubmit(context.Background(), userID)
	require.Error(t, err)
}

func TestNilGateSkipsSubscriptions(t *testing.T) {
	g, _ := setup(t, nil, time.Now().UTC())
	v, err := g.CanSubmit(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, v.Allowed)
}

func TestCanSubmitLeavesUserUntouched(t *testing.T) {
	ctx := context.Background()
	g, st := setup(t, &fakeGate{ok: true}, time.Now().UTC())
	_, err := st.CreateUser(ctx, store.User{ID: userID})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		v, err := g.CanSubmit(ctx, userID)
		require.NoError(t, err)
		assert.True(t, v.Subscribed)
	}
	user, err := st.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, user.SubscriptionVerified)
}
