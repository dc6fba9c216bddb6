package subscriptions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moderbot/internal/config"
	"moderbot/internal/store"
	"moderbot/internal/subscriptions"
	"moderbot/internal/telegram"
	"moderbot/internal/testsupport"
)

type memberLookup map[int64]string

func (m memberLookup) GetChatMember(_ context.Context, chatID, _ int64) (*telegram.ChatMember, error) {
	status, ok := m[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return &telegram.ChatMember{Status: status}, nil
}

func seededRegistry(t *testing.T) (*subscriptions.Registry, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithSubscriptions(
		config.Subscription{Type: "channel", ID: -1001, Username: "news", Name: "News"},
		config.Subscription{Type: "bot", Username: "helperbot", Name: "Helper"},
	))
	st := testsupport.MustOpenStore(t, cfg)
	reg, err := subscriptions.NewRegistry(context.Background(), st, cfg.Subscriptions, nil)
	require.NoError(t, err)
	return reg, st
}

func TestRegistrySeedsOnlyEmptyTable(t *testing.T) {
	reg, st := seededRegistry(t)
	subs := reg.List()
	require.Len(t, subs, 2)
	assert.Equal(t, "https://t.me/news", subs[0].URL)
	assert.Len(t, reg.Channels(), 1)
	assert.Len(t, reg.Bots(), 1)

	_, err := reg.RemoveAt(context.Background(), 2)
	require.NoError(t, err)

	again, err := subscriptions.NewRegistry(context.Background(), st, []config.Subscription{{Type: "bot", Username: "other"}}, nil)
	require.NoError(t, err)
	require.Len(t, again.List(), 1)
	assert.Equal(t, "news", again.List()[0].Username)
}

func TestRegistryWritesRefreshCache(t *testing.T) {
	reg, st := seededRegistry(t)
	ctx := context.Background()

	added, err := reg.Add(ctx, store.Subscription{Type: "channel", TargetID: -1002, Username: "@daily", Name: "Daily"})
	require.NoError(t, err)
	assert.NotZero(t, added.ID)
	assert.Equal(t, "daily", added.Username)
	require.Len(t, reg.List(), 3)

	stored, err := st.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, reg.List())

	_, err = reg.Add(ctx, store.Subscription{Type: "channel", TargetID: -1002, Username: "daily"})
	assert.ErrorIs(t, err, store.ErrDuplicateSubscription)

	removed, err := reg.RemoveAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "news", removed.Username)
	require.Len(t, reg.List(), 2)

	_, err = reg.RemoveAt(ctx, 5)
	assert.ErrorIs(t, err, subscriptions.ErrNoSuchIndex)
}

func TestRegistryValidates(t *testing.T) {
	reg, _ := seededRegistry(t)
	tests := []store.Subscription{
		{Type: "channel", Username: "noid"},
		{Type: "bot"},
		{Type: "group", Username: "x"},
	}
	for _, sub := range tests {
		_, err := reg.Add(context.Background(), sub)
		assert.ErrorIs(t, err, subscriptions.ErrInvalid, "%+v", sub)
	}
}

func TestCheckerVerifiesChannelsAndCachesResult(t *testing.T) {
	reg, st := seededRegistry(t)
	ctx := context.Background()
	_, err := st.CreateUser(ctx, store.User{ID: 7})
	require.NoError(t, err)

	members := memberLookup{-1001: telegram.MemberLeft}
	checker := subscriptions.NewChecker(reg, members, st, nil)

	ok, missing, err := checker.Satisfied(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, missing, 1)
	assert.Equal(t, "news", missing[0].Username)

	members[-1001] = telegram.MemberMember
	ok, _, err = checker.Satisfied(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	user, err := st.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.False(t, user.SubscriptionVerified, "Satisfied only reads")

	require.NoError(t, checker.Record(ctx, 7, true))
	user, err = st.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, user.SubscriptionVerified)

	// cached: a later leave is not noticed until the flag resets
	members[-1001] = telegram.MemberLeft
	ok, _, err = checker.Satisfied(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = reg.Add(ctx, store.Subscription{Type: "channel", TargetID: -1003, Username: "extra"})
	require.NoError(t, err)
	ok, missing, err = checker.Satisfied(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, missing, 2, "lookup errors count as unmet")
}

func TestPromptViewListsMissingAndBots(t *testing.T) {
	view := subscriptions.PromptView(
		[]store.Subscription{{Type: store.SubscriptionChannel, Name: "News", URL: "https://t.me/news"}},
		[]store.Subscription{{Type: store.SubscriptionBot, Name: "Helper", URL: "https://t.me/helperbot"}},
	)
	require.Len(t, view.Controls, 3)
	assert.Equal(t, "https://t.me/news", view.Controls[0][0].URL)
	assert.Equal(t, "🤖 Helper", view.Controls[1][0].Text)
	assert.Equal(t, subscriptions.CheckSubscriptionData, view.Controls[2][0].Data)
}
