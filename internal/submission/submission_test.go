package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/submission"
	"moderbot/internal/testsupport"
)

type fakeReviewer struct {
	posts []*store.Post
	err   error
}

func (f *fakeReviewer) PublishForReview(_ context.Context, post *store.Post) (store.ReviewRefs, error) {
	f.posts = append(f.posts, post)
	return store.ReviewRefs{}, f.err
}

func runNow(f func()) { f() }

func newPipeline(t *testing.T, reviewer *fakeReviewer) (*submission.Pipeline, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return submission.New(st, reviewer, submission.PolicyFrom(cfg), nil, submission.WithDispatch(runNow)), st
}

func countPosts(t *testing.T, st *store.Store) int {
	t.Helper()
	posts, err := st.ListPosts(context.Background(), "", 100)
	require.NoError(t, err)
	return len(posts)
}

func TestPolicyValidate(t *testing.T) {
	policy := submission.Policy{MinLength: 5, MaxLength: 100, Markers: []string{"🧑", "👩"}}
	tests := []struct {
		name string
		text string
		msg  string
		ok   bool
	}{
		{name: "empty", text: "   ", msg: "empty"},
		{name: "short", text: "🧑 hi", msg: "too short (min 5)"},
		{name: "long", text: "🧑 " + strings.Repeat("a", 100), msg: "too long (max 100)"},
		{name: "no marker", text: "plain text without marker", msg: "must contain 🧑 or 👩"},
		{name: "exact min", text: "👩 abc", ok: true},
		{name: "exact max", text: "🧑 " + strings.Repeat("a", 98), ok: true},
		{name: "cyrillic counted by runes", text: "🧑 " + strings.Repeat("я", 98), ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := policy.Validate(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestBlacklistedContentIsNeverStored(t *testing.T) {
	reviewer := &fakeReviewer{}
	p, st := newPipeline(t, reviewer)
	ctx := context.Background()
	require.NoError(t, st.AddKeyword(ctx, store.Keyword{Keyword: "spam", AddedBy: testsupport.AdminID}))

	res, err := p.Submit(ctx, 42, submission.Content{Text: "🧑 this is SPAM content"})
	require.NoError(t, err)
	assert.False(t, res.Accepted())
	assert.Equal(t, submission.BlacklistRejected, res.Rejection)
	assert.Equal(t, "spam", res.Keyword)
	assert.Equal(t, services.KindPolicy, res.Kind())
	assert.Zero(t, countPosts(t, st))
	assert.Empty(t, reviewer.posts)

	logs, err := st.RecentLogs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "blacklist_reject", logs[0].Action)
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(logs[0].Data), &data))
	assert.Equal(t, "spam", data["keyword"])
}

func TestBlacklistCheckedBeforeValidation(t *testing.T) {
	p, st := newPipeline(t, &fakeReviewer{})
	ctx := context.Background()
	require.NoError(t, st.AddKeyword(ctx, store.Keyword{Keyword: "ad"}))

	res, err := p.Submit(ctx, 42, submission.Content{Text: "ad"})
	require.NoError(t, err)
	assert.Equal(t, submission.BlacklistRejected, res.Rejection)
}

func TestMissingMarkerIsRejected(t *testing.T) {
	p, st := newPipeline(t, &fakeReviewer{})
	res, err := p.Submit(context.Background(), 42, submission.Content{Text: "plain text with no marker"})
	require.NoError(t, err)
	assert.Equal(t, submission.InvalidContent, res.Rejection)
	assert.Equal(t, "must contain 🧑 or 👩", res.Message)
	assert.Zero(t, countPosts(t, st))
}

func TestAcceptedSubmissionIsPendingAndReviewed(t *testing.T) {
	reviewer := &fakeReviewer{}
	p, st := newPipeline(t, reviewer)
	ctx := context.Background()

	res, err := p.Submit(ctx, 42, submission.Content{Text: "  🧑 looking for a friend  ", PhotoID: "photo-1"})
	require.NoError(t, err)
	require.True(t, res.Accepted())
	assert.Empty(t, res.Kind())

	stored, err := st.GetPost(ctx, res.Post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, store.StatusPending, stored.Status())
	assert.Equal(t, "🧑 looking for a friend", stored.Text)
	assert.Equal(t, "photo-1", stored.PhotoID)
	assert.Equal(t, int64(42), stored.AuthorID)

	require.Len(t, reviewer.posts, 1)
	assert.Equal(t, res.Post.ID, reviewer.posts[0].ID)

	logs, err := st.RecentLogs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "new_post", logs[0].Action)
}

func TestReviewFailureDoesNotFailSubmission(t *testing.T) {
	p, st := newPipeline(t, &fakeReviewer{err: errors.New("telegram down")})
	res, err := p.Submit(context.Background(), 42, submission.Content{Text: "👩 hello there"})
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, 1, countPosts(t, st))
}
