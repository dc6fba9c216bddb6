package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"moderbot/internal/admin"
	"moderbot/internal/api"
	"moderbot/internal/moderation"
	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/subscriptions"
	"moderbot/internal/testsupport"
)

func newService(t *testing.T) (*api.Service, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reg, err := subscriptions.NewRegistry(context.Background(), st, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc := admin.New(st, reg, testsupport.NewNotifier(), cfg, nil,
		admin.WithBroadcastLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
	return api.NewService(svc), st
}

func TestFromPost(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	mod := store.Actor{ID: 7, Username: "mod"}
	tests := []struct {
		name   string
		state  store.State
		status string
		reason string
		hasMod bool
	}{
		{name: "pending", state: store.Pending{}, status: "pending"},
		{name: "published", state: store.Published{Moderator: mod, At: at}, status: "published", hasMod: true},
		{name: "rejected", state: store.Rejected{Moderator: mod, At: at, Reason: "spam"}, status: "rejected", reason: "spam", hasMod: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dto := api.FromPost(&store.Post{ID: 3, AuthorID: 42, Text: "hi 🧑", SubmittedAt: at, State: tc.state})
			if dto.Status != tc.status {
				t.Fatalf("status = %q, want %q", dto.Status, tc.status)
			}
			if dto.RejectReason != tc.reason {
				t.Fatalf("reason = %q, want %q", dto.RejectReason, tc.reason)
			}
			if (dto.Moderator != nil) != tc.hasMod {
				t.Fatalf("moderator presence = %v, want %v", dto.Moderator != nil, tc.hasMod)
			}
			if tc.hasMod && dto.DecidedAt != "2026-03-01T10:30:00.000Z" {
				t.Fatalf("decidedAt = %q", dto.DecidedAt)
			}
			if dto.SubmittedAt != "2026-03-01T10:30:00.000Z" {
				t.Fatalf("submittedAt = %q", dto.SubmittedAt)
			}
		})
	}
}

func TestFromLogEntryWrapsInvalidJSON(t *testing.T) {
	valid := api.FromLogEntry(store.LogEntry{ID: 1, Action: "ban", Data: `{"user_id":42}`})
	if string(valid.Data) != `{"user_id":42}` {
		t.Fatalf("valid data = %s", valid.Data)
	}
	raw := api.FromLogEntry(store.LogEntry{ID: 2, Action: "legacy", Data: "not json"})
	var s string
	if err := json.Unmarshal(raw.Data, &s); err != nil || s != "not json" {
		t.Fatalf("wrapped data = %s (%v)", raw.Data, err)
	}
	empty := api.FromLogEntry(store.LogEntry{ID: 3, Action: "noop"})
	if empty.Data != nil {
		t.Fatalf("expected nil data, got %s", empty.Data)
	}
}

func TestFromPendingRejections(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	got := api.FromPendingRejections([]moderation.PendingRejection{{
		PostID:    9,
		Moderator: store.Actor{ID: 7},
		Deadline:  deadline,
	}})
	if len(got) != 1 || got[0].PostID != 9 || got[0].Moderator.ID != 7 {
		t.Fatalf("unexpected rejections: %+v", got)
	}
}

func TestServicePostsFiltersByStatus(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := st.CreatePost(ctx, store.NewPost{AuthorID: 42, Text: "post 🧑", SubmittedAt: time.Now()}); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}
	if _, err := st.SetPostStatus(ctx, 1, store.StatusPending, store.Published{Moderator: store.Actor{ID: 7}, At: time.Now()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	all, err := svc.Posts(ctx, "", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all posts = %d (%v)", len(all), err)
	}
	if all[0].ID != 3 {
		t.Fatalf("expected newest first, got id %d", all[0].ID)
	}
	pending, err := svc.Posts(ctx, "PENDING", 0)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending posts = %d (%v)", len(pending), err)
	}
	if _, err := svc.Posts(ctx, "archived", 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	post, err := svc.Post(ctx, 1)
	if err != nil || post == nil || post.Status != "published" {
		t.Fatalf("post 1 = %+v (%v)", post, err)
	}
	missing, err := svc.Post(ctx, 99)
	if err != nil || missing != nil {
		t.Fatalf("missing post = %+v (%v)", missing, err)
	}
}

func TestServiceBanLifecycle(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	if _, err := st.CreateUser(ctx, store.User{ID: 42, Username: "u"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	ban, err := svc.Ban(ctx, api.BanRequest{UserID: 42, AdminID: testsupport.AdminID})
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if ban.Reason != admin.DefaultBanReason || ban.Admin.Username != "operator" {
		t.Fatalf("unexpected ban: %+v", ban)
	}
	bans, err := svc.Bans(ctx)
	if err != nil || len(bans) != 1 {
		t.Fatalf("bans = %+v (%v)", bans, err)
	}
	if err := svc.Unban(ctx, 42, 0); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if err := svc.Unban(ctx, 42, 0); !errors.Is(err, admin.ErrNotBanned) {
		t.Fatalf("expected ErrNotBanned, got %v", err)
	}
}

func TestServiceKeywordsAndSubscriptions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	stored, err := svc.AddKeyword(ctx, api.KeywordRequest{Keyword: "SPAM"})
	if err != nil || stored != "spam" {
		t.Fatalf("add keyword = %q (%v)", stored, err)
	}
	_, err = svc.RemoveKeyword(ctx, "spma", 0)
	var notFound *admin.KeywordNotFoundError
	if !errors.As(err, &notFound) || notFound.Suggestion != "spam" {
		t.Fatalf("expected suggestion, got %v", err)
	}

	sub, err := svc.AddSubscription(ctx, api.SubscriptionRequest{Type: "channel", TargetID: -1001, Username: "news"})
	if err != nil {
		t.Fatalf("add subscription: %v", err)
	}
	if sub.Index != 1 {
		t.Fatalf("index = %d, want 1", sub.Index)
	}
	subs, err := svc.Subscriptions(ctx)
	if err != nil || len(subs) != 1 {
		t.Fatalf("subscriptions = %+v (%v)", subs, err)
	}
	if _, err := svc.RemoveSubscription(ctx, 2, 0); !admin.IsUserError(err) {
		t.Fatalf("expected user error, got %v", err)
	}
	removed, err := svc.RemoveSubscription(ctx, 1, 0)
	if err != nil || removed.Username != "news" {
		t.Fatalf("remove = %+v (%v)", removed, err)
	}
}

func TestServiceStats(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	if _, err := st.CreatePost(ctx, store.NewPost{AuthorID: 1, Text: "a 🧑", SubmittedAt: time.Now()}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PostsTotal != 1 || stats.Posts["pending"] != 1 || stats.Posts["rejected"] != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, ok := stats.Posts["published"]; !ok {
		t.Fatalf("expected every status key, got %v", stats.Posts)
	}
}
