package access_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"moderbot/internal/access"
	"moderbot/internal/admin"
	"moderbot/internal/api"
	"moderbot/internal/httpapi"
	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/subscriptions"
	"moderbot/internal/testsupport"
)

func newLocal(t *testing.T, token string) (*api.Service, *store.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(token))
	st := testsupport.MustOpenStore(t, cfg)
	reg, err := subscriptions.NewRegistry(context.Background(), st, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc := admin.New(st, reg, testsupport.NewNotifier(), cfg, nil, admin.WithBroadcastLimiter(rate.NewLimiter(rate.Inf, 1)))
	return api.NewService(svc), st, cfg.Paths.APIToken
}

func startDaemonAPI(t *testing.T, token string) (*httptest.Server, *store.Store) {
	t.Helper()
	svc, st, _ := newLocal(t, token)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(token))
	srv := httpapi.New(cfg, svc, func(context.Context) api.DaemonStatus {
		return api.DaemonStatus{Running: true, PID: 99}
	}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func bindOf(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestDialRequiresReachableDaemon(t *testing.T) {
	ctx := context.Background()
	if _, err := access.Dial(ctx, "", ""); err == nil {
		t.Fatal("expected error for disabled api")
	}
	if _, err := access.Dial(ctx, "127.0.0.1:1", ""); err == nil {
		t.Fatal("expected error for unreachable daemon")
	}

	ts, _ := startDaemonAPI(t, "secret")
	if _, err := access.Dial(ctx, bindOf(ts), "wrong"); err == nil {
		t.Fatal("expected auth failure")
	}
	client, err := access.Dial(ctx, bindOf(ts), "secret")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil || !status.Running || status.PID != 99 {
		t.Fatalf("status = %+v (%v)", status, err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts, st := startDaemonAPI(t, "")
	client := access.NewClient(bindOf(ts), "")

	if _, err := st.CreateUser(ctx, store.User{ID: 42, Username: "u"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := st.CreatePost(ctx, store.NewPost{AuthorID: 42, Text: "hello 🧑", SubmittedAt: time.Now()}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	posts, err := client.Posts(ctx, "pending", 5)
	if err != nil || len(posts) != 1 {
		t.Fatalf("posts = %+v (%v)", posts, err)
	}
	post, err := client.Post(ctx, posts[0].ID)
	if err != nil || post == nil || post.Text != "hello 🧑" {
		t.Fatalf("post = %+v (%v)", post, err)
	}
	missing, err := client.Post(ctx, 404)
	if err != nil || missing != nil {
		t.Fatalf("missing post = %+v (%v)", missing, err)
	}

	if _, err := client.Ban(ctx, api.BanRequest{UserID: 42, AdminID: testsupport.AdminID}); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if err := client.Unban(ctx, 42, testsupport.AdminID); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if err := client.Unban(ctx, 42, 0); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := client.AddKeyword(ctx, api.KeywordRequest{Keyword: "spam ads"}); err != nil {
		t.Fatalf("add keyword: %v", err)
	}
	_, err = client.RemoveKeyword(ctx, "spam adz", 0)
	if got := access.Suggestion(err); got != "spam ads" {
		t.Fatalf("suggestion = %q (%v)", got, err)
	}
	if _, err := client.RemoveKeyword(ctx, "spam ads", 0); err != nil {
		t.Fatalf("remove keyword: %v", err)
	}

	logs, err := client.Logs(ctx, 3)
	if err != nil || len(logs) == 0 {
		t.Fatalf("logs = %+v (%v)", logs, err)
	}
	if logs[0].Action != "blacklist_remove" {
		t.Fatalf("latest log action = %q", logs[0].Action)
	}
}

func TestOpenWithFallback(t *testing.T) {
	svc, st, _ := newLocal(t, "")
	closed := false
	openLocal := func() (access.Local, error) {
		return access.Local{
			Access: access.NewStoreAccess(svc, st),
			Close:  func() error { closed = true; return nil },
		}, nil
	}

	session, err := access.OpenWithFallback(func() (*access.Client, error) {
		return nil, errors.New("connection refused")
	}, openLocal)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.Remote {
		t.Fatal("expected local session")
	}
	status, err := session.Access.Status(context.Background())
	if err != nil || status.Running || status.DatabasePath != st.Path() {
		t.Fatalf("status = %+v (%v)", status, err)
	}
	if err := session.Close(); err != nil || !closed {
		t.Fatalf("close: %v (closed=%v)", err, closed)
	}

	ts, _ := startDaemonAPI(t, "")
	session, err = access.OpenWithFallback(func() (*access.Client, error) {
		return access.Dial(context.Background(), bindOf(ts), "")
	}, openLocal)
	if err != nil || !session.Remote {
		t.Fatalf("expected remote session, got %+v (%v)", session, err)
	}

	if _, err := access.OpenWithFallback(nil, nil); err == nil {
		t.Fatal("expected error without any opener")
	}
}
