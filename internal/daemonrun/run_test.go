package daemonrun_test

import (
	"context"
	"os"
	"testing"

	"moderbot/internal/config"
	"moderbot/internal/daemonrun"
	"moderbot/internal/telegram"
	"moderbot/internal/testsupport"
)

func TestBuildWiresComponents(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSubscriptions(config.Subscription{
		Type: "channel", ID: -100500, Username: "news", Name: "News",
	}))
	st := testsupport.MustOpenStore(t, cfg)
	client, err := telegram.NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	components, err := daemonrun.Build(context.Background(), cfg, st, client, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if components.Bot == nil || components.Moderation == nil || components.Admin == nil {
		t.Fatalf("incomplete components: %+v", components)
	}
	if got := len(components.Subscriptions.List()); got != 1 {
		t.Fatalf("seeded subscriptions = %d, want 1", got)
	}
	if got := components.Gate.DailyLimit(); got != cfg.Limits.DailyPosts {
		t.Fatalf("daily limit = %d, want %d", got, cfg.Limits.DailyPosts)
	}
}

func TestBuildRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonrun.Build(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing store and client")
	}
}

func TestOpenLocalWithoutToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Telegram.BotToken = ""
	svc, st, err := daemonrun.OpenLocal(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer st.Close()

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PostsTotal != 0 {
		t.Fatalf("expected empty database, got %+v", stats)
	}
	if _, err := os.Stat(cfg.Paths.Database); err != nil {
		t.Fatalf("database not created: %v", err)
	}
}
