package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"moderbot/internal/api"
	"moderbot/internal/store"
	"moderbot/internal/testsupport"
)

func TestKeywordCommandsOffline(t *testing.T) {
	env := setupOfflineEnv(t)

	out, _, err := runCLI(t, env, "keywords", "add", "Casino")
	if err != nil {
		t.Fatalf("keywords add: %v", err)
	}
	if !strings.Contains(out, `"casino"`) {
		t.Fatalf("expected normalized keyword in output, got %q", out)
	}

	out, _, err = runCLI(t, env, "keywords", "list")
	if err != nil {
		t.Fatalf("keywords list: %v", err)
	}
	if !strings.Contains(out, "casino") || !strings.Contains(out, "1000") {
		t.Fatalf("expected keyword row attributed to the first admin, got %q", out)
	}

	_, _, err = runCLI(t, env, "keywords", "remove", "casnio")
	if err == nil || !strings.Contains(err.Error(), `did you mean "casino"`) {
		t.Fatalf("expected suggestion error, got %v", err)
	}

	if _, _, err := runCLI(t, env, "keywords", "remove", "casino"); err != nil {
		t.Fatalf("keywords remove: %v", err)
	}
	out, _, err = runCLI(t, env, "keywords", "list")
	if err != nil {
		t.Fatalf("keywords list: %v", err)
	}
	if !strings.Contains(out, "Blacklist is empty") {
		t.Fatalf("expected empty blacklist, got %q", out)
	}
}

func TestPostsCommandsOffline(t *testing.T) {
	env := setupOfflineEnv(t)
	post := testsupport.NewPendingPost(t, env.store, 77, "Selling a bike #sale")

	out, _, err := runCLI(t, env, "posts", "list", "--status", "pending")
	if err != nil {
		t.Fatalf("posts list: %v", err)
	}
	if !strings.Contains(out, "Selling a bike") || !strings.Contains(out, "pending") {
		t.Fatalf("expected pending post row, got %q", out)
	}

	out, _, err = runCLI(t, env, "--json", "posts", "show", strconv.FormatInt(post.ID, 10))
	if err != nil {
		t.Fatalf("posts show: %v", err)
	}
	var got api.Post
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode json %q: %v", out, err)
	}
	if got.ID != post.ID || got.AuthorID != 77 || got.Status != "pending" {
		t.Fatalf("unexpected post: %+v", got)
	}

	if _, _, err := runCLI(t, env, "posts", "show", "99"); err == nil {
		t.Fatal("expected error for missing post")
	}
	if _, _, err := runCLI(t, env, "posts", "list", "--status", "archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, _, err := runCLI(t, env, "posts", "show", "abc"); err == nil {
		t.Fatal("expected error for invalid id")
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupOfflineEnv(t)
	testsupport.NewPendingPost(t, env.store, 5, "One #sale")

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"System Status", "not running", "Pending posts", "[WARN] 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in status output:\n%s", want, out)
		}
	}
}

func TestBanThroughDaemon(t *testing.T) {
	env := setupDaemonEnv(t)
	if _, err := env.store.CreateUser(context.Background(), store.User{ID: 42, Username: "u"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	out, _, err := runCLI(t, env, "--admin", "2000", "ban", "42", "spam", "links")
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !strings.Contains(out, "Banned 42: spam links") {
		t.Fatalf("unexpected ban output %q", out)
	}
	if calls := env.notifier.Calls(testsupport.NotifyUser); len(calls) != 1 {
		t.Fatalf("expected the daemon to notify the banned user once, got %d", len(calls))
	}

	out, _, err = runCLI(t, env, "--json", "bans")
	if err != nil {
		t.Fatalf("bans: %v", err)
	}
	var bans []api.Ban
	if err := json.Unmarshal([]byte(out), &bans); err != nil {
		t.Fatalf("decode bans %q: %v", out, err)
	}
	if len(bans) != 1 || bans[0].UserID != 42 || bans[0].Admin.ID != 2000 {
		t.Fatalf("unexpected bans: %+v", bans)
	}

	if _, _, err := runCLI(t, env, "unban", "42"); err != nil {
		t.Fatalf("unban: %v", err)
	}
	ban, err := env.store.GetBan(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetBan: %v", err)
	}
	if ban != nil {
		t.Fatal("expected user to be unbanned")
	}
}

func TestSubscriptionsAndStatsThroughDaemon(t *testing.T) {
	env := setupDaemonEnv(t)

	out, _, err := runCLI(t, env, "subs", "add", "--type", "bot", "--username", "helper", "--name", "Helper")
	if err != nil {
		t.Fatalf("subs add: %v", err)
	}
	if !strings.Contains(out, "Added subscription 1") {
		t.Fatalf("unexpected subs add output %q", out)
	}

	out, _, err = runCLI(t, env, "subs", "list")
	if err != nil {
		t.Fatalf("subs list: %v", err)
	}
	if !strings.Contains(out, "@helper") {
		t.Fatalf("expected bot row, got %q", out)
	}

	if _, _, err := runCLI(t, env, "subs", "remove", "3"); err == nil {
		t.Fatal("expected error removing a missing index")
	}
	if _, _, err := runCLI(t, env, "subs", "remove", "1"); err != nil {
		t.Fatalf("subs remove: %v", err)
	}

	out, _, err = runCLI(t, env, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Required subscriptions") || !strings.Contains(out, "Server time") {
		t.Fatalf("unexpected stats output %q", out)
	}

	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "running (pid 4242)") {
		t.Fatalf("expected daemon status from the API, got %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "moderbot", "config.toml")

	out, _, err := runCLI(t, nil, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "bot_token") {
		t.Fatalf("expected token hint, got %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, _, err := runCLI(t, nil, "config", "init", "--path", path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	env := setupOfflineEnv(t)
	out, _, err = runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected validate output %q", out)
	}
}
