package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"moderbot/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("MAIN_CHANNEL_ID", "-1001")
	t.Setenv("MODERATORS_CHAT_ID", "-1002")
	t.Setenv("MODERATORS_TOPIC_ID", "7")
	t.Setenv("ADMINS_CHAT_ID", "-1003")
	t.Setenv("ADMINS", "11, 22,11")
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	setRequiredEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DB_NAME", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "moderbot")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.Database != filepath.Join(wantData, "moderbot.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.Database)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Fatalf("expected token from env, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Chats.ModeratorsChatID != -1002 || cfg.Chats.ModeratorsTopicID != 7 {
		t.Fatalf("unexpected moderators routing: %+v", cfg.Chats)
	}
	if len(cfg.Access.Admins) != 2 || !cfg.IsAdmin(11) || !cfg.IsAdmin(22) || cfg.IsAdmin(33) {
		t.Fatalf("unexpected admins: %v", cfg.Access.Admins)
	}
	if cfg.Limits.DailyPosts != 5 || cfg.Limits.MinPostLength != 5 || cfg.Limits.MaxPostLength != 100 {
		t.Fatalf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.RejectReasonTimeout() != time.Minute {
		t.Fatalf("unexpected reject timeout: %s", cfg.RejectReasonTimeout())
	}
	if cfg.RejectReasonGrace() != 10*time.Second {
		t.Fatalf("unexpected reject grace: %s", cfg.RejectReasonGrace())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMINS", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "moderbot.toml")

	type payload struct {
		Telegram struct {
			BotToken string `toml:"bot_token"`
		} `toml:"telegram"`
		Chats struct {
			MainChannelID    int64 `toml:"main_channel_id"`
			ModeratorsChatID int64 `toml:"moderators_chat_id"`
			AdminsChatID     int64 `toml:"admins_chat_id"`
		} `toml:"chats"`
		Access struct {
			Admins []int64 `toml:"admins"`
		} `toml:"access"`
		Paths struct {
			DataDir  string `toml:"data_dir"`
			Database string `toml:"database"`
		} `toml:"paths"`
		Limits struct {
			DailyPosts int `toml:"daily_posts"`
		} `toml:"limits"`
		Subscriptions []config.Subscription `toml:"subscriptions"`
	}
	custom := payload{}
	custom.Telegram.BotToken = "file-token"
	custom.Chats.MainChannelID = -1
	custom.Chats.ModeratorsChatID = -2
	custom.Chats.AdminsChatID = -3
	custom.Access.Admins = []int64{5}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Paths.Database = "bot.db"
	custom.Limits.DailyPosts = 3
	custom.Subscriptions = []config.Subscription{{Type: "Channel", ID: -100, Username: "@news"}}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Telegram.BotToken != "file-token" {
		t.Fatalf("unexpected token: %q", cfg.Telegram.BotToken)
	}
	if cfg.Paths.Database != filepath.Join(tempDir, "data", "bot.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.Database)
	}
	if cfg.Limits.DailyPosts != 3 {
		t.Fatalf("unexpected daily posts: %d", cfg.Limits.DailyPosts)
	}
	if len(cfg.Limits.RequiredMarkers) != 2 {
		t.Fatalf("expected default markers retained, got %v", cfg.Limits.RequiredMarkers)
	}
	if len(cfg.Subscriptions) != 1 {
		t.Fatalf("unexpected subscriptions: %+v", cfg.Subscriptions)
	}
	sub := cfg.Subscriptions[0]
	if sub.Type != "channel" || sub.Username != "news" || sub.URL != "https://t.me/news" {
		t.Fatalf("subscription not normalized: %+v", sub)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing token", func(c *config.Config) { c.Telegram.BotToken = "" }, "telegram.bot_token"},
		{"missing channel", func(c *config.Config) { c.Chats.MainChannelID = 0 }, "chats.main_channel_id"},
		{"bad proxy", func(c *config.Config) { c.Telegram.ProxyURL = "ftp://proxy" }, "telegram.proxy_url"},
		{"length bounds", func(c *config.Config) { c.Limits.MaxPostLength = 2 }, "limits.max_post_length"},
		{"no markers", func(c *config.Config) { c.Limits.RequiredMarkers = nil }, "limits.required_markers"},
		{"zero daily", func(c *config.Config) { c.Limits.DailyPosts = 0 }, "limits.daily_posts"},
		{"bad subscription", func(c *config.Config) {
			c.Subscriptions = []config.Subscription{{Type: "group"}}
		}, "unsupported type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Telegram.BotToken = "t"
			cfg.Chats.MainChannelID = -1
			cfg.Chats.ModeratorsChatID = -2
			cfg.Chats.AdminsChatID = -3
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestLoadRejectsMalformedEnvID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MAIN_CHANNEL_ID", "not-a-number")
	if _, _, _, err := config.Load(""); err == nil || !strings.Contains(err.Error(), "MAIN_CHANNEL_ID") {
		t.Fatalf("expected MAIN_CHANNEL_ID parse error, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7590" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
}
