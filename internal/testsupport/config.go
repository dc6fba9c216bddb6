package testsupport

import (
	"path/filepath"
	"testing"

	"moderbot/internal/config"
)

// Chat identifiers used by NewConfig.
const (
	MainChannelID     int64 = -100100
	ModeratorsChatID  int64 = -100200
	ModeratorsTopicID int64 = 5
	AdminsChatID      int64 = -100300
	AdminsTopicID     int64 = 9
	AdminID           int64 = 1000
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Telegram.BotToken = "123:test"
	cfgVal.Chats = config.Chats{
		MainChannelID:     MainChannelID,
		ModeratorsChatID:  ModeratorsChatID,
		ModeratorsTopicID: ModeratorsTopicID,
		AdminsChatID:      AdminsChatID,
		AdminsTopicID:     AdminsTopicID,
	}
	cfgVal.Access.Admins = []int64{AdminID}
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.Database = filepath.Join(base, "data", "moderbot.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIBase points the Bot API client at a test server.
func WithAPIBase(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.APIBaseURL = url
	}
}

// WithAPIToken enables bearer auth on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithAdmins replaces the admin set.
func WithAdmins(ids ...int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Access.Admins = ids
	}
}

// WithSubscriptions seeds required subscriptions.
func WithSubscriptions(subs ...config.Subscription) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Subscriptions = subs
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
