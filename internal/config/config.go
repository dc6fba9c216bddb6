package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Telegram contains Bot API connection settings.
type Telegram struct {
	BotToken          string  `toml:"bot_token"`
	APIBaseURL        string  `toml:"api_base_url"`
	RequestTimeout    int     `toml:"request_timeout"`
	PollTimeout       int     `toml:"poll_timeout"`
	ProxyURL          string  `toml:"proxy_url"`
	MessagesPerSecond float64 `toml:"messages_per_second"`
	PerChatIntervalMS int     `toml:"per_chat_interval_ms"`
}

// Chats contains the chat and topic identifiers the bot routes messages to.
// A zero topic id means the chat has no forum topics.
type Chats struct {
	MainChannelID     int64 `toml:"main_channel_id"`
	CommentsChatID    int64 `toml:"comments_chat_id"`
	ModeratorsChatID  int64 `toml:"moderators_chat_id"`
	ModeratorsTopicID int64 `toml:"moderators_topic_id"`
	AdminsChatID      int64 `toml:"admins_chat_id"`
	AdminsTopicID     int64 `toml:"admins_topic_id"`
}

// Access lists the user ids allowed to run administrative commands.
type Access struct {
	Admins []int64 `toml:"admins"`
}

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	Database string `toml:"database"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Limits contains submission and moderation thresholds.
type Limits struct {
	DailyPosts          int      `toml:"daily_posts"`
	MinPostLength       int      `toml:"min_post_length"`
	MaxPostLength       int      `toml:"max_post_length"`
	RequiredMarkers     []string `toml:"required_markers"`
	MinKeywordLength    int      `toml:"min_keyword_length"`
	RejectReasonTimeout int      `toml:"reject_reason_timeout"`
	RejectReasonGrace   int      `toml:"reject_reason_grace"`
	BroadcastPerSecond  float64  `toml:"broadcast_per_second"`
}

// Subscription seeds one required subscription into an empty store.
type Subscription struct {
	Type     string `toml:"type"`
	ID       int64  `toml:"id"`
	Username string `toml:"username"`
	Name     string `toml:"name"`
	URL      string `toml:"url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for moderbot.
//
// Configuration sections by subsystem:
//   - Telegram: Bot API token, endpoint, timeouts, proxy, and send rates
//   - Chats: channel, moderators, and admins chat/topic routing
//   - Access: administrator user ids
//   - Paths: data directory, database file, logs, and HTTP API bind
//   - Limits: submission policy and reject-reason timing
//   - Subscriptions: required subscriptions seeded on first start
//   - Logging: log format and level
type Config struct {
	Telegram      Telegram       `toml:"telegram"`
	Chats         Chats          `toml:"chats"`
	Access        Access         `toml:"access"`
	Paths         Paths          `toml:"paths"`
	Limits        Limits         `toml:"limits"`
	Subscriptions []Subscription `toml:"subscriptions"`
	Logging       Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/moderbot/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("moderbot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.Database)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IsAdmin reports whether userID is in the configured admin set.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Access.Admins, userID)
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "moderbotd.lock")
}

// PIDPath records the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "moderbotd.pid")
}

// RequestTimeout returns the Bot API request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Telegram.RequestTimeout) * time.Second
}

// PollTimeout returns the long-poll timeout passed to getUpdates.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Telegram.PollTimeout) * time.Second
}

// RejectReasonTimeout is how long a moderator has to supply a rejection reason.
func (c *Config) RejectReasonTimeout() time.Duration {
	return time.Duration(c.Limits.RejectReasonTimeout) * time.Second
}

// RejectReasonGrace extends the reason deadline to absorb delivery latency.
func (c *Config) RejectReasonGrace() time.Duration {
	return time.Duration(c.Limits.RejectReasonGrace) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
