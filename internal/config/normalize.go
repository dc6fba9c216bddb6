package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	if err := c.normalizeChats(); err != nil {
		return err
	}
	if err := c.normalizeAccess(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLimits()
	c.normalizeSubscriptions()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeTelegram() error {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultAPIBaseURL
	}
	c.Telegram.ProxyURL = strings.TrimSpace(c.Telegram.ProxyURL)
	if c.Telegram.ProxyURL == "" {
		if value, ok := os.LookupEnv("TELEGRAM_PROXY"); ok {
			c.Telegram.ProxyURL = strings.TrimSpace(value)
		}
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultRequestTimeout
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if c.Telegram.MessagesPerSecond <= 0 {
		c.Telegram.MessagesPerSecond = defaultMessagesPerSecond
	}
	if c.Telegram.PerChatIntervalMS < 0 {
		c.Telegram.PerChatIntervalMS = 0
	}
	return nil
}

func (c *Config) normalizeChats() error {
	targets := []struct {
		env   string
		key   string
		value *int64
	}{
		{"MAIN_CHANNEL_ID", "chats.main_channel_id", &c.Chats.MainChannelID},
		{"COMMENTS_CHAT_ID", "chats.comments_chat_id", &c.Chats.CommentsChatID},
		{"MODERATORS_CHAT_ID", "chats.moderators_chat_id", &c.Chats.ModeratorsChatID},
		{"MODERATORS_TOPIC_ID", "chats.moderators_topic_id", &c.Chats.ModeratorsTopicID},
		{"ADMINS_CHAT_ID", "chats.admins_chat_id", &c.Chats.AdminsChatID},
		{"ADMINS_TOPIC_ID", "chats.admins_topic_id", &c.Chats.AdminsTopicID},
	}
	for _, target := range targets {
		if *target.value != 0 {
			continue
		}
		raw, ok := os.LookupEnv(target.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: parse %s: %w", target.key, target.env, err)
		}
		*target.value = parsed
	}
	return nil
}

func (c *Config) normalizeAccess() error {
	if len(c.Access.Admins) == 0 {
		if raw, ok := os.LookupEnv("ADMINS"); ok {
			admins, err := parseIDList(raw)
			if err != nil {
				return fmt.Errorf("access.admins: parse ADMINS: %w", err)
			}
			c.Access.Admins = admins
		}
	}
	seen := make(map[int64]struct{}, len(c.Access.Admins))
	admins := c.Access.Admins[:0]
	for _, id := range c.Access.Admins {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		admins = append(admins, id)
	}
	c.Access.Admins = admins
	return nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		if value, ok := os.LookupEnv("DB_NAME"); ok && strings.TrimSpace(value) != "" {
			c.Paths.Database = strings.TrimSpace(value)
		} else {
			c.Paths.Database = defaultDatabaseName
		}
	}
	if !filepath.IsAbs(c.Paths.Database) && !strings.HasPrefix(c.Paths.Database, "~") {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, c.Paths.Database)
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MODERBOT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeLimits() {
	markers := make([]string, 0, len(c.Limits.RequiredMarkers))
	for _, marker := range c.Limits.RequiredMarkers {
		if marker = strings.TrimSpace(marker); marker != "" {
			markers = append(markers, marker)
		}
	}
	c.Limits.RequiredMarkers = markers
	if c.Limits.RejectReasonGrace < 0 {
		c.Limits.RejectReasonGrace = 0
	}
	if c.Limits.BroadcastPerSecond <= 0 {
		c.Limits.BroadcastPerSecond = defaultBroadcastPerSecond
	}
}

func (c *Config) normalizeSubscriptions() {
	for i := range c.Subscriptions {
		sub := &c.Subscriptions[i]
		sub.Type = strings.ToLower(strings.TrimSpace(sub.Type))
		sub.Username = strings.TrimPrefix(strings.TrimSpace(sub.Username), "@")
		sub.Name = strings.TrimSpace(sub.Name)
		sub.URL = strings.TrimSpace(sub.URL)
		if sub.URL == "" && sub.Username != "" {
			sub.URL = "https://t.me/" + sub.Username
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json", "auto":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
