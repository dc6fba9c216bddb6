package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateChats(); err != nil {
		return err
	}
	if err := c.validateAccess(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateSubscriptions(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/moderbot/config.toml"
		}
		return fmt.Errorf("telegram.bot_token is required. Set BOT_TOKEN env var or edit %s (create with 'moderbot config init')", defaultPath)
	}
	if _, err := url.ParseRequestURI(c.Telegram.APIBaseURL); err != nil {
		return fmt.Errorf("telegram.api_base_url: %w", err)
	}
	if c.Telegram.ProxyURL != "" {
		parsed, err := url.Parse(c.Telegram.ProxyURL)
		if err != nil {
			return fmt.Errorf("telegram.proxy_url: %w", err)
		}
		switch parsed.Scheme {
		case "socks5", "http", "https":
		default:
			return fmt.Errorf("telegram.proxy_url: unsupported scheme %q", parsed.Scheme)
		}
	}
	return nil
}

func (c *Config) validateChats() error {
	if c.Chats.MainChannelID == 0 {
		return errors.New("chats.main_channel_id must be set")
	}
	if c.Chats.ModeratorsChatID == 0 {
		return errors.New("chats.moderators_chat_id must be set")
	}
	if c.Chats.AdminsChatID == 0 {
		return errors.New("chats.admins_chat_id must be set")
	}
	return nil
}

func (c *Config) validateAccess() error {
	for _, id := range c.Access.Admins {
		if id <= 0 {
			return fmt.Errorf("access.admins: invalid user id %d", id)
		}
	}
	return nil
}

func (c *Config) validateLimits() error {
	if err := ensurePositiveMap(map[string]int{
		"limits.daily_posts":           c.Limits.DailyPosts,
		"limits.min_post_length":       c.Limits.MinPostLength,
		"limits.max_post_length":       c.Limits.MaxPostLength,
		"limits.min_keyword_length":    c.Limits.MinKeywordLength,
		"limits.reject_reason_timeout": c.Limits.RejectReasonTimeout,
	}); err != nil {
		return err
	}
	if c.Limits.MaxPostLength < c.Limits.MinPostLength {
		return errors.New("limits.max_post_length must be at least limits.min_post_length")
	}
	if len(c.Limits.RequiredMarkers) == 0 {
		return errors.New("limits.required_markers must list at least one marker")
	}
	return nil
}

func (c *Config) validateSubscriptions() error {
	for i, sub := range c.Subscriptions {
		switch sub.Type {
		case "channel":
			if sub.ID == 0 {
				return fmt.Errorf("subscriptions[%d]: channel id must be set", i)
			}
		case "bot":
			if sub.Username == "" {
				return fmt.Errorf("subscriptions[%d]: bot username must be set", i)
			}
		default:
			return fmt.Errorf("subscriptions[%d]: unsupported type %q", i, sub.Type)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
