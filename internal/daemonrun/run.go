package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"moderbot/internal/admin"
	"moderbot/internal/api"
	"moderbot/internal/bot"
	"moderbot/internal/config"
	"moderbot/internal/daemon"
	"moderbot/internal/gatekeeper"
	"moderbot/internal/logging"
	"moderbot/internal/moderation"
	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/submission"
	"moderbot/internal/subscriptions"
	"moderbot/internal/telegram"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Components is the wired application graph.
type Components struct {
	Notifier      notifier.Service
	Subscriptions *subscriptions.Registry
	Checker       *subscriptions.Checker
	Gate          *gatekeeper.Gatekeeper
	Moderation    *moderation.Core
	Submissions   *submission.Pipeline
	Admin         *admin.Service
	Bot           *bot.Bot
}

// Build wires every moderation component over st and client.
func Build(ctx context.Context, cfg *config.Config, st *store.Store, client *telegram.Client, logger *slog.Logger) (*Components, error) {
	if cfg == nil || st == nil || client == nil {
		return nil, errors.New("build requires config, store, and bot api client")
	}
	registry, err := subscriptions.NewRegistry(ctx, st, cfg.Subscriptions, logger)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	n := notifier.New(cfg, client, logger)
	checker := subscriptions.NewChecker(registry, client, st, logger)
	gate := gatekeeper.New(st, checker, cfg, logger)
	core := moderation.New(st, n, moderation.ConfigFrom(cfg), logger)
	pipeline := submission.New(st, core, submission.PolicyFrom(cfg), logger)
	adminSvc := admin.New(st, registry, n, cfg, logger)

	b := bot.New(cfg, bot.Deps{
		Store:         st,
		Gate:          gate,
		Submissions:   pipeline,
		Moderation:    core,
		Subscriptions: checker,
		Admin:         adminSvc,
		Notifier:      n,
		Callbacks:     client,
	}, logger)

	return &Components{
		Notifier:      n,
		Subscriptions: registry,
		Checker:       checker,
		Gate:          gate,
		Moderation:    core,
		Submissions:   pipeline,
		Admin:         adminSvc,
		Bot:           b,
	}, nil
}

// Run starts the moderbot daemon and blocks until a signal arrives or the
// bot loop exits.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	st, err := store.Open(cfg.Paths.Database)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	client, err := telegram.NewFromConfig(cfg, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("bot api client: %w", err)
	}
	components, err := Build(signalCtx, cfg, st, client, logger)
	if err != nil {
		_ = st.Close()
		return err
	}

	d, err := daemon.New(cfg, st, logger, daemon.Deps{
		Updates:    client,
		Handler:    components.Bot,
		Moderation: components.Moderation,
		BotAPI:     client,
		Admin:      api.NewService(components.Admin),
	})
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no updates will be processed"),
		)
		return err
	}

	// The pid file is written only once the lock is held so a refused second
	// instance never clobbers the running daemon's entry.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	select {
	case <-signalCtx.Done():
	case <-d.Done():
	}
	logger.Info("moderbot daemon shutting down")
	return nil
}

// OpenLocal opens the store and an in-process admin service for CLI use
// when the daemon is not reachable. Ban notices and broadcasts still reach
// users through the Bot API when a token is configured.
func OpenLocal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*api.Service, *store.Store, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Paths.Database)
	if err != nil {
		return nil, nil, err
	}
	registry, err := subscriptions.NewRegistry(ctx, st, cfg.Subscriptions, logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("load subscriptions: %w", err)
	}
	var n notifier.Service = notifier.Noop{}
	if strings.TrimSpace(cfg.Telegram.BotToken) != "" {
		client, err := telegram.NewFromConfig(cfg, logger)
		if err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("bot api client: %w", err)
		}
		n = notifier.New(cfg, client, logger)
	}
	return api.NewService(admin.New(st, registry, n, cfg, logger)), st, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("bot_token_present", strings.TrimSpace(cfg.Telegram.BotToken) != ""),
		logging.Bool("proxy_configured", strings.TrimSpace(cfg.Telegram.ProxyURL) != ""),
		logging.Int64("main_channel_id", cfg.Chats.MainChannelID),
		logging.Int64("moderators_chat_id", cfg.Chats.ModeratorsChatID),
		logging.Int64("admins_chat_id", cfg.Chats.AdminsChatID),
		logging.Int("admins", len(cfg.Access.Admins)),
		logging.Int("seed_subscriptions", len(cfg.Subscriptions)),
		logging.Int("daily_posts", cfg.Limits.DailyPosts),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
	)
}
