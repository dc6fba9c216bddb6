package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"moderbot/internal/api"
	"moderbot/internal/bot"
	"moderbot/internal/config"
	"moderbot/internal/httpapi"
	"moderbot/internal/logging"
	"moderbot/internal/moderation"
	"moderbot/internal/preflight"
	"moderbot/internal/store"
)

// shutdownTimeout bounds how long Stop spends restoring moderator views.
const shutdownTimeout = 10 * time.Second

// Moderation is the part of the moderation core the daemon manages.
type Moderation interface {
	Outstanding() []moderation.PendingRejection
	Shutdown(ctx context.Context) int
}

// Deps are the collaborators the daemon runs.
type Deps struct {
	Updates    bot.UpdateSource
	Handler    bot.Handler
	Moderation Moderation
	// BotAPI is used by preflight. Nil skips the Bot API checks.
	BotAPI preflight.BotAPI
	// Admin backs the HTTP API. Nil disables it.
	Admin *api.Service
}

// Daemon coordinates the bot loop and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	deps   Deps

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	api     *httpapi.Server
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	PendingPosts int
	Rejections   []moderation.PendingRejection
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || st == nil || deps.Updates == nil || deps.Handler == nil || deps.Moderation == nil {
		return nil, errors.New("daemon requires config, store, update source, handler, and moderation core")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		deps:     deps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, runs preflight, and launches the bot loop
// and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another moderbot daemon instance is already running")
	}

	if err := d.preflight(ctx); err != nil {
		d.unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	server := httpapi.New(d.cfg, d.deps.Admin, d.APIStatus, d.logger)
	if err := server.Start(runCtx); err != nil {
		cancel()
		d.unlock()
		return fmt.Errorf("start api: %w", err)
	}

	poller := bot.NewPoller(d.deps.Updates, d.deps.Handler, d.cfg.PollTimeout(), d.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := poller.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "bot loop stopped", "poller_failed", logging.Error(err))
		}
	}()

	d.cancel = cancel
	d.done = done
	d.api = server
	d.running.Store(true)
	d.logger.Info("moderbot daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
		logging.String("api", server.Addr()),
	)
	return nil
}

func (d *Daemon) preflight(ctx context.Context) error {
	results := []preflight.Result{preflight.CheckDirectoryAccess("Data directory", d.cfg.Paths.DataDir)}
	if d.deps.BotAPI != nil {
		results = preflight.RunAll(ctx, d.cfg, d.deps.BotAPI, d.store)
	}
	for _, r := range results {
		d.logger.Info("preflight check",
			logging.String("check", r.Name),
			logging.Bool("passed", r.Passed),
			logging.String("detail", r.Detail),
		)
	}
	return preflight.Failed(results)
}

// Done is closed when the bot loop exits. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Stop cancels the bot loop, cancels outstanding reject-reason watchdogs,
// stops the HTTP API, and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	restored := d.deps.Moderation.Shutdown(shutdownCtx)
	cancel()
	if restored > 0 {
		d.logger.Info("pending rejections cancelled", logging.Int("count", restored))
	}

	d.api.Stop()
	d.api = nil
	d.unlock()
	d.running.Store(false)
	d.logger.Info("moderbot daemon stopped")
}

func (d *Daemon) unlock() {
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report a running instance"),
		)
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Rejections:   d.deps.Moderation.Outstanding(),
	}
	stats, err := d.store.Stats(ctx, time.Now().UTC())
	if err != nil {
		d.logger.Warn("status stats unavailable", logging.Error(err))
		return status
	}
	status.PendingPosts = stats.Posts[store.StatusPending]
	return status
}

// APIStatus renders Status for the HTTP API.
func (d *Daemon) APIStatus(ctx context.Context) api.DaemonStatus {
	status := d.Status(ctx)
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		PendingPosts: status.PendingPosts,
		Rejections:   api.FromPendingRejections(status.Rejections),
	}
}
