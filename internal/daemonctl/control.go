// Package daemonctl starts, stops, and inspects a detached moderbot daemon
// from the CLI.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"moderbot/internal/access"
	"moderbot/internal/api"
	"moderbot/internal/config"
	"moderbot/internal/preflight"
	"moderbot/internal/store"
)

// ErrDaemonNotRunning indicates no daemon process could be found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached "moderbot run" process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForRunning polls the pid file until a live daemon process appears.
func WaitForRunning(cfg *config.Config, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pid, alive := ProcessInfo(cfg); alive {
			return pid, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return 0, fmt.Errorf("daemon failed to start within %s (see %s)", timeout, cfg.Paths.LogDir)
}

// EnsureStarted launches the daemon unless one is already running.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if pid, alive := ProcessInfo(cfg); alive {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	pid, err := WaitForRunning(cfg, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: pid}, nil
}

// ProcessInfo reads the pid file and reports whether that process is alive.
func ProcessInfo(cfg *config.Config) (int, bool) {
	pid, err := readPID(cfg.PIDPath())
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, processAlive(pid)
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// StopAndTerminate sends SIGTERM and force-kills the process if still alive
// after gracePeriod. The daemon restores moderator views on SIGTERM, so the
// grace period should cover the Bot API round trips that takes.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pid, alive := ProcessInfo(cfg)
	if !alive {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return StopResult{PID: pid}, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err := proc.Kill(); err != nil {
		return StopResult{PID: pid}, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return StopResult{PID: pid}, fmt.Errorf("remove pid file: %w", err)
	}
	return StopResult{PID: pid, ForcedKill: true}, nil
}

// Snapshot is what "moderbot status" renders.
type Snapshot struct {
	Daemon api.DaemonStatus
	// Reachable reports whether the daemon HTTP API answered.
	Reachable bool
	Checks    []preflight.Result
}

// BuildStatusSnapshot collects daemon status over HTTP and falls back to
// reading the database directly when the daemon is not reachable.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		return Snapshot{}, errors.New("configuration not available")
	}
	snap := Snapshot{}

	if client, err := access.Dial(ctx, cfg.Paths.APIBind, cfg.Paths.APIToken); err == nil {
		if status, statusErr := client.Status(ctx); statusErr == nil {
			snap.Daemon = status
			snap.Reachable = true
		}
	}

	if !snap.Reachable {
		pid, alive := ProcessInfo(cfg)
		snap.Daemon = api.DaemonStatus{
			Running:      alive,
			PID:          pid,
			DatabasePath: cfg.Paths.Database,
			LockFilePath: cfg.LockPath(),
		}
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if st, err := store.Open(cfg.Paths.Database); err == nil {
			stats, statsErr := st.Stats(queryCtx, time.Now().UTC())
			_ = st.Close()
			if statsErr == nil {
				snap.Daemon.PendingPosts = stats.Posts[store.StatusPending]
			}
		}
	}

	snap.Checks = []preflight.Result{preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}
	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.DataDir {
		snap.Checks = append(snap.Checks, preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return snap, nil
}
