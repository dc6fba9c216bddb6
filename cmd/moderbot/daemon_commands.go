package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"moderbot/internal/daemonctl"
	"moderbot/internal/daemonrun"
)

const (
	startTimeout = 10 * time.Second
	// stopGrace covers restoring moderator views for open rejections.
	stopGrace = 15 * time.Second
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot as a background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.configValue(), exe, daemonLaunchOptions(ctx, startLogLevel), startTimeout)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stopDaemon(cmd, ctx)
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := stopDaemon(cmd, ctx); err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.configValue(), exe, daemonLaunchOptions(ctx, restartLogLevel), startTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon restarted (pid %d)\n", result.PID)
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override logging.level for the daemon")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and moderation queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, snap.Daemon)
			}
			renderStatus(cmd, snap)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func stopDaemon(cmd *cobra.Command, ctx *commandContext) error {
	stdout := cmd.OutOrStdout()
	result, err := daemonctl.StopAndTerminate(ctx.configValue(), stopGrace)
	if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		fmt.Fprintln(stdout, "Daemon is not running")
		return nil
	}
	if err != nil {
		return err
	}
	if result.ForcedKill {
		fmt.Fprintf(stdout, "Daemon did not exit within %s; killed pid %d\n", stopGrace, result.PID)
		return nil
	}
	fmt.Fprintln(stdout, "Daemon stopped")
	return nil
}

func renderStatus(cmd *cobra.Command, snap daemonctl.Snapshot) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	daemonKind, daemonDetail := statusError, "not running"
	switch {
	case snap.Reachable:
		daemonKind, daemonDetail = statusOK, "running (pid "+strconv.Itoa(snap.Daemon.PID)+")"
	case snap.Daemon.Running:
		daemonKind, daemonDetail = statusWarn, "process alive but API unreachable (pid "+strconv.Itoa(snap.Daemon.PID)+")"
	}
	lines := []string{
		renderStatusLine("Daemon", daemonKind, daemonDetail, colorize),
		renderStatusLine("API reachable", statusInfo, yesNo(snap.Reachable), colorize),
		renderStatusLine("Database", statusInfo, snap.Daemon.DatabasePath, colorize),
		renderStatusLine("Lock file", statusInfo, snap.Daemon.LockFilePath, colorize),
	}
	for _, check := range snap.Checks {
		lines = append(lines, renderStatusLine(check.Name, checkKind(check.Passed), check.Detail, colorize))
	}
	writeSection(stdout, "System Status", colorize, lines)
	fmt.Fprintln(stdout)

	pendingKind := statusOK
	if snap.Daemon.PendingPosts > 0 {
		pendingKind = statusWarn
	}
	lines = []string{renderStatusLine("Pending posts", pendingKind, strconv.Itoa(snap.Daemon.PendingPosts), colorize)}
	for _, r := range snap.Daemon.Rejections {
		lines = append(lines, renderStatusLine(
			fmt.Sprintf("Rejecting #%d", r.PostID),
			statusInfo,
			fmt.Sprintf("awaiting reason from %s until %s", actorLabel(r.Moderator.ID, r.Moderator.Username), r.Deadline),
			colorize,
		))
	}
	writeSection(stdout, "Moderation", colorize, lines)
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), LogLevel: logLevel}
}
