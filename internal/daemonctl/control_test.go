package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"moderbot/internal/daemonctl"
	"moderbot/internal/testsupport"
)

func TestProcessInfo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	if _, alive := daemonctl.ProcessInfo(cfg); alive {
		t.Fatal("expected no daemon without pid file")
	}

	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pid, alive := daemonctl.ProcessInfo(cfg)
	if !alive || pid != os.Getpid() {
		t.Fatalf("ProcessInfo = (%d, %v), want own pid alive", pid, alive)
	}

	if err := os.WriteFile(cfg.PIDPath(), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, alive := daemonctl.ProcessInfo(cfg); alive {
		t.Fatal("expected unparsable pid file to read as not running")
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.StopAndTerminate(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopRefusesOwnProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemonctl.StopAndTerminate(cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal the test process")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	testsupport.MustOpenStore(t, cfg)

	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Reachable || snap.Daemon.Running {
		t.Fatalf("expected offline snapshot, got %+v", snap)
	}
	if snap.Daemon.DatabasePath != cfg.Paths.Database || len(snap.Checks) == 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, err := daemonctl.BuildStatusSnapshot(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
