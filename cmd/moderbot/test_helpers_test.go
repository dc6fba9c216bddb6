package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/time/rate"

	"moderbot/internal/admin"
	"moderbot/internal/api"
	"moderbot/internal/config"
	"moderbot/internal/httpapi"
	"moderbot/internal/store"
	"moderbot/internal/subscriptions"
	"moderbot/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	notifier   *testsupport.Notifier
	configPath string
}

// setupOfflineEnv writes a config whose API bind never answers, so every
// command takes the direct-database path.
func setupOfflineEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	st := testsupport.MustOpenStore(t, cfg)
	return &cliTestEnv{cfg: cfg, store: st, configPath: writeTestConfig(t, cfg)}
}

// setupDaemonEnv serves the admin API on a loopback port and points the
// config at it.
func setupDaemonEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("cli-secret"))
	st := testsupport.MustOpenStore(t, cfg)

	reg, err := subscriptions.NewRegistry(context.Background(), st, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	n := testsupport.NewNotifier()
	svc := admin.New(st, reg, n, cfg, nil, admin.WithBroadcastLimiter(rate.NewLimiter(rate.Inf, 1)))
	status := func(context.Context) api.DaemonStatus {
		return api.DaemonStatus{Running: true, PID: 4242, DatabasePath: st.Path()}
	}
	srv := httpapi.New(cfg, api.NewService(svc), status, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start api: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	cfg.Paths.APIBind = srv.Addr()
	return &cliTestEnv{cfg: cfg, store: st, notifier: n, configPath: writeTestConfig(t, cfg)}
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
