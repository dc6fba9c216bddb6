package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"moderbot/internal/access"
	"moderbot/internal/config"
	"moderbot/internal/daemonrun"
	"moderbot/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	adminFlag  *int64

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, adminFlag *int64) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		adminFlag:  adminFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// adminID attributes CLI changes to --admin or the first configured admin.
func (c *commandContext) adminID() int64 {
	if c.adminFlag != nil && *c.adminFlag > 0 {
		return *c.adminFlag
	}
	if cfg := c.configValue(); cfg != nil && len(cfg.Access.Admins) > 0 {
		return cfg.Access.Admins[0]
	}
	return 0
}

// withAccess runs fn against the daemon API, or against the database
// directly when the daemon is not reachable.
func (c *commandContext) withAccess(cmd *cobra.Command, fn func(access.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := access.OpenWithFallback(
		func() (*access.Client, error) {
			return access.Dial(ctx, cfg.Paths.APIBind, cfg.Paths.APIToken)
		},
		func() (access.Local, error) {
			svc, st, err := daemonrun.OpenLocal(ctx, cfg, logging.NewNop())
			if err != nil {
				return access.Local{}, err
			}
			return access.Local{Access: access.NewStoreAccess(svc, st), Close: st.Close}, nil
		},
	)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
