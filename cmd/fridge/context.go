package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"sync"

	"fridge/internal/app"
	"fridge/internal/config"
	"fridge/internal/storage"
	logx "fridge/pkg/logx"
)

const defaultConfigPath = "./fridge.yaml"

type commandContext struct {
	configFlag *string
	dryRun     *bool

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func newCommandContext(configFlag *string, dryRun *bool) *commandContext {
	return &commandContext{configFlag: configFlag, dryRun: dryRun}
}

func (c *commandContext) configPath() (string, bool) {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p, true
		}
	}
	return defaultConfigPath, false
}

// loadConfig reads the config file. Without an explicit --config a missing
// default file means built-in defaults.
func (c *commandContext) loadConfig() (*config.Config, string, error) {
	path, explicit := c.configPath()
	cfg, err := config.NewManager(path).Parse()
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		cfg = config.Default()
	default:
		return nil, path, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// open builds the app for one-shot commands. The database is shared with a
// running daemon, so it is never locked here.
func (c *commandContext) open() (*app.App, error) {
	c.appOnce.Do(func() {
		cfg, path, err := c.loadConfig()
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = app.NewWithConfig(path, cfg, app.Options{DryRun: c.dryRun != nil && *c.dryRun})
	})
	return c.app, c.appErr
}

func (c *commandContext) store() (storage.Store, error) {
	a, err := c.open()
	if err != nil {
		return nil, err
	}
	return a.Store(), nil
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// audit records an operator action. Audit failures never fail the command.
func (c *commandContext) audit(ctx context.Context, action, target string, opErr error, meta string) {
	if c.app == nil {
		return
	}
	e := storage.AuditEntry{
		Actor:  actor(),
		Action: action,
		Target: target,
		OK:     opErr == nil,
		Meta:   meta,
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	if err := c.app.Store().AppendAudit(ctx, e); err != nil {
		c.app.Logger().Warn("audit append failed", logx.String("action", action), logx.Err(err))
	}
}

func actor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}
