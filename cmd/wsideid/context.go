package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"wsideid/internal/actions"
	"wsideid/internal/config"
	"wsideid/internal/logging"
	"wsideid/internal/store"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
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

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// withService opens the item store for the duration of one command and hands
// the wired action surface to fn.
func (c *commandContext) withService(cmd *cobra.Command, fn func(context.Context, *actions.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := actions.NewService(cfg, st, logger)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}

// newLogger writes to the log file only, so command output stays readable.
// --verbose mirrors the log stream to the terminal as well.
func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	if c.verboseFlag != nil && *c.verboseFlag {
		return logging.NewFromConfig(cfg)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "wsideid.log")
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
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
