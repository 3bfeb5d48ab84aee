package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"meetingintel/internal/analysis"
	"meetingintel/internal/config"
	"meetingintel/internal/logging"
	"meetingintel/internal/store"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	now        func() time.Time

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		now:        time.Now,
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

// logger writes to stderr so command output on stdout stays parseable.
func (c *commandContext) logger() *slog.Logger {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = "info"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withService builds an in-process analysis service for one command. History
// is attached when persist is true and the configuration enables it.
func (c *commandContext) withService(ctx context.Context, persist bool, fn func(*analysis.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.logger()
	reg, err := analysis.BuildRegistry(cfg, logger)
	if err != nil {
		return err
	}
	methods, err := cfg.EnhancementMethods()
	if err != nil {
		return err
	}
	opts := []analysis.Option{analysis.WithLogger(logger), analysis.WithClock(c.now), analysis.WithEnhancement(methods...)}
	if persist && cfg.Pipeline.PersistResults {
		st, err := store.Open(ctx, cfg.DatabasePath())
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, analysis.WithHistory(st))
	}
	return fn(analysis.NewService(analysis.NewRegistryHolder(reg), opts...))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
