package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"recoder/internal/config"
	"recoder/internal/deps"
	"recoder/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
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
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds the run logger: console/json on stdout plus the log file.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// tools resolves ffmpeg and ffprobe and fails when either is missing.
func (c *commandContext) tools() (deps.Tools, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return deps.Tools{}, err
	}
	tools := deps.ResolveTools(cfg.Paths.FFmpegBinary, cfg.Paths.FFprobeBinary)
	if err := deps.RequireAll(deps.CheckBinaries(tools.Requirements())); err != nil {
		return deps.Tools{}, err
	}
	return tools, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
