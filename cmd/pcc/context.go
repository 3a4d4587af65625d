package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pcc/internal/api"
	"pcc/internal/config"
	"pcc/internal/logging"
)

var errNoToken = fmt.Errorf("%w: no API token configured; set PIPECAT_TOKEN or token in the settings file", api.ErrUnauthorized)

type commandContext struct {
	settingsFlag *string
	orgFlag      *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(settingsFlag, orgFlag *string) *commandContext {
	return &commandContext{
		settingsFlag: settingsFlag,
		orgFlag:      orgFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.settingsPath())
		if err != nil {
			c.configErr = fmt.Errorf("load settings: %w", err)
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) settingsPath() string {
	if c.settingsFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.settingsFlag)
}

// org returns the organization from --organization or the settings.
func (c *commandContext) org() (string, error) {
	if c.orgFlag != nil {
		if org := strings.TrimSpace(*c.orgFlag); org != "" {
			return org, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Org == "" {
		return "", errors.New("no organization selected; pass --organization or run `pcc organizations use NAME`")
	}
	return cfg.Org, nil
}

func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// apiClient builds a client for the active settings. Failures are presented
// on the command's stderr.
func (c *commandContext) apiClient(cmd *cobra.Command) (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	token := cfg.ActiveToken()
	if c.orgFlag != nil && strings.TrimSpace(*c.orgFlag) != "" {
		override := *cfg
		override.Org = strings.TrimSpace(*c.orgFlag)
		token = override.ActiveToken()
	}
	if token == "" {
		return nil, errNoToken
	}
	return api.NewClient(
		api.Config{BaseURL: cfg.APIHost, Token: token, Timeout: cfg.RequestTimeout()},
		api.WithPresenter(newConsolePresenter(cmd.ErrOrStderr())),
		api.WithLogger(c.logger(cmd)),
	), nil
}

// commandScope resolves the org and client every remote command needs and
// tags the context with the org for logging.
func (c *commandContext) commandScope(cmd *cobra.Command) (context.Context, string, *api.Client, error) {
	org, err := c.org()
	if err != nil {
		return nil, "", nil, err
	}
	client, err := c.apiClient(cmd)
	if err != nil {
		return nil, "", nil, err
	}
	return logging.WithOrg(cmd.Context(), org), org, client, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func orNone(value *string) string {
	if value == nil || *value == "" {
		return "None"
	}
	return *value
}
