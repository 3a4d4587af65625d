package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHosts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.RequestTimeoutSeconds <= 0 {
		return errors.New("request_timeout_seconds must be positive")
	}
	if err := c.validateDeploy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHosts() error {
	for key, value := range map[string]string{
		"api_host":       c.APIHost,
		"dashboard_host": c.DashboardHost,
	} {
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must use http or https, got %q", key, value)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}

func (c *Config) validateDeploy() error {
	if c.Deploy.MaxAliveChecks <= 0 {
		return errors.New("deploy.max_alive_checks must be positive")
	}
	if c.Deploy.AliveCheckIntervalSeconds <= 0 {
		return errors.New("deploy.alive_check_interval_seconds must be positive")
	}
	return nil
}
