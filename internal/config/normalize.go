package config

import (
	"strings"
)

func (c *Config) normalize() {
	c.APIHost = strings.TrimRight(strings.TrimSpace(c.APIHost), "/")
	if c.APIHost == "" {
		c.APIHost = defaultAPIHost
	}
	c.DashboardHost = strings.TrimRight(strings.TrimSpace(c.DashboardHost), "/")
	if c.DashboardHost == "" {
		c.DashboardHost = defaultDashboardHost
	}
	c.Token = strings.TrimSpace(c.Token)
	c.Org = strings.TrimSpace(c.Org)
	c.DefaultPublicKey = strings.TrimSpace(c.DefaultPublicKey)
	c.DefaultPublicKeyName = strings.TrimSpace(c.DefaultPublicKeyName)
	c.DeployConfigPath = strings.TrimSpace(c.DeployConfigPath)
	if c.DeployConfigPath == "" {
		c.DeployConfigPath = defaultDeployConfigPath
	}
	c.normalizeLogging()

	if len(c.Orgs) > 0 {
		orgs := make(map[string]OrgProfile, len(c.Orgs))
		for name, profile := range c.Orgs {
			profile.Token = strings.TrimSpace(profile.Token)
			profile.DefaultPublicKey = strings.TrimSpace(profile.DefaultPublicKey)
			profile.DefaultPublicKeyName = strings.TrimSpace(profile.DefaultPublicKeyName)
			orgs[strings.ToLower(strings.TrimSpace(name))] = profile
		}
		c.Orgs = orgs
	}
}

func (c *Config) normalizeLogging() {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}
