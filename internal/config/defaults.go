package config

const (
	defaultAPIHost               = "https://api.pipecat.daily.co"
	defaultDashboardHost         = "https://pipecat.daily.co"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultRequestTimeoutSeconds = 30
	defaultDeployConfigPath      = "pcc-deploy.toml"
	defaultMaxAliveChecks        = 18
	defaultAliveCheckInterval    = 5
	defaultSettingsPath          = "~/.config/pipecatcloud/pipecatcloud.toml"

	envPrefix       = "PIPECAT"
	envSettingsPath = "PIPECAT_CONFIG_PATH"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		APIHost:               defaultAPIHost,
		DashboardHost:         defaultDashboardHost,
		LogFormat:             defaultLogFormat,
		LogLevel:              defaultLogLevel,
		RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		DeployConfigPath:      defaultDeployConfigPath,
		Deploy: Deploy{
			MaxAliveChecks:            defaultMaxAliveChecks,
			AliveCheckIntervalSeconds: defaultAliveCheckInterval,
		},
	}
}

// defaultKeys flattens the defaults into dotted viper keys. Every key must be
// registered so AutomaticEnv overrides reach Unmarshal.
func defaultKeys(cfg Config) map[string]any {
	return map[string]any{
		"api_host":                            cfg.APIHost,
		"dashboard_host":                      cfg.DashboardHost,
		"token":                               cfg.Token,
		"org":                                 cfg.Org,
		"default_public_key":                  cfg.DefaultPublicKey,
		"default_public_key_name":             cfg.DefaultPublicKeyName,
		"log_format":                          cfg.LogFormat,
		"log_level":                           cfg.LogLevel,
		"request_timeout_seconds":             cfg.RequestTimeoutSeconds,
		"deploy_config_path":                  cfg.DeployConfigPath,
		"deploy.max_alive_checks":             cfg.Deploy.MaxAliveChecks,
		"deploy.alive_check_interval_seconds": cfg.Deploy.AliveCheckIntervalSeconds,
	}
}
