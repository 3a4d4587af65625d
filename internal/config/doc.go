// Package config loads, normalizes, and validates pcc user settings.
//
// Settings come from three layers: PIPECAT_* environment variables, the user
// settings file (~/.config/pipecatcloud/pipecatcloud.toml by default), and the
// built-in defaults. Reads go through viper so every key can be overridden
// from the environment; writes (config init, organizations use) go through
// go-toml under a file lock so concurrent invocations never interleave.
//
// The Config type carries the API host, credentials, the active
// organization, logging knobs, and the polling bounds used by deploy.
// Per-deployment settings live in the deployconfig package instead.
package config
