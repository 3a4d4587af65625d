package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

//go:embed sample_config.toml
var sampleConfig string

// Deploy contains the polling bounds used while supervising a deployment.
type Deploy struct {
	MaxAliveChecks            int `toml:"max_alive_checks"`
	AliveCheckIntervalSeconds int `toml:"alive_check_interval_seconds"`
}

// OrgProfile holds credentials scoped to a single organization.
type OrgProfile struct {
	Token                string `toml:"token"`
	DefaultPublicKey     string `toml:"default_public_key"`
	DefaultPublicKeyName string `toml:"default_public_key_name"`
}

// Config encapsulates the user settings for pcc.
//
// Token and DefaultPublicKey at the top level apply to every organization;
// an [orgs.<name>] section overrides them for that organization.
type Config struct {
	APIHost               string                `toml:"api_host"`
	DashboardHost         string                `toml:"dashboard_host"`
	Token                 string                `toml:"token"`
	Org                   string                `toml:"org"`
	DefaultPublicKey      string                `toml:"default_public_key"`
	DefaultPublicKeyName  string                `toml:"default_public_key_name"`
	LogFormat             string                `toml:"log_format"`
	LogLevel              string                `toml:"log_level"`
	RequestTimeoutSeconds int                   `toml:"request_timeout_seconds"`
	DeployConfigPath      string                `toml:"deploy_config_path"`
	Deploy                Deploy                `toml:"deploy"`
	Orgs                  map[string]OrgProfile `toml:"orgs"`
}

// DefaultConfigPath returns the absolute path to the default settings file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultSettingsPath)
}

// Load locates, parses, and validates the settings file, applying PIPECAT_*
// environment overrides on top. It returns the config, the resolved path,
// and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	v := newViper(cfg)
	if exists {
		v.SetConfigFile(resolvedPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	}); err != nil {
		return nil, "", false, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func newViper(defaults Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaultKeys(defaults) {
		v.SetDefault(key, value)
	}
	return v
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(envSettingsPath))
	}
	if path == "" {
		path = defaultSettingsPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// ActiveToken returns the API token for the active organization, falling back
// to the top-level token.
func (c *Config) ActiveToken() string {
	if profile, ok := c.profile(); ok && profile.Token != "" {
		return profile.Token
	}
	return c.Token
}

// PublicKey returns the default public API key for the active organization.
func (c *Config) PublicKey() (key, name string) {
	return c.PublicKeyFor(c.Org)
}

// PublicKeyFor returns the default public API key for org, falling back to
// the top-level key.
func (c *Config) PublicKeyFor(org string) (key, name string) {
	if profile, ok := c.profileFor(org); ok && profile.DefaultPublicKey != "" {
		return profile.DefaultPublicKey, profile.DefaultPublicKeyName
	}
	return c.DefaultPublicKey, c.DefaultPublicKeyName
}

// PublicKeySettings returns the dotted settings keys that store the default
// public key and its name for org. The default organization uses the
// top-level keys unless it has a profile of its own.
func (c *Config) PublicKeySettings(org string) (keyField, nameField string) {
	org = strings.ToLower(strings.TrimSpace(org))
	_, hasProfile := c.Orgs[org]
	if org == "" || (strings.EqualFold(org, c.Org) && !hasProfile) {
		return "default_public_key", "default_public_key_name"
	}
	prefix := "orgs." + org + "."
	return prefix + "default_public_key", prefix + "default_public_key_name"
}

func (c *Config) profile() (OrgProfile, bool) {
	return c.profileFor(c.Org)
}

func (c *Config) profileFor(org string) (OrgProfile, bool) {
	if org == "" || len(c.Orgs) == 0 {
		return OrgProfile{}, false
	}
	profile, ok := c.Orgs[strings.ToLower(org)]
	return profile, ok
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AliveCheckInterval returns the delay between deployment readiness checks.
func (c *Config) AliveCheckInterval() time.Duration {
	return time.Duration(c.Deploy.AliveCheckIntervalSeconds) * time.Second
}

// SetValues merges dotted keys into the settings file at path. A nil value
// removes the key. The file is rewritten atomically while holding an
// exclusive lock on a sibling .lock file.
func SetValues(path string, values map[string]any) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	lock := flock.New(expanded + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	doc := map[string]any{}
	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("read config: %w", err)
	}

	for key, value := range values {
		if err := setDotted(doc, key, value); err != nil {
			return err
		}
	}

	encoded, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := expanded + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, expanded); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func setDotted(doc map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			if value == nil {
				return nil
			}
			table := map[string]any{}
			current[part] = table
			current = table
			continue
		}
		table, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q: %q is not a table", key, part)
		}
		current = table
	}
	leaf := parts[len(parts)-1]
	if value == nil {
		delete(current, leaf)
		return nil
	}
	current[leaf] = value
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample settings file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
