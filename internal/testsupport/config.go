package testsupport

import (
	"path/filepath"
	"testing"

	"pcc/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces settings pointing at a throwaway directory, with a
// token, an organization, and fast polling so deploy tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Token = "test-token"
	cfgVal.Org = "test-org"
	cfgVal.DeployConfigPath = filepath.Join(base, "pcc-deploy.toml")
	cfgVal.Deploy.MaxAliveChecks = 3
	cfgVal.Deploy.AliveCheckIntervalSeconds = 1

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIHost points the config at a test server.
func WithAPIHost(host string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.APIHost = host
	}
}

// WithOrg overrides the active organization.
func WithOrg(org string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Org = org
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.DeployConfigPath)
}
