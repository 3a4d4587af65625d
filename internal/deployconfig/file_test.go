package deployconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDeployFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write deploy file: %v", err)
	}
	return path
}

func TestLoadFileMissingIsAbsentLayer(t *testing.T) {
	raw, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if raw != nil {
		t.Fatalf("raw = %v, want nil", raw)
	}
	partial, err := FromMap(raw)
	if err != nil {
		t.Fatalf("FromMap(nil): %v", err)
	}
	if partial.AgentName != nil {
		t.Fatal("expected empty layer")
	}
}

func TestLoadFileRejectsMalformedTOML(t *testing.T) {
	path := writeDeployFile(t, "agent_name = \n")
	_, err := LoadFile(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadBindsEveryKey(t *testing.T) {
	path := writeDeployFile(t, `
agent_name = "my-agent"
image = "registry/my-agent:0.1"
image_credentials = "dockerhub"
secret_set = "my-secrets"
region = "eu"
enable_managed_keys = true
enable_krisp = false
agent_profile = "agent-2x"

[scaling]
min_agents = 1
max_agents = 3

[krisp_viva]
audio_filter = "tel"
`)
	partial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Resolve(nil, partial, Defaults())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.AgentName != "my-agent" || cfg.Image != "registry/my-agent:0.1" {
		t.Fatalf("unexpected identity: %+v", cfg)
	}
	if *cfg.ImageCredentials != "dockerhub" || *cfg.SecretSet != "my-secrets" || *cfg.AgentProfile != "agent-2x" {
		t.Fatalf("unexpected strings: %+v", cfg)
	}
	if *cfg.Region != RegionEU {
		t.Fatalf("region = %q", *cfg.Region)
	}
	if !*cfg.EnableManagedKeys || *cfg.EnableKrisp {
		t.Fatalf("unexpected flags: managed=%v krisp=%v", *cfg.EnableManagedKeys, *cfg.EnableKrisp)
	}
	if cfg.MinInstances() != 1 {
		t.Fatalf("min = %d", cfg.MinInstances())
	}
	if got, _ := cfg.MaxInstances(); got != 3 {
		t.Fatalf("max = %d", got)
	}
	if cfg.KrispViva == nil || cfg.KrispViva.AudioFilter != AudioFilterTelephony {
		t.Fatalf("krisp viva = %+v", cfg.KrispViva)
	}
}

func TestFromMapAcceptsInstanceSpelling(t *testing.T) {
	partial, err := FromMap(map[string]any{
		"scaling": map[string]any{"min_instances": int64(2), "max_instances": int64(5)},
	})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if *partial.Scaling.MinInstances != 2 || *partial.Scaling.MaxInstances != 5 {
		t.Fatalf("scaling = %+v", partial.Scaling)
	}
}

func TestFromMapRejectsBothSpellings(t *testing.T) {
	_, err := FromMap(map[string]any{
		"scaling": map[string]any{"min_agents": int64(1), "min_instances": int64(1)},
	})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestFromMapReportsEveryUnknownKey(t *testing.T) {
	_, err := FromMap(map[string]any{
		"agent_name": "a",
		"imagee":     "typo",
		"scaling":    map[string]any{"bogus": int64(1)},
	})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	joined := strings.Join(cfgErr.Keys, ",")
	if !strings.Contains(joined, "imagee") || !strings.Contains(joined, "bogus") {
		t.Fatalf("keys = %v, want both unknown keys", cfgErr.Keys)
	}
}

func TestFromMapRejectsWrongTypes(t *testing.T) {
	_, err := FromMap(map[string]any{
		"scaling": map[string]any{"min_agents": "two"},
	})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadRejectsFractionalScaling(t *testing.T) {
	path := writeDeployFile(t, `
agent_name = "my-agent"
image = "registry/my-agent:0.1"

[scaling]
max_agents = 2.9
min_agents = 0.5
`)
	partial, err := Load(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
	if partial != nil {
		t.Fatalf("partial = %+v, want nil", partial)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Reason != "wrong value type" {
		t.Fatalf("reason = %q", cfgErr.Reason)
	}
	want := []string{"scaling.max_agents", "scaling.min_agents"}
	if strings.Join(cfgErr.Keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", cfgErr.Keys, want)
	}
	if !errors.Is(err, errFloatForInteger) {
		t.Fatalf("err = %v, want errFloatForInteger in chain", err)
	}
}

func TestFromMapKeepsWholeIntegers(t *testing.T) {
	partial, err := FromMap(map[string]any{
		"scaling": map[string]any{"max_agents": int64(4)},
	})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if partial.Scaling.MaxInstances == nil || *partial.Scaling.MaxInstances != 4 {
		t.Fatalf("max = %v, want 4", partial.Scaling.MaxInstances)
	}
}

func TestLoadAcceptsUppercaseRegion(t *testing.T) {
	path := writeDeployFile(t, `
agent_name = "my-agent"
image = "registry/my-agent:0.1"
region = "EU"

[krisp_viva]
audio_filter = "Tel"
`)
	partial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Resolve(nil, partial, Defaults())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if *cfg.Region != RegionEU || cfg.KrispViva.AudioFilter != AudioFilterTelephony {
		t.Fatalf("region = %q filter = %q", *cfg.Region, cfg.KrispViva.AudioFilter)
	}
}
