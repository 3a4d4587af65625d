package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "not found; skipped")

	target := filepath.Join(t.TempDir(), "settings.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample settings")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("expected settings file at %s: %v", target, err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("settings mode = %v, want 0600", info.Mode().Perm())
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when the file exists without --overwrite")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigInitSkipsBrokenSettings(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.settingsPath, []byte("api_host = [broken"), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	target := filepath.Join(t.TempDir(), "settings.toml")
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init should not load settings: %v", err)
	}
	if _, _, err := runCLI(t, env, "config", "validate"); err == nil {
		t.Fatal("expected validate to report the broken settings file")
	}
}

func TestConfigValidateRejectsUnknownDeployKeys(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.deployFile, []byte("agent_name = \"bot\"\nimgae = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write deploy file: %v", err)
	}

	_, _, err := runCLI(t, env, "config", "validate")
	if err == nil {
		t.Fatal("expected unknown key error")
	}
	if code := exitCode(err); code != exitConfigInvalid {
		t.Fatalf("exit code = %d, want %d", code, exitConfigInvalid)
	}
	if !strings.Contains(err.Error(), "imgae") {
		t.Fatalf("error should name the key: %v", err)
	}
}

func TestConfigShowRedactsTokens(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeSettings(t, map[string]any{
		"token":                "pk_live_supersecret",
		"orgs.other-org.token": "short",
	})

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "supersecret") || strings.Contains(out, "short") {
		t.Fatalf("tokens must be redacted:\n%s", out)
	}
	requireContains(t, out, "pk_l****")
	requireContains(t, out, "test-org")
}
