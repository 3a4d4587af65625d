package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"pcc/internal/api"
)

func TestSecretsSetFromArgsAndFile(t *testing.T) {
	env := setupCLITestEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("OPENAI_API_KEY=sk-file\nDAILY_API_KEY=daily\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	out, _, err := runCLI(t, env, "secrets", "set", "bot-secrets", "OPENAI_API_KEY=sk-arg", "--file", envFile)
	if err != nil {
		t.Fatalf("secrets set: %v", err)
	}
	requireContains(t, out, "Saved 2 secret(s) to bot-secrets")

	values := map[string]any{}
	for _, put := range env.plane.secretPuts {
		if put["isImagePullSecret"] != false || put["name"] != "bot-secrets" {
			t.Fatalf("unexpected body: %#v", put)
		}
		values[put["secretKey"].(string)] = put["secretValue"]
	}
	if values["OPENAI_API_KEY"] != "sk-arg" || values["DAILY_API_KEY"] != "daily" {
		t.Fatalf("arguments should win over file entries: %#v", values)
	}
}

func TestSecretsSetValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad set name", args: []string{"secrets", "set", "bad.name", "KEY=v"}},
		{name: "bad key", args: []string{"secrets", "set", "good", "BAD KEY=v"}},
		{name: "missing equals", args: []string{"secrets", "set", "good", "KEY"}},
		{name: "empty value", args: []string{"secrets", "set", "good", "KEY="}},
		{name: "no pairs", args: []string{"secrets", "set", "good"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := runCLI(t, env, tt.args...); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if got := env.plane.requestCount(); got != 0 {
		t.Fatalf("validation failures must not reach the API, got %d requests", got)
	}
}

func TestSecretsList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.secretSets["bot-secrets"] = []string{"OPENAI_API_KEY"}
	env.plane.secretSets["registry"] = []string{"auth"}
	env.plane.setTypes["registry"] = api.SecretSetTypeImagePull

	out, _, err := runCLI(t, env, "secrets", "list")
	if err != nil {
		t.Fatalf("secrets list: %v", err)
	}
	requireContains(t, out, "bot-secrets")
	requireContains(t, out, "Image pull secret")

	out, _, err = runCLI(t, env, "secrets", "list", "bot-secrets")
	if err != nil {
		t.Fatalf("secrets list SET: %v", err)
	}
	requireContains(t, out, "OPENAI_API_KEY")

	if _, _, err := runCLI(t, env, "secrets", "list", "missing"); err == nil {
		t.Fatal("expected error for a missing set")
	}
}

func TestSecretsUnsetAndDelete(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "secrets", "unset", "bot-secrets", "OLD_KEY"); err != nil {
		t.Fatalf("secrets unset: %v", err)
	}
	if _, _, err := runCLI(t, env, "secrets", "delete", "bot-secrets", "--force"); err != nil {
		t.Fatalf("secrets delete: %v", err)
	}
	want := []string{"secret:bot-secrets/OLD_KEY", "set:bot-secrets"}
	if len(env.plane.deleted) != len(want) {
		t.Fatalf("deleted = %v, want %v", env.plane.deleted, want)
	}
	for i := range want {
		if env.plane.deleted[i] != want[i] {
			t.Fatalf("deleted = %v, want %v", env.plane.deleted, want)
		}
	}
}

func TestImagePullSecret(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "secrets", "image-pull-secret", "registry", "ghcr.io", "user"); err == nil {
		t.Fatal("expected error for credentials without a password")
	}

	out, _, err := runCLI(t, env, "secrets", "image-pull-secret", "registry", "ghcr.io", "user:pa:ss")
	if err != nil {
		t.Fatalf("image-pull-secret: %v", err)
	}
	requireContains(t, out, "Saved image pull secret registry for ghcr.io")
	put := env.plane.secretPuts[0]
	want := base64.StdEncoding.EncodeToString([]byte("user:pa:ss"))
	if put["isImagePullSecret"] != true || put["host"] != "ghcr.io" || put["secretValue"] != want {
		t.Fatalf("unexpected body: %#v", put)
	}
}
