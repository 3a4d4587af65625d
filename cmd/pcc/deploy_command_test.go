package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDeployCreatesAgentAndWaitsUntilReady(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.secretSets["bot-secrets"] = []string{"OPENAI_API_KEY"}
	env.plane.agentResponses["voice-bot"] = []response{
		notFound(),
		agentResponse("voice-bot", "dep-1", false),
		agentResponse("voice-bot", "dep-1", true),
	}

	out, stderr, err := runCLI(t, env, "deploy", "voice-bot", "registry.example/agent:1", "--secrets", "bot-secrets", "--max-instances", "3")
	if err != nil {
		t.Fatalf("deploy: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "Review deployment")
	requireContains(t, out, `Agent "voice-bot" is ready (deployment dep-1)`)
	requireContains(t, stderr, "cold start")
	requireContains(t, stderr, "Public key")
	requireContains(t, stderr, "pcc organizations keys create")

	if len(env.plane.created) != 1 || len(env.plane.updated) != 0 {
		t.Fatalf("expected one create and no update, got %d/%d", len(env.plane.created), len(env.plane.updated))
	}
	payload := env.plane.created[0]
	if payload["serviceName"] != "voice-bot" || payload["image"] != "registry.example/agent:1" || payload["secretSet"] != "bot-secrets" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	scaling, ok := payload["autoScaling"].(map[string]any)
	if !ok || scaling["minReplicas"] != float64(0) || scaling["maxReplicas"] != float64(3) {
		t.Fatalf("unexpected autoScaling: %#v", payload["autoScaling"])
	}
	if _, present := payload["region"]; present {
		t.Fatalf("unset region should be omitted: %#v", payload)
	}
	if got := env.plane.lookups("voice-bot"); got != 3 {
		t.Fatalf("expected 3 lookups, got %d", got)
	}
	if len(env.sleeps) != 1 || env.sleeps[0] != time.Second {
		t.Fatalf("expected one 1s sleep, got %v", env.sleeps)
	}
}

func TestDeployTimesOutWithExitCode(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.agentResponses["slow-bot"] = []response{
		notFound(),
		agentResponse("slow-bot", "dep-9", false),
	}

	_, stderr, err := runCLI(t, env, "deploy", "slow-bot", "img:1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if code := exitCode(err); code != exitTimedOut {
		t.Fatalf("exit code = %d, want %d", code, exitTimedOut)
	}
	requireContains(t, stderr, "did not become ready after 3 checks")
	if got := env.plane.lookups("slow-bot"); got != 4 {
		t.Fatalf("expected 1 existence check plus 3 polls, got %d", got)
	}
	if len(env.sleeps) != 2 {
		t.Fatalf("expected 2 sleeps between 3 polls, got %d", len(env.sleeps))
	}
}

func TestDeployRejectsInvalidConfigBeforeAnyRequest(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "max over limit", args: []string{"deploy", "bot", "img:1", "--max-instances", "51"}},
		{name: "max below min", args: []string{"deploy", "bot", "img:1", "--min-instances", "3", "--max-instances", "2"}},
		{name: "missing image", args: []string{"deploy", "bot"}},
		{name: "bad region", args: []string{"deploy", "bot", "img:1", "--region", "mars"}},
		{name: "missing explicit file", args: []string{"deploy", "bot", "img:1", "--config-file", "does-not-exist.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, env, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := exitCode(err); code != exitConfigInvalid {
				t.Fatalf("exit code = %d, want %d (err: %v)", code, exitConfigInvalid, err)
			}
		})
	}
	if got := env.plane.requestCount(); got != 0 {
		t.Fatalf("expected no API requests, got %d", got)
	}
}

func TestDeployMergesFileWithFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	deployFile := `agent_name = "file-bot"
image = "registry.example/file:1"
secret_set = "file-secrets"
region = "eu"

[scaling]
min_agents = 1
max_agents = 4
`
	if err := os.WriteFile(env.deployFile, []byte(deployFile), 0o644); err != nil {
		t.Fatalf("write deploy file: %v", err)
	}
	env.plane.secretSets["file-secrets"] = []string{"KEY"}
	env.plane.agentResponses["file-bot"] = []response{notFound(), agentResponse("file-bot", "dep-2", true)}

	_, stderr, err := runCLI(t, env, "deploy", "--max-instances", "2", "--output", "json")
	if err != nil {
		t.Fatalf("deploy: %v\nstderr: %s", err, stderr)
	}
	payload := env.plane.created[0]
	if payload["image"] != "registry.example/file:1" || payload["region"] != "eu" || payload["secretSet"] != "file-secrets" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	scaling := payload["autoScaling"].(map[string]any)
	if scaling["minReplicas"] != float64(1) || scaling["maxReplicas"] != float64(2) {
		t.Fatalf("flag should override file max: %#v", scaling)
	}
}

func TestDeployJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.agentResponses["json-bot"] = []response{notFound(), agentResponse("json-bot", "dep-3", true)}

	out, _, err := runCLI(t, env, "deploy", "json-bot", "img:1", "--output", "json")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	var summary struct {
		Org          string `json:"org"`
		Agent        string `json:"agent"`
		State        string `json:"state"`
		DeploymentID string `json:"deployment_id"`
		Attempts     int    `json:"attempts"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.State != "ready" || summary.Org != "test-org" || summary.DeploymentID != "dep-3" || summary.Attempts != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if strings.Contains(out, "Review deployment") {
		t.Fatal("json output should not include the review table")
	}
}

func TestDeployExistingAgentPrompts(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		env := setupCLITestEnv(t)
		env.stdin = "n\n"
		env.plane.agentResponses["old-bot"] = []response{agentResponse("old-bot", "dep-1", true)}

		out, stderr, err := runCLI(t, env, "deploy", "old-bot", "img:2")
		if err != nil {
			t.Fatalf("declined deploy should succeed: %v", err)
		}
		requireContains(t, stderr, `Agent "old-bot" already exists`)
		requireContains(t, out, "cancelled")
		if len(env.plane.updated) != 0 || len(env.plane.created) != 0 {
			t.Fatal("declined update must not mutate")
		}
	})

	t.Run("default yes", func(t *testing.T) {
		env := setupCLITestEnv(t)
		env.stdin = "\n"
		env.plane.agentResponses["old-bot"] = []response{
			agentResponse("old-bot", "dep-1", true),
			agentResponse("old-bot", "dep-2", true),
		}

		if _, _, err := runCLI(t, env, "deploy", "old-bot", "img:2"); err != nil {
			t.Fatalf("deploy: %v", err)
		}
		if len(env.plane.updated) != 1 || len(env.plane.created) != 0 {
			t.Fatalf("expected one update, got %d updates %d creates", len(env.plane.updated), len(env.plane.created))
		}
	})

	t.Run("force skips prompt", func(t *testing.T) {
		env := setupCLITestEnv(t)
		env.stdin = "n\n"
		env.plane.agentResponses["old-bot"] = []response{agentResponse("old-bot", "dep-1", true)}

		_, stderr, err := runCLI(t, env, "deploy", "old-bot", "img:2", "--force")
		if err != nil {
			t.Fatalf("deploy: %v", err)
		}
		if strings.Contains(stderr, "already exists") {
			t.Fatal("--force should not prompt")
		}
		if len(env.plane.updated) != 1 {
			t.Fatalf("expected update, got %d", len(env.plane.updated))
		}
	})
}

func TestDeployUnauthorizedIsPresentedOnce(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.failures["GET /v1/organizations/test-org/services/bot"] = response{
		status: http.StatusUnauthorized,
		body:   map[string]any{"error": "bad token"},
	}

	_, stderr, err := runCLI(t, env, "deploy", "bot", "img:1")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := exitCode(err); code != exitUnauthorized {
		t.Fatalf("exit code = %d, want %d", code, exitUnauthorized)
	}
	if got := strings.Count(stderr, "Error: "); got != 1 {
		t.Fatalf("expected one presented error, got %d:\n%s", got, stderr)
	}
	requireContains(t, stderr, "Unauthorized or token expired")
}

func TestDeployToleratesCredentialCheckCode400(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.failures["GET /v1/organizations/test-org/secrets/registry-creds"] = response{
		status: http.StatusBadRequest,
		body:   map[string]any{"code": "400", "error": "image pull secrets cannot be listed"},
	}
	env.plane.agentResponses["private-bot"] = []response{notFound(), agentResponse("private-bot", "dep-1", true)}

	_, stderr, err := runCLI(t, env, "deploy", "private-bot", "img:1", "--credentials", "registry-creds")
	if err != nil {
		t.Fatalf("deploy: %v\nstderr: %s", err, stderr)
	}
	if strings.Contains(stderr, "Error: ") {
		t.Fatalf("tolerated code must not be presented:\n%s", stderr)
	}
	if env.plane.created[0]["imagePullSecretSet"] != "registry-creds" {
		t.Fatalf("unexpected payload: %#v", env.plane.created[0])
	}
}

func TestDeployFailsOnMissingSecretSet(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "deploy", "bot", "img:1", "--secrets", "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := exitCode(err); code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
	if len(env.plane.created) != 0 {
		t.Fatal("missing secret set must stop before submission")
	}
}

func TestDeployReportsStatusErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.agentResponses["broken-bot"] = []response{
		notFound(),
		{status: http.StatusOK, body: map[string]any{"body": map[string]any{
			"name":   "broken-bot",
			"errors": []map[string]any{{"code": "PCC-1000", "message": "image pull failed"}},
		}}},
	}

	_, _, err := runCLI(t, env, "deploy", "broken-bot", "img:1")
	if err == nil {
		t.Fatal("expected deployment failure")
	}
	if !strings.Contains(err.Error(), "image pull failed") {
		t.Fatalf("error should carry the status message: %v", err)
	}
	if got := env.plane.lookups("broken-bot"); got != 2 {
		t.Fatalf("expected polling to stop at the first error, got %d lookups", got)
	}
}

func TestDeployWithoutTokenIsUnauthorized(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeSettings(t, map[string]any{"token": nil})

	_, _, err := runCLI(t, env, "deploy", "bot", "img:1")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := exitCode(err); code != exitUnauthorized {
		t.Fatalf("exit code = %d, want %d", code, exitUnauthorized)
	}
	if got := env.plane.requestCount(); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestDeployOrganizationFlagOverridesSettings(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeSettings(t, map[string]any{"orgs.other-org.token": "other-token"})
	env.plane.agentResponses["bot"] = []response{notFound(), agentResponse("bot", "dep-1", true)}

	if _, _, err := runCLI(t, env, "-o", "other-org", "deploy", "bot", "img:1"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	requireContains(t, strings.Join(env.plane.requests, "\n"), "POST /v1/organizations/other-org/services")
	if env.plane.authHeader != "Bearer other-token" {
		t.Fatalf("expected org profile token, got %q", env.plane.authHeader)
	}
}

func TestDeployReadyWithPublicKeySuggestsStart(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeSettings(t, map[string]any{"default_public_key": "pk_live_1", "default_public_key_name": "Default"})
	env.plane.agentResponses["voice-bot"] = []response{
		notFound(),
		agentResponse("voice-bot", "dep-1", true),
	}

	out, stderr, err := runCLI(t, env, "deploy", "voice-bot", "registry.example/agent:1")
	if err != nil {
		t.Fatalf("deploy: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "pcc agent start voice-bot")
	if strings.Contains(stderr, "no default public key") {
		t.Fatalf("unexpected key warning:\n%s", stderr)
	}
}

func TestDeployLowercasesRegionFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	env.plane.agentResponses["voice-bot"] = []response{
		notFound(),
		agentResponse("voice-bot", "dep-1", true),
	}

	if _, stderr, err := runCLI(t, env, "deploy", "voice-bot", "img:1", "--region", "EU", "--krisp-viva-audio-filter", "TEL"); err != nil {
		t.Fatalf("deploy: %v\nstderr: %s", err, stderr)
	}
	payload := env.plane.created[0]
	if payload["region"] != "eu" {
		t.Fatalf("region = %v, want eu", payload["region"])
	}
	krisp, ok := payload["krispViva"].(map[string]any)
	if !ok || krisp["audioFilter"] != "tel" {
		t.Fatalf("krispViva = %v", payload["krispViva"])
	}
}
