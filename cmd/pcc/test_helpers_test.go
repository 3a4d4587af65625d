package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pcc/internal/api"
	"pcc/internal/config"
	"pcc/internal/testsupport"
)

type response struct {
	status int
	body   any
}

func notFound() response {
	return response{status: http.StatusNotFound, body: map[string]any{"error": "not found"}}
}

func agentResponse(name, deploymentID string, ready bool) response {
	return response{status: http.StatusOK, body: map[string]any{
		"body": map[string]any{
			"name":                  name,
			"activeDeploymentId":    deploymentID,
			"activeDeploymentReady": ready,
			"ready":                 ready,
			"activeSessionCount":    0,
			"region":                "us",
			"autoScaling":           map[string]any{"minReplicas": 0, "maxReplicas": 2},
			"deployment": map[string]any{
				"manifest": map[string]any{"spec": map[string]any{"image": "registry.example/agent:1"}},
			},
		},
	}}
}

// controlPlane is an in-memory stand-in for the deployment API.
type controlPlane struct {
	mu sync.Mutex

	agentResponses map[string][]response
	agentLookups   map[string]int
	services       []api.AgentSummary
	secretSets     map[string][]string
	setTypes       map[string]string
	orgs           []api.Organization
	failures       map[string]response
	createResult   any
	apiKeys        []map[string]any
	logs           []api.LogEntry
	deployments    []map[string]any
	startResult    any

	created     []map[string]any
	updated     []map[string]any
	secretPuts  []map[string]any
	deleted     []string
	createdKeys []map[string]any
	starts      []map[string]any
	logQuery    string
	requests    []string
	authHeader  string
}

func apiKey(id, name, key string, revoked bool) map[string]any {
	return map[string]any{
		"id":        id,
		"key":       key,
		"createdAt": "2026-01-02T10:00:00Z",
		"revoked":   revoked,
		"metadata":  map[string]any{"name": name},
	}
}

func newControlPlane() *controlPlane {
	return &controlPlane{
		agentResponses: make(map[string][]response),
		agentLookups:   make(map[string]int),
		secretSets:     make(map[string][]string),
		setTypes:       make(map[string]string),
		failures:       make(map[string]response),
		createResult:   map[string]any{"name": "created"},
		startResult:    map[string]any{},
	}
}

func (p *controlPlane) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/organizations", func(w http.ResponseWriter, r *http.Request) {
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"organizations": p.orgs}})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/services", func(w http.ResponseWriter, r *http.Request) {
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"services": p.services}})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/services/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		p.mu.Lock()
		script := p.agentResponses[name]
		idx := p.agentLookups[name]
		p.agentLookups[name]++
		p.mu.Unlock()
		if len(script) == 0 {
			p.reply(w, notFound())
			return
		}
		if idx >= len(script) {
			idx = len(script) - 1
		}
		p.reply(w, script[idx])
	})
	mux.HandleFunc("POST /v1/organizations/{org}/services", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(r)
		p.mu.Lock()
		p.created = append(p.created, payload)
		result := p.createResult
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: result})
	})
	mux.HandleFunc("PUT /v1/organizations/{org}/services", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(r)
		p.mu.Lock()
		p.updated = append(p.updated, payload)
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"name": payload["serviceName"]}})
	})
	mux.HandleFunc("DELETE /v1/organizations/{org}/services/{name}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.deleted = append(p.deleted, "service:"+r.PathValue("name"))
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/secrets", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		sets := make([]api.SecretSet, 0, len(p.secretSets))
		for name := range p.secretSets {
			sets = append(sets, api.SecretSet{Name: name, Type: p.setTypes[name]})
		}
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"sets": sets}})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/secrets/{set}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		keys, ok := p.secretSets[r.PathValue("set")]
		p.mu.Unlock()
		if !ok {
			p.reply(w, notFound())
			return
		}
		secrets := make([]api.Secret, 0, len(keys))
		for _, key := range keys {
			secrets = append(secrets, api.Secret{FieldName: key})
		}
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"secrets": secrets}})
	})
	mux.HandleFunc("PUT /v1/organizations/{org}/secrets/{set}", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(r)
		p.mu.Lock()
		p.secretPuts = append(p.secretPuts, payload)
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK})
	})
	mux.HandleFunc("DELETE /v1/organizations/{org}/secrets/{set}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.deleted = append(p.deleted, "set:"+r.PathValue("set"))
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK})
	})
	mux.HandleFunc("DELETE /v1/organizations/{org}/secrets/{set}/{key}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.deleted = append(p.deleted, "secret:"+r.PathValue("set")+"/"+r.PathValue("key"))
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/apiKeys", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		keys := append([]map[string]any{}, p.apiKeys...)
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"public": keys}})
	})
	mux.HandleFunc("POST /v1/organizations/{org}/apiKeys", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(r)
		p.mu.Lock()
		p.createdKeys = append(p.createdKeys, payload)
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"id": "key-new", "key": "pk_new"}})
	})
	mux.HandleFunc("DELETE /v1/organizations/{org}/apiKeys/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.deleted = append(p.deleted, "key:"+r.PathValue("id"))
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusNoContent})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/services/{name}/logs", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.logQuery = r.URL.RawQuery
		logs := p.logs
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"logs": logs}})
	})
	mux.HandleFunc("GET /v1/organizations/{org}/services/{name}/deployments", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		deployments := p.deployments
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: map[string]any{"deployments": deployments}})
	})
	mux.HandleFunc("POST /v1/public/{agent}/proxy", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(r)
		p.mu.Lock()
		p.starts = append(p.starts, payload)
		result := p.startResult
		p.mu.Unlock()
		p.reply(w, response{status: http.StatusOK, body: result})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		p.mu.Lock()
		p.requests = append(p.requests, key)
		p.authHeader = r.Header.Get("Authorization")
		failure, failing := p.failures[key]
		p.mu.Unlock()
		if failing {
			p.reply(w, failure)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (p *controlPlane) reply(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	if resp.body != nil {
		_ = json.NewEncoder(w).Encode(resp.body)
	}
}

func (p *controlPlane) lookups(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agentLookups[name]
}

func (p *controlPlane) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func decodeBody(r *http.Request) map[string]any {
	payload := map[string]any{}
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &payload)
	return payload
}

type cliTestEnv struct {
	plane        *controlPlane
	server       *httptest.Server
	cfg          *config.Config
	settingsPath string
	deployFile   string
	stdin        string
	sleeps       []time.Duration
}

// setupCLITestEnv starts a fake control plane and points a fresh settings
// file at it. Sleeps between readiness checks are recorded, not waited.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	plane := newControlPlane()
	server := httptest.NewServer(plane.handler())
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithAPIHost(server.URL))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", base)
	for _, key := range []string{"PIPECAT_TOKEN", "PIPECAT_ORG", "PIPECAT_API_HOST", "PIPECAT_DEPLOY_CONFIG_PATH", "PIPECAT_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		plane:        plane,
		server:       server,
		cfg:          cfg,
		settingsPath: filepath.Join(base, "pipecatcloud.toml"),
		deployFile:   cfg.DeployConfigPath,
	}
	env.writeSettings(t, map[string]any{
		"api_host":                            cfg.APIHost,
		"token":                               cfg.Token,
		"org":                                 cfg.Org,
		"deploy_config_path":                  cfg.DeployConfigPath,
		"deploy.max_alive_checks":             cfg.Deploy.MaxAliveChecks,
		"deploy.alive_check_interval_seconds": cfg.Deploy.AliveCheckIntervalSeconds,
	})
	t.Setenv("PIPECAT_CONFIG_PATH", env.settingsPath)

	previous := deploySleeper
	deploySleeper = func(ctx context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return ctx.Err()
	}
	t.Cleanup(func() { deploySleeper = previous })

	return env
}

func (e *cliTestEnv) writeSettings(t *testing.T, values map[string]any) {
	t.Helper()
	if err := config.SetValues(e.settingsPath, values); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	cmd.SetArgs(args)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(env.stdin))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
