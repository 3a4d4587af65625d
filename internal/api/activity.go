package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// LogEntry is one line of agent output.
type LogEntry struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Log       string `json:"log" yaml:"log"`
}

// AgentLogs returns up to limit recent log lines of an agent. A limit of
// zero leaves the page size to the server.
func (c *Client) AgentLogs(ctx context.Context, org, name string, limit int, opts ...CallOption) ([]LogEntry, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var result struct {
		Logs []LogEntry `json:"logs"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "services", name, "logs"),
		query:  query,
		out:    &result,
	}, opts); err != nil {
		return nil, err
	}
	return result.Logs, nil
}

// Deployment is one revision of an agent service.
type Deployment struct {
	ID        string `json:"id" yaml:"id"`
	NodeType  string `json:"nodeType,omitempty" yaml:"nodeType,omitempty"`
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt string `json:"updatedAt" yaml:"updatedAt"`
}

// UnmarshalJSON lifts the node type and image out of manifest.spec.
func (d *Deployment) UnmarshalJSON(data []byte) error {
	type plain Deployment
	var wire struct {
		plain
		Manifest struct {
			Spec struct {
				DailyNodeType string `json:"dailyNodeType"`
				Image         string `json:"image"`
			} `json:"spec"`
		} `json:"manifest"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*d = Deployment(wire.plain)
	if nodeType := wire.Manifest.Spec.DailyNodeType; nodeType != "" {
		d.NodeType = nodeType
	}
	if image := wire.Manifest.Spec.Image; image != "" {
		d.Image = image
	}
	return nil
}

// AgentDeployments lists the deployments of an agent, newest first as the
// server orders them.
func (c *Client) AgentDeployments(ctx context.Context, org, name string, opts ...CallOption) ([]Deployment, error) {
	var result struct {
		Deployments []Deployment `json:"deployments"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "services", name, "deployments"),
		out:    &result,
	}, opts); err != nil {
		return nil, err
	}
	return result.Deployments, nil
}
