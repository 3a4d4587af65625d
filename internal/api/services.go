package api

import (
	"context"
	"encoding/json"
	"net/http"

	"pcc/internal/deployconfig"
)

// StatusError is a problem the control plane reported for a deployment.
type StatusError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e StatusError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return e.Code + ": " + e.Message
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return "unknown deployment error"
	}
}

// AutoScaling mirrors the scaling bounds applied to a service.
type AutoScaling struct {
	MinReplicas *int `json:"minReplicas,omitempty" yaml:"minReplicas,omitempty"`
	MaxReplicas *int `json:"maxReplicas,omitempty" yaml:"maxReplicas,omitempty"`
}

// DeploymentStatus is the observed state of an agent service.
type DeploymentStatus struct {
	Name                  string        `json:"name" yaml:"name"`
	ActiveDeploymentID    string        `json:"activeDeploymentId" yaml:"activeDeploymentId"`
	ActiveDeploymentReady bool          `json:"activeDeploymentReady" yaml:"activeDeploymentReady"`
	Ready                 bool          `json:"ready" yaml:"ready"`
	Errors                []StatusError `json:"errors,omitempty" yaml:"errors,omitempty"`
	ActiveSessionCount    int           `json:"activeSessionCount" yaml:"activeSessionCount"`
	AutoScaling           *AutoScaling  `json:"autoScaling,omitempty" yaml:"autoScaling,omitempty"`
	Region                string        `json:"region,omitempty" yaml:"region,omitempty"`
	CreatedAt             string        `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt             string        `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	Image                 string        `json:"image,omitempty" yaml:"image,omitempty"`
}

// UnmarshalJSON lifts the image out of deployment.manifest.spec.
func (s *DeploymentStatus) UnmarshalJSON(data []byte) error {
	type plain DeploymentStatus
	var wire struct {
		plain
		Deployment struct {
			Manifest struct {
				Spec struct {
					Image string `json:"image"`
				} `json:"spec"`
			} `json:"manifest"`
		} `json:"deployment"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = DeploymentStatus(wire.plain)
	if image := wire.Deployment.Manifest.Spec.Image; image != "" {
		s.Image = image
	}
	return nil
}

// AgentSummary is one row of the service listing.
type AgentSummary struct {
	Name               string `json:"name" yaml:"name"`
	ID                 string `json:"id" yaml:"id"`
	ActiveDeploymentID string `json:"activeDeploymentId" yaml:"activeDeploymentId"`
	CreatedAt          string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt          string `json:"updatedAt" yaml:"updatedAt"`
}

// Submission is what the control plane returns after accepting a create
// or update.
type Submission map[string]any

// Agent looks up an agent service. An agent that does not exist yields
// (nil, nil).
func (c *Client) Agent(ctx context.Context, org, name string, opts ...CallOption) (*DeploymentStatus, error) {
	var envelope struct {
		Body *DeploymentStatus `json:"body"`
	}
	found, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "services", name),
		out:    &envelope,
	}, append(opts[:len(opts):len(opts)], notFoundIsEmpty()))
	if err != nil || !found {
		return nil, err
	}
	return envelope.Body, nil
}

// Agents lists the agent services of an organization.
func (c *Client) Agents(ctx context.Context, org string, opts ...CallOption) ([]AgentSummary, error) {
	var result struct {
		Services []AgentSummary `json:"services"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "services"),
		out:    &result,
	}, opts); err != nil {
		return nil, err
	}
	return result.Services, nil
}

// CreateService submits a new agent service. A nil Submission with a nil
// error means the service accepted the request but returned nothing.
func (c *Client) CreateService(ctx context.Context, org string, payload ServicePayload, opts ...CallOption) (Submission, error) {
	return c.submit(ctx, http.MethodPost, org, payload, opts)
}

// UpdateService replaces the configuration of an existing agent service.
func (c *Client) UpdateService(ctx context.Context, org string, payload ServicePayload, opts ...CallOption) (Submission, error) {
	return c.submit(ctx, http.MethodPut, org, payload, opts)
}

func (c *Client) submit(ctx context.Context, method, org string, payload ServicePayload, opts []CallOption) (Submission, error) {
	var result Submission
	if _, err := c.call(ctx, request{
		method: method,
		path:   orgPath(org, "services"),
		body:   payload,
		out:    &result,
	}, opts); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteService removes an agent service and all of its deployments.
func (c *Client) DeleteService(ctx context.Context, org, name string, opts ...CallOption) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   orgPath(org, "services", name),
	}, opts)
	return err
}

// ServicePayload is the JSON body of a create or update request. Unset
// settings are absent rather than null.
type ServicePayload map[string]any

// NewServicePayload builds the request body for cfg.
func NewServicePayload(cfg deployconfig.DeployConfig) ServicePayload {
	raw := map[string]any{
		"serviceName":        cfg.AgentName,
		"image":              cfg.Image,
		"imagePullSecretSet": cfg.ImageCredentials,
		"secretSet":          cfg.SecretSet,
		"region":             cfg.Region,
		"enableManagedKeys":  cfg.EnableManagedKeys,
		"enableKrisp":        cfg.EnableKrisp,
		"agentProfile":       cfg.AgentProfile,
		"autoScaling": map[string]any{
			"minReplicas": cfg.Scaling.MinInstances,
			"maxReplicas": cfg.Scaling.MaxInstances,
		},
	}
	if cfg.KrispViva != nil {
		raw["krispViva"] = map[string]any{"audioFilter": string(cfg.KrispViva.AudioFilter)}
	}
	return ServicePayload(stripUnset(raw))
}

// stripUnset drops nil values and nil pointers, dereferences the rest, and
// removes nested maps left empty.
func stripUnset(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		switch v := value.(type) {
		case nil:
		case map[string]any:
			if nested := stripUnset(v); len(nested) > 0 {
				out[key] = nested
			}
		case *string:
			if v != nil {
				out[key] = *v
			}
		case *int:
			if v != nil {
				out[key] = *v
			}
		case *bool:
			if v != nil {
				out[key] = *v
			}
		case *deployconfig.Region:
			if v != nil {
				out[key] = string(*v)
			}
		default:
			out[key] = v
		}
	}
	return out
}
