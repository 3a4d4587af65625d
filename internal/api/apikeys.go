package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// APIKey is a public API key. Public keys authorize session starts; they
// cannot manage the organization.
type APIKey struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Key       string `json:"key" yaml:"key"`
	CreatedAt string `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	Revoked   bool   `json:"revoked" yaml:"revoked"`
}

// UnmarshalJSON lifts the display name out of metadata.name.
func (k *APIKey) UnmarshalJSON(data []byte) error {
	type plain APIKey
	var wire struct {
		plain
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*k = APIKey(wire.plain)
	if name := wire.Metadata.Name; name != "" {
		k.Name = name
	}
	return nil
}

// APIKeys lists the public API keys of org, revoked ones included.
func (c *Client) APIKeys(ctx context.Context, org string, opts ...CallOption) ([]APIKey, error) {
	var result struct {
		Public []APIKey `json:"public"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "apiKeys"),
		out:    &result,
	}, opts); err != nil {
		return nil, err
	}
	return result.Public, nil
}

// CreateAPIKey creates a public API key named name. The returned key is the
// only time its value is shown in full.
func (c *Client) CreateAPIKey(ctx context.Context, org, name string, opts ...CallOption) (*APIKey, error) {
	var created APIKey
	if _, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   orgPath(org, "apiKeys"),
		body:   map[string]string{"name": name, "type": "public"},
		out:    &created,
	}, opts); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created.Name = name
	}
	return &created, nil
}

// DeleteAPIKey revokes and removes the key with the given ID.
func (c *Client) DeleteAPIKey(ctx context.Context, org, id string, opts ...CallOption) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   orgPath(org, "apiKeys", id),
	}, opts)
	return err
}
