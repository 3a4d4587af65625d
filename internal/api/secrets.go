package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
)

var (
	secretSetNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	secretKeyPattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const maxSecretKeyLength = 64

// SecretSetTypeImagePull marks secret sets holding registry credentials.
const SecretSetTypeImagePull = "imagePullSecret"

// SecretSet is one entry of the organization's secret set listing.
type SecretSet struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Secret is a key within a secret set. Values are never returned.
type Secret struct {
	FieldName string `json:"fieldName" yaml:"fieldName"`
}

// ValidateSecretSetName checks a set name: letters, digits, '-' and '_',
// starting and ending with a letter or digit.
func ValidateSecretSetName(name string) error {
	if !secretSetNamePattern.MatchString(name) {
		return fmt.Errorf("invalid secret set name %q: use letters, digits, '-' or '_', starting and ending with a letter or digit", name)
	}
	return nil
}

// ValidateSecretKey checks a key: at most 64 letters, digits, '-' or '_'.
func ValidateSecretKey(key string) error {
	if len(key) == 0 || len(key) > maxSecretKeyLength {
		return fmt.Errorf("invalid secret key %q: must be 1 to %d characters", key, maxSecretKeyLength)
	}
	if !secretKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid secret key %q: use letters, digits, '-' or '_'", key)
	}
	return nil
}

// SecretSetExists reports whether the named set exists and holds at least
// one entry.
func (c *Client) SecretSetExists(ctx context.Context, org, set string, opts ...CallOption) (bool, error) {
	secrets, err := c.Secrets(ctx, org, set, opts...)
	if err != nil {
		return false, err
	}
	return len(secrets) > 0, nil
}

// Secrets lists the keys of a secret set. A set that does not exist yields
// an empty list.
func (c *Client) Secrets(ctx context.Context, org, set string, opts ...CallOption) ([]Secret, error) {
	var result struct {
		Secrets []Secret `json:"secrets"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "secrets", set),
		out:    &result,
	}, append(opts[:len(opts):len(opts)], notFoundIsEmpty())); err != nil {
		return nil, err
	}
	return result.Secrets, nil
}

// SecretSets lists every secret set of the organization.
func (c *Client) SecretSets(ctx context.Context, org string, opts ...CallOption) ([]SecretSet, error) {
	var result struct {
		Sets []SecretSet `json:"sets"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(org, "secrets"),
		out:    &result,
	}, append(opts[:len(opts):len(opts)], notFoundIsEmpty())); err != nil {
		return nil, err
	}
	return result.Sets, nil
}

// UpsertSecret creates the set if needed and sets key to value within it.
func (c *Client) UpsertSecret(ctx context.Context, org, set, key, value, region string, opts ...CallOption) error {
	body := map[string]any{
		"name":              set,
		"isImagePullSecret": false,
		"secretKey":         key,
		"secretValue":       value,
	}
	if region != "" {
		body["region"] = region
	}
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   orgPath(org, "secrets", set),
		body:   body,
	}, opts)
	return err
}

// UpsertImagePullSecret stores registry credentials ("user:password") for
// host under set.
func (c *Client) UpsertImagePullSecret(ctx context.Context, org, set, host, credentials string, opts ...CallOption) error {
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   orgPath(org, "secrets", set),
		body: map[string]any{
			"isImagePullSecret": true,
			"secretValue":       base64.StdEncoding.EncodeToString([]byte(credentials)),
			"host":              host,
		},
	}, opts)
	return err
}

// DeleteSecret removes one key from a set. Deleting a missing key is not
// an error.
func (c *Client) DeleteSecret(ctx context.Context, org, set, key string, opts ...CallOption) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   orgPath(org, "secrets", set, key),
	}, append(opts[:len(opts):len(opts)], notFoundIsEmpty()))
	return err
}

// DeleteSecretSet removes a set and every key in it.
func (c *Client) DeleteSecretSet(ctx context.Context, org, set string, opts ...CallOption) error {
	_, err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   orgPath(org, "secrets", set),
	}, append(opts[:len(opts):len(opts)], notFoundIsEmpty()))
	return err
}
