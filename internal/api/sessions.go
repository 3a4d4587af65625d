package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrNoPublicKey is returned when a session start has no public key.
var ErrNoPublicKey = errors.New("no public API key")

// StartRequest describes a new agent session.
type StartRequest struct {
	// CreateDailyRoom asks the service to create a Daily WebRTC room for
	// the session.
	CreateDailyRoom bool `json:"createDailyRoom"`
	// Body is passed to the agent as-is. It must be valid JSON when set.
	Body json.RawMessage `json:"body,omitempty"`
}

// StartResult is the service's answer to a session start. Room and token
// are set only when a Daily room was requested.
type StartResult struct {
	DailyRoom  string `json:"dailyRoom,omitempty" yaml:"dailyRoom,omitempty"`
	DailyToken string `json:"dailyToken,omitempty" yaml:"dailyToken,omitempty"`
}

// JoinURL returns the browser link for a Daily room, or "" without one.
func (r StartResult) JoinURL() string {
	if r.DailyRoom == "" {
		return ""
	}
	if r.DailyToken == "" {
		return r.DailyRoom
	}
	return r.DailyRoom + "?t=" + r.DailyToken
}

// StartAgent starts a session of agent. The request is authorized with the
// organization's public key rather than the client's token.
func (c *Client) StartAgent(ctx context.Context, agent, publicKey string, start StartRequest, opts ...CallOption) (*StartResult, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return nil, ErrNoPublicKey
	}
	var result StartResult
	if _, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   apiPath("/v1/public", agent, "proxy"),
		body:   start,
		out:    &result,
		token:  publicKey,
	}, opts); err != nil {
		return nil, err
	}
	return &result, nil
}
