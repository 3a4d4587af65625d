package api

import (
	"context"
	"net/http"
)

// Organization is one organization the token belongs to.
type Organization struct {
	Name        string `json:"name" yaml:"name"`
	VerboseName string `json:"verboseName" yaml:"verboseName"`
}

// Organizations lists the organizations visible to the client's token.
func (c *Client) Organizations(ctx context.Context, opts ...CallOption) ([]Organization, error) {
	var result struct {
		Organizations []Organization `json:"organizations"`
	}
	if _, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   orgPath(""),
		out:    &result,
	}, opts); err != nil {
		return nil, err
	}
	return result.Organizations, nil
}
