// Package api is the HTTP client for the Pipecat Cloud control plane.
//
// Every remote operation is a method on *Client returning (result, error).
// Non-2xx responses and transport failures become *Error values classified
// by Kind. Unless the call carries the Bubble option, each *Error is handed
// to the client's Presenter exactly once before being returned, so callers
// that only need to abort can simply propagate the error.
package api
