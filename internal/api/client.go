package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pcc/internal/logging"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 4 << 20
	requestIDHeader    = "X-Request-ID"
	userAgent          = "pcc"
)

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures what a Client needs to reach the API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the control-plane API. It holds no per-call state; one
// Client may serve every call of a command invocation.
type Client struct {
	baseURL   string
	token     string
	http      HTTPDoer
	presenter Presenter
	logger    *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithPresenter sets where non-bubbled errors are shown.
func WithPresenter(p Presenter) Option {
	return func(c *Client) { c.presenter = p }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   strings.TrimSpace(cfg.Token),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "api")
	return client
}

type callOptions struct {
	bubble          bool
	notFoundIsEmpty bool
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

// Bubble returns the classified error to the caller without presenting it.
// It applies only to the call it is passed to.
func Bubble() CallOption {
	return func(o *callOptions) { o.bubble = true }
}

// IsBubbled reports whether opts include Bubble. Wrappers and fakes use it
// to honour the option without reaching into the client.
func IsBubbled(opts ...CallOption) bool {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o.bubble
}

func notFoundIsEmpty() CallOption {
	return func(o *callOptions) { o.notFoundIsEmpty = true }
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// token replaces the client's token for this request.
	token string
}

// call performs req and presents any classified failure once unless the
// call is bubbled. found is false when a 404 was mapped to "absent".
func (c *Client) call(ctx context.Context, req request, opts []CallOption) (bool, error) {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	found, err := c.do(ctx, req, o)
	if err != nil && !o.bubble && c.presenter != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			c.presenter.PresentError(apiErr)
		}
	}
	return found, err
}

func (c *Client) do(ctx context.Context, req request, o callOptions) (bool, error) {
	if c.baseURL == "" {
		return false, errors.New("api host is not configured")
	}

	var reader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return false, fmt.Errorf("encode %s %s request: %w", req.method, req.path, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return false, fmt.Errorf("build %s %s request: %w", req.method, req.path, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(requestIDHeader, requestID)
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if req.token != "" {
		token = req.token
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	logger := logging.WithContext(logging.WithRequestID(ctx, requestID), c.logger)
	started := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
		}
		logger.Debug("api request failed",
			slog.String("method", req.method),
			slog.String("path", req.path),
			logging.Error(err),
		)
		return false, &Error{Kind: KindNetwork, Method: req.method, Path: req.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
		}
		return false, &Error{Kind: KindNetwork, Status: resp.StatusCode, Method: req.method, Path: req.path, Err: err}
	}

	logger.Debug("api request",
		slog.String("method", req.method),
		slog.String("path", req.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.out != nil && !emptyBody(body) {
			if err := json.Unmarshal(body, req.out); err != nil {
				return false, fmt.Errorf("decode %s %s response: %w", req.method, req.path, err)
			}
		}
		return true, nil
	}

	if resp.StatusCode == http.StatusNotFound && o.notFoundIsEmpty {
		return false, nil
	}

	apiErr := classifyStatus(resp.StatusCode, body)
	apiErr.Method = req.method
	apiErr.Path = req.path
	return false, apiErr
}

func emptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

type errorBody struct {
	Code    any    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classifyStatus maps a non-2xx response to an *Error. 401 and 404 are
// classified by status alone; any other status whose body carries a code
// is a validation failure, and the rest are server errors.
func classifyStatus(status int, body []byte) *Error {
	var payload errorBody
	_ = json.Unmarshal(body, &payload)
	message := strings.TrimSpace(payload.Error)
	if message == "" {
		message = strings.TrimSpace(payload.Message)
	}

	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Status: status, Code: codeString(payload.Code), Message: message}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Code: codeString(payload.Code), Message: message}
	}

	if code := codeString(payload.Code); code != "" {
		return &Error{Kind: KindValidation, Status: status, Code: code, Message: message}
	}
	if message == "" {
		message = snippet(body)
	}
	return &Error{Kind: KindServer, Status: status, Message: message}
}

func codeString(v any) string {
	switch code := v.(type) {
	case string:
		return strings.TrimSpace(code)
	case float64:
		return strconv.FormatFloat(code, 'f', -1, 64)
	default:
		return ""
	}
}

const maxSnippetRunes = 200

// snippet shortens a response body for display without splitting a
// multi-byte character.
func snippet(body []byte) string {
	text := strings.ToValidUTF8(strings.TrimSpace(string(body)), "\uFFFD")
	if utf8.RuneCountInString(text) <= maxSnippetRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSnippetRunes]) + "..."
}

func orgPath(org string, segments ...string) string {
	if org == "" {
		return apiPath("/v1/organizations", segments...)
	}
	return apiPath("/v1/organizations", append([]string{org}, segments...)...)
}

func apiPath(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}
