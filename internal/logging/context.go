package logging

import (
	"context"
	"log/slog"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	orgKey       contextKey = "org"
)

// WithRequestID stores a correlation identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the correlation identifier, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(requestIDKey).(string)
	return value, ok && value != ""
}

// WithOrg stores the active organization on the context.
func WithOrg(ctx context.Context, org string) context.Context {
	org = strings.TrimSpace(org)
	if org == "" {
		return ctx
	}
	return context.WithValue(ctx, orgKey, org)
}

// OrgFromContext returns the active organization, if present.
func OrgFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(orgKey).(string)
	return value, ok && value != ""
}

// WithContext returns a logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	var fields []slog.Attr
	if org, ok := OrgFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOrg, org))
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
