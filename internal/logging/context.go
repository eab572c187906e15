package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldQueueID is the standardized structured logging key for backend queue record identifiers.
	FieldQueueID = "queue_id"
	// FieldStatus is the standardized structured logging key for pipeline statuses.
	FieldStatus = "status"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings for filtering.
	FieldEventType = "event_type"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	queueIDKey   contextKey = "queue_id"
	requestIDKey contextKey = "request_id"
)

// WithQueueID annotates context with the backend queue record identifier.
func WithQueueID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, queueIDKey, id)
}

// QueueIDFromContext extracts the queue record identifier if present.
func QueueIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(queueIDKey).(int64)
	return id, ok
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := QueueIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldQueueID, id))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
