package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation_id"
	MessageIDKey     contextKey = "message_id"
	EndpointIDKey    contextKey = "endpoint_id"
	TenantIDKey      contextKey = "tenant_id"
	ServiceNameKey   contextKey = "service_name"
)

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, MessageIDKey, id)
}

func WithEndpointID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EndpointIDKey, id)
}

func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TenantIDKey, id)
}

func WithServiceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, name)
}

func value(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func GetCorrelationID(ctx context.Context) string { return value(ctx, CorrelationIDKey) }
func GetMessageID(ctx context.Context) string     { return value(ctx, MessageIDKey) }
func GetEndpointID(ctx context.Context) string    { return value(ctx, EndpointIDKey) }
func GetTenantID(ctx context.Context) string      { return value(ctx, TenantIDKey) }
func GetServiceName(ctx context.Context) string   { return value(ctx, ServiceNameKey) }

// GetLogFields returns the key/value pairs carried by ctx, including the
// active span's trace id when one is recording.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 12)

	if ctx == nil {
		return fields
	}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}

	for _, key := range []contextKey{CorrelationIDKey, MessageIDKey, EndpointIDKey, TenantIDKey, ServiceNameKey} {
		if v := value(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}

	return fields
}
