package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if id := AnalysisIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("analysis.id", id))
	}
	if root := RootMemberFromContext(ctx); root != "" {
		fields = append(fields, zap.String("analysis.root", root))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}

	return fields
}

type analysisCtxKey struct{}
type rootCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

// WithAnalysisID tags ctx with the id of the analysis pass in progress.
func WithAnalysisID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, analysisCtxKey{}, id)
}

// AnalysisIDFromContext returns the analysis id, or "".
func AnalysisIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(analysisCtxKey{}).(string)
	return id
}

// WithRootMember tags ctx with the genogram root member id.
func WithRootMember(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, rootCtxKey{}, id)
}

// RootMemberFromContext returns the root member id, or "".
func RootMemberFromContext(ctx context.Context) string {
	id, _ := ctx.Value(rootCtxKey{}).(string)
	return id
}

// WithRequestID tags ctx with a transport request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger from ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
