package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/genogram/internal/mcp"

// Metrics holds the tool invocation instruments.
type Metrics struct {
	logger         *logging.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics creates instruments on meter. A nil meter uses the global
// provider.
func NewMetrics(meter metric.Meter, logger *logging.Logger) *Metrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	m := &Metrics{logger: logger}
	m.init(meter)
	return m
}

func (m *Metrics) init(meter metric.Meter) {
	var err error

	m.invocations, err = meter.Int64Counter(
		"genogram.mcp.tool.invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create invocations counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"genogram.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = meter.Int64Counter(
		"genogram.mcp.tool.errors_total",
		metric.WithDescription("Total number of MCP tool errors by reason"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"genogram.mcp.tool.active_requests",
		metric.WithDescription("Number of currently active MCP tool requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create active requests gauge", zap.Error(err))
	}
}

// RecordInvocation records one completed tool call.
func (m *Metrics) RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("tool", toolName)}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		errorAttrs := append(attrs, attribute.String("reason", categorizeError(err)))
		m.errors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

// IncrementActive increments the active requests counter.
func (m *Metrics) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// DecrementActive decrements the active requests counter.
func (m *Metrics) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, genogram.ErrInvalidSnapshot), errors.Is(err, genogram.ErrUnsupportedFormat):
		return "validation_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "required"):
		return "validation_error"
	case strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "permission"):
		return "permission_error"
	default:
		return "internal_error"
	}
}
