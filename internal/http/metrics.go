package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/logging"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/genogram/internal/http"

// HTTPMetrics holds the OpenTelemetry instruments for the API.
type HTTPMetrics struct {
	logger         *logging.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
	rateLimited    metric.Int64Counter
}

// NewHTTPMetrics creates instruments on meter. A nil meter uses the global
// provider.
func NewHTTPMetrics(meter metric.Meter, logger *logging.Logger) *HTTPMetrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	if meter == nil {
		meter = otel.Meter(httpInstrumentationName)
	}

	m := &HTTPMetrics{logger: logger}
	m.init(meter)
	return m
}

func (m *HTTPMetrics) init(meter metric.Meter) {
	var err error

	m.requestsTotal, err = meter.Int64Counter(
		"genogram.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method, endpoint and status code."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = meter.Float64Histogram(
		"genogram.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, endpoint and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create duration histogram", zap.Error(err))
	}

	m.responseSize, err = meter.Int64Histogram(
		"genogram.http.response_size_bytes",
		metric.WithDescription("HTTP response body size in bytes. Reports grow with the number of detected patterns."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 5000, 10000, 50000, 100000, 500000),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create response size histogram", zap.Error(err))
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"genogram.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create active requests gauge", zap.Error(err))
	}

	m.rateLimited, err = meter.Int64Counter(
		"genogram.http.rate_limited_total",
		metric.WithDescription("Requests rejected with 429 by the per-client rate limiter."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Underlying().Warn("failed to create rate limited counter", zap.Error(err))
	}
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := req.Context()

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
				defer m.activeRequests.Add(ctx, -1)
			}

			err := next(c)

			// Handler errors are rendered after the middleware chain
			// returns, so derive the status from the error when present.
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			attrs := metric.WithAttributes(
				attribute.String("method", req.Method),
				attribute.String("endpoint", normalizePath(c.Path())),
				attribute.Int("status", status),
			)

			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.responseSize != nil {
				m.responseSize.Record(ctx, c.Response().Size, attrs)
			}

			return err
		}
	}
}

func (m *HTTPMetrics) recordRateLimited(c echo.Context) {
	if m == nil || m.rateLimited == nil {
		return
	}
	m.rateLimited.Add(c.Request().Context(), 1,
		metric.WithAttributes(attribute.String("endpoint", normalizePath(c.Path()))))
}

// normalizePath keeps endpoint labels bounded. Every route is fixed, so the
// matched route path is used as-is; unmatched requests collapse to one label.
func normalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
