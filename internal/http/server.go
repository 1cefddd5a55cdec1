// Package http serves the pattern engine over a JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/logging"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
	"github.com/fyrsmithlabs/genogram/internal/reflection"
	"github.com/fyrsmithlabs/genogram/internal/telemetry"
)

// Analyzer is the engine surface the server needs. *patterns.Engine
// satisfies it.
type Analyzer interface {
	reflection.Analyzer
	Rules() []patterns.RuleInfo
}

// Server provides HTTP endpoints for the pattern engine.
type Server struct {
	echo      *echo.Echo
	analyzer  Analyzer
	reporter  *reflection.Reporter
	telemetry *telemetry.Telemetry
	metrics   *HTTPMetrics
	limiter   *clientLimiter
	logger    *logging.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string

	// MaxDepth is the ancestor search depth used when a request does not
	// set one.
	MaxDepth int

	// RateLimit is the sustained requests per second allowed per client on
	// the analysis endpoints. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetry reports telemetry health on /health and records HTTP
// metrics on its meter provider.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *Server) { s.telemetry = t }
}

// NewServer creates a new HTTP server.
func NewServer(analyzer Analyzer, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:      "localhost",
			Port:      9191,
			MaxDepth:  patterns.DefaultMaxDepth,
			RateLimit: 20,
			RateBurst: 40,
		}
	}

	s := &Server{
		analyzer: analyzer,
		reporter: reflection.NewReporter(analyzer),
		logger:   logger.Named("http"),
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.telemetry != nil {
		s.metrics = NewHTTPMetrics(s.telemetry.Meter(httpInstrumentationName), s.logger)
	} else {
		s.metrics = NewHTTPMetrics(nil, s.logger)
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(s.metrics.MetricsMiddleware())

	s.echo = e
	s.registerRoutes()

	return s, nil
}

// requestLogger puts the request id on the request context and logs each
// completed request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), rid)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			s.logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/rules", s.handleRules)

	var limited []echo.MiddlewareFunc
	if s.limiter != nil {
		limited = append(limited, s.limiter.middleware(s.metrics))
	}
	v1.POST("/analyze", s.handleAnalyze, limited...)
	v1.POST("/report", s.handleReport, limited...)
}

// Echo exposes the underlying router, e.g. for tests or extra routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.config.Version,
		Rules:   len(s.analyzer.Rules()),
	}
	if s.telemetry != nil {
		h := s.telemetry.Health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRules(c echo.Context) error {
	return c.JSON(http.StatusOK, RulesResponse{Rules: s.analyzer.Rules()})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	ctx := c.Request().Context()

	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Snapshot.Validate(); err != nil {
		return s.invalidSnapshot(c, err)
	}

	analysis, err := s.analyzer.Analyze(ctx, &req.Snapshot, s.depth(req.MaxDepth))
	if err != nil {
		return s.analysisFailed(c, err)
	}
	return c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleReport(c echo.Context) error {
	ctx := c.Request().Context()

	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid report request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	format := req.Format
	if format == "" {
		format = "json"
	}
	switch format {
	case "json", "markdown", "text":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
	if err := req.Snapshot.Validate(); err != nil {
		return s.invalidSnapshot(c, err)
	}

	opts := reflection.DefaultReportOptions()
	if req.IncludeCorrelations != nil {
		opts.IncludeCorrelations = *req.IncludeCorrelations
	}
	if req.IncludeInsights != nil {
		opts.IncludeInsights = *req.IncludeInsights
	}

	report, err := s.reporter.Generate(ctx, &req.Snapshot, s.depth(req.MaxDepth), opts)
	if err != nil {
		return s.analysisFailed(c, err)
	}
	if format == "json" {
		return c.JSON(http.StatusOK, report)
	}

	content, err := reflection.FormatReport(report, format)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, RenderedReport{
		ReportID: report.ID,
		Format:   format,
		Content:  content,
	})
}

func (s *Server) depth(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.config.MaxDepth
}

func (s *Server) invalidSnapshot(c echo.Context, err error) error {
	details := validationDetails(err)
	s.logger.Warn(c.Request().Context(), "rejected invalid snapshot", zap.Int("problems", len(details)))
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   genogram.ErrInvalidSnapshot.Error(),
		Details: details,
	})
}

func (s *Server) analysisFailed(c echo.Context, err error) error {
	ctx := c.Request().Context()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn(ctx, "analysis canceled", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis canceled")
	}
	s.logger.Error(ctx, "analysis failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
}

// validationDetails flattens the joined errors returned by Snapshot.Validate.
func validationDetails(err error) []string {
	var details []string
	var walk func(error)
	walk = func(err error) {
		if err == genogram.ErrInvalidSnapshot {
			return
		}
		if multi, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range multi.Unwrap() {
				walk(inner)
			}
			return
		}
		details = append(details, err.Error())
	}
	walk(err)
	return details
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
