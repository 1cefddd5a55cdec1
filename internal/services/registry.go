package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/config"
	"github.com/fyrsmithlabs/genogram/internal/letters"
	"github.com/fyrsmithlabs/genogram/internal/logging"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
	"github.com/fyrsmithlabs/genogram/internal/reflection"
	"github.com/fyrsmithlabs/genogram/internal/telemetry"
)

const tracerName = "github.com/fyrsmithlabs/genogram/internal/patterns"

// Options adjusts how the registry is built.
type Options struct {
	// LogToStderr routes console logs to stderr, leaving stdout free for
	// command output or a stdio protocol.
	LogToStderr bool

	// Quiet raises the console log level to error. CLI commands use it so
	// routine info logs do not interleave with results.
	Quiet bool

	// Telemetry is passed through to telemetry.New, e.g. to inject exporters.
	Telemetry []telemetry.Option
}

// Registry provides access to the assembled components.
type Registry struct {
	config    *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	engine    *patterns.Engine
	reporter  *reflection.Reporter
	unlocker  patterns.Unlocker
	watcher   *letters.Watcher
}

// New builds a registry from cfg. A nil cfg uses config.Default. A watched
// catalog keeps reloading until ctx is done or Close is called.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Registry, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Observability), opts.Telemetry...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := newLogger(cfg.Logging, tel, opts)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	r := &Registry{
		config:    cfg,
		logger:    logger,
		telemetry: tel,
	}

	if err := r.initLetters(ctx, cfg.Letters); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	r.engine = patterns.NewEngine(
		patterns.WithMinScore(cfg.Engine.MinScore),
		patterns.WithSuggestScore(cfg.Engine.SuggestScore),
		patterns.WithHighPriorityScore(cfg.Engine.HighPriorityScore),
		patterns.WithParallel(cfg.Engine.Parallel),
		patterns.WithUnlocker(r.unlocker),
		patterns.WithLogger(logger.Named("patterns")),
		patterns.WithTracer(tel.Tracer(tracerName)),
	)
	r.reporter = reflection.NewReporter(r.engine)

	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", health.Reasons))
	}
	logger.Debug(ctx, "services initialized",
		zap.Int("rules", len(r.engine.Rules())),
		zap.Bool("telemetry", tel.IsEnabled()),
		zap.Bool("catalog_watch", r.watcher != nil),
	)
	return r, nil
}

func newLogger(cfg config.LoggingConfig, tel *telemetry.Telemetry, opts Options) (*logging.Logger, error) {
	lc := logging.NewDefaultConfig()

	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if opts.Quiet && level < zap.ErrorLevel {
		level = zap.ErrorLevel
	}
	lc.Level = level
	lc.Format = cfg.Format
	lc.Output.Stderr = opts.LogToStderr
	lc.Output.OTEL = tel.IsEnabled()

	return logging.NewLogger(lc, tel.LoggerProvider())
}

// initLetters selects the unlock source: the built-in catalog, a file loaded
// once, or a file watched for changes.
func (r *Registry) initLetters(ctx context.Context, cfg config.LettersConfig) error {
	switch {
	case cfg.CatalogPath == "":
		r.unlocker = letters.DefaultCatalog()
	case cfg.Watch:
		w, err := letters.NewWatcher(cfg.CatalogPath, r.logger)
		if err != nil {
			return fmt.Errorf("failed to load letter catalog: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("failed to watch letter catalog: %w", err)
		}
		r.watcher = w
		r.unlocker = w
	default:
		c, err := letters.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load letter catalog: %w", err)
		}
		r.unlocker = c
	}
	return nil
}

func (r *Registry) Config() *config.Config          { return r.config }
func (r *Registry) Logger() *logging.Logger         { return r.logger }
func (r *Registry) Telemetry() *telemetry.Telemetry { return r.telemetry }
func (r *Registry) Engine() *patterns.Engine        { return r.engine }
func (r *Registry) Reporter() *reflection.Reporter  { return r.reporter }
func (r *Registry) Unlocker() patterns.Unlocker     { return r.unlocker }

// Close stops the catalog watcher, flushes telemetry and syncs the logger.
func (r *Registry) Close(ctx context.Context) error {
	if r.watcher != nil {
		r.watcher.Stop()
	}

	var errs []error
	if r.telemetry != nil {
		if err := r.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	if r.logger != nil {
		if err := r.logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("logger sync: %w", err))
		}
	}
	return errors.Join(errs...)
}
