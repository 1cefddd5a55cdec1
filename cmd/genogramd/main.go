// Genogramd serves the pattern detection engine over HTTP.
//
// Configuration is read from ~/.config/genogram/config.yaml (or -config) and
// overridden by GENOGRAM_* environment variables. See internal/config.
//
// Usage:
//
//	# Start server with defaults
//	genogramd
//
//	# Configure via environment
//	GENOGRAM_SERVER_HTTP_PORT=8080 GENOGRAM_OBSERVABILITY_ENABLE_TELEMETRY=true genogramd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/genogram/internal/config"
	httpserver "github.com/fyrsmithlabs/genogram/internal/http"
	"github.com/fyrsmithlabs/genogram/internal/services"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/genogram/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  genogramd [-config path]   Start the genogram daemon\n")
			fmt.Fprintf(os.Stderr, "  genogramd version          Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("genogramd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down within the configured timeout.
func run(ctx context.Context, cfg *config.Config) error {
	reg, err := services.New(ctx, cfg, services.Options{})
	if err != nil {
		return err
	}
	logger := reg.Logger()

	srv, err := httpserver.NewServer(reg.Engine(), logger, &httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Version:   version,
		MaxDepth:  cfg.Engine.MaxDepth,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}, httpserver.WithTelemetry(reg.Telemetry()))
	if err != nil {
		_ = reg.Close(context.Background())
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info(ctx, "starting genogramd",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.Int("rules", len(reg.Engine().Rules())),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := reg.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info(context.Background(), "server shutdown complete")
	return nil
}
