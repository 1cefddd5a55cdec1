// Package config provides configuration loading for the genogram services.
//
// Configuration comes from three layers, highest precedence first:
// GENOGRAM_-prefixed environment variables, a YAML file, and the defaults
// returned by Default.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete service configuration.
type Config struct {
	Engine        EngineConfig        `koanf:"engine"`
	Server        ServerConfig        `koanf:"server"`
	Letters       LettersConfig       `koanf:"letters"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// EngineConfig holds pattern engine thresholds.
type EngineConfig struct {
	MinScore          int  `koanf:"min_score"`           // patterns below are discarded (default: 40)
	SuggestScore      int  `koanf:"suggest_score"`       // patterns at or above unlock content (default: 60)
	HighPriorityScore int  `koanf:"high_priority_score"` // patterns at or above need escalation (default: 75)
	MaxDepth          int  `koanf:"max_depth"`           // ancestor traversal bound (default: 4)
	Parallel          bool `koanf:"parallel"`            // evaluate rules concurrently
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"` // requests per second on analysis endpoints, 0 disables
	RateBurst       int      `koanf:"rate_burst"`
}

// LettersConfig configures the therapeutic letter catalog.
type LettersConfig struct {
	CatalogPath string `koanf:"catalog_path"` // empty uses the built-in catalog
	Watch       bool   `koanf:"watch"`        // reload the catalog file on change
}

// LoggingConfig is the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool     `koanf:"enable_telemetry"`
	ServiceName     string   `koanf:"service_name"`
	ServiceVersion  string   `koanf:"service_version"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"` // grpc or http/protobuf
	Insecure        bool     `koanf:"insecure"`
	SampleRate      float64  `koanf:"sample_rate"`
	ExportInterval  Duration `koanf:"export_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MinScore:          40,
			SuggestScore:      60,
			HighPriorityScore: 75,
			MaxDepth:          4,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
		},
		Letters: LettersConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			ServiceName:    "genogram",
			ServiceVersion: "0.1.0",
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			SampleRate:     1.0,
			ExportInterval: Duration(15 * time.Second),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	e := c.Engine
	if e.MinScore < 0 || e.MinScore > 100 {
		errs = append(errs, fmt.Errorf("engine.min_score must be 0-100, got %d", e.MinScore))
	}
	if e.SuggestScore < e.MinScore || e.SuggestScore > 100 {
		errs = append(errs, fmt.Errorf("engine.suggest_score must be between min_score and 100, got %d", e.SuggestScore))
	}
	if e.HighPriorityScore < 0 || e.HighPriorityScore > 100 {
		errs = append(errs, fmt.Errorf("engine.high_priority_score must be 0-100, got %d", e.HighPriorityScore))
	}
	if e.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("engine.max_depth must be >= 1, got %d", e.MaxDepth))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit cannot be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be >= 1 when rate limiting is enabled"))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	o := c.Observability
	if o.EnableTelemetry {
		if o.ServiceName == "" {
			errs = append(errs, errors.New("service name required when telemetry is enabled"))
		}
		if o.Endpoint == "" {
			errs = append(errs, errors.New("endpoint required when telemetry is enabled"))
		}
		if o.Protocol != "grpc" && o.Protocol != "http/protobuf" {
			errs = append(errs, fmt.Errorf("observability.protocol must be 'grpc' or 'http/protobuf', got %q", o.Protocol))
		}
		if o.SampleRate < 0 || o.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("observability.sample_rate must be 0-1, got %v", o.SampleRate))
		}
	}

	return errors.Join(errs...)
}
