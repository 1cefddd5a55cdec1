package telemetry

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/genogram/internal/config"
)

// Protocols accepted by the OTLP exporters.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled         bool
	Endpoint        string
	Protocol        string
	ServiceName     string
	ServiceVersion  string
	Insecure        bool    // plaintext transport, local endpoints only
	SampleRate      float64 // 0.0-1.0
	ExportInterval  time.Duration
	ShutdownTimeout time.Duration
}

// NewDefaultConfig returns defaults with telemetry disabled.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		Endpoint:        "localhost:4317",
		Protocol:        ProtocolGRPC,
		ServiceName:     "genogram",
		ServiceVersion:  "0.1.0",
		Insecure:        true,
		SampleRate:      1.0,
		ExportInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromConfig maps the observability section of the service config.
func FromConfig(o config.ObservabilityConfig) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = o.EnableTelemetry
	cfg.Insecure = o.Insecure
	cfg.SampleRate = o.SampleRate
	if o.Endpoint != "" {
		cfg.Endpoint = o.Endpoint
	}
	if o.Protocol != "" {
		cfg.Protocol = o.Protocol
	}
	if o.ServiceName != "" {
		cfg.ServiceName = o.ServiceName
	}
	if o.ServiceVersion != "" {
		cfg.ServiceVersion = o.ServiceVersion
	}
	if d := o.ExportInterval.Duration(); d > 0 {
		cfg.ExportInterval = d
	}
	return cfg
}

// Validate checks configuration for errors. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required when telemetry is enabled"))
	}
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service_name is required when telemetry is enabled"))
	}
	if c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP {
		errs = append(errs, fmt.Errorf("unsupported protocol %q", c.Protocol))
	}
	if c.Insecure && c.Endpoint != "" && !isLocalEndpoint(c.Endpoint) {
		errs = append(errs, errors.New("insecure connections to remote endpoints are not allowed; set insecure=false or use a local endpoint"))
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate must be between 0 and 1, got %v", c.SampleRate))
	}
	if c.ExportInterval <= 0 {
		errs = append(errs, errors.New("export interval must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}

// isLocalEndpoint reports whether endpoint names a loopback host.
func isLocalEndpoint(endpoint string) bool {
	host := stripScheme(endpoint)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// stripScheme removes http:// or https:// from an endpoint URL.
// The OTLP HTTP exporters expect host:port.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}
