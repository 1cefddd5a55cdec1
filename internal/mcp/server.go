package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/genogram/internal/logging"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
	"github.com/fyrsmithlabs/genogram/internal/reflection"
)

// Analyzer is the engine surface the tools call. *patterns.Engine
// satisfies it.
type Analyzer interface {
	reflection.Analyzer
	Rules() []patterns.RuleInfo
}

// Server is an MCP server that calls the engine directly.
type Server struct {
	mcp      *mcp.Server
	analyzer Analyzer
	reporter *reflection.Reporter
	metrics  *Metrics
	logger   *logging.Logger
	maxDepth int
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "genogram").
	Name string

	// Version is the server version (default: "0.1.0").
	Version string

	// MaxDepth is the ancestor search depth used when a call does not set one.
	MaxDepth int

	Logger *logging.Logger

	// Meter records tool metrics. Nil uses the global meter provider.
	Meter metric.Meter
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:     "genogram",
		Version:  "0.1.0",
		MaxDepth: patterns.DefaultMaxDepth,
		Logger:   logging.NewNop(),
	}
}

// NewServer creates a new MCP server backed by analyzer.
func NewServer(cfg *Config, analyzer Analyzer) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "genogram"
	}
	if version == "" {
		version = "0.1.0"
	}

	s := &Server{
		mcp:      mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		analyzer: analyzer,
		reporter: reflection.NewReporter(analyzer),
		metrics:  NewMetrics(cfg.Meter, logger),
		logger:   logger.Named("mcp"),
		maxDepth: cfg.MaxDepth,
	}

	s.registerTools()
	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single session on transport. Run uses stdio; Connect is
// for embedding the server behind another transport.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}
