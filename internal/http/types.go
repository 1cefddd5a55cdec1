package http

import (
	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
	"github.com/fyrsmithlabs/genogram/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Rules     int                     `json:"rules"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// RulesResponse is the response body for GET /api/v1/rules.
type RulesResponse struct {
	Rules []patterns.RuleInfo `json:"rules"`
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Snapshot genogram.Snapshot `json:"snapshot"`
	// MaxDepth overrides the server's ancestor search depth when positive.
	MaxDepth int `json:"max_depth,omitempty"`
}

// ReportRequest is the request body for POST /api/v1/report.
type ReportRequest struct {
	Snapshot genogram.Snapshot `json:"snapshot"`
	MaxDepth int               `json:"max_depth,omitempty"`
	// Format is one of json, markdown or text. Defaults to json.
	Format              string `json:"format,omitempty"`
	IncludeCorrelations *bool  `json:"include_correlations,omitempty"`
	IncludeInsights     *bool  `json:"include_insights,omitempty"`
}

// RenderedReport is returned by POST /api/v1/report for markdown and text.
type RenderedReport struct {
	ReportID string `json:"report_id"`
	Format   string `json:"format"`
	Content  string `json:"content"`
}

// ErrorResponse is the body of 4xx responses that carry detail.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
