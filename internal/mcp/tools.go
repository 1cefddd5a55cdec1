package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
	"github.com/fyrsmithlabs/genogram/internal/reflection"
)

const (
	toolAnalyze = "genogram_analyze"
	toolReport  = "genogram_report"
	toolRules   = "genogram_rules"
)

// analyzeInput selects the genogram to analyze. Exactly one of Snapshot and
// Path must be set. Struct embedding is avoided because schema inference
// skips embedded fields.
type analyzeInput struct {
	Snapshot     string `json:"snapshot,omitempty" jsonschema:"Genogram snapshot document as JSON or YAML text"`
	Encoding     string `json:"encoding,omitempty" jsonschema:"Encoding of the inline snapshot: json or yaml (default: json)"`
	Path         string `json:"path,omitempty" jsonschema:"Path to a .json, .yaml or .yml snapshot readable by the server"`
	RootMemberID string `json:"root_member_id,omitempty" jsonschema:"Overrides the snapshot root member"`
	MaxDepth     int    `json:"max_depth,omitempty" jsonschema:"Ancestor search depth (default: 4)"`
}

type analyzeOutput struct {
	AnalysisID        string             `json:"analysis_id" jsonschema:"Analysis identifier"`
	RootMemberID      string             `json:"root_member_id" jsonschema:"Root member analyzed"`
	GeneratedAt       string             `json:"generated_at" jsonschema:"RFC3339 generation time"`
	PatternCount      int                `json:"pattern_count" jsonschema:"Number of patterns detected"`
	HighPriorityCount int                `json:"high_priority_count" jsonschema:"Patterns at or above the high priority score"`
	Patterns          []patterns.Pattern `json:"patterns" jsonschema:"Detected patterns sorted by score"`
	SuggestedContent  []string           `json:"suggested_content" jsonschema:"Content ids unlocked by strong patterns"`
}

type reportInput struct {
	Snapshot            string `json:"snapshot,omitempty" jsonschema:"Genogram snapshot document as JSON or YAML text"`
	Encoding            string `json:"encoding,omitempty" jsonschema:"Encoding of the inline snapshot: json or yaml (default: json)"`
	Path                string `json:"path,omitempty" jsonschema:"Path to a .json, .yaml or .yml snapshot readable by the server"`
	RootMemberID        string `json:"root_member_id,omitempty" jsonschema:"Overrides the snapshot root member"`
	MaxDepth            int    `json:"max_depth,omitempty" jsonschema:"Ancestor search depth (default: 4)"`
	Format              string `json:"format,omitempty" jsonschema:"Output format: json, text, markdown (default: json)"`
	IncludeCorrelations *bool  `json:"include_correlations,omitempty" jsonschema:"Include correlation analysis (default: true)"`
	IncludeInsights     *bool  `json:"include_insights,omitempty" jsonschema:"Include insights (default: true)"`
	MaxInsights         int    `json:"max_insights,omitempty" jsonschema:"Maximum insights to include (default: 10)"`
}

type reportOutput struct {
	ReportID         string   `json:"report_id" jsonschema:"Report identifier"`
	AnalysisID       string   `json:"analysis_id" jsonschema:"Underlying analysis identifier"`
	Summary          string   `json:"summary" jsonschema:"High-level summary"`
	PatternCount     int      `json:"pattern_count" jsonschema:"Number of patterns"`
	HighPriority     int      `json:"high_priority" jsonschema:"Number of high priority patterns"`
	CorrelationCount int      `json:"correlation_count" jsonschema:"Number of correlations"`
	InsightCount     int      `json:"insight_count" jsonschema:"Number of insights"`
	AverageScore     float64  `json:"average_score" jsonschema:"Mean pattern score"`
	TopRule          string   `json:"top_rule,omitempty" jsonschema:"Rule of the highest scoring pattern"`
	Recommendations  []string `json:"recommendations" jsonschema:"Deduplicated recommendations"`
	Format           string   `json:"format" jsonschema:"Output format used"`
	FormattedText    string   `json:"formatted_text,omitempty" jsonschema:"Formatted report (for text/markdown)"`
}

type rulesInput struct{}

type rulesOutput struct {
	Rules []patterns.RuleInfo `json:"rules" jsonschema:"Active rules in evaluation order"`
}

// pathAccessNote warns callers that path inputs are read with the server's
// own file permissions.
const pathAccessNote = "The path input reads any .json, .yaml or .yml file the server process can access; only connect trusted local clients."

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAnalyze,
		Description: "Detect intergenerational patterns in a family genogram. Returns scored patterns with evidence, recommendations and unlocked content. " + pathAccessNote,
	}, instrument(s, toolAnalyze, s.handleAnalyze))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolReport,
		Description: "Generate a reflection report over a genogram: patterns, correlations between them, insights and recommendations. " + pathAccessNote,
	}, instrument(s, toolReport, s.handleReport))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolRules,
		Description: "List the pattern rules the engine evaluates, highest priority first.",
	}, instrument(s, toolRules, s.handleRules))
}

// instrument wraps a tool handler with metrics and logging.
func instrument[In, Out any](s *Server, name string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, name)
		defer s.metrics.DecrementActive(ctx, name)

		res, out, err := h(ctx, req, in)

		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			s.logger.Warn(ctx, "tool call failed", zap.String("tool", name), zap.Error(err))
		} else {
			s.logger.Debug(ctx, "tool call complete", zap.String("tool", name), zap.Duration("duration", time.Since(start)))
		}
		return res, out, err
	}
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
	snap, err := args.load()
	if err != nil {
		return nil, analyzeOutput{}, err
	}

	a, err := s.analyzer.Analyze(ctx, snap, s.depth(args.MaxDepth))
	if err != nil {
		return nil, analyzeOutput{}, fmt.Errorf("pattern analysis failed: %w", err)
	}

	out := analyzeOutput{
		AnalysisID:        a.ID,
		RootMemberID:      a.RootMemberID,
		GeneratedAt:       a.GeneratedAt.Format(time.RFC3339),
		PatternCount:      len(a.Patterns),
		HighPriorityCount: len(a.HighPriority),
		Patterns:          normalizePatterns(a.Patterns),
		SuggestedContent:  nonNil(a.SuggestedContent),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: analyzeText(out)},
		},
	}, out, nil
}

func (s *Server) handleReport(ctx context.Context, _ *mcp.CallToolRequest, args reportInput) (*mcp.CallToolResult, reportOutput, error) {
	format := args.Format
	if format == "" {
		format = "json"
	}
	switch format {
	case "json", "text", "markdown":
	default:
		return nil, reportOutput{}, fmt.Errorf("invalid format %q: expected json, text or markdown", format)
	}

	snap, err := args.source().load()
	if err != nil {
		return nil, reportOutput{}, err
	}

	opts := reflection.DefaultReportOptions()
	if args.IncludeCorrelations != nil {
		opts.IncludeCorrelations = *args.IncludeCorrelations
	}
	if args.IncludeInsights != nil {
		opts.IncludeInsights = *args.IncludeInsights
	}
	if args.MaxInsights > 0 {
		opts.MaxInsights = args.MaxInsights
	}

	report, err := s.reporter.Generate(ctx, snap, s.depth(args.MaxDepth), opts)
	if err != nil {
		return nil, reportOutput{}, fmt.Errorf("report generation failed: %w", err)
	}

	out := reportOutput{
		ReportID:         report.ID,
		AnalysisID:       report.AnalysisID,
		Summary:          report.Summary,
		PatternCount:     len(report.Patterns),
		HighPriority:     report.Statistics.HighPriority,
		CorrelationCount: len(report.Correlations),
		InsightCount:     len(report.Insights),
		AverageScore:     report.Statistics.AverageScore,
		TopRule:          report.Statistics.TopRule,
		Recommendations:  nonNil(report.Recommendations),
		Format:           format,
	}
	if format != "json" {
		out.FormattedText, err = reflection.FormatReport(report, format)
		if err != nil {
			return nil, reportOutput{}, err
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Generated reflection report %s: %s", report.ID, report.Summary)},
		},
	}, out, nil
}

func (s *Server) handleRules(_ context.Context, _ *mcp.CallToolRequest, _ rulesInput) (*mcp.CallToolResult, rulesOutput, error) {
	out := rulesOutput{Rules: nonNil(s.analyzer.Rules())}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d rules registered", len(out.Rules))},
		},
	}, out, nil
}

func (s *Server) depth(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.maxDepth
}

func (in reportInput) source() analyzeInput {
	return analyzeInput{
		Snapshot:     in.Snapshot,
		Encoding:     in.Encoding,
		Path:         in.Path,
		RootMemberID: in.RootMemberID,
		MaxDepth:     in.MaxDepth,
	}
}

// load resolves and validates the snapshot named by the input.
func (in analyzeInput) load() (*genogram.Snapshot, error) {
	var (
		snap *genogram.Snapshot
		err  error
	)
	switch {
	case in.Snapshot != "" && in.Path != "":
		return nil, errors.New("invalid input: set either snapshot or path, not both")
	case in.Path != "":
		snap, err = genogram.LoadSnapshot(in.Path)
	case in.Snapshot != "":
		encoding := genogram.Format(strings.ToLower(in.Encoding))
		if encoding == "" {
			encoding = genogram.FormatJSON
		}
		snap, err = genogram.DecodeSnapshot(strings.NewReader(in.Snapshot), encoding)
	default:
		return nil, errors.New("snapshot or path is required")
	}
	if err != nil {
		return nil, err
	}

	if in.RootMemberID != "" {
		snap.RootMemberID = in.RootMemberID
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func analyzeText(out analyzeOutput) string {
	if out.PatternCount == 0 {
		return "No patterns detected."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected %d patterns (%d high priority):\n", out.PatternCount, out.HighPriorityCount)
	for _, p := range out.Patterns {
		fmt.Fprintf(&sb, "- %s [%d, %s]\n", p.Name, p.Score, p.Lineage)
	}
	return sb.String()
}

// normalizePatterns replaces nil slices so the output matches its schema.
func normalizePatterns(in []patterns.Pattern) []patterns.Pattern {
	out := make([]patterns.Pattern, len(in))
	for i, p := range in {
		p.Evidence = nonNil(p.Evidence)
		p.Recommendations = nonNil(p.Recommendations)
		p.Unlocks = nonNil(p.Unlocks)
		out[i] = p
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
