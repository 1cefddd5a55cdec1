package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

// Analyzer runs a pattern analysis over a snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, snap *genogram.Snapshot, maxDepth int) (*patterns.Analysis, error)
}

// Reporter generates reflection reports.
type Reporter struct {
	analyzer Analyzer
}

// NewReporter creates a reporter backed by analyzer, usually a
// *patterns.Engine.
func NewReporter(analyzer Analyzer) *Reporter {
	return &Reporter{analyzer: analyzer}
}

// Generate analyzes snap and builds a report from the result.
func (r *Reporter) Generate(ctx context.Context, snap *genogram.Snapshot, maxDepth int, opts ReportOptions) (*Report, error) {
	a, err := r.analyzer.Analyze(ctx, snap, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("pattern analysis failed: %w", err)
	}
	return Build(a, opts), nil
}

// Build creates a report from an existing analysis.
func Build(a *patterns.Analysis, opts ReportOptions) *Report {
	if opts.MaxInsights == 0 {
		opts.MaxInsights = 10
	}

	report := &Report{
		ID:               uuid.NewString(),
		AnalysisID:       a.ID,
		RootMemberID:     a.RootMemberID,
		GeneratedAt:      time.Now().UTC(),
		Patterns:         a.Patterns,
		Correlations:     []Correlation{},
		Insights:         []Insight{},
		Statistics:       calculateStatistics(a),
		SuggestedContent: a.SuggestedContent,
	}
	if report.Patterns == nil {
		report.Patterns = []patterns.Pattern{}
	}
	if report.SuggestedContent == nil {
		report.SuggestedContent = []string{}
	}

	if opts.IncludeCorrelations {
		report.Correlations = Correlate(a.Patterns, opts.Correlate)
	}
	if opts.IncludeInsights {
		report.Insights = generateInsights(a, opts.MaxInsights)
	}

	report.Recommendations = generateRecommendations(a)
	report.Summary = generateSummary(report)
	return report
}

func calculateStatistics(a *patterns.Analysis) Statistics {
	s := Statistics{
		Stats:             a.Stats,
		Patterns:          len(a.Patterns),
		HighPriority:      len(a.HighPriority),
		PatternsByLineage: countByLineage(a.Patterns),
	}
	if len(a.Patterns) > 0 {
		total := 0
		for _, p := range a.Patterns {
			total += p.Score
		}
		s.AverageScore = float64(total) / float64(len(a.Patterns))
		// Patterns are sorted by score, so the first is the strongest
		s.TopRule = a.Patterns[0].RuleID
	}
	return s
}

// generateRecommendations returns the deduplicated union of pattern
// recommendations, led by a referral when anything is high priority.
func generateRecommendations(a *patterns.Analysis) []string {
	seen := make(map[string]bool)
	recs := []string{}
	add := func(r string) {
		if r != "" && !seen[r] {
			seen[r] = true
			recs = append(recs, r)
		}
	}

	if len(a.HighPriority) > 0 {
		add(professionalSupport)
	}
	for _, p := range a.Patterns {
		for _, r := range p.Recommendations {
			add(r)
		}
	}
	return recs
}

func generateSummary(report *Report) string {
	s := report.Statistics
	parts := []string{
		fmt.Sprintf("Analyzed %d members and %d events", s.Members, s.Events),
	}

	if s.Patterns == 0 {
		parts = append(parts, "No recurring patterns met the reporting threshold")
	} else {
		parts = append(parts, fmt.Sprintf("Identified %d patterns (%d high priority)", s.Patterns, s.HighPriority))
	}

	if len(report.Correlations) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d correlations between patterns", len(report.Correlations)))
	}
	if len(report.SuggestedContent) > 0 {
		parts = append(parts, fmt.Sprintf("Unlocked %d letters", len(report.SuggestedContent)))
	}

	return strings.Join(parts, ". ") + "."
}

// FormatReport renders a report as "json", "text" or "markdown".
func FormatReport(report *Report, format string) (string, error) {
	switch format {
	case "", "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		return string(data), nil
	case "markdown":
		return formatAsMarkdown(report), nil
	case "text":
		return formatAsText(report), nil
	default:
		return "", fmt.Errorf("unsupported report format %q", format)
	}
}

func formatAsMarkdown(report *Report) string {
	var sb strings.Builder

	sb.WriteString("# Genogram Reflection Report\n\n")
	if report.RootMemberID != "" {
		sb.WriteString(fmt.Sprintf("**Root member:** %s\n", report.RootMemberID))
	}
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(report.Summary + "\n\n")

	if len(report.Patterns) > 0 {
		sb.WriteString("## Patterns\n\n")
		for _, p := range report.Patterns {
			sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", p.Name, p.Score))
			sb.WriteString(fmt.Sprintf("%s Lineage: %s.\n\n", p.Description, p.Lineage))
			for _, ev := range p.Evidence {
				sb.WriteString(fmt.Sprintf("- %s\n", ev.Description))
			}
			sb.WriteString("\n")
		}
	}

	if len(report.Insights) > 0 {
		sb.WriteString("## Key Insights\n\n")
		for _, insight := range report.Insights {
			sb.WriteString(fmt.Sprintf("### %s\n\n", insight.Title))
			sb.WriteString(insight.Description + "\n\n")
		}
	}

	if len(report.Correlations) > 0 {
		sb.WriteString("## Correlations\n\n")
		for _, c := range report.Correlations {
			sb.WriteString(fmt.Sprintf("- %s (%s, %.2f)\n", c.Description, c.Type, c.Strength))
		}
		sb.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", rec))
		}
	}

	return sb.String()
}

func formatAsText(report *Report) string {
	var sb strings.Builder

	sb.WriteString("GENOGRAM REFLECTION REPORT\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	if report.RootMemberID != "" {
		sb.WriteString(fmt.Sprintf("Root member: %s\n", report.RootMemberID))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 20) + "\n")
	sb.WriteString(report.Summary + "\n\n")

	if len(report.Patterns) > 0 {
		sb.WriteString("PATTERNS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, p := range report.Patterns {
			sb.WriteString(fmt.Sprintf("%d. %s [%d, %s]\n", i+1, p.Name, p.Score, p.Lineage))
			for _, ev := range p.Evidence {
				sb.WriteString(fmt.Sprintf("   - %s\n", ev.Description))
			}
		}
		sb.WriteString("\n")
	}

	if len(report.Insights) > 0 {
		sb.WriteString("KEY INSIGHTS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, insight := range report.Insights {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, insight.Title))
			sb.WriteString(fmt.Sprintf("   %s\n\n", insight.Description))
		}
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("RECOMMENDATIONS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, rec := range report.Recommendations {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec))
		}
	}

	return sb.String()
}
