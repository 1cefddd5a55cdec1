package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

func pattern(rule string, score int, lineage genogram.Lineage, members ...string) patterns.Pattern {
	p := patterns.Pattern{
		RuleID:          rule,
		Name:            "Pattern " + rule,
		Description:     "Description of " + rule + ".",
		Score:           score,
		Lineage:         lineage,
		Recommendations: []string{"Reflect on " + rule, "Shared advice"},
		Unlocks:         []string{},
	}
	for i, m := range members {
		p.Evidence = append(p.Evidence, patterns.Evidence{
			Kind:        patterns.EvidenceEvent,
			MemberID:    m,
			EventID:     rule + "-" + string(rune('a'+i)),
			Description: "event for " + m,
			Weight:      0.5,
		})
	}
	return p
}

func sampleAnalysis() *patterns.Analysis {
	found := []patterns.Pattern{
		pattern("absence", 85, genogram.LineagePaternal, "f", "gf"),
		pattern("death", 60, genogram.LineagePaternal, "gf", "ggf"),
		pattern("secrets", 45, genogram.LineageMaternal, "gm"),
	}
	return &patterns.Analysis{
		ID:               "analysis-1",
		RootMemberID:     "me",
		Patterns:         found,
		SuggestedContent: []string{"letter-a"},
		HighPriority:     found[:1],
		Stats:            patterns.Stats{Members: 6, Events: 5},
	}
}

func TestCorrelate(t *testing.T) {
	a := sampleAnalysis()
	correlations := Correlate(a.Patterns, CorrelateOptions{})

	require.Len(t, correlations, 2)

	// absence/death share gf: overlap 1/2
	// absence/death both paternal: min score 60
	byType := map[CorrelationType]Correlation{}
	for _, c := range correlations {
		byType[c.Type] = c
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "absence", c.SourceID)
		assert.Equal(t, "death", c.TargetID)
	}
	assert.InDelta(t, 0.5, byType[CorrelationCoOccurs].Strength, 1e-9)
	assert.Equal(t, []string{"gf"}, byType[CorrelationCoOccurs].MemberIDs)
	assert.InDelta(t, 0.6, byType[CorrelationSameLineage].Strength, 1e-9)

	// Strongest first
	assert.Equal(t, CorrelationSameLineage, correlations[0].Type)
}

func TestCorrelate_Options(t *testing.T) {
	a := sampleAnalysis()

	onlyCo := Correlate(a.Patterns, CorrelateOptions{Types: []CorrelationType{CorrelationCoOccurs}})
	require.Len(t, onlyCo, 1)
	assert.Equal(t, CorrelationCoOccurs, onlyCo[0].Type)

	strict := Correlate(a.Patterns, CorrelateOptions{MinStrength: 0.55})
	require.Len(t, strict, 1)
	assert.Equal(t, CorrelationSameLineage, strict[0].Type)

	limited := Correlate(a.Patterns, CorrelateOptions{MaxCorrelations: 1})
	assert.Len(t, limited, 1)

	assert.Equal(t, []Correlation{}, Correlate(a.Patterns[:1], CorrelateOptions{}))
}

func TestCorrelate_MixedLineageNeverCorrelates(t *testing.T) {
	found := []patterns.Pattern{
		pattern("a", 90, genogram.LineageMixed, "x"),
		pattern("b", 90, genogram.LineageMixed, "y"),
	}
	assert.Empty(t, Correlate(found, CorrelateOptions{}))
}

func TestGenerateInsights(t *testing.T) {
	insights := generateInsights(sampleAnalysis(), 10)
	require.Len(t, insights, 2)

	high := insights[0]
	assert.Equal(t, InsightHighPriority, high.Category)
	assert.Equal(t, "Needs attention: Pattern absence", high.Title)
	assert.InDelta(t, 0.85, high.Confidence, 1e-9)
	assert.Equal(t, []string{"absence"}, high.RelatedPatterns)
	assert.Equal(t, professionalSupport, high.Recommendations[0])

	lineage := insights[1]
	assert.Equal(t, InsightLineage, lineage.Category)
	assert.Contains(t, lineage.Title, "paternal")
	assert.Equal(t, []string{"absence", "death"}, lineage.RelatedPatterns)
	assert.InDelta(t, 2.0/3.0, lineage.Confidence, 1e-9)

	assert.Len(t, generateInsights(sampleAnalysis(), 1), 1)
}

func TestLineageInsight_Balanced(t *testing.T) {
	_, ok := lineageInsight([]patterns.Pattern{
		pattern("a", 50, genogram.LineagePaternal, "x"),
		pattern("b", 50, genogram.LineagePaternal, "x"),
		pattern("c", 50, genogram.LineageMaternal, "y"),
		pattern("d", 50, genogram.LineageMaternal, "y"),
	})
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	report := Build(sampleAnalysis(), DefaultReportOptions())

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "analysis-1", report.AnalysisID)
	assert.Equal(t, "me", report.RootMemberID)
	assert.Len(t, report.Patterns, 3)
	assert.Len(t, report.Correlations, 2)
	assert.Len(t, report.Insights, 2)
	assert.Equal(t, []string{"letter-a"}, report.SuggestedContent)

	s := report.Statistics
	assert.Equal(t, 3, s.Patterns)
	assert.Equal(t, 1, s.HighPriority)
	assert.Equal(t, "absence", s.TopRule)
	assert.InDelta(t, 190.0/3.0, s.AverageScore, 1e-9)
	assert.Equal(t, 2, s.PatternsByLineage[genogram.LineagePaternal])
	assert.Equal(t, 6, s.Members)

	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, professionalSupport, report.Recommendations[0])
	assert.Equal(t, 1, countOf(report.Recommendations, "Shared advice"))

	assert.Equal(t, "Analyzed 6 members and 5 events. Identified 3 patterns (1 high priority). Found 2 correlations between patterns. Unlocked 1 letters.", report.Summary)
}

func countOf(items []string, want string) int {
	n := 0
	for _, s := range items {
		if s == want {
			n++
		}
	}
	return n
}

func TestBuild_SectionsDisabled(t *testing.T) {
	report := Build(sampleAnalysis(), ReportOptions{})
	assert.Equal(t, []Correlation{}, report.Correlations)
	assert.Equal(t, []Insight{}, report.Insights)
}

func TestBuild_Empty(t *testing.T) {
	report := Build(&patterns.Analysis{ID: "x"}, DefaultReportOptions())

	assert.Equal(t, []patterns.Pattern{}, report.Patterns)
	assert.Equal(t, []string{}, report.SuggestedContent)
	assert.Empty(t, report.Recommendations)
	assert.Contains(t, report.Summary, "No recurring patterns")
	assert.Empty(t, report.Statistics.TopRule)
}

func TestReporter_Generate(t *testing.T) {
	engine := patterns.NewEngine()
	snap := &genogram.Snapshot{
		RootMemberID: "me",
		Members:      []genogram.Member{{ID: "me", Sex: genogram.SexFemale}},
		Events: []genogram.Event{
			{ID: "d1", Kind: genogram.EventDivorce, Lineage: genogram.LineagePaternal, Severity: 4},
			{ID: "d2", Kind: genogram.EventDivorce, Lineage: genogram.LineagePaternal, Severity: 4},
			{ID: "d3", Kind: genogram.EventDivorce, Lineage: genogram.LineagePaternal, Severity: 4},
		},
	}

	report, err := NewReporter(engine).Generate(context.Background(), snap, 4, DefaultReportOptions())
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, patterns.RuleDivorce, report.Statistics.TopRule)
	assert.Equal(t, 3, report.Statistics.Events)
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, *genogram.Snapshot, int) (*patterns.Analysis, error) {
	return nil, errors.New("boom")
}

func TestReporter_GenerateError(t *testing.T) {
	_, err := NewReporter(failingAnalyzer{}).Generate(context.Background(), &genogram.Snapshot{}, 4, DefaultReportOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern analysis failed")
}

func TestFormatReport(t *testing.T) {
	report := Build(sampleAnalysis(), DefaultReportOptions())

	out, err := FormatReport(report, "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "analysis-1", decoded["analysis_id"])
	stats := decoded["statistics"].(map[string]any)
	assert.EqualValues(t, 6, stats["members"])
	assert.EqualValues(t, 3, stats["patterns"])

	md, err := FormatReport(report, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Genogram Reflection Report")
	assert.Contains(t, md, "### Pattern absence (85)")
	assert.Contains(t, md, "## Key Insights")
	assert.Contains(t, md, "- event for gf")

	text, err := FormatReport(report, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "GENOGRAM REFLECTION REPORT")
	assert.Contains(t, text, "1. Pattern absence [85, paternal]")
	assert.Contains(t, text, "RECOMMENDATIONS")

	_, err = FormatReport(report, "pdf")
	require.Error(t, err)
}
