package reflection

import (
	"time"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

// CorrelationType describes how two patterns relate.
type CorrelationType string

const (
	// CorrelationCoOccurs links patterns whose evidence shares members.
	CorrelationCoOccurs CorrelationType = "co_occurs"
	// CorrelationSameLineage links patterns on the same side of the family.
	CorrelationSameLineage CorrelationType = "same_lineage"
)

// Correlation is a relationship between two detected patterns.
type Correlation struct {
	ID          string          `json:"id"`
	SourceID    string          `json:"source_id"` // rule id
	TargetID    string          `json:"target_id"` // rule id
	Type        CorrelationType `json:"type"`
	Strength    float64         `json:"strength"` // 0-1
	Description string          `json:"description"`
	MemberIDs   []string        `json:"member_ids,omitempty"`
}

// Insight is a key takeaway derived from the patterns.
type Insight struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Confidence      float64  `json:"confidence"`
	RelatedPatterns []string `json:"related_patterns,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Insight categories.
const (
	InsightHighPriority = "high_priority"
	InsightLineage      = "lineage_concentration"
)

// Report is a complete reflection over one analysis.
type Report struct {
	ID               string             `json:"id"`
	AnalysisID       string             `json:"analysis_id"`
	RootMemberID     string             `json:"root_member_id"`
	GeneratedAt      time.Time          `json:"generated_at"`
	Summary          string             `json:"summary"`
	Patterns         []patterns.Pattern `json:"patterns"`
	Correlations     []Correlation      `json:"correlations"`
	Insights         []Insight          `json:"insights"`
	Statistics       Statistics         `json:"statistics"`
	Recommendations  []string           `json:"recommendations"`
	SuggestedContent []string           `json:"suggested_content"`
}

// Statistics extends the genogram counts with pattern figures.
type Statistics struct {
	patterns.Stats
	Patterns          int                      `json:"patterns"`
	HighPriority      int                      `json:"high_priority"`
	AverageScore      float64                  `json:"average_score"`
	TopRule           string                   `json:"top_rule,omitempty"`
	PatternsByLineage map[genogram.Lineage]int `json:"patterns_by_lineage"`
}

// ReportOptions configures report generation.
type ReportOptions struct {
	IncludeCorrelations bool
	IncludeInsights     bool
	MaxInsights         int
	Correlate           CorrelateOptions
}

// DefaultReportOptions enables every section.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		IncludeCorrelations: true,
		IncludeInsights:     true,
		MaxInsights:         10,
	}
}

// CorrelateOptions configures correlation analysis.
type CorrelateOptions struct {
	MinStrength     float64           // default 0.3
	MaxCorrelations int               // default 50
	Types           []CorrelationType // empty means all
}
