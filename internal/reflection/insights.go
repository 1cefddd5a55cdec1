package reflection

import (
	"fmt"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

const professionalSupport = "Consider exploring these patterns with a family therapist or counselor."

// generateInsights derives one insight per high-priority pattern followed by
// a lineage concentration insight when one side of the family dominates.
func generateInsights(a *patterns.Analysis, maxInsights int) []Insight {
	insights := []Insight{}

	for _, p := range a.HighPriority {
		recs := append([]string{professionalSupport}, p.Recommendations...)
		insights = append(insights, Insight{
			Title:           fmt.Sprintf("Needs attention: %s", p.Name),
			Description:     fmt.Sprintf("%s Scored %d with %d supporting events.", p.Description, p.Score, len(p.Evidence)),
			Category:        InsightHighPriority,
			Confidence:      float64(p.Score) / float64(patterns.MaxScore),
			RelatedPatterns: []string{p.RuleID},
			Recommendations: recs,
		})
	}

	if insight, ok := lineageInsight(a.Patterns); ok {
		insights = append(insights, insight)
	}

	if maxInsights > 0 && len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// lineageInsight reports when at least two patterns sit on one side and that
// side outnumbers the other.
func lineageInsight(found []patterns.Pattern) (Insight, bool) {
	counts := countByLineage(found)
	paternal, maternal := counts[genogram.LineagePaternal], counts[genogram.LineageMaternal]

	var side genogram.Lineage
	var n int
	switch {
	case paternal >= 2 && paternal > maternal:
		side, n = genogram.LineagePaternal, paternal
	case maternal >= 2 && maternal > paternal:
		side, n = genogram.LineageMaternal, maternal
	default:
		return Insight{}, false
	}

	var related []string
	for _, p := range found {
		if p.Lineage == side {
			related = append(related, p.RuleID)
		}
	}

	return Insight{
		Title:           fmt.Sprintf("Patterns concentrate on the %s line", side),
		Description:     fmt.Sprintf("%d of %d detected patterns are attributed to the %s side of the family.", n, len(found), side),
		Category:        InsightLineage,
		Confidence:      float64(n) / float64(len(found)),
		RelatedPatterns: related,
		Recommendations: []string{fmt.Sprintf("Gather stories from relatives on the %s side to fill in what the genogram does not show.", side)},
	}, true
}

func countByLineage(found []patterns.Pattern) map[genogram.Lineage]int {
	counts := make(map[genogram.Lineage]int)
	for _, p := range found {
		counts[p.Lineage]++
	}
	return counts
}
