package patterns

import (
	"fmt"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
)

// Rule detects one kind of pattern.
//
// Matches must be cheap; the engine calls it for every rule on every pass.
// Score and Emit are only meaningful after Matches returned true. Emit must
// return a pattern with at least one evidence entry and an empty Unlocks
// list. Implementations must be pure functions of the Context.
type Rule interface {
	Info() RuleInfo
	Matches(c *Context) bool
	Score(c *Context) int
	Emit(c *Context) Pattern
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		PaternalAbsenceChain{},
		EarlyDeathMaleLine{},
		SecretsCluster{},
		DivorceRepetition{},
		MigrationBreaks{},
		GenerationalRepetition{},
	}
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func sumSeverity(events []genogram.Event) int {
	total := 0
	for _, e := range events {
		total += e.Severity
	}
	return total
}

// severityWeight maps severity onto [0,1].
func severityWeight(severity int) float64 {
	return clampWeight(float64(severity) / float64(genogram.MaxSeverity))
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// dominantLineage returns the side with strictly more events, or mixed.
func dominantLineage(events []genogram.Event) genogram.Lineage {
	paternal, maternal := 0, 0
	for _, e := range events {
		switch e.Lineage {
		case genogram.LineagePaternal:
			paternal++
		case genogram.LineageMaternal:
			maternal++
		}
	}
	switch {
	case paternal > maternal:
		return genogram.LineagePaternal
	case maternal > paternal:
		return genogram.LineageMaternal
	default:
		return genogram.LineageMixed
	}
}

// eventEvidence builds one evidence entry for e.
func eventEvidence(c *Context, e genogram.Event, weight float64) Evidence {
	desc := e.Label()
	if m, ok := c.Member(e.MemberID); ok && m.Name != "" {
		desc = fmt.Sprintf("%s, %s", desc, m.Name)
	}
	return Evidence{
		Kind:        EvidenceEvent,
		MemberID:    e.MemberID,
		EventID:     e.ID,
		Description: desc,
		Weight:      weight,
	}
}

func evidenceFor(c *Context, events []genogram.Event) []Evidence {
	out := make([]Evidence, 0, len(events))
	for _, e := range events {
		out = append(out, eventEvidence(c, e, severityWeight(e.Severity)))
	}
	return out
}

// newPattern fills the fields shared by every rule.
func newPattern(info RuleInfo, score int, lineage genogram.Lineage, evidence []Evidence, recs ...string) Pattern {
	return Pattern{
		RuleID:          info.ID,
		Name:            info.Name,
		Description:     info.Description,
		Score:           score,
		Lineage:         lineage,
		Evidence:        evidence,
		Recommendations: recs,
		Unlocks:         []string{},
	}
}
