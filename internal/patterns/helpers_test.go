package patterns

import (
	"github.com/fyrsmithlabs/genogram/internal/genogram"
)

func member(id string, sex genogram.Sex, birth string) genogram.Member {
	m := genogram.Member{ID: id, Name: "Member " + id, Sex: sex, IsAlive: true}
	if birth != "" {
		m.BirthDate = genogram.MustDate(birth)
	}
	return m
}

func event(id string, kind genogram.EventKind, lineage genogram.Lineage, memberID string, severity int) genogram.Event {
	return genogram.Event{ID: id, Kind: kind, Lineage: lineage, MemberID: memberID, Severity: severity}
}

func dated(e genogram.Event, date string) genogram.Event {
	e.Date = genogram.MustDate(date)
	return e
}

func secret(e genogram.Event) genogram.Event {
	e.IsSecret = true
	return e
}

func parent(child, p string) genogram.Relationship {
	return genogram.Relationship{ID: child + "->" + p, From: child, To: p, Type: genogram.RelParent}
}

// fixedRule is a configurable rule for engine tests.
type fixedRule struct {
	info     RuleInfo
	matches  bool
	score    int
	evidence []Evidence
}

func newFixedRule(id string, priority, score int) *fixedRule {
	return &fixedRule{
		info:     RuleInfo{ID: id, Name: id, Priority: priority},
		matches:  true,
		score:    score,
		evidence: []Evidence{{Kind: EvidenceEvent, EventID: id + "-ev", Description: id, Weight: 0.5}},
	}
}

func (r *fixedRule) Info() RuleInfo { return r.info }
func (r *fixedRule) Matches(*Context) bool { return r.matches }
func (r *fixedRule) Score(*Context) int { return r.score }
func (r *fixedRule) Emit(c *Context) Pattern {
	return newPattern(r.info, r.Score(c), genogram.LineageMixed, r.evidence)
}

// stubUnlocker maps rule ids to content ids.
type stubUnlocker map[string][]string

func (u stubUnlocker) Attach(in []Pattern) []Pattern {
	out := make([]Pattern, len(in))
	for i, p := range in {
		p.Unlocks = append([]string{}, u[p.RuleID]...)
		out[i] = p
	}
	return out
}

// secretsFixture scores 85 on the secrets cluster rule.
func secretsFixture() []genogram.Event {
	return []genogram.Event{
		secret(event("s1", genogram.EventSecret, genogram.LineageMaternal, "gm", 5)),
		secret(event("s2", genogram.EventChildLoss, genogram.LineageMaternal, "gm", 4)),
		event("s3", genogram.EventAbortion, genogram.LineagePaternal, "", 3),
	}
}

// divorceFixture scores exactly 40 on the divorce repetition rule.
func divorceFixture() []genogram.Event {
	return []genogram.Event{
		event("d1", genogram.EventDivorce, genogram.LineagePaternal, "f", 4),
		event("d2", genogram.EventDivorce, genogram.LineagePaternal, "gf", 4),
		event("d3", genogram.EventDivorce, genogram.LineageMaternal, "gm", 4),
	}
}
