package patterns

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
)

// ErrInvariant reports a rule that produced an out-of-range score or a
// pattern without evidence.
var ErrInvariant = errors.New("rule invariant violated")

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// EvidenceKind distinguishes what an evidence entry points at.
type EvidenceKind string

const (
	EvidenceEvent        EvidenceKind = "event"
	EvidenceRelationship EvidenceKind = "relationship"
)

// Evidence is one justification backing a Pattern.
//
// Weight is evidence-level salience in [0,1]. It is informational and never
// feeds back into the pattern score.
type Evidence struct {
	Kind        EvidenceKind `json:"kind"`
	MemberID    string       `json:"member_id,omitempty"`
	EventID     string       `json:"event_id,omitempty"`
	Description string       `json:"description"`
	Weight      float64      `json:"weight"`
}

// Pattern is a scored conclusion emitted by a rule. Treat it as immutable.
type Pattern struct {
	RuleID          string           `json:"rule_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Score           int              `json:"score"`
	Lineage         genogram.Lineage `json:"lineage"`
	Evidence        []Evidence       `json:"evidence"`
	Recommendations []string         `json:"recommendations"`
	Unlocks         []string         `json:"unlocks"`
}

// MemberIDs returns the distinct member ids referenced by the evidence, in
// first-seen order.
func (p Pattern) MemberIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range p.Evidence {
		if ev.MemberID == "" || seen[ev.MemberID] {
			continue
		}
		seen[ev.MemberID] = true
		ids = append(ids, ev.MemberID)
	}
	return ids
}

// RuleInfo is the static metadata of a rule.
type RuleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    int    `json:"priority"` // 1-10, higher runs first
}

// Analysis bundles the results of one analysis pass.
type Analysis struct {
	ID               string    `json:"id"`
	RootMemberID     string    `json:"root_member_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	Patterns         []Pattern `json:"patterns"`
	SuggestedContent []string  `json:"suggested_content"`
	HighPriority     []Pattern `json:"high_priority"`
	Stats            Stats     `json:"stats"`
}
