package patterns

import (
	"fmt"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
)

// Rule ids.
const (
	RulePaternalAbsence = "paternal-absence-chain"
	RuleDivorce         = "divorce-repetition"
	RuleEarlyDeath      = "early-death-male-line"
	RuleSecrets         = "secrets-cluster"
	RuleMigration       = "migration-breaks"
	RuleGenerational    = "generational-repetition"
)

const (
	earlyDeathAgeLimit = 40
	secretWeightFactor = 1.2
)

// PaternalAbsenceChain fires on two or more paternal absence events.
type PaternalAbsenceChain struct{}

func (PaternalAbsenceChain) Info() RuleInfo {
	return RuleInfo{
		ID:          RulePaternalAbsence,
		Name:        "Paternal absence chain",
		Description: "Fathers on the paternal line were repeatedly absent from the household.",
		Priority:    10,
	}
}

func (PaternalAbsenceChain) events(c *Context) []genogram.Event {
	var out []genogram.Event
	for _, e := range c.EventsByKind(genogram.EventAbsence) {
		if e.Lineage == genogram.LineagePaternal {
			out = append(out, e)
		}
	}
	return out
}

func (r PaternalAbsenceChain) Matches(c *Context) bool {
	return len(r.events(c)) >= 2
}

func (r PaternalAbsenceChain) Score(c *Context) int {
	events := r.events(c)
	return clampScore(min(len(events)*15, 60) + sumSeverity(events)/2)
}

func (r PaternalAbsenceChain) Emit(c *Context) Pattern {
	return newPattern(r.Info(), r.Score(c), genogram.LineagePaternal, evidenceFor(c, r.events(c)),
		"Explore how each generation experienced the absent father and what was said about him.",
		"Notice whether distance or unavailability shows up in your own close relationships.",
	)
}

// DivorceRepetition fires on three or more divorces on any side.
type DivorceRepetition struct{}

func (DivorceRepetition) Info() RuleInfo {
	return RuleInfo{
		ID:          RuleDivorce,
		Name:        "Divorce repetition",
		Description: "Partnerships in the family repeatedly ended in divorce.",
		Priority:    7,
	}
}

func (DivorceRepetition) Matches(c *Context) bool {
	return len(c.EventsByKind(genogram.EventDivorce)) >= 3
}

func (DivorceRepetition) Score(c *Context) int {
	events := c.EventsByKind(genogram.EventDivorce)
	return clampScore(min(len(events)*12, 50) + sumSeverity(events)/3)
}

func (r DivorceRepetition) Emit(c *Context) Pattern {
	events := c.EventsByKind(genogram.EventDivorce)
	return newPattern(r.Info(), r.Score(c), dominantLineage(events), evidenceFor(c, events),
		"Map the ages and circumstances of each separation to look for a shared script.",
		"Reflect on the family beliefs about commitment you grew up with.",
	)
}

// EarlyDeathMaleLine fires on two or more paternal deaths of men under 40.
// Deaths whose age cannot be computed are never counted.
type EarlyDeathMaleLine struct{}

func (EarlyDeathMaleLine) Info() RuleInfo {
	return RuleInfo{
		ID:          RuleEarlyDeath,
		Name:        "Early death in the male line",
		Description: "Men on the paternal line died before the age of 40.",
		Priority:    9,
	}
}

func (EarlyDeathMaleLine) events(c *Context) []genogram.Event {
	var out []genogram.Event
	for _, e := range c.EventsByKind(genogram.EventDeath) {
		if e.Lineage != genogram.LineagePaternal {
			continue
		}
		m, ok := c.Member(e.MemberID)
		if !ok || m.Sex != genogram.SexMale {
			continue
		}
		if age, ok := c.AgeAtEvent(e); ok && age < earlyDeathAgeLimit {
			out = append(out, e)
		}
	}
	return out
}

func (r EarlyDeathMaleLine) Matches(c *Context) bool {
	return len(r.events(c)) >= 2
}

func (r EarlyDeathMaleLine) Score(c *Context) int {
	return clampScore(min(len(r.events(c))*25, 100))
}

func (r EarlyDeathMaleLine) Emit(c *Context) Pattern {
	return newPattern(r.Info(), r.Score(c), genogram.LineagePaternal, evidenceFor(c, r.events(c)),
		"Notice any anniversary anxiety as you approach the ages at which these men died.",
		"Talk with relatives about how the family grieved and what went unspoken.",
	)
}

// SecretsCluster fires when secrets, child losses and abortions together
// number two or more.
type SecretsCluster struct{}

func (SecretsCluster) Info() RuleInfo {
	return RuleInfo{
		ID:          RuleSecrets,
		Name:        "Cluster of secrets",
		Description: "Family secrets and hidden losses accumulate across the genogram.",
		Priority:    8,
	}
}

func (SecretsCluster) events(c *Context) []genogram.Event {
	var out []genogram.Event
	for _, e := range c.Events() {
		switch e.Kind {
		case genogram.EventSecret, genogram.EventChildLoss, genogram.EventAbortion:
			out = append(out, e)
		}
	}
	return out
}

func (r SecretsCluster) Matches(c *Context) bool {
	return len(r.events(c)) >= 2
}

func (r SecretsCluster) Score(c *Context) int {
	events := r.events(c)
	secrets, hiddenChildLoss, hiddenAbortion := 0, 0, 0
	for _, e := range events {
		switch {
		case e.Kind == genogram.EventSecret:
			secrets++
		case e.Kind == genogram.EventChildLoss && e.IsSecret:
			hiddenChildLoss++
		case e.Kind == genogram.EventAbortion && e.IsSecret:
			hiddenAbortion++
		}
	}
	return clampScore(min(len(events)*20, 70) + 15*secrets + 10*hiddenChildLoss + 10*hiddenAbortion)
}

func (r SecretsCluster) Emit(c *Context) Pattern {
	events := r.events(c)
	evidence := make([]Evidence, 0, len(events))
	for _, e := range events {
		w := severityWeight(e.Severity)
		if e.IsSecret {
			w = clampWeight(w * secretWeightFactor)
		}
		evidence = append(evidence, eventEvidence(c, e, w))
	}
	return newPattern(r.Info(), r.Score(c), dominantLineage(events), evidence,
		"Consider which of these losses were never openly named and who carried them.",
		"A therapist can help you decide what, if anything, to bring into the open.",
	)
}

// MigrationBreaks fires on two or more migrations combined with at least one
// divorce or absence.
type MigrationBreaks struct{}

func (MigrationBreaks) Info() RuleInfo {
	return RuleInfo{
		ID:          RuleMigration,
		Name:        "Migration and broken bonds",
		Description: "Uprooting moves coincide with separations or absences in the family.",
		Priority:    6,
	}
}

func (MigrationBreaks) Matches(c *Context) bool {
	breaks := len(c.EventsByKind(genogram.EventDivorce)) + len(c.EventsByKind(genogram.EventAbsence))
	return len(c.EventsByKind(genogram.EventMigration)) >= 2 && breaks >= 1
}

func (MigrationBreaks) Score(c *Context) int {
	migrations := len(c.EventsByKind(genogram.EventMigration))
	breaks := len(c.EventsByKind(genogram.EventDivorce)) + len(c.EventsByKind(genogram.EventAbsence))
	return clampScore(min(migrations*10, 40) + 15*breaks)
}

func (r MigrationBreaks) Emit(c *Context) Pattern {
	var events []genogram.Event
	for _, e := range c.Events() {
		switch e.Kind {
		case genogram.EventMigration, genogram.EventDivorce, genogram.EventAbsence:
			events = append(events, e)
		}
	}
	return newPattern(r.Info(), r.Score(c), dominantLineage(events), evidenceFor(c, events),
		"Trace what was left behind with each move: places, people, language.",
		"Look at whether separations followed the moves or prompted them.",
	)
}

// GenerationalRepetition fires when one event kind is attached to members of
// at least three distinct generations, counting the root as generation 0.
type GenerationalRepetition struct{}

func (GenerationalRepetition) Info() RuleInfo {
	return RuleInfo{
		ID:          RuleGenerational,
		Name:        "Generational repetition",
		Description: "The same kind of event recurs across three or more generations.",
		Priority:    5,
	}
}

// dominant returns the kind spanning the most generations, the distinct
// generation count and the contributing events. Ties go to the kind listed
// first in genogram.EventKinds. The root must be an indexed member.
func (GenerationalRepetition) dominant(c *Context) (genogram.EventKind, int, []genogram.Event) {
	root := c.RootID()
	if _, ok := c.Member(root); !ok {
		return "", 0, nil
	}
	gens := c.AncestorGenerations(root, c.MaxDepth())
	gens[root] = 0

	var (
		bestKind   genogram.EventKind
		bestCount  int
		bestEvents []genogram.Event
	)
	for _, kind := range genogram.EventKinds() {
		seen := make(map[int]bool)
		var events []genogram.Event
		for _, e := range c.EventsByKind(kind) {
			g, ok := gens[e.MemberID]
			if !ok {
				continue
			}
			seen[g] = true
			events = append(events, e)
		}
		if len(seen) > bestCount {
			bestKind, bestCount, bestEvents = kind, len(seen), events
		}
	}
	return bestKind, bestCount, bestEvents
}

func (r GenerationalRepetition) Matches(c *Context) bool {
	_, generations, _ := r.dominant(c)
	return generations >= 3
}

func (r GenerationalRepetition) Score(c *Context) int {
	_, generations, events := r.dominant(c)
	return clampScore(min(generations*20, 60) + 5*(len(events)-generations))
}

func (r GenerationalRepetition) Emit(c *Context) Pattern {
	kind, generations, events := r.dominant(c)
	p := newPattern(r.Info(), r.Score(c), dominantLineage(events), evidenceFor(c, events),
		"Write the story of this event as each generation might have told it.",
		"Ask what the family learned to expect after it happened the first time.",
	)
	p.Description = fmt.Sprintf("%s events recur across %d generations of the family.", kind, generations)
	return p
}
