package reflection

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

// Correlate compares every pair of patterns and returns the correlations
// at or above the minimum strength, strongest first.
func Correlate(found []patterns.Pattern, opts CorrelateOptions) []Correlation {
	if opts.MinStrength == 0 {
		opts.MinStrength = 0.3
	}
	if opts.MaxCorrelations == 0 {
		opts.MaxCorrelations = 50
	}
	if len(opts.Types) == 0 {
		opts.Types = []CorrelationType{CorrelationCoOccurs, CorrelationSameLineage}
	}

	if len(found) < 2 {
		return []Correlation{}
	}

	enabled := make(map[CorrelationType]bool, len(opts.Types))
	for _, t := range opts.Types {
		enabled[t] = true
	}

	correlations := []Correlation{}
	for i := 0; i < len(found); i++ {
		for j := i + 1; j < len(found); j++ {
			p1, p2 := found[i], found[j]

			if enabled[CorrelationCoOccurs] {
				shared := sharedMembers(p1, p2)
				if strength := coOccurrence(p1, p2, shared); strength >= opts.MinStrength {
					correlations = append(correlations, Correlation{
						ID:          uuid.NewString(),
						SourceID:    p1.RuleID,
						TargetID:    p2.RuleID,
						Type:        CorrelationCoOccurs,
						Strength:    strength,
						Description: fmt.Sprintf("%s and %s involve %d of the same family members", p1.Name, p2.Name, len(shared)),
						MemberIDs:   shared,
					})
				}
			}

			if enabled[CorrelationSameLineage] {
				if strength := sameLineage(p1, p2); strength >= opts.MinStrength {
					correlations = append(correlations, Correlation{
						ID:          uuid.NewString(),
						SourceID:    p1.RuleID,
						TargetID:    p2.RuleID,
						Type:        CorrelationSameLineage,
						Strength:    strength,
						Description: fmt.Sprintf("%s and %s both sit on the %s line", p1.Name, p2.Name, p1.Lineage),
					})
				}
			}
		}
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return correlations[i].Strength > correlations[j].Strength
	})

	if len(correlations) > opts.MaxCorrelations {
		correlations = correlations[:opts.MaxCorrelations]
	}
	return correlations
}

// sharedMembers returns the member ids referenced by both patterns, in p1's
// evidence order.
func sharedMembers(p1, p2 patterns.Pattern) []string {
	other := make(map[string]bool)
	for _, id := range p2.MemberIDs() {
		other[id] = true
	}
	var shared []string
	for _, id := range p1.MemberIDs() {
		if other[id] {
			shared = append(shared, id)
		}
	}
	return shared
}

// coOccurrence is the overlap coefficient of the two member sets.
func coOccurrence(p1, p2 patterns.Pattern, shared []string) float64 {
	smaller := min(len(p1.MemberIDs()), len(p2.MemberIDs()))
	if smaller == 0 || len(shared) == 0 {
		return 0
	}
	return float64(len(shared)) / float64(smaller)
}

// sameLineage scores a shared paternal or maternal attribution by the weaker
// pattern's score. Mixed lineage never correlates.
func sameLineage(p1, p2 patterns.Pattern) float64 {
	if p1.Lineage != p2.Lineage || p1.Lineage == genogram.LineageMixed || p1.Lineage == "" {
		return 0
	}
	return float64(min(p1.Score, p2.Score)) / float64(patterns.MaxScore)
}
