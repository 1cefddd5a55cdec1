package patterns

import "github.com/fyrsmithlabs/genogram/internal/genogram"

// Stats summarizes the indexed genogram.
type Stats struct {
	Members             int                        `json:"members"`
	Relationships       int                        `json:"relationships"`
	Events              int                        `json:"events"`
	UnattachedEvents    int                        `json:"unattached_events"`
	SecretEvents        int                        `json:"secret_events"`
	EventsByKind        map[genogram.EventKind]int `json:"events_by_kind"`
	EventsByLineage     map[genogram.Lineage]int   `json:"events_by_lineage"`
	AverageSeverity     float64                    `json:"average_severity"`
	RootGenerationDepth int                        `json:"root_generation_depth"`
}

// Stats computes counts over the context.
func (c *Context) Stats() Stats {
	s := Stats{
		Members:             c.MemberCount(),
		Relationships:       c.RelationshipCount(),
		Events:              len(c.events),
		UnattachedEvents:    len(c.unattached),
		EventsByKind:        make(map[genogram.EventKind]int),
		EventsByLineage:     make(map[genogram.Lineage]int),
		RootGenerationDepth: c.GenerationDepth(c.rootID),
	}

	severity := 0
	for _, e := range c.events {
		s.EventsByKind[e.Kind]++
		s.EventsByLineage[e.Lineage]++
		if e.IsSecret {
			s.SecretEvents++
		}
		severity += e.Severity
	}
	if len(c.events) > 0 {
		s.AverageSeverity = float64(severity) / float64(len(c.events))
	}
	return s
}
