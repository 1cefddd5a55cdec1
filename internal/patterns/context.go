package patterns

import "github.com/fyrsmithlabs/genogram/internal/genogram"

// DefaultMaxDepth bounds ancestor traversal when no depth is given.
const DefaultMaxDepth = 4

// Context is an indexed, read-only view over a genogram. All queries are
// deterministic and never modify the underlying data.
type Context struct {
	rootID   string
	maxDepth int

	members        map[string]genogram.Member
	events         []genogram.Event
	eventsByMember map[string][]genogram.Event
	unattached     []genogram.Event
	relsByFrom     map[string][]genogram.Relationship
	relCount       int
}

// NewContext indexes members by id, events by owning member and
// relationships by their From member. maxDepth <= 0 uses DefaultMaxDepth.
//
// Duplicate member ids keep the last entry. Events and relationships that
// reference unknown members are kept; they just never resolve to a Member.
func NewContext(members []genogram.Member, relationships []genogram.Relationship, events []genogram.Event, rootID string, maxDepth int) *Context {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	c := &Context{
		rootID:         rootID,
		maxDepth:       maxDepth,
		members:        make(map[string]genogram.Member, len(members)),
		events:         append([]genogram.Event(nil), events...),
		eventsByMember: make(map[string][]genogram.Event),
		relsByFrom:     make(map[string][]genogram.Relationship),
		relCount:       len(relationships),
	}

	for _, m := range members {
		c.members[m.ID] = m
	}
	for _, e := range c.events {
		if !e.Attached() {
			c.unattached = append(c.unattached, e)
			continue
		}
		c.eventsByMember[e.MemberID] = append(c.eventsByMember[e.MemberID], e)
	}
	for _, r := range relationships {
		c.relsByFrom[r.From] = append(c.relsByFrom[r.From], r)
	}
	return c
}

// ContextFromSnapshot builds a Context from a snapshot.
func ContextFromSnapshot(s *genogram.Snapshot, maxDepth int) *Context {
	return NewContext(s.Members, s.Relationships, s.Events, s.RootMemberID, maxDepth)
}

// RootID returns the member id the analysis is centered on.
func (c *Context) RootID() string { return c.rootID }

// MaxDepth returns the ancestor traversal bound.
func (c *Context) MaxDepth() int { return c.maxDepth }

// Member looks up a member by id.
func (c *Context) Member(id string) (genogram.Member, bool) {
	m, ok := c.members[id]
	return m, ok
}

// MemberCount returns the number of distinct indexed members.
func (c *Context) MemberCount() int { return len(c.members) }

// RelationshipCount returns the number of relationships given to NewContext.
func (c *Context) RelationshipCount() int { return c.relCount }

// Events returns every event in input order.
func (c *Context) Events() []genogram.Event {
	return append([]genogram.Event(nil), c.events...)
}

// EventsFor returns the events owned by memberID.
func (c *Context) EventsFor(memberID string) []genogram.Event {
	return append([]genogram.Event(nil), c.eventsByMember[memberID]...)
}

// UnattachedEvents returns events with no owning member. They still take
// part in lineage and kind queries.
func (c *Context) UnattachedEvents() []genogram.Event {
	return append([]genogram.Event(nil), c.unattached...)
}

// EventsByLineage returns all events tagged with lineage, in input order.
func (c *Context) EventsByLineage(lineage genogram.Lineage) []genogram.Event {
	return c.filter(func(e genogram.Event) bool { return e.Lineage == lineage })
}

// EventsByKind returns all events of kind, in input order.
func (c *Context) EventsByKind(kind genogram.EventKind) []genogram.Event {
	return c.filter(func(e genogram.Event) bool { return e.Kind == kind })
}

func (c *Context) filter(keep func(genogram.Event) bool) []genogram.Event {
	var out []genogram.Event
	for _, e := range c.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Ancestors walks parent edges breadth-first from memberID for at most depth
// generations. The result never contains memberID and never repeats an id,
// so cyclic data terminates. Parents that are not indexed members are
// returned as terminal nodes. An unindexed memberID has no ancestors.
func (c *Context) Ancestors(memberID string, depth int) []string {
	gens := c.walk(memberID, depth)
	ids := make([]string, len(gens))
	for i, g := range gens {
		ids[i] = g.id
	}
	return ids
}

// AncestorGenerations maps each ancestor of memberID to its generation
// number, 1 being the parents. Same traversal and bounds as Ancestors.
func (c *Context) AncestorGenerations(memberID string, depth int) map[string]int {
	gens := c.walk(memberID, depth)
	out := make(map[string]int, len(gens))
	for _, g := range gens {
		out[g.id] = g.generation
	}
	return out
}

// GenerationDepth returns the number of ancestors reachable from memberID
// within the context's max depth.
func (c *Context) GenerationDepth(memberID string) int {
	return len(c.Ancestors(memberID, c.maxDepth))
}

type ancestor struct {
	id         string
	generation int
}

func (c *Context) walk(memberID string, depth int) []ancestor {
	if depth <= 0 {
		return nil
	}
	if _, ok := c.members[memberID]; !ok {
		return nil
	}

	visited := map[string]bool{memberID: true}
	frontier := []string{memberID}
	var out []ancestor

	for gen := 1; gen <= depth && len(frontier) > 0; gen++ {
		var next []string
		for _, id := range frontier {
			for _, r := range c.relsByFrom[id] {
				if r.Type != genogram.RelParent || r.To == "" || visited[r.To] {
					continue
				}
				visited[r.To] = true
				out = append(out, ancestor{id: r.To, generation: gen})
				// Unindexed parents are terminal.
				if _, ok := c.members[r.To]; ok {
					next = append(next, r.To)
				}
			}
		}
		frontier = next
	}
	return out
}

// AgeAtEvent returns the owning member's age in whole years on the event
// date. It reports false when the member, birth date or event date is
// missing, or when the event precedes the birth.
func (c *Context) AgeAtEvent(e genogram.Event) (int, bool) {
	if e.Date == nil || e.Date.IsZero() {
		return 0, false
	}
	m, ok := c.members[e.MemberID]
	if !ok || m.BirthDate == nil || m.BirthDate.IsZero() {
		return 0, false
	}
	age := m.BirthDate.YearsUntil(*e.Date)
	if age < 0 {
		return 0, false
	}
	return age, true
}
