package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
)

func familyContext(depth int) *Context {
	members := []genogram.Member{
		member("me", genogram.SexFemale, "1990-01-01"),
		member("f", genogram.SexMale, "1960-01-01"),
		member("m", genogram.SexFemale, "1962-01-01"),
		member("gf", genogram.SexMale, "1930-01-01"),
		member("ggf", genogram.SexMale, "1900-01-01"),
	}
	rels := []genogram.Relationship{
		parent("me", "f"),
		parent("me", "m"),
		parent("f", "gf"),
		parent("gf", "ggf"),
		{From: "f", To: "m", Type: genogram.RelPartner},
		{From: "me", To: "sib", Type: genogram.RelSibling},
	}
	events := []genogram.Event{
		event("e1", genogram.EventAbsence, genogram.LineagePaternal, "f", 3),
		event("e2", genogram.EventMigration, genogram.LineageMaternal, "m", 2),
		event("e3", genogram.EventSecret, genogram.LineageMixed, "", 4),
		event("e4", genogram.EventAbsence, genogram.LineagePaternal, "gf", 5),
	}
	return NewContext(members, rels, events, "me", depth)
}

func TestNewContext_DefaultDepth(t *testing.T) {
	c := NewContext(nil, nil, nil, "", 0)
	assert.Equal(t, DefaultMaxDepth, c.MaxDepth())
	assert.Equal(t, 0, c.MemberCount())
	assert.Empty(t, c.Events())
}

func TestContext_Ancestors(t *testing.T) {
	c := familyContext(4)

	assert.Equal(t, []string{"f", "m", "gf", "ggf"}, c.Ancestors("me", 4))
	assert.Equal(t, []string{"f", "m"}, c.Ancestors("me", 1))
	assert.Equal(t, []string{"f", "m", "gf"}, c.Ancestors("me", 2))
	assert.Empty(t, c.Ancestors("me", 0))
	assert.Empty(t, c.Ancestors("ggf", 4))
	assert.Empty(t, c.Ancestors("unknown", 4))
	assert.Empty(t, c.Ancestors("", 4))
	assert.NotContains(t, c.Ancestors("me", 4), "me")
}

func TestContext_AncestorsCycle(t *testing.T) {
	c := NewContext(
		[]genogram.Member{member("a", genogram.SexMale, ""), member("b", genogram.SexMale, "")},
		[]genogram.Relationship{parent("a", "b"), parent("b", "a"), parent("b", "b")},
		nil, "a", 10,
	)

	assert.Equal(t, []string{"b"}, c.Ancestors("a", 10))
	assert.Equal(t, []string{"a"}, c.Ancestors("b", 10))
}

func TestContext_AncestorsDanglingParent(t *testing.T) {
	c := NewContext(
		[]genogram.Member{member("a", genogram.SexMale, "")},
		[]genogram.Relationship{parent("a", "ghost"), parent("ghost", "ghostparent")},
		nil, "a", 4,
	)

	assert.Equal(t, []string{"ghost"}, c.Ancestors("a", 4))
	assert.Equal(t, map[string]int{"ghost": 1}, c.AncestorGenerations("a", 4))
	_, ok := c.Member("ghost")
	assert.False(t, ok)
}

func TestContext_UnknownRootHasNoAncestors(t *testing.T) {
	c := NewContext(
		[]genogram.Member{member("f", genogram.SexMale, "1960-01-01")},
		[]genogram.Relationship{parent("nobody", "f")},
		nil, "nobody", 4,
	)

	assert.Empty(t, c.Ancestors("nobody", 4))
	assert.Empty(t, c.AncestorGenerations("nobody", 4))
	assert.Equal(t, 0, c.GenerationDepth("nobody"))
	assert.Equal(t, 0, c.Stats().RootGenerationDepth)
}

func TestContext_AncestorGenerations(t *testing.T) {
	c := familyContext(4)

	gens := c.AncestorGenerations("me", 4)
	assert.Equal(t, map[string]int{"f": 1, "m": 1, "gf": 2, "ggf": 3}, gens)
	assert.Equal(t, 4, c.GenerationDepth("me"))
	assert.Equal(t, 2, familyContext(1).GenerationDepth("me"))
}

func TestContext_EventQueries(t *testing.T) {
	c := familyContext(4)

	paternal := c.EventsByLineage(genogram.LineagePaternal)
	require.Len(t, paternal, 2)
	assert.Equal(t, "e1", paternal[0].ID)
	assert.Equal(t, "e4", paternal[1].ID)

	absences := c.EventsByKind(genogram.EventAbsence)
	assert.Len(t, absences, 2)

	// Unattached events remain visible to kind and lineage queries
	assert.Len(t, c.EventsByKind(genogram.EventSecret), 1)
	assert.Len(t, c.EventsByLineage(genogram.LineageMixed), 1)
	assert.Len(t, c.UnattachedEvents(), 1)

	assert.Len(t, c.EventsFor("f"), 1)
	assert.Empty(t, c.EventsFor("me"))
	assert.Empty(t, c.EventsByKind(genogram.EventSuicide))
	assert.Len(t, c.Events(), 4)
}

func TestContext_QueriesDoNotExposeInternals(t *testing.T) {
	c := familyContext(4)

	events := c.Events()
	events[0].Kind = genogram.EventOther
	assert.Equal(t, genogram.EventAbsence, c.Events()[0].Kind)
}

func TestContext_AgeAtEvent(t *testing.T) {
	c := NewContext(
		[]genogram.Member{
			member("a", genogram.SexMale, "1950-06-15"),
			member("nobirth", genogram.SexMale, ""),
		},
		nil, nil, "a", 4,
	)

	age, ok := c.AgeAtEvent(dated(event("1", genogram.EventDeath, genogram.LineagePaternal, "a", 5), "1985-06-14"))
	assert.True(t, ok)
	assert.Equal(t, 34, age)

	age, ok = c.AgeAtEvent(dated(event("2", genogram.EventDeath, genogram.LineagePaternal, "a", 5), "1985-06-15"))
	assert.True(t, ok)
	assert.Equal(t, 35, age)

	_, ok = c.AgeAtEvent(event("3", genogram.EventDeath, genogram.LineagePaternal, "a", 5))
	assert.False(t, ok, "missing event date")

	_, ok = c.AgeAtEvent(dated(event("4", genogram.EventDeath, genogram.LineagePaternal, "nobirth", 5), "1985-01-01"))
	assert.False(t, ok, "missing birth date")

	_, ok = c.AgeAtEvent(dated(event("5", genogram.EventDeath, genogram.LineagePaternal, "ghost", 5), "1985-01-01"))
	assert.False(t, ok, "unknown member")

	_, ok = c.AgeAtEvent(dated(event("6", genogram.EventDeath, genogram.LineagePaternal, "a", 5), "1940-01-01"))
	assert.False(t, ok, "event before birth")
}

func TestContext_Stats(t *testing.T) {
	c := familyContext(4)
	s := c.Stats()

	assert.Equal(t, 5, s.Members)
	assert.Equal(t, 6, s.Relationships)
	assert.Equal(t, 4, s.Events)
	assert.Equal(t, 1, s.UnattachedEvents)
	assert.Equal(t, 0, s.SecretEvents)
	assert.Equal(t, 2, s.EventsByKind[genogram.EventAbsence])
	assert.Equal(t, 2, s.EventsByLineage[genogram.LineagePaternal])
	assert.InDelta(t, 3.5, s.AverageSeverity, 0.001)
	assert.Equal(t, 4, s.RootGenerationDepth)
}

func TestContextFromSnapshot(t *testing.T) {
	snap := &genogram.Snapshot{
		RootMemberID:  "me",
		Members:       []genogram.Member{member("me", genogram.SexMale, "")},
		Relationships: []genogram.Relationship{parent("me", "dad")},
	}
	c := ContextFromSnapshot(snap, 2)

	assert.Equal(t, "me", c.RootID())
	assert.Equal(t, 2, c.MaxDepth())
	assert.Equal(t, []string{"dad"}, c.Ancestors("me", 2))
}
