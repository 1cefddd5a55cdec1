package genogram

import "fmt"

// Sex is the biological sex recorded for a family member.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether s is a known value.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Lineage tags which side of the family an event or pattern belongs to.
type Lineage string

const (
	LineagePaternal Lineage = "paternal"
	LineageMaternal Lineage = "maternal"
	LineageMixed    Lineage = "mixed"
)

// Valid reports whether l is a known value.
func (l Lineage) Valid() bool {
	switch l {
	case LineagePaternal, LineageMaternal, LineageMixed:
		return true
	}
	return false
}

// EventKind is the category of a life event.
type EventKind string

const (
	EventAbsence   EventKind = "absence"
	EventDivorce   EventKind = "divorce"
	EventDeath     EventKind = "death"
	EventSecret    EventKind = "secret"
	EventChildLoss EventKind = "childLoss"
	EventAbortion  EventKind = "abortion"
	EventMigration EventKind = "migration"
	EventAddiction EventKind = "addiction"
	EventIllness   EventKind = "illness"
	EventViolence  EventKind = "violence"
	EventSuicide   EventKind = "suicide"
	EventOther     EventKind = "other"
)

// EventKinds lists every known event kind in a stable order.
func EventKinds() []EventKind {
	return []EventKind{
		EventAbsence, EventDivorce, EventDeath, EventSecret, EventChildLoss, EventAbortion,
		EventMigration, EventAddiction, EventIllness, EventViolence, EventSuicide, EventOther,
	}
}

// Valid reports whether k is a known value.
func (k EventKind) Valid() bool {
	for _, known := range EventKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// RelationshipType is the kind of edge between two members.
type RelationshipType string

const (
	// RelParent edges point from a child (From) to one of its parents (To).
	RelParent    RelationshipType = "parent"
	RelPartner   RelationshipType = "partner"
	RelExPartner RelationshipType = "exPartner"
	RelSibling   RelationshipType = "sibling"
)

// Valid reports whether t is a known value.
func (t RelationshipType) Valid() bool {
	switch t {
	case RelParent, RelPartner, RelExPartner, RelSibling:
		return true
	}
	return false
}

// Severity bounds for events.
const (
	MinSeverity = 1
	MaxSeverity = 5
)

// Member is a person in the genogram.
type Member struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Sex       Sex    `json:"sex" yaml:"sex"`
	BirthDate *Date  `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	DeathDate *Date  `json:"death_date,omitempty" yaml:"death_date,omitempty"`
	IsAlive   bool   `json:"is_alive" yaml:"is_alive"`
	IsPresent bool   `json:"is_present" yaml:"is_present"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Relationship is a directed edge between two members.
type Relationship struct {
	ID      string           `json:"id,omitempty" yaml:"id,omitempty"`
	From    string           `json:"from" yaml:"from"`
	To      string           `json:"to" yaml:"to"`
	Type    RelationshipType `json:"type" yaml:"type"`
	EndDate *Date            `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Notes   string           `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Event is a life event. MemberID may be empty for events that are not
// attached to a specific person.
type Event struct {
	ID       string    `json:"id" yaml:"id"`
	Kind     EventKind `json:"kind" yaml:"kind"`
	MemberID string    `json:"member_id,omitempty" yaml:"member_id,omitempty"`
	Lineage  Lineage   `json:"lineage" yaml:"lineage"`
	Date     *Date     `json:"date,omitempty" yaml:"date,omitempty"`
	Severity int       `json:"severity" yaml:"severity"`
	IsSecret bool      `json:"is_secret" yaml:"is_secret"`
	Location string    `json:"location,omitempty" yaml:"location,omitempty"`
	Notes    string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Attached reports whether the event is owned by a member.
func (e Event) Attached() bool {
	return e.MemberID != ""
}

// Label returns a short human label, e.g. "paternal divorce (1987-05-02)".
func (e Event) Label() string {
	label := fmt.Sprintf("%s %s", e.Lineage, e.Kind)
	if e.Date != nil && !e.Date.IsZero() {
		label += fmt.Sprintf(" (%s)", e.Date)
	}
	return label
}
