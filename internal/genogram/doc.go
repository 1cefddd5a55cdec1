// Package genogram defines the family graph consumed by pattern detection.
//
// A genogram is a flat snapshot of three lists:
//   - Members: people, with sex, optional birth/death dates and presence flags
//   - Relationships: directed edges; parent edges point from child to parent
//   - Events: life events tagged with a kind, a lineage and a 1-5 severity
//
// Values are treated as immutable once handed to the engine. Snapshots can be
// decoded from JSON or YAML files and optionally validated; the engine itself
// tolerates missing dates, unattached events and dangling member references.
package genogram
