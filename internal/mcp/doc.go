// Package mcp exposes the pattern engine as MCP tools over stdio.
//
// Three tools are registered: genogram_analyze runs pattern detection,
// genogram_report builds a reflection report and genogram_rules lists the
// active rule set. Snapshots are passed inline as JSON or YAML text, or as a
// path readable by the server process.
package mcp
