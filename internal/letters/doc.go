// Package letters maps detected patterns to therapeutic letter content.
//
// A Catalog lists letters and the rule ids that unlock them. The pattern
// engine never sees the catalog; Analyze hands its results to a Catalog (or
// a Watcher, which hot-reloads one from disk) through the patterns.Unlocker
// interface, and the returned copies carry the unlocked letter ids.
//
// Catalog files are YAML or TOML:
//
//	letters:
//	  - id: letter-absent-father
//	    title: To the father who was not there
//	    rules: [paternal-absence-chain]
package letters
