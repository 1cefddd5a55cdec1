// Package patterns detects recurring intergenerational patterns in a
// genogram.
//
// A Context indexes a genogram snapshot for O(1) lookup and answers the
// ancestry and event queries rules need. Each Rule inspects a Context and,
// when it matches, emits a scored Pattern backed by evidence. The Engine runs
// all registered rules in priority order, drops patterns under the minimum
// score and ranks the rest by score.
//
//	engine := patterns.NewEngine(patterns.WithLogger(logger))
//	found, err := engine.DetectPatterns(ctx, members, relationships, events, rootID, 4)
//
// Rules are pure functions of the Context. Emitted patterns carry an empty
// Unlocks list; attaching content ids is a separate step performed by an
// Unlocker during Analyze.
package patterns
