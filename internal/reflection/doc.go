// Package reflection turns a pattern analysis into a report a person can
// read: statistics, correlations between detected patterns, insights and
// consolidated recommendations.
//
// Reports are built from a patterns.Analysis and can be rendered as JSON,
// plain text or markdown:
//
//	reporter := reflection.NewReporter(engine)
//	report, err := reporter.Generate(ctx, snapshot, reflection.DefaultReportOptions())
//	out, err := reflection.FormatReport(report, "markdown")
//
// Correlations are pairwise:
//   - co_occurs: two patterns draw evidence from the same family members
//   - same_lineage: two patterns are attributed to the same side of the family
package reflection
