// Package logging wraps zap with context-aware helpers for genogram services.
//
// Every log method takes a context.Context. When the context carries an
// OpenTelemetry span, trace_id and span_id are attached automatically; when
// it carries an analysis id or root member id (see WithAnalysisID and
// WithRootMember) those are attached too.
//
// Free-text genogram fields (notes, names, locations) are personal data. The
// stdout encoder redacts configured keys, and callers should prefer
// Redacted for ad-hoc values.
//
// # Usage
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithAnalysisID(ctx, analysisID)
//	logger.Info(ctx, "analysis complete", zap.Int("patterns", n))
//
// Tests use NewTestLogger, which records entries in memory.
package logging
