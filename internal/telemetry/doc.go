// Package telemetry wires OpenTelemetry tracing and metrics for the genogram
// services.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. Telemetry is disabled by default; when disabled or when an
// exporter cannot be created, Tracer and Meter fall back to the global no-op
// providers and analysis keeps running.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Observability))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	ctx, span := tel.Tracer("genogram.patterns").Start(ctx, "patterns.Analyze")
//	defer span.End()
//
// Tests use NewTestTelemetry, which records spans in memory and exposes a
// manual metric reader.
package telemetry
