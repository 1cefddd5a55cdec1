// Package services assembles the process-wide components from configuration.
//
// New builds telemetry, the logger, the letter catalog (optionally watched
// for changes), the pattern engine and the reflection reporter in dependency
// order. Both the daemon and the CLI obtain their engine through a Registry
// so the wiring lives in one place. Close releases everything in reverse.
package services
