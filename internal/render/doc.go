// Package render persists the engine's output.
//
// The engine core performs no file I/O; it hands an ordered Score to a
// Pipeline. Three pipelines ship here:
//
//   - TextPipeline: a deterministic plain-text dump, used by the CLI and
//     as the golden-test surface.
//   - Store: a SQLite event store. Runs are keyed by token; writes are
//     idempotent so re-rendering a run is safe.
//   - USTPipeline: UTAU vocal-synthesis project files, one per track.
//
// Every pipeline orders events by their logical seq stamp, never by
// comparing float start times.
package render
