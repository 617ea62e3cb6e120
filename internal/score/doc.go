// Package score defines the shared data model for the AxiomSon engine.
//
// The model has two halves:
//
// Equation side: an Equation describes one time-varying expression and how
// its values are mapped to musical symbols (Mapping), updated between steps
// (Updates), and kept in range (Limits). Equations are immutable once
// resolved from configuration; the mutable variable state they drive lives
// inside the sequencer that simulates them, never here.
//
// Event side: a NoteEvent is one emitted note (pitch, velocity, start/end
// seconds) and a Track is the ordered emission sequence for one equation.
// NoteEvents are immutable once emitted and carry a per-track Seq stamped
// from a monotonic counter, so stores can order them without comparing
// floating-point start times.
//
// INVARIANTS:
//   - NoteEvent.Pitch in [0,127], NoteEvent.Velocity in [1,127]
//   - NoteEvent.End > NoteEvent.Start
//   - Track.Events is non-decreasing in Start (emission order)
//   - each Limit targets a distinct variable; limits never interact
package score
