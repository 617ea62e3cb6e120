// Package engine implements the AxiomSon time-stepped equation-to-music
// mapping engine.
//
// The engine is the heart of AxiomSon - one Sequencer per equation
// advances a variable state on a beat-fraction grid, evaluates the
// equation's expression, maps the normalized value to pitches and a
// velocity, and emits NoteEvents into a Track.
//
// ARCHITECTURE:
//
// Single-Threaded Step Loop:
// Each Sequencer is purely sequential. Per step it:
//  1. Evaluates the expression at the variable state, degrading on
//     failure to an evaluation at (t,t,t) and finally to 0.0.
//  2. Normalizes with tanh into [-1,1], rescales to [0,1].
//  3. Maps the value to one pitch per polyphony voice and one velocity.
//  4. Quantizes the note interval to the rhythm grid, repairing
//     collapsed intervals so every note has positive duration.
//  5. Applies update rules sequentially against the pre-update state.
//  6. Applies limit resets, then advances t by dt.
//
// Equations share no mutable state, so callers may run many sequencers
// concurrently without synchronization; Perform does exactly that.
//
// CRITICAL PATTERNS:
//
// Degrade, Never Abort:
// Runtime evaluation failures, bad update rules, and unknown scale names
// all degrade silently (zero value, skipped rule, minor scale). Only
// construction-time expression errors are fatal, and those surface
// before any simulation starts. Configurations deliberately rely on the
// silent fallbacks; do not tighten them.
//
// Bounded Steps:
// A step quota (adapted per-equation, see StepQuota) bounds the number
// of iterations so a huge window with a tiny dt terminates. The quota
// ends the track early rather than erroring, consistent with the
// degrade policy.
package engine
