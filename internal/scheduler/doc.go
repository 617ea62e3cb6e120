// Package scheduler bounds the number of concurrently "running" equations
// during live intake.
//
// The scheduler is orthogonal to the mathematical simulation in the
// engine package: it tracks each equation's real-time lifetime (a
// simulated "is running" interval equal to its declared duration), not
// its musical content.
//
// State machine per submission: Queued -> Active -> Finished, terminal at
// Finished; no cancellation, no re-entry. Submissions never fail: an
// equation is admitted immediately while the active set has room and
// queued in arrival order otherwise. Completions promote the queue head,
// strictly FIFO.
//
// All active-set and queue mutations happen under one mutex owned by the
// Scheduler. Lifetime timers fire on their own goroutines and re-enter
// through that mutex; they never coordinate with each other directly.
// Once admitted an equation always runs out its declared duration - the
// only external cancellation point is Wait's context, which abandons the
// waiting, not the timers.
package scheduler
