package engine

import "sync/atomic"

// Clock is a monotonic logical counter used to stamp NoteEvents with a
// per-track sequence number.
//
// Event start times are floats and aggressive quantization can collapse
// neighbours onto the same grid point, so stores and renderers order
// events by seq, never by comparing start times.
//
// Thread-safety: safe for concurrent use (atomic operations), though each
// sequencer owns its own clock and steps from a single goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
