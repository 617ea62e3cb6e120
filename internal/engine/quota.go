package engine

// StepQuota bounds the number of steps one sequencer may take.
//
// Each sequencer has its own StepQuota instance, checked before every
// step. dt is already clamped to a positive minimum, but a huge active
// window against a tiny dt can still mean millions of steps; the quota
// guarantees termination with bounded output instead.
//
// Exhaustion is not an error: the sequencer completes the track early,
// consistent with the engine's degrade-not-fail policy.
type StepQuota struct {
	maxSteps int
	current  int
}

// DefaultMaxSteps is the default per-equation step budget.
// At the default 1/8-beat rate and 120 BPM this allows several hours of
// simulated time per equation.
const DefaultMaxSteps = 250_000

// NewStepQuota creates a quota with the given limit.
// Non-positive limits fall back to DefaultMaxSteps.
func NewStepQuota(maxSteps int) *StepQuota {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &StepQuota{maxSteps: maxSteps}
}

// Take consumes one step and reports whether the budget still allows it.
func (q *StepQuota) Take() bool {
	q.current++
	return q.current <= q.maxSteps
}

// Current returns the number of steps taken so far.
func (q *StepQuota) Current() int {
	return q.current
}

// MaxSteps returns the step budget.
func (q *StepQuota) MaxSteps() int {
	return q.maxSteps
}
