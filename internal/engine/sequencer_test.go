package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomson/axiomson/internal/eval"
	"github.com/axiomson/axiomson/internal/score"
)

// testEquation returns a one-voice piano equation over a 0..3s window at
// one evaluation per beat.
func testEquation() score.Equation {
	return score.Equation{
		Name:     "lead",
		Expr:     "x",
		Vars:     map[string]float64{"x": 5},
		EvalRate: 1,
		Window:   score.Window{Start: 0, End: 3},
		Duration: 3,
		Mapping:  testMapping(),
	}
}

func TestSequencer_DeterministicConstantInput(t *testing.T) {
	// With expr "x", x=5 and no updates, every step evaluates to the same
	// normalized tanh(5): identical pitch and velocity throughout.
	s, err := NewSequencer(testEquation(), 60)
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, s.State())

	track, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State())

	require.Len(t, track.Events, 4) // t = 0,1,2,3
	for i, e := range track.Events {
		assert.Equal(t, 82, e.Pitch, "event %d", i)
		assert.Equal(t, 127, e.Velocity, "event %d", i)
		assert.Equal(t, "lead", e.Track)
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, []float64{0, 1, 2, 3}, starts(track))
}

func TestSequencer_EndAlwaysAfterStart(t *testing.T) {
	eq := testEquation()
	eq.EvalRate = 0.25
	eq.Mapping.RhythmQuant = 4 // coarse grid that collapses most intervals
	eq.Window = score.Window{Start: 0, End: 2}

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	track, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, track.Events)
	prev := -1.0
	for i, e := range track.Events {
		assert.Greater(t, e.End, e.Start, "event %d", i)
		assert.GreaterOrEqual(t, e.Start, prev, "emission order must be non-decreasing in start")
		prev = e.Start
	}
}

func TestSequencer_LimitReset(t *testing.T) {
	// x starts at 9, each step adds 1, and x:[10,0] snaps it back. After
	// step one x hits 10 and is reset to 0 before the next evaluation.
	eq := testEquation()
	eq.Vars = map[string]float64{"x": 9}
	eq.Updates = []string{"x = x + 1"}
	eq.Limits = map[string]score.Limit{"x": {Threshold: 10, ResetTo: 0}}
	eq.Window = score.Window{Start: 0, End: 2}

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	track, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, track.Events, 3)
	// Step 1 sees x=9 (tanh ~ 1, top of the range); step 2 sees the reset
	// x=0 (tanh 0 -> v_scaled 0.5, the middle of the range).
	assert.Equal(t, 82, track.Events[0].Pitch)
	assert.Equal(t, 72, track.Events[1].Pitch)
	// After the run: reset to 0, then incremented once per later step.
	assert.InDelta(t, 2.0, s.Vars()["x"], 1e-9)
}

func TestSequencer_UpdatesReadPreUpdateState(t *testing.T) {
	eq := testEquation()
	eq.Vars = map[string]float64{"x": 3, "y": 7}
	eq.Updates = []string{"x = y", "y = x + 1"}
	eq.Window = score.Window{Start: 0, End: 0} // exactly one step

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	// Both rules read the pre-update state {x:3, y:7}.
	vars := s.Vars()
	assert.InDelta(t, 7.0, vars["x"], 1e-9)
	assert.InDelta(t, 4.0, vars["y"], 1e-9)
}

func TestSequencer_BadUpdateRulesAreSkipped(t *testing.T) {
	eq := testEquation()
	eq.Vars = map[string]float64{"x": 1}
	eq.Updates = []string{
		"w = x + 1",     // unknown target: skipped
		"not a rule",    // no assignment: skipped
		"y = nope(x)",   // does not compile: skipped
		"x = x + 1",     // survives
	}
	eq.Window = score.Window{Start: 0, End: 0}

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	vars := s.Vars()
	assert.InDelta(t, 2.0, vars["x"], 1e-9)
	assert.InDelta(t, 0.0, vars["y"], 1e-9)
}

func TestSequencer_EvaluationFailureDegradesToZero(t *testing.T) {
	// log(-1) fails at the variable state; the (t,t,t) fallback fails too
	// at t=0 (log 0), so the step degrades to 0.0 -> v_scaled 0.5.
	eq := testEquation()
	eq.Expr = "log(x)"
	eq.Vars = map[string]float64{"x": -1}
	eq.Window = score.Window{Start: 0, End: 1}

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	track, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, track.Events, 2)
	assert.Equal(t, 72, track.Events[0].Pitch) // degraded to 0.0
	assert.Equal(t, 72, track.Events[1].Pitch) // fallback log(1) = 0.0
}

func TestSequencer_InvalidExpressionFailsConstruction(t *testing.T) {
	eq := testEquation()
	eq.Expr = "x + mystery"

	_, err := NewSequencer(eq, 60)
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.True(t, eval.IsInvalidExpression(err))
	assert.Contains(t, err.Error(), "mystery")
}

func TestSequencer_NonPositiveEvalRateClamped(t *testing.T) {
	eq := testEquation()
	eq.EvalRate = 0
	eq.Window = score.Window{Start: 0, End: 1}

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	track, err := s.Run(context.Background())
	require.NoError(t, err)

	// dt falls back to 1/8 beat: t = 0, 0.125, ..., 1.0.
	assert.Len(t, track.Events, 9)
}

func TestSequencer_PolyphonyEmitsOneEventPerVoice(t *testing.T) {
	eq := testEquation()
	eq.Mapping.Polyphony = 3
	eq.Window = score.Window{Start: 0, End: 0}

	s, err := NewSequencer(eq, 60)
	require.NoError(t, err)
	track, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, track.Events, 3)
	first := track.Events[0]
	for _, e := range track.Events[1:] {
		assert.Equal(t, first.Start, e.Start)
		assert.Equal(t, first.End, e.End)
		assert.Equal(t, first.Velocity, e.Velocity)
		assert.Greater(t, e.Pitch, first.Pitch, "voices stack upward")
	}
}

func TestSequencer_StepQuotaEndsTrackEarly(t *testing.T) {
	eq := testEquation()
	eq.Window = score.Window{Start: 0, End: 1e9}

	s, err := NewSequencer(eq, 60, WithMaxSteps(5))
	require.NoError(t, err)
	track, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, track.Events, 5)
	assert.Equal(t, StateCompleted, s.State())
}

func TestSequencer_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewSequencer(testEquation(), 60)
	require.NoError(t, err)
	track, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, track.Events)
}

func TestPerform_OrderAndNames(t *testing.T) {
	a := testEquation()
	a.Name = "alpha"
	b := testEquation()
	b.Name = "beta"
	b.Mapping.Instrument = "synth"

	sc, err := Perform(context.Background(), 60, []score.Equation{a, b})
	require.NoError(t, err)

	require.Len(t, sc.Tracks, 2)
	assert.Equal(t, "alpha", sc.Tracks[0].Name)
	assert.Equal(t, "beta", sc.Tracks[1].Name)
	assert.Equal(t, 0, sc.Tracks[0].Program)
	assert.Equal(t, 80, sc.Tracks[1].Program)
	assert.Equal(t, 60.0, sc.Tempo)
}

func TestPerform_ConstructionErrorAbortsRun(t *testing.T) {
	good := testEquation()
	bad := testEquation()
	bad.Name = "broken"
	bad.Expr = "oops(x)"

	_, err := Perform(context.Background(), 60, []score.Equation{good, bad})
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.Contains(t, err.Error(), "broken")
}

func TestPerform_DefaultTempo(t *testing.T) {
	sc, err := Perform(context.Background(), 0, []score.Equation{testEquation()})
	require.NoError(t, err)
	assert.Equal(t, DefaultTempo, sc.Tempo)
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestStepQuota(t *testing.T) {
	q := NewStepQuota(2)
	assert.True(t, q.Take())
	assert.True(t, q.Take())
	assert.False(t, q.Take())
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 2, q.MaxSteps())

	assert.Equal(t, DefaultMaxSteps, NewStepQuota(0).MaxSteps())
}

func starts(tr score.Track) []float64 {
	out := make([]float64, len(tr.Events))
	for i, e := range tr.Events {
		out[i] = e.Start
	}
	return out
}
