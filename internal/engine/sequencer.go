package engine

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/axiomson/axiomson/internal/eval"
	"github.com/axiomson/axiomson/internal/score"
)

// State tracks a sequencer's position in its lifecycle.
type State int

const (
	// StateInitialized means the sequencer is constructed but has not
	// stepped yet.
	StateInitialized State = iota + 1
	// StateStepping means the step loop is running.
	StateStepping
	// StateCompleted is terminal: the local time passed the window end
	// (or the step quota ran out).
	StateCompleted
)

// timeEpsilon absorbs float drift in the termination check so the final
// step at t == end_t is not lost to accumulated addition error.
const timeEpsilon = 1e-9

// minNoteSeconds is the floor applied when quantization collapses a note
// interval; together with dt it guarantees strictly positive durations.
const minNoteSeconds = 0.01

// defaultEvalRate is the beat fraction used when the configured rate is
// missing or non-positive.
const defaultEvalRate = 0.125

// updateRule is one compiled feedback assignment, e.g. "x = x + 1".
type updateRule struct {
	target string
	fn     *eval.Compiled
}

// Sequencer is the per-equation state machine: it owns the equation's
// variable state for the lifetime of one simulation and turns expression
// values into a Track of NoteEvents.
//
// States: Initialized -> Stepping -> Completed.
//
// A Sequencer is single-threaded; run separate sequencers on separate
// goroutines for parallelism (they share nothing mutable).
type Sequencer struct {
	eq          score.Equation
	beatSeconds float64
	dt          float64
	expr        *eval.Compiled
	updates     []updateRule
	quota       *StepQuota
	clock       *Clock
	logger      *slog.Logger

	state State
	t     float64
	vars  map[string]float64
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithMaxSteps overrides the per-equation step budget.
func WithMaxSteps(n int) Option {
	return func(s *Sequencer) {
		s.quota = NewStepQuota(n)
	}
}

// WithLogger sets the logger used for degraded-step diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = l
	}
}

// NewSequencer compiles eq's expression and update rules and prepares the
// initial variable state.
//
// An invalid expression returns a *BuildError wrapping the evaluator's
// *eval.InvalidExpressionError: construction failures are fatal and
// surface before any simulation starts. Bad update rules, by contrast,
// are skipped here with a debug log and never fail construction.
func NewSequencer(eq score.Equation, tempo float64, opts ...Option) (*Sequencer, error) {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	beatSeconds := 60.0 / tempo

	ev := eval.New()
	expr, err := ev.Compile(eq.Expr, score.VarNames)
	if err != nil {
		return nil, &BuildError{Code: ErrCodeInvalidExpression, Equation: eq.Name, Err: err}
	}

	s := &Sequencer{
		eq:          eq,
		beatSeconds: beatSeconds,
		expr:        expr,
		quota:       NewStepQuota(0),
		clock:       NewClock(),
		logger:      slog.Default(),
		state:       StateInitialized,
		t:           eq.Window.Start,
		vars:        map[string]float64{"x": 0, "y": 0, "z": 0},
	}
	for name, v := range eq.Vars {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
		}
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dt = beatSeconds * eq.EvalRate
	if s.dt <= 0 {
		s.dt = beatSeconds * defaultEvalRate
	}

	updateSymbols := append(append([]string(nil), score.VarNames...), "t")
	for _, rule := range eq.Updates {
		lhs, rhs, ok := strings.Cut(rule, "=")
		if !ok {
			continue
		}
		target := strings.TrimSpace(lhs)
		if !isVarName(target) {
			s.logger.Debug("skipping update rule with unknown target",
				"equation", eq.Name, "rule", rule)
			continue
		}
		fn, err := ev.Compile(strings.TrimSpace(rhs), updateSymbols)
		if err != nil {
			s.logger.Debug("skipping update rule that does not compile",
				"equation", eq.Name, "rule", rule, "error", err)
			continue
		}
		s.updates = append(s.updates, updateRule{target: target, fn: fn})
	}

	return s, nil
}

// State returns the sequencer's lifecycle state.
func (s *Sequencer) State() State {
	return s.state
}

// Vars returns a copy of the current variable state.
func (s *Sequencer) Vars() map[string]float64 {
	out := make(map[string]float64, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Run executes the step loop to completion and returns the equation's
// Track. Emission order is non-decreasing in start time because t is
// monotonically increasing and dt > 0.
//
// The only returned error is ctx cancellation; everything that can go
// wrong inside a step degrades silently instead.
func (s *Sequencer) Run(ctx context.Context) (score.Track, error) {
	track := score.Track{
		Name:       s.eq.Name,
		Instrument: s.eq.Mapping.Instrument,
		Program:    s.eq.Mapping.Program(),
	}

	s.state = StateStepping
	endT := s.eq.Window.End

	for s.t <= endT+timeEpsilon {
		if err := ctx.Err(); err != nil {
			return track, err
		}
		if !s.quota.Take() {
			s.logger.Warn("step quota exhausted, ending track early",
				"equation", s.eq.Name, "steps", s.quota.MaxSteps())
			break
		}

		s.step(&track, endT)
		s.t += s.dt
	}

	s.state = StateCompleted
	return track, nil
}

// step performs one evaluation-map-emit-feedback cycle at time s.t.
func (s *Sequencer) step(track *score.Track, endT float64) {
	v := s.evaluate()

	vNorm := math.Tanh(v)
	vScaled := (vNorm + 1.0) / 2.0

	pitches, velocity := MapValue(vScaled, s.eq.Mapping)

	quant := s.eq.Mapping.RhythmQuant
	startQ := quantizeTime(s.t, quant, s.beatSeconds)
	endQ := quantizeTime(math.Min(endT, s.t+s.dt), quant, s.beatSeconds)
	if endQ <= startQ {
		endQ = startQ + math.Max(minNoteSeconds, s.dt)
	}

	for _, pitch := range pitches {
		track.Events = append(track.Events, score.NoteEvent{
			Seq:      s.clock.Next(),
			Pitch:    pitch,
			Velocity: velocity,
			Start:    startQ,
			End:      endQ,
			Track:    s.eq.Name,
		})
	}

	s.applyUpdates()
	s.applyLimits()
}

// evaluate runs the expression at the current variable state, degrading
// to an evaluation at (t,t,t) and finally to 0.0. Errors never propagate:
// one step's numeric singularity must not end the simulation.
func (s *Sequencer) evaluate() float64 {
	v, err := s.expr.Eval(s.vars["x"], s.vars["y"], s.vars["z"])
	if err == nil {
		return v
	}
	v, err = s.expr.Eval(s.t, s.t, s.t)
	if err == nil {
		return v
	}
	s.logger.Debug("evaluation degraded to zero",
		"equation", s.eq.Name, "t", s.t, "error", err)
	return 0.0
}

// applyUpdates runs the update rules sequentially in declaration order.
// Every rule reads the pre-update state (plus current time) and writes
// one variable; a failing rule is skipped with no rollback of earlier
// writes.
func (s *Sequencer) applyUpdates() {
	if len(s.updates) == 0 {
		return
	}
	pre := s.Vars()
	for _, rule := range s.updates {
		v, err := rule.fn.Eval(pre["x"], pre["y"], pre["z"], s.t)
		if err != nil {
			s.logger.Debug("skipping failed update rule",
				"equation", s.eq.Name, "target", rule.target, "error", err)
			continue
		}
		s.vars[rule.target] = v
	}
}

// applyLimits snaps any variable at or above its threshold back to its
// reset value. Limits run after updates, independently per variable, in
// no particular order; each limit targets a distinct variable so order
// cannot matter.
func (s *Sequencer) applyLimits() {
	for name, lim := range s.eq.Limits {
		if !isVarName(name) {
			continue
		}
		if s.vars[name] >= lim.Threshold {
			s.vars[name] = lim.ResetTo
		}
	}
}

func isVarName(name string) bool {
	for _, v := range score.VarNames {
		if name == v {
			return true
		}
	}
	return false
}
