package score

// VarNames lists the variables an expression may reference, in canonical
// order. Update rules may additionally reference the current time "t".
var VarNames = []string{"x", "y", "z"}

// Limit is a per-variable safety valve: once the variable reaches
// Threshold the simulation snaps it back to ResetTo.
type Limit struct {
	Threshold float64 `json:"threshold"`
	ResetTo   float64 `json:"reset_to"`
}

// Mapping controls how a normalized scalar in [0,1] becomes musical
// symbols. All fields are resolved (defaults applied) by the config layer.
type Mapping struct {
	BaseMIDI      int     `json:"base_midi"`
	Scale         string  `json:"scale"`
	OctaveRange   int     `json:"octave_range"`
	Polyphony     int     `json:"polyphony"`
	RhythmQuant   float64 `json:"rhythm_quant"` // fraction of a beat; 0 disables quantization
	VelocityCurve string  `json:"velocity_curve"`
	Instrument    string  `json:"instrument"`
}

// Program returns the MIDI program number for the mapping's instrument.
// Piano maps to program 0; everything else is rendered as a synth lead.
func (m Mapping) Program() int {
	name := CanonicalName(m.Instrument)
	if name == "" || name == "piano" {
		return 0
	}
	return 80
}

// Equation is one resolved equation: the expression, its initial
// variable state, the feedback rules, and the mapping into music.
//
// Equations are value types; the sequencer copies Vars into its own
// mutable state at construction, so a resolved Equation is never shared
// mutable data.
type Equation struct {
	Name     string             `json:"name"`
	Expr     string             `json:"expr"`
	Vars     map[string]float64 `json:"vars"`
	Updates  []string           `json:"updates,omitempty"`
	EvalRate float64            `json:"eval_rate"` // fraction of a beat between evaluations
	Window   Window             `json:"window"`    // seconds, [start,end]
	Duration float64            `json:"duration"`  // declared lifetime in seconds (scheduler)
	Mapping  Mapping            `json:"mapping"`
	Limits   map[string]Limit   `json:"limits,omitempty"`
}

// Window is an active time interval in seconds.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NoteEvent is one emitted note. Immutable once emitted.
type NoteEvent struct {
	Seq      int64   `json:"seq"`
	Pitch    int     `json:"pitch"`
	Velocity int     `json:"velocity"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Track    string  `json:"track"`
}

// Track is the ordered emission sequence for one equation.
type Track struct {
	Name       string      `json:"name"`
	Instrument string      `json:"instrument"`
	Program    int         `json:"program"`
	Events     []NoteEvent `json:"events"`
}

// Score is the full output of one run: one track per equation, in
// configuration order, plus the tempo they were rendered at.
type Score struct {
	Tempo  float64 `json:"tempo"`
	Tracks []Track `json:"tracks"`
}

// EventCount returns the total number of events across all tracks.
func (s Score) EventCount() int {
	n := 0
	for _, tr := range s.Tracks {
		n += len(tr.Events)
	}
	return n
}
