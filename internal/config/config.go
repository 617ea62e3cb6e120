// Package config loads, saves, and resolves AxiomSon run configurations.
//
// Configurations are YAML (JSON parses as a YAML subset). Decoding is
// deliberately tolerant: fractions, windows, and limits that do not parse
// degrade to defaults or are skipped instead of failing the load. Only
// the engine's expression compilation rejects a configuration outright.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/axiomson/axiomson/internal/score"
)

// Defaults applied when a field is absent from the configuration.
const (
	DefaultTempo       = 120.0
	DefaultDuration    = 5.0
	DefaultEvalRate    = 1.0 / 8.0
	DefaultRhythmQuant = 1.0 / 16.0
	DefaultBaseMIDI    = 60
	DefaultOctaves     = 2
	DefaultPolyphony   = 1
	DefaultScale       = "a_minor"
	DefaultInstrument  = "piano"
	DefaultCurve       = "linear"
)

// Config is a full run configuration.
type Config struct {
	Tempo        float64          `yaml:"tempo,omitempty"`
	TicksPerBeat int              `yaml:"ticks_per_beat,omitempty"`
	Equations    []EquationConfig `yaml:"equations"`
}

// EquationConfig is the YAML-facing shape of one equation. Zero values
// mean "absent"; Resolve applies defaults. Fields where zero is a legal
// explicit value use pointers.
type EquationConfig struct {
	Name         string               `yaml:"name,omitempty"`
	Expr         string               `yaml:"expr"`
	Vars         map[string]float64   `yaml:"vars,omitempty"`
	Updates      []string             `yaml:"updates,omitempty"`
	EvalRate     Fraction             `yaml:"eval_rate,omitempty"`
	Duration     *float64             `yaml:"duration,omitempty"`
	ActiveWindow *Window              `yaml:"active_window,omitempty"`
	Mapping      MappingConfig        `yaml:"mapping,omitempty"`
	Limits       map[string][]float64 `yaml:"limits,omitempty"`
}

// MappingConfig is the YAML-facing shape of a value-to-music mapping.
type MappingConfig struct {
	BaseMIDI      *int      `yaml:"base_midi,omitempty"`
	Scale         string    `yaml:"scale,omitempty"`
	OctaveRange   *int      `yaml:"octave_range,omitempty"`
	Polyphony     *int      `yaml:"polyphony,omitempty"`
	RhythmQuant   *Fraction `yaml:"rhythm_quant,omitempty"`
	VelocityCurve string    `yaml:"velocity_curve,omitempty"`
	Instrument    string    `yaml:"instrument,omitempty"`
}

// Load reads a YAML or JSON configuration from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// ResolvedTempo returns the configured tempo or the default.
func (c *Config) ResolvedTempo() float64 {
	if c.Tempo > 0 {
		return c.Tempo
	}
	return DefaultTempo
}

// Resolve applies defaults and converts every equation into the engine's
// resolved form, in declaration order.
func (c *Config) Resolve() []score.Equation {
	eqs := make([]score.Equation, 0, len(c.Equations))
	for i, ec := range c.Equations {
		eqs = append(eqs, ec.Resolve(i+1))
	}
	return eqs
}

// Resolve converts one equation config into its resolved form. index is
// the 1-based position used for default names ("eq1", "eq2", ...).
func (ec EquationConfig) Resolve(index int) score.Equation {
	eq := score.Equation{
		Name:    ec.Name,
		Expr:    ec.Expr,
		Updates: ec.Updates,
		Vars:    map[string]float64{"x": 0, "y": 0, "z": 0},
	}
	if eq.Name == "" {
		eq.Name = fmt.Sprintf("eq%d", index)
	}
	if eq.Expr == "" {
		eq.Expr = "sin(x)"
	}
	for name, v := range ec.Vars {
		if _, ok := eq.Vars[name]; ok {
			eq.Vars[name] = v
		}
	}

	eq.EvalRate = float64(ec.EvalRate)
	if eq.EvalRate <= 0 {
		eq.EvalRate = DefaultEvalRate
	}

	eq.Duration = DefaultDuration
	if ec.Duration != nil {
		eq.Duration = *ec.Duration
	}
	if ec.ActiveWindow != nil && ec.ActiveWindow.Set() {
		eq.Window = score.Window{Start: ec.ActiveWindow.Start, End: ec.ActiveWindow.End}
	} else {
		eq.Window = score.Window{Start: 0, End: eq.Duration}
	}

	eq.Mapping = ec.Mapping.resolve()

	// Limit lists that are not [threshold, reset_to] pairs are skipped
	// silently; a bad limit must not affect the others.
	for name, pair := range ec.Limits {
		if len(pair) != 2 {
			continue
		}
		if eq.Limits == nil {
			eq.Limits = make(map[string]score.Limit)
		}
		eq.Limits[name] = score.Limit{Threshold: pair[0], ResetTo: pair[1]}
	}

	return eq
}

func (mc MappingConfig) resolve() score.Mapping {
	m := score.Mapping{
		BaseMIDI:      DefaultBaseMIDI,
		Scale:         mc.Scale,
		OctaveRange:   DefaultOctaves,
		Polyphony:     DefaultPolyphony,
		RhythmQuant:   DefaultRhythmQuant,
		VelocityCurve: mc.VelocityCurve,
		Instrument:    mc.Instrument,
	}
	if mc.BaseMIDI != nil {
		m.BaseMIDI = *mc.BaseMIDI
	}
	if mc.OctaveRange != nil {
		m.OctaveRange = *mc.OctaveRange
	}
	if mc.Polyphony != nil {
		m.Polyphony = *mc.Polyphony
	}
	if mc.RhythmQuant != nil {
		m.RhythmQuant = float64(*mc.RhythmQuant)
	}
	if m.Scale == "" {
		m.Scale = DefaultScale
	}
	if m.VelocityCurve == "" {
		m.VelocityCurve = DefaultCurve
	}
	if m.Instrument == "" {
		m.Instrument = DefaultInstrument
	}
	return m
}

// Example returns the built-in example configuration.
func Example() *Config {
	base := DefaultBaseMIDI
	return &Config{
		Tempo:        100,
		TicksPerBeat: 24,
		Equations: []EquationConfig{
			{
				Name:     "lead",
				Expr:     "sin(x)",
				Vars:     map[string]float64{"x": 0},
				Updates:  []string{"x = x + 0.5"},
				EvalRate: Fraction(1.0 / 8.0),
				Mapping:  MappingConfig{BaseMIDI: &base},
			},
		},
	}
}
