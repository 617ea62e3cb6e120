package config

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fraction is a beat fraction that accepts either "a/b" strings or plain
// decimals in YAML/JSON. Unparsable values decode to 0 rather than
// failing, so the resolver's defaults apply; configurations rely on that
// silent fallback.
type Fraction float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Fraction) UnmarshalYAML(node *yaml.Node) error {
	*f = Fraction(ParseFraction(node.Value, 0))
	return nil
}

// MarshalYAML implements yaml.Marshaler, emitting the decimal value.
func (f Fraction) MarshalYAML() (any, error) {
	return float64(f), nil
}

// ParseFraction parses "a/b" or a plain decimal, returning fallback when
// the text does not parse or divides by zero.
func ParseFraction(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if num, denom, ok := strings.Cut(s, "/"); ok {
		a, errA := strconv.ParseFloat(strings.TrimSpace(num), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(denom), 64)
		if errA != nil || errB != nil || b == 0 {
			return fallback
		}
		return a / b
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

// Window is an active time interval that accepts a [start,end] sequence
// of seconds or a "start,end" string where each bound is plain seconds or
// "mm:ss". Unparsable windows decode as unset, so the resolver falls back
// to [0, duration].
type Window struct {
	Start float64
	End   float64
	set   bool
}

// Set reports whether the window decoded successfully.
func (w Window) Set() bool {
	return w.set
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (w *Window) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var bounds []float64
		if err := node.Decode(&bounds); err != nil || len(bounds) != 2 {
			return nil
		}
		*w = Window{Start: bounds[0], End: bounds[1], set: true}
	case yaml.ScalarNode:
		*w = ParseWindow(node.Value)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, emitting [start,end] seconds.
func (w Window) MarshalYAML() (any, error) {
	return []float64{w.Start, w.End}, nil
}

// ParseWindow parses "start,end" where each bound is seconds or
// "mm:ss". Returns an unset Window on any parse failure.
func ParseWindow(s string) Window {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return Window{}
	}
	start, okA := mmssToSeconds(strings.TrimSpace(a))
	end, okB := mmssToSeconds(strings.TrimSpace(b))
	if !okA || !okB {
		return Window{}
	}
	return Window{Start: start, End: end, set: true}
}

// mmssToSeconds parses "mm:ss" or plain seconds.
func mmssToSeconds(s string) (float64, bool) {
	if m, sec, ok := strings.Cut(s, ":"); ok {
		minutes, errM := strconv.Atoi(strings.TrimSpace(m))
		seconds, errS := strconv.ParseFloat(strings.TrimSpace(sec), 64)
		if errM != nil || errS != nil {
			return 0, false
		}
		return float64(minutes)*60 + seconds, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
