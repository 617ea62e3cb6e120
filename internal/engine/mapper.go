package engine

import (
	"math"

	"github.com/axiomson/axiomson/internal/score"
)

// MapValue maps a normalized scalar in [0,1] to one pitch per polyphony
// voice and one velocity, per the mapping config. Pure function.
//
// Voices stack upward in scale-degree order: polyphony always adds higher
// voices above the chosen degree, never lower. This tie-break is part of
// the engine's observable output; keep it.
func MapValue(vScaled float64, m score.Mapping) (pitches []int, velocity int) {
	degrees := score.ScaleDegrees(m.Scale)

	totalSteps := len(degrees) * m.OctaveRange
	if totalSteps <= 0 {
		totalSteps = len(degrees)
	}

	degIndex := int(vScaled * float64(totalSteps))
	degIndex = clampInt(degIndex, 0, totalSteps-1)

	poly := m.Polyphony
	if poly < 1 {
		poly = 1
	}
	pitches = make([]int, 0, poly)
	for p := 0; p < poly; p++ {
		d := degIndex + p
		scaleIdx := d % len(degrees)
		octaveShift := d / len(degrees)
		pitch := m.BaseMIDI + degrees[scaleIdx] + 12*octaveShift
		pitches = append(pitches, clampInt(pitch, 0, 127))
	}

	return pitches, mapVelocity(vScaled, m.VelocityCurve)
}

// mapVelocity applies the velocity curve to a normalized intensity.
// "exp"/"exponential" squares the intensity; everything else is linear.
func mapVelocity(vScaled float64, curve string) int {
	v := vScaled
	switch score.CanonicalName(curve) {
	case "exp", "exponential":
		v = vScaled * vScaled
	}
	vel := math.Round(1 + v*126)
	return clampInt(int(vel), 1, 127)
}

// quantizeTime snaps t to the nearest multiple of quant beats.
// quant <= 0 means no quantization.
func quantizeTime(t, quant, beatSeconds float64) float64 {
	if quant <= 0 {
		return t
	}
	grid := beatSeconds * quant
	return math.Round(t/grid) * grid
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
