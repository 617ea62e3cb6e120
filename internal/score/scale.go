package score

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// scaleTable maps canonical scale names to semitone offsets from the root.
// The keyed entries intentionally share interval sets (every X_major is the
// major pattern rooted wherever base_midi points); they exist so configs can
// name the key they mean.
var scaleTable = map[string][]int{
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"pentatonic": {0, 2, 4, 7, 9},
	"a_minor":    {0, 2, 3, 5, 7, 8, 10},
	"b_minor":    {0, 2, 3, 5, 7, 9, 11},
	"c_minor":    {0, 2, 3, 5, 7, 8, 10},
	"c_major":    {0, 2, 4, 5, 7, 9, 11},
	"d_minor":    {0, 2, 3, 5, 7, 8, 10},
	"d_major":    {0, 2, 4, 5, 7, 9, 11},
	"e_minor":    {0, 2, 3, 5, 7, 8, 10},
	"e_major":    {0, 2, 4, 5, 7, 9, 11},
	"f_minor":    {0, 2, 3, 5, 7, 8, 10},
	"f_major":    {0, 2, 4, 5, 7, 9, 11},
	"g_minor":    {0, 2, 3, 5, 7, 8, 10},
	"g_major":    {0, 2, 4, 5, 7, 9, 11},
}

// DefaultScale is the fallback interval set for unknown scale names.
// Unknown names never fail: configs deliberately rely on this.
const DefaultScale = "minor"

// CanonicalName normalizes a user-supplied name for table lookups:
// NFC normalization, lower case, separators folded to underscores.
// "A-Minor", "a minor" and "a_minor" all canonicalize identically.
func CanonicalName(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// ScaleDegrees returns the semitone offsets for the named scale, falling
// back to DefaultScale for unknown names. The returned slice is a copy.
func ScaleDegrees(name string) []int {
	degrees, ok := scaleTable[CanonicalName(name)]
	if !ok {
		degrees = scaleTable[DefaultScale]
	}
	out := make([]int, len(degrees))
	copy(out, degrees)
	return out
}

// KnownScales returns the canonical names in the scale table, for
// validation output. Order is unspecified.
func KnownScales() []string {
	names := make([]string, 0, len(scaleTable))
	for name := range scaleTable {
		names = append(names, name)
	}
	return names
}
