// Package precision infers coordinate rounding from the decimal
// representation of a latitude/longitude pair and converts it into an
// implied positional uncertainty in meters.
package precision

import (
	"math"
	"strconv"
	"strings"
)

// metersPerDegree is the ground distance of one degree of latitude,
// also the equatorial distance of one degree of longitude.
const metersPerDegree = 111320.0

// repeatTail is the minimum length of an identical trailing digit run
// treated as a rounding artifact (e.g. .583333 from minutes conversion).
const repeatTail = 4

// Estimate is the outcome of precision inference for one coordinate pair.
type Estimate struct {
	// Digits is the effective number of significant decimal digits,
	// the minimum across the pair after rounding heuristics.
	Digits int
	// UncertaintyM is the implied positional uncertainty in meters at
	// the record's latitude.
	UncertaintyM float64
}

// Infer estimates the coordinate precision of a pair and the positional
// error it implies. Fewer significant decimals mean coarser rounding and
// a larger implied error. The conversion uses the record's true
// latitude: integer-degree coordinates imply roughly 111 km at the
// equator but only about 79 km at 45° latitude.
func Infer(lat, lon float64) Estimate {
	d := decimalDigits(lat)
	if ld := decimalDigits(lon); ld < d {
		d = ld
	}
	if d < 0 {
		d = 0
	}

	step := math.Pow(10, -float64(d))
	lonErrM := step * metersPerDegree * math.Cos(lat*math.Pi/180)
	latErrM := 0.5 * step * metersPerDegree

	return Estimate{Digits: d, UncertaintyM: math.Max(lonErrM, latErrM)}
}

// decimalDigits counts the significant decimal digits of v, discounting
// patterns that indicate rounding: trailing zeros never count (a value
// ending in .50 is one-digit precise), and a long identical trailing
// run (e.g. .583333 from a minutes conversion) is truncated to the
// digits before the run.
func decimalDigits(v float64) int {
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(s[dot+1:], "0")
	d := len(frac)
	if d == 0 {
		return 0
	}

	if run := trailingRun(frac); run >= repeatTail {
		d = len(frac) - run
	}
	return d
}

// trailingRun returns the length of the identical digit run at the end
// of frac.
func trailingRun(frac string) int {
	last := frac[len(frac)-1]
	n := 0
	for i := len(frac) - 1; i >= 0 && frac[i] == last; i-- {
		n++
	}
	return n
}
