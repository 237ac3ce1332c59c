package media

import (
	"math"
	"strconv"
)

// GCD returns the greatest common divisor of a and b using Euclid's
// algorithm: gcd(a, 0) = a, gcd(a, b) = gcd(b, a mod b).
func GCD(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Ratio is an aspect ratio in lowest terms.
type Ratio struct {
	W int
	H int
}

// Reduce divides width and height by their GCD. 1920x1080 and 640x360 both
// reduce to 16/9.
func Reduce(width, height int) Ratio {
	g := GCD(width, height)
	if g == 0 {
		return Ratio{W: width, H: height}
	}
	return Ratio{W: width / g, H: height / g}
}

// Key is the "a/b" form used as the ratio cache key and the "ratio" field.
func (r Ratio) Key() string {
	return strconv.Itoa(r.W) + "/" + strconv.Itoa(r.H)
}

func (r Ratio) String() string { return r.Key() }

// RatioValue is width divided by height. Callers reject zero heights before
// calling it; see ErrDegenerateDimensions.
func RatioValue(width, height int) float64 {
	return float64(width) / float64(height)
}

// MaxRoundPlaces is the largest precision RoundTo applies and the largest
// imageRatioValueTrim the configuration accepts.
const MaxRoundPlaces = 100

// RoundTo rounds v to the given number of decimal places, half away from
// zero. A negative places value returns v unchanged, and places above
// MaxRoundPlaces are treated as MaxRoundPlaces.
func RoundTo(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	p := math.Pow10(min(places, MaxRoundPlaces))
	scaled := v * p
	// From 2^52 on a float64 has no fractional digits left to round.
	if math.IsInf(scaled, 0) || math.Abs(scaled) >= 1<<52 {
		return v
	}
	return math.Round(scaled) / p
}
