// Package threshold models the nine distance-threshold stops of the cluster
// view.
//
// Thresholds are stored as integer tenths (1..9) so that bundle keys never
// depend on floating point equality. They are formatted as decimals ("0.3")
// only for display and wire encoding.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Threshold is a clustering distance cutoff in tenths: 1 means 0.1, 9 means 0.9.
type Threshold int

const (
	// Min is the lowest legal stop (0.1).
	Min Threshold = 1
	// Max is the highest legal stop (0.9).
	Max Threshold = 9
	// Default is the stop selected before any user interaction (0.8).
	Default Threshold = 8
	// Count is the number of legal stops.
	Count = int(Max-Min) + 1
)

// keyTolerance absorbs noise in keys like "0.30000000000000004".
const keyTolerance = 1e-6

// ErrOutOfRange is returned for values that are not one of the nine stops.
var ErrOutOfRange = errors.New("threshold out of range")

// All returns every legal stop in ascending order.
func All() []Threshold {
	out := make([]Threshold, 0, Count)
	for t := Min; t <= Max; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is one of the nine stops.
func (t Threshold) Valid() bool {
	return t >= Min && t <= Max
}

// Float returns the decimal value (0.1..0.9).
func (t Threshold) Float() float64 {
	return float64(t) / 10
}

// String renders the plain decimal display text, e.g. "0.8".
func (t Threshold) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Threshold(%d)", int(t))
	}
	return "0." + strconv.Itoa(int(t))
}

// Next returns the following stop, clamped at Max.
func (t Threshold) Next() Threshold {
	if t >= Max {
		return Max
	}
	if t < Min {
		return Min
	}
	return t + 1
}

// Prev returns the preceding stop, clamped at Min.
func (t Threshold) Prev() Threshold {
	if t <= Min {
		return Min
	}
	if t > Max {
		return Max
	}
	return t - 1
}

// Index returns the zero-based slot of t (0 for 0.1, 8 for 0.9).
func (t Threshold) Index() int {
	return int(t - Min)
}

// FromFloat maps a decimal value onto a stop. Values within a small tolerance
// of a legal stop are accepted; anything else is ErrOutOfRange.
func FromFloat(v float64) (Threshold, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	scaled := v * 10
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > keyTolerance*10 {
		return 0, fmt.Errorf("%w: %v is not a 0.1 step", ErrOutOfRange, v)
	}
	t := Threshold(rounded)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return t, nil
}

// Parse reads a decimal threshold such as "0.3" or ".3". Integer forms like
// "3" are rejected because they are ambiguous with the tenths encoding.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrOutOfRange)
	}
	if !strings.Contains(s, ".") {
		return 0, fmt.Errorf("%w: %q is not a decimal", ErrOutOfRange, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return FromFloat(v)
}
