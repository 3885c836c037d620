// Package curve evaluates the crossfade gain curves.
//
// Every curve maps normalised fade time t in [0, 1] to a pair of gains:
// GainOut for the channel fading out and GainIn for the channel fading in.
// All families except [ConstantPower] define GainIn(t) as GainOut(1-t).
// ConstantPower uses a cosine/sine pair so that out² + in² = 1.
package curve

import (
	"errors"
	"fmt"
	"math"
)

// Curve identifies a fade curve family.
type Curve int

const (
	Linear Curve = iota
	Exponential
	SCurve
	Logarithmic
	ConstantPower
)

// ErrUnknown is returned when a curve name or value is not recognised.
var ErrUnknown = errors.New("curve: unknown curve")

var names = [...]string{
	Linear:        "linear",
	Exponential:   "exponential",
	SCurve:        "s_curve",
	Logarithmic:   "logarithmic",
	ConstantPower: "constant_power",
}

// All returns the curve families in declaration order.
func All() []Curve {
	return []Curve{Linear, Exponential, SCurve, Logarithmic, ConstantPower}
}

// Valid reports whether c is a known family.
func (c Curve) Valid() bool {
	return c >= Linear && c <= ConstantPower
}

func (c Curve) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Curve(%d)", int(c))
	}
	return names[c]
}

// Parse returns the curve with the given snake_case name.
func Parse(name string) (Curve, error) {
	for i, n := range names {
		if n == name {
			return Curve(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Curve) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(c))
	}
	return []byte(names[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Curve) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// GainOut returns the gain of the outgoing channel at time t. t is clamped
// to [0, 1]; unknown curves fall back to linear.
func GainOut(c Curve, t float64) float64 {
	t = clampUnit(t)
	switch c {
	case Exponential:
		u := 1 - t
		return u * u
	case SCurve:
		return 0.5 * (1 + math.Cos(math.Pi*t))
	case Logarithmic:
		return math.Log10(1 + 9*(1-t))
	case ConstantPower:
		return math.Cos(t * math.Pi / 2)
	default:
		return 1 - t
	}
}

// GainIn returns the gain of the incoming channel at time t.
func GainIn(c Curve, t float64) float64 {
	t = clampUnit(t)
	if c == ConstantPower {
		return math.Sin(t * math.Pi / 2)
	}
	return GainOut(c, 1-t)
}

// Table samples both gains of c at n evenly spaced points including the
// endpoints. n < 2 is raised to 2.
func Table(c Curve, n int) (out, in []float64) {
	n = max(n, 2)
	out = make([]float64, n)
	in = make([]float64, n)
	for i := range n {
		t := float64(i) / float64(n-1)
		out[i] = GainOut(c, t)
		in[i] = GainIn(c, t)
	}
	return out, in
}

// clampUnit maps NaN to 0.
func clampUnit(t float64) float64 {
	if !(t > 0) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
