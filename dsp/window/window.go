package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	// TypeSqrtHann is the square root of the periodic Hann window. Used for
	// both analysis and synthesis it reconstructs perfectly at 50% overlap.
	TypeSqrtHann
)

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic generates the DFT-even (periodic) variant used for
// overlap-add processing.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns length coefficients of window t.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]float64, length)
	for n := range out {
		out[n] = evalWindow(t, samplePosition(n, length, cfg.periodic))
	}

	return out
}

// SqrtHann returns periodic square-root Hann coefficients.
func SqrtHann(size int) ([]float64, error) {
	return Generate(TypeSqrtHann, size, WithPeriodic()), validateLength(size)
}

// ApplyCoefficientsInPlace multiplies samples with coefficients in place.
func ApplyCoefficientsInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errMismatchedLength
	}

	vecmath.MulBlockInPlace(samples, coeffs)

	return nil
}

// OverlapAddGain returns the constant gain produced by overlap-adding the
// product of analysis and synthesis windows at the given hop, and the
// largest deviation from that constant across one hop. A deviation of zero
// means the pair reconstructs perfectly.
func OverlapAddGain(analysis, synthesis []float64, hop int) (gain, deviation float64, err error) {
	n := len(analysis)
	if n == 0 {
		return 0, 0, errEmptyCoeffs
	}
	if len(synthesis) != n {
		return 0, 0, errMismatchedLength
	}
	if hop <= 0 || hop > n {
		return 0, 0, errBadHop
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < hop; i++ {
		sum := 0.0
		for j := i; j < n; j += hop {
			sum += analysis[j] * synthesis[j]
		}
		lo = math.Min(lo, sum)
		hi = math.Max(hi, sum)
	}

	return (lo + hi) / 2, (hi - lo) / 2, nil
}

func evalWindow(t Type, x float64) float64 {
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	case TypeSqrtHann:
		return math.Sqrt(0.5 - 0.5*math.Cos(2*math.Pi*x))
	default:
		return 1
	}
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
