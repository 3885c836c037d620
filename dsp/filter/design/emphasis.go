package design

import (
	"math"

	"github.com/cwbudde/algo-onair/dsp/filter/biquad"
)

// Broadcast pre-emphasis time constants in seconds.
const (
	Emphasis50us = 50e-6
	Emphasis75us = 75e-6
)

// emphasisPoleHz caps the shelf so the boost stays bounded below Nyquist.
const emphasisPoleHz = 20000.0

// PreEmphasis designs the first-order high-frequency shelf used by FM
// broadcast pre-emphasis, H(s) = (1 + s*tau) / (1 + s/wp), with unity gain
// at DC. The zero sits at 1/(2*pi*tau) (3183 Hz for 50 us, 2122 Hz for
// 75 us). The returned section is first order (B2 = A2 = 0).
func PreEmphasis(tau, sampleRate float64) biquad.Coefficients {
	if tau <= 0 || sampleRate <= 0 || math.IsNaN(tau) || math.IsInf(tau, 0) {
		return biquad.Coefficients{}
	}

	wz := 1 / tau
	wp := 2 * math.Pi * math.Min(emphasisPoleHz, 0.45*sampleRate)
	if wp <= wz {
		return biquad.Identity()
	}

	k := 2 * sampleRate
	b0 := 1 + k/wz
	b1 := 1 - k/wz
	a0 := 1 + k/wp
	a1 := 1 - k/wp

	return normalizeBiquad(b0, b1, 0, a0, a1, 0)
}
