package design

import (
	"math"

	"github.com/cwbudde/algo-onair/dsp/filter/biquad"
)

// ButterworthQ returns the quality factor of the index-th second-order
// section of an order-N Butterworth prototype.
func ButterworthQ(order, index int) float64 {
	if order <= 0 {
		return defaultQ
	}

	theta := math.Pi * float64(2*index+1) / float64(2*order)
	return 1 / (2 * math.Sin(theta))
}

// LinkwitzRiley4 designs a fourth-order Linkwitz-Riley crossover pair at
// freq (Hz). Each side is two identical second-order Butterworth sections,
// so the bands meet at -6.02 dB and LP+HP is allpass. Because the order is
// divisible by four no polarity inversion is needed.
//
// The sections are returned by value so callers can update a running
// crossover without allocating. ok is false for invalid parameters.
func LinkwitzRiley4(freq, sampleRate float64) (lp, hp [2]biquad.Coefficients, ok bool) {
	q := ButterworthQ(2, 0)

	l := Lowpass(freq, q, sampleRate)
	h := Highpass(freq, q, sampleRate)
	if l.IsZero() || h.IsZero() {
		return lp, hp, false
	}

	lp = [2]biquad.Coefficients{l, l}
	hp = [2]biquad.Coefficients{h, h}
	return lp, hp, true
}

// LinkwitzRiley4Allpass returns the second-order allpass equal to the sum
// of the LR4 lowpass and highpass at freq. Multi-way splitters run lower
// bands through it to phase-align them with the bands above.
func LinkwitzRiley4Allpass(freq, sampleRate float64) biquad.Coefficients {
	return Allpass(freq, ButterworthQ(2, 0), sampleRate)
}
