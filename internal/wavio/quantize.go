package wavio

import (
	"math"
	"math/rand/v2"
)

const (
	pcm16Max = 32767
	pcm16Min = -32768
)

// Quantizer converts normalised samples to 16-bit integers, optionally with
// triangular (TPDF) dither of one LSB peak. Output is limited to the 16-bit
// range.
type Quantizer struct {
	dither bool
	rng    *rand.Rand
}

// NewQuantizer returns a quantizer whose dither noise is seeded with seed.
func NewQuantizer(seed uint64, dither bool) *Quantizer {
	return &Quantizer{
		dither: dither,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Quantize returns x scaled to 16 bits.
func (q *Quantizer) Quantize(x float64) int {
	scaled := x * 32768
	if q.dither {
		scaled += q.rng.Float64() - q.rng.Float64()
	}
	if math.IsNaN(scaled) {
		return 0
	}
	return int(max(pcm16Min, min(pcm16Max, math.Round(scaled))))
}
