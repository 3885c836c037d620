// Package testutil provides deterministic stereo test signals and
// comparison helpers shared by the engine tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// StereoSine returns the same sine on both sides, as independent slices.
func StereoSine(freqHz, sampleRate, amplitude float64, length int) (left, right []float64) {
	left = DeterministicSine(freqHz, sampleRate, amplitude, length)
	right = append([]float64(nil), left...)
	return left, right
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// RMSDB returns the RMS level of buf in dBFS, or -Inf for silence.
func RMSDB(buf []float64) float64 {
	if len(buf) == 0 {
		return math.Inf(-1)
	}
	sum := 0.0
	for _, v := range buf {
		sum += v * v
	}
	if sum == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(sum/float64(len(buf)))
}

// Peak returns the largest absolute sample of buf.
func Peak(buf []float64) float64 {
	p := 0.0
	for _, v := range buf {
		p = math.Max(p, math.Abs(v))
	}
	return p
}
