package wavio

import (
	"errors"
	"math"
)

const (
	tapsPerPhase = 32
	kaiserBeta   = 8.6
	cutoffScale  = 0.95
)

var errRate = errors.New("wavio: sample rates must be positive")

// Resample converts s to rate with a windowed-sinc polyphase filter. The
// result keeps the timing of the input: the filter delay is removed and
// the length is scaled by the rate ratio.
func Resample(s *Stereo, rate int) (*Stereo, error) {
	if s.SampleRate <= 0 || rate <= 0 {
		return nil, errRate
	}
	if s.SampleRate == rate {
		return s, nil
	}

	g := gcd(rate, s.SampleRate)
	up, down := rate/g, s.SampleRate/g
	phases, delay := designPhases(up, down)

	outLen := int((int64(s.Frames())*int64(up) + int64(down) - 1) / int64(down))
	return &Stereo{
		SampleRate: rate,
		Left:       convert(s.Left, phases, up, down, delay, outLen),
		Right:      convert(s.Right, phases, up, down, delay, outLen),
	}, nil
}

// designPhases splits a Kaiser-windowed lowpass for the upsampled rate into
// up branches. delay is the filter centre in upsampled samples.
func designPhases(up, down int) (phases [][]float64, delay int) {
	n := tapsPerPhase * up
	fc := 0.5 / float64(max(up, down)) * cutoffScale
	centre := 0.5 * float64(n-1)

	taps := make([]float64, n)
	var sum float64
	for i := range taps {
		t := float64(i) - centre
		taps[i] = 2 * fc * sinc(2*fc*t) * kaiser(i, n)
		sum += taps[i]
	}

	phases = make([][]float64, up)
	for p := range up {
		for i := p; i < n; i += up {
			phases[p] = append(phases[p], taps[i]*float64(up)/sum)
		}
	}
	return phases, int(math.Round(centre))
}

// convert computes output sample k from the upsampled position
// k*down+delay, i.e. the zero-stuffed input filtered by the prototype.
func convert(in []float64, phases [][]float64, up, down, delay, outLen int) []float64 {
	out := make([]float64, outLen)
	for k := range out {
		pos := k*down + delay
		phase := pos % up
		base := pos / up

		var y float64
		for j, c := range phases[phase] {
			if idx := base - j; idx >= 0 && idx < len(in) {
				y += c * in[idx]
			}
		}
		out[k] = y
	}
	return out
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func kaiser(i, n int) float64 {
	t := 2*float64(i)/float64(n-1) - 1
	return besselI0(kaiserBeta*math.Sqrt(max(0, 1-t*t))) / besselI0(kaiserBeta)
}

func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	x2 := x * x / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)
		sum += term
		if term < 1e-16*sum {
			break
		}
	}
	return sum
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
