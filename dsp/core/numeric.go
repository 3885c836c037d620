package core

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// InRange reports whether v is finite and inside [min, max].
func InRange(v, min, max float64) bool {
	return IsFinite(v) && v >= min && v <= max
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// PowerToDB converts a mean-square level to dBFS, floored at floorDB.
// Used by level detectors where -Inf would poison downstream comparisons.
func PowerToDB(meanSquare, floorDB float64) float64 {
	if meanSquare <= 0 || !IsFinite(meanSquare) {
		return floorDB
	}

	db := 10 * math.Log10(meanSquare)
	if db < floorDB {
		return floorDB
	}

	return db
}

// TimeCoeff returns the one-pole smoothing coefficient reaching 1-1/e of a
// step after ms milliseconds at sampleRate. Non-positive times yield 1
// (no smoothing).
func TimeCoeff(ms, sampleRate float64) float64 {
	if ms <= 0 || sampleRate <= 0 {
		return 1
	}

	return 1 - math.Exp(-1/(ms*0.001*sampleRate))
}

// MsToFrames converts milliseconds to a whole number of frames.
func MsToFrames(ms, sampleRate float64) int64 {
	return int64(math.Round(ms * 0.001 * sampleRate))
}
