package core

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// AddInto accumulates src into dst over their common length.
func AddInto(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// MeanSquare returns the mean of the squared samples of left and right.
func MeanSquare(left, right []float64) float64 {
	n := min(len(left), len(right))
	if n == 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += left[i]*left[i] + right[i]*right[i]
	}

	return sum / float64(2*n)
}
