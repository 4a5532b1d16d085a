package similarity

import "math"

// NormXCorrMax returns the maximum of the normalized cross-correlation of a
// and b over lags in [-maxLag, maxLag].
//
// The normalization is asymmetric on purpose: after demeaning, a is divided
// by its standard deviation times its length while b is divided by its
// standard deviation alone. Exactly one operand carries the length factor;
// together they scale a perfectly matching pair to 1.0 at the best lag.
// Standard deviations are population (divide by n), which is what makes the
// self-correlation identity exact.
//
// A zero-variance operand (silent window) yields 0 rather than a division
// by zero; that sentinel is relied on downstream when stacking traces.
func NormXCorrMax(a, b []float64, maxLag int) float64 {
	n := len(a)
	if n == 0 || len(b) != n {
		return 0
	}
	if maxLag < 0 {
		maxLag = 0
	}
	if maxLag > n-1 {
		maxLag = n - 1
	}

	meanA, stdA := meanStd(a)
	meanB, stdB := meanStd(b)
	if stdA == 0 || stdB == 0 {
		return 0
	}
	scaleA := 1.0 / (stdA * float64(n))
	scaleB := 1.0 / stdB

	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		var c float64
		for i := 0; i < n; i++ {
			j := i + lag
			if j < 0 || j >= n {
				continue
			}
			c += (a[i] - meanA) * scaleA * (b[j] - meanB) * scaleB
		}
		if c > best {
			best = c
		}
	}
	return best
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	var sq float64
	for _, v := range xs {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
