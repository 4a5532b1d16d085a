package doa

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/wavefront.report/internal/array"
	"github.com/banshee-data/wavefront.report/internal/beam"
)

// LeastSquares estimates the slowness vector of one window by measuring
// inter-sensor delays with cross-correlation and fitting a plane-wave model
// by linear least squares on the sensor position matrix.
type LeastSquares struct {
	// MaxLagSamples bounds the delay search; 0 searches all lags.
	MaxLagSamples int
}

// EstimateWindow implements WindowEstimator. The first geometry sensor acts
// as delay reference; for every other sensor the observed delay is the
// cross-correlation argmax against the reference. The plane-wave model
// X·s = -d (X = positions relative to the reference sensor, d = observed
// delays) is solved for s by QR least squares. The returned power is the
// time-domain semblance of the beam steered to the solution; a window where
// every delay measurement is degenerate reports power 0 rather than
// failing.
func (l LeastSquares) EstimateWindow(geom *array.Geometry, windows [][]float64, dt float64) (float64, float64, float64, error) {
	if geom.Len() < 3 {
		return 0, 0, 0, &array.GeometryError{Usable: geom.Len(), Min: 3}
	}
	if len(windows) != geom.Len() {
		return 0, 0, 0, &array.InputMismatchError{Field: "trace count", Got: len(windows), Want: geom.Len()}
	}
	n := len(windows[0])
	for i, w := range windows[1:] {
		if len(w) != n {
			return 0, 0, 0, &array.InputMismatchError{SensorID: geom.IDs[i+1], Field: "sample count", Got: len(w), Want: n}
		}
	}
	if n < 2 {
		return 0, 0, 0, &array.InsufficientDataError{Have: n, Need: 2}
	}
	if dt <= 0 {
		return 0, 0, 0, fmt.Errorf("sample interval must be positive, got %g", dt)
	}

	maxLag := l.MaxLagSamples
	if maxLag <= 0 || maxLag > n-1 {
		maxLag = n - 1
	}

	m := geom.Len() - 1
	a := mat.NewDense(m, 2, nil)
	b := mat.NewVecDense(m, nil)
	for i := 1; i < geom.Len(); i++ {
		lag := DelayLag(windows[0], windows[i], maxLag)
		a.Set(i-1, 0, geom.X[i]-geom.X[0])
		a.Set(i-1, 1, geom.Y[i]-geom.Y[0])
		b.SetVec(i-1, -float64(lag)*dt)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return 0, 0, 0, fmt.Errorf("least-squares slowness solve: %w", err)
	}
	s := array.Slowness{Sx: sol.AtVec(0), Sy: sol.AtVec(1)}
	baz, vel := s.BazVel()

	power, err := beam.Semblance(windows, beam.Shifts(geom, s, dt))
	if err != nil {
		return 0, 0, 0, err
	}
	return baz, vel, power, nil
}

// DelayLag returns the lag (in samples, within [-maxLag, maxLag]) that
// maximizes the cross-correlation of b against reference a, i.e. the delay
// of b relative to a. Both sequences are demeaned first. A silent pair
// (zero correlation everywhere) reports lag 0. Ties prefer the smaller
// absolute lag, keeping the result deterministic.
func DelayLag(a, b []float64, maxLag int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	bestLag := 0
	bestVal := 0.0
	found := false
	for _, lag := range lagScanOrder(maxLag) {
		var c float64
		for i := 0; i < n; i++ {
			j := i + lag
			if j < 0 || j >= n {
				continue
			}
			c += (a[i] - meanA) * (b[j] - meanB)
		}
		if !found || c > bestVal {
			found = true
			bestVal = c
			bestLag = lag
		}
	}
	if bestVal == 0 {
		return 0
	}
	return bestLag
}

// lagScanOrder yields 0, -1, +1, -2, +2, ... so equal correlation values
// resolve to the smallest absolute lag.
func lagScanOrder(maxLag int) []int {
	out := make([]int, 0, 2*maxLag+1)
	out = append(out, 0)
	for l := 1; l <= maxLag; l++ {
		out = append(out, -l, l)
	}
	return out
}
