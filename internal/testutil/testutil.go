// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common assertion helpers and the synthetic
// plane-wave generators used by the algorithm tests.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/wavefront.report/internal/array"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within delta of want.
func AssertInDelta(t *testing.T, got, want, delta float64, label string) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Errorf("%s = %v, want %v (±%v)", label, got, want, delta)
	}
}

// AngularDelta returns the smallest absolute difference between two
// bearings in degrees, accounting for wrap-around at 360.
func AngularDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Ricker evaluates a Ricker wavelet with center frequency f (Hz) at time t
// (seconds) relative to its peak.
func Ricker(f, t float64) float64 {
	a := math.Pi * f * t
	return (1 - 2*a*a) * math.Exp(-a*a)
}

// PlaneWaveWindows synthesizes one sample window per geometry sensor for a
// plane wave arriving from backazimuth bazDeg (degrees) at velKmps (km/s):
// a Ricker wavelet of center frequency freqHz peaking at the window middle
// on the reference point, delayed per sensor by the plane-wave geometry.
func PlaneWaveWindows(geom *array.Geometry, bazDeg, velKmps, freqHz, dt float64, n int) [][]float64 {
	tau := geom.Delays(array.SlownessFromBazVel(bazDeg, velKmps))
	t0 := float64(n) * dt / 2
	out := make([][]float64, geom.Len())
	for i := range out {
		w := make([]float64, n)
		for k := range w {
			w[k] = Ricker(freqHz, float64(k)*dt-t0-tau[i])
		}
		out[i] = w
	}
	return out
}

// PlaneWaveTraces wraps PlaneWaveWindows into array.Trace values sharing a
// common start time, as the sliding-window estimators require.
func PlaneWaveTraces(geom *array.Geometry, bazDeg, velKmps, freqHz, dt float64, n int, start time.Time) []array.Trace {
	windows := PlaneWaveWindows(geom, bazDeg, velKmps, freqHz, dt, n)
	traces := make([]array.Trace, len(windows))
	for i, w := range windows {
		traces[i] = array.Trace{
			SensorID:       geom.IDs[i],
			Samples:        w,
			SampleInterval: dt,
			Start:          start,
		}
	}
	return traces
}
