// Package beam implements delay-and-sum beamforming: aligning sensor
// traces by per-sensor integer sample shifts for a hypothesized
// direction-of-arrival and stacking them into a single beam trace.
package beam

import (
	"math"
	"strconv"

	"github.com/banshee-data/wavefront.report/internal/array"
)

// StackMode selects how aligned sensor traces are combined.
type StackMode int

const (
	// StackMean averages aligned samples across sensors (default).
	StackMean StackMode = iota
	// StackSum sums aligned samples across sensors.
	StackSum
)

// Beam is a stacked trace. Offset is the index into the original sample
// timeline where the beam's first sample sits, after trimming to the region
// covered by every shifted sensor.
type Beam struct {
	Samples []float64
	Offset  int
}

// Shifts computes the per-sensor integer sample shifts that align a plane
// wave with the given slowness. Sensor i's aligned sample k reads from its
// raw sample k + shift[i]: sensors the wavefront reaches late are advanced
// so all sensors line up on the reference-point arrival. The sign matches
// the steering convention of the FK search, so a grid-search peak fed here
// produces a maximally coherent beam.
func Shifts(geom *array.Geometry, s array.Slowness, dt float64) []int {
	tau := geom.Delays(s)
	shifts := make([]int, len(tau))
	for i, t := range tau {
		shifts[i] = int(math.Round(t / dt))
	}
	return shifts
}

// Form aligns each trace by its shift and stacks the result. Traces must
// all have the same length. Alignment policy: the output is trimmed to the
// common valid region, discarding samples that lack full array coverage; no
// zero padding. If no sample is covered by every sensor the result is an
// InsufficientDataError.
func Form(traces [][]float64, shifts []int, mode StackMode) (*Beam, error) {
	if len(traces) == 0 {
		return nil, &array.InsufficientDataError{Have: 0, Need: 1}
	}
	if len(shifts) != len(traces) {
		return nil, &array.InputMismatchError{Field: "shift count", Got: len(shifts), Want: len(traces)}
	}
	n := len(traces[0])
	for i, tr := range traces[1:] {
		if len(tr) != n {
			return nil, &array.InputMismatchError{Field: "sample count", Got: len(tr), Want: n, SensorID: sensorLabel(i + 1)}
		}
	}

	// Valid output indices k satisfy 0 <= k+shift[i] < n for every sensor.
	lo := 0
	hi := n
	for _, sh := range shifts {
		if -sh > lo {
			lo = -sh
		}
		if n-sh < hi {
			hi = n - sh
		}
	}
	if hi <= lo {
		return nil, &array.InsufficientDataError{Have: 0, Need: 1}
	}

	out := make([]float64, hi-lo)
	for i, tr := range traces {
		sh := shifts[i]
		for k := range out {
			out[k] += tr[lo+k+sh]
		}
	}
	if mode == StackMean {
		inv := 1.0 / float64(len(traces))
		for k := range out {
			out[k] *= inv
		}
	}
	return &Beam{Samples: out, Offset: lo}, nil
}

// FormToward is the convenience composition of Shifts and Form for a
// direction given as backazimuth (degrees) and velocity (km/s).
func FormToward(geom *array.Geometry, traces [][]float64, dt, bazDeg, velKmps float64, mode StackMode) (*Beam, error) {
	if len(traces) != geom.Len() {
		return nil, &array.InputMismatchError{Field: "trace count", Got: len(traces), Want: geom.Len()}
	}
	return Form(traces, Shifts(geom, array.SlownessFromBazVel(bazDeg, velKmps), dt), mode)
}

// Semblance measures the coherence of the aligned stack: the ratio of beam
// energy to average single-sensor energy over the common region, in [0, 1].
// Silent input returns 0.
func Semblance(traces [][]float64, shifts []int) (float64, error) {
	if len(traces) == 0 {
		return 0, &array.InsufficientDataError{Have: 0, Need: 1}
	}
	if len(shifts) != len(traces) {
		return 0, &array.InputMismatchError{Field: "shift count", Got: len(shifts), Want: len(traces)}
	}
	b, err := Form(traces, shifts, StackSum)
	if err != nil {
		return 0, err
	}
	var beamEnergy float64
	for _, v := range b.Samples {
		beamEnergy += v * v
	}
	var single float64
	for i, tr := range traces {
		sh := shifts[i]
		for k := range b.Samples {
			v := tr[b.Offset+k+sh]
			single += v * v
		}
	}
	if single == 0 {
		return 0, nil
	}
	return beamEnergy / (float64(len(traces)) * single), nil
}

func sensorLabel(i int) string {
	return "#" + strconv.Itoa(i)
}
