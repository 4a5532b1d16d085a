package array

import (
	"math"
	"time"

	"github.com/banshee-data/wavefront.report/internal/units"
)

// Sensor describes one station of an array or network. Lat/Lon are in
// decimal degrees; a sensor with unknown coordinates carries NaN in both
// fields and is excluded during geometry construction.
type Sensor struct {
	ID  string
	Lat float64
	Lon float64
}

// HasPosition reports whether the sensor carries usable coordinates.
func (s Sensor) HasPosition() bool {
	return !math.IsNaN(s.Lat) && !math.IsNaN(s.Lon)
}

// Trace is a uniformly sampled real-valued time series for one sensor.
type Trace struct {
	SensorID       string
	Samples        []float64
	SampleInterval float64 // seconds between samples
	Start          time.Time
}

// SampleRate returns the sampling frequency in Hz.
func (t Trace) SampleRate() float64 {
	if t.SampleInterval <= 0 {
		return 0
	}
	return 1.0 / t.SampleInterval
}

// TimeAt returns the absolute time of sample index i.
func (t Trace) TimeAt(i int) time.Time {
	return t.Start.Add(time.Duration(float64(i) * t.SampleInterval * float64(time.Second)))
}

// Slowness is a horizontal slowness vector in s/km. Sx points east, Sy
// points north; the vector points from the array back toward the source,
// matching the backazimuth convention.
type Slowness struct {
	Sx float64
	Sy float64
}

// SlownessFromBazVel builds the slowness vector for a wave arriving from
// backazimuth bazDeg (degrees from geographic north) with apparent phase
// velocity velKmps (km/s).
func SlownessFromBazVel(bazDeg, velKmps float64) Slowness {
	rad := units.Radians(bazDeg)
	return Slowness{
		Sx: math.Sin(rad) / velKmps,
		Sy: math.Cos(rad) / velKmps,
	}
}

// Mag returns the magnitude of the slowness vector in s/km.
func (s Slowness) Mag() float64 {
	return math.Hypot(s.Sx, s.Sy)
}

// BazVel decomposes the slowness vector into backazimuth (degrees from
// north, in [0, 360)) and apparent phase velocity (km/s). A zero vector
// represents vertical incidence: backazimuth 0 and infinite velocity.
func (s Slowness) BazVel() (bazDeg, velKmps float64) {
	mag := s.Mag()
	if mag == 0 {
		return 0, math.Inf(1)
	}
	baz := units.NormalizeBearing(units.Degrees(math.Atan2(s.Sx, s.Sy)))
	return baz, 1.0 / mag
}
