// Package units provides shared constants and conversions for velocity and
// angle quantities used by the array-processing pipeline
package units

import "math"

// Velocity unit constants
const (
	KMPS = "kmps"
	MPS  = "mps"
)

// ValidVelocityUnits contains all valid velocity unit values
var ValidVelocityUnits = []string{KMPS, MPS}

// IsValidVelocityUnit checks if the given unit is in the list of valid units
func IsValidVelocityUnit(unit string) bool {
	for _, valid := range ValidVelocityUnits {
		if unit == valid {
			return true
		}
	}
	return false
}

// ConvertVelocity converts a velocity from km/s to the target units.
// The processing core works in km/s throughout.
func ConvertVelocity(velKmps float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return velKmps * 1000.0
	case KMPS:
		return velKmps
	default:
		return velKmps // default to km/s if unknown unit
	}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// NormalizeBearing maps an angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	m := math.Mod(deg, 360.0)
	if m < 0 {
		m += 360.0
	}
	return m
}

// SlownessFromVelocity returns the scalar slowness (s/km) for a velocity in
// km/s. Zero velocity maps to +Inf slowness.
func SlownessFromVelocity(velKmps float64) float64 {
	if velKmps == 0 {
		return math.Inf(1)
	}
	return 1.0 / velKmps
}
