package array

import "fmt"

// InputMismatchError reports sensor time series that differ in length,
// sample interval or start time where equality is required.
type InputMismatchError struct {
	SensorID string
	Field    string
	Got      interface{}
	Want     interface{}
}

func (e *InputMismatchError) Error() string {
	return fmt.Sprintf("sensor %s: %s mismatch: got %v, want %v", e.SensorID, e.Field, e.Got, e.Want)
}

// InsufficientDataError reports a requested window that extends beyond the
// available samples, or inputs too short for the configured window length.
type InsufficientDataError struct {
	SensorID string
	Have     int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	if e.SensorID != "" {
		return fmt.Sprintf("sensor %s: insufficient data: have %d samples, need %d", e.SensorID, e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient data: have %d samples, need %d", e.Have, e.Need)
}

// GeometryError reports that too few usable sensor positions remain to form
// an array geometry.
type GeometryError struct {
	Usable int
	Min    int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("array geometry needs at least %d positioned sensors, have %d", e.Min, e.Usable)
}
