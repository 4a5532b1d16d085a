package array

import (
	"math"
	"testing"
	"time"
)

func TestSlownessRoundTrip(t *testing.T) {
	tests := []struct {
		baz, vel float64
	}{
		{0, 1},
		{45, 3},
		{90, 0.34},
		{135, 2},
		{180, 5},
		{270, 1.5},
		{359, 8},
	}
	for _, tt := range tests {
		s := SlownessFromBazVel(tt.baz, tt.vel)
		baz, vel := s.BazVel()
		if math.Abs(baz-tt.baz) > 1e-9 {
			t.Errorf("backazimuth round trip: got %v, want %v", baz, tt.baz)
		}
		if math.Abs(vel-tt.vel) > 1e-9 {
			t.Errorf("velocity round trip: got %v, want %v", vel, tt.vel)
		}
	}
}

func TestSlownessBazVel_ZeroVector(t *testing.T) {
	baz, vel := (Slowness{}).BazVel()
	if baz != 0 {
		t.Errorf("backazimuth = %v, want 0", baz)
	}
	if !math.IsInf(vel, 1) {
		t.Errorf("velocity = %v, want +Inf", vel)
	}
}

func TestSlownessBazVel_Range(t *testing.T) {
	// Negative sx must map into [180, 360), never a negative angle.
	s := Slowness{Sx: -0.5, Sy: -0.5}
	baz, _ := s.BazVel()
	if baz < 0 || baz >= 360 {
		t.Fatalf("backazimuth %v outside [0,360)", baz)
	}
	if math.Abs(baz-225) > 1e-9 {
		t.Errorf("backazimuth = %v, want 225", baz)
	}
}

func TestSensorHasPosition(t *testing.T) {
	if (Sensor{ID: "A", Lat: math.NaN(), Lon: math.NaN()}).HasPosition() {
		t.Error("NaN position should report HasPosition false")
	}
	if !(Sensor{ID: "B", Lat: 0, Lon: 0}).HasPosition() {
		t.Error("origin is a valid position")
	}
}

func TestTraceTimeAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := Trace{SensorID: "A", Samples: make([]float64, 100), SampleInterval: 0.01, Start: start}
	if got := tr.TimeAt(100); !got.Equal(start.Add(time.Second)) {
		t.Errorf("TimeAt(100) = %v, want %v", got, start.Add(time.Second))
	}
	if got := tr.SampleRate(); got != 100 {
		t.Errorf("SampleRate = %v, want 100", got)
	}
}
