package doa

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/wavefront.report/internal/array"
	"github.com/banshee-data/wavefront.report/internal/fk"
	"github.com/banshee-data/wavefront.report/internal/monitoring"
	"github.com/banshee-data/wavefront.report/internal/testutil"
)

// firstSampleEstimator reports the first window sample as the backazimuth,
// making each window's estimate identifiable in order and content checks.
type firstSampleEstimator struct {
	calls atomic.Int64
}

func (e *firstSampleEstimator) EstimateWindow(geom *array.Geometry, windows [][]float64, dt float64) (float64, float64, float64, error) {
	e.calls.Add(1)
	return windows[0][0], 1, 0.5, nil
}

func testGeometry(t *testing.T) *array.Geometry {
	t.Helper()
	g, err := array.NewGeometryXY([]string{"A", "B", "C"}, []float64{0, 1, 0}, []float64{0, 0, 1})
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	return g
}

func rampTraces(geom *array.Geometry, n int, dt float64, start time.Time) []array.Trace {
	traces := make([]array.Trace, geom.Len())
	for i := range traces {
		samples := make([]float64, n)
		for k := range samples {
			samples[k] = float64(k)
		}
		traces[i] = array.Trace{SensorID: geom.IDs[i], Samples: samples, SampleInterval: dt, Start: start}
	}
	return traces
}

func TestSlide_WindowCountAndOrder(t *testing.T) {
	geom := testGeometry(t)
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	traces := rampTraces(geom, 1000, 0.01, start)
	cfg := Config{WindowSamples: 200, StepSamples: 100}

	if got := cfg.WindowCount(1000); got != 9 {
		t.Fatalf("WindowCount(1000) = %d, want 9", got)
	}

	est := &firstSampleEstimator{}
	out, err := Slide(geom, traces, cfg, est)
	if err != nil {
		t.Fatalf("Slide: %v", err)
	}
	if len(out) != 9 {
		t.Fatalf("len(estimates) = %d, want 9", len(out))
	}
	if got := est.calls.Load(); got != 9 {
		t.Errorf("estimator calls = %d, want 9", got)
	}
	for w, e := range out {
		if e.CenterSample != w*100+100 {
			t.Errorf("window %d: center sample = %d, want %d", w, e.CenterSample, w*100+100)
		}
		// First sample of window w is w*step, echoed as backazimuth.
		if e.Backazimuth != float64(w*100) {
			t.Errorf("window %d: estimate out of order, got first sample %v", w, e.Backazimuth)
		}
		if w > 0 && !out[w].Center.After(out[w-1].Center) {
			t.Errorf("window %d: center %v not after previous %v", w, out[w].Center, out[w-1].Center)
		}
	}
	wantCenter := start.Add(time.Second) // sample 100 at 0.01s spacing
	if !out[0].Center.Equal(wantCenter) {
		t.Errorf("first center = %v, want %v", out[0].Center, wantCenter)
	}
}

func TestSlide_ParallelMatchesSerial(t *testing.T) {
	geom := testGeometry(t)
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	traces := rampTraces(geom, 1000, 0.01, start)

	serial, err := Slide(geom, traces, Config{WindowSamples: 128, StepSamples: 32}, &firstSampleEstimator{})
	if err != nil {
		t.Fatalf("serial Slide: %v", err)
	}
	parallel, err := Slide(geom, traces, Config{WindowSamples: 128, StepSamples: 32, Workers: 4}, &firstSampleEstimator{})
	if err != nil {
		t.Fatalf("parallel Slide: %v", err)
	}
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("parallel estimates differ from serial (-serial +parallel):\n%s", diff)
	}
}

func TestSlide_DropsTrailingSamples(t *testing.T) {
	geom := testGeometry(t)
	start := time.Now()
	traces := rampTraces(geom, 1050, 0.01, start)

	lines, restore := monitoring.Capture()
	defer restore()

	out, err := Slide(geom, traces, Config{WindowSamples: 200, StepSamples: 100}, &firstSampleEstimator{})
	if err != nil {
		t.Fatalf("Slide: %v", err)
	}
	if len(out) != 9 {
		t.Errorf("len(estimates) = %d, want 9 (trailing 50 samples dropped)", len(out))
	}
	logged := strings.Join(*lines, "\n")
	if !strings.Contains(logged, "trailing") {
		t.Errorf("expected trailing-sample log line, got %q", logged)
	}
}

func TestSlide_Validation(t *testing.T) {
	geom := testGeometry(t)
	start := time.Now()
	traces := rampTraces(geom, 500, 0.01, start)

	if _, err := Slide(geom, traces, Config{WindowSamples: 0, StepSamples: 10}, &firstSampleEstimator{}); err == nil {
		t.Error("zero window length accepted")
	}

	if _, err := Slide(geom, traces[:2], Config{WindowSamples: 100, StepSamples: 50}, &firstSampleEstimator{}); err == nil {
		t.Error("trace count mismatch accepted")
	} else {
		var im *array.InputMismatchError
		if !errors.As(err, &im) {
			t.Errorf("trace count mismatch: error = %v, want InputMismatchError", err)
		}
	}

	short := rampTraces(geom, 50, 0.01, start)
	if _, err := Slide(geom, short, Config{WindowSamples: 100, StepSamples: 50}, &firstSampleEstimator{}); err == nil {
		t.Error("record shorter than one window accepted")
	} else {
		var id *array.InsufficientDataError
		if !errors.As(err, &id) {
			t.Errorf("short record: error = %v, want InsufficientDataError", err)
		}
	}

	bad := rampTraces(geom, 500, 0.01, start)
	bad[1].SampleInterval = 0.02
	if _, err := Slide(geom, bad, Config{WindowSamples: 100, StepSamples: 50}, &firstSampleEstimator{}); err == nil {
		t.Error("mismatched sample interval accepted")
	}
}

func TestConfigFromSeconds(t *testing.T) {
	cfg, err := ConfigFromSeconds(4.0, 0.5, 0.01)
	if err != nil {
		t.Fatalf("ConfigFromSeconds: %v", err)
	}
	if cfg.WindowSamples != 400 || cfg.StepSamples != 200 {
		t.Errorf("config = %+v, want window 400 step 200", cfg)
	}

	// 0.3/0.1 is not exact in binary; the ratio must round to 3
	// samples, not truncate to 2.
	cfg, err = ConfigFromSeconds(0.3, 0, 0.1)
	if err != nil {
		t.Fatalf("ConfigFromSeconds: %v", err)
	}
	if cfg.WindowSamples != 3 || cfg.StepSamples != 3 {
		t.Errorf("config = %+v, want window 3 step 3", cfg)
	}

	if _, err := ConfigFromSeconds(4.0, 1.0, 0.01); err == nil {
		t.Error("overlap fraction 1.0 accepted")
	}
	if _, err := ConfigFromSeconds(-1, 0.5, 0.01); err == nil {
		t.Error("negative window length accepted")
	}
	if _, err := ConfigFromSeconds(4.0, 0.5, 0); err == nil {
		t.Error("zero sample interval accepted")
	}
}

func TestSlide_GridSearchRecoversArrival(t *testing.T) {
	geom := testGeometry(t)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	const (
		dt  = 0.01
		baz = 45.0
		vel = 2.0
	)
	traces := testutil.PlaneWaveTraces(geom, baz, vel, 2.0, dt, 600, start)

	out, err := Slide(geom, traces, Config{WindowSamples: 256, StepSamples: 128}, GridSearch{
		Params: fk.Params{SxMin: -2, SxMax: 2, SyMin: -2, SyMax: 2, Step: 0.05, FreqMin: 1, FreqMax: 4},
	})
	if err != nil {
		t.Fatalf("Slide: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(estimates) = %d, want 3", len(out))
	}

	// The wavelet peaks mid-record (sample 300), inside the second window.
	peak := out[1]
	if d := testutil.AngularDelta(peak.Backazimuth, baz); d > 5 {
		t.Errorf("backazimuth = %v, want %v (±5°)", peak.Backazimuth, baz)
	}
	testutil.AssertInDelta(t, peak.Velocity, vel, 0.3, "velocity")
	if peak.Power < 0.5 {
		t.Errorf("power = %v, want > 0.5 for a coherent plane wave", peak.Power)
	}
}
