package main

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDataset(t *testing.T, ds *Dataset) string {
	t.Helper()
	data, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("marshal dataset: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func fptr(v float64) *float64 { return &v }

// testDataset builds a small triangular array near 46.5N 8.0E carrying a
// common oscillatory signal delayed per sensor as a slow southwest-ward
// plane wave, plus one sensor without coordinates. The delays keep the
// apparent slowness well away from the degenerate vertical-incidence cell.
func testDataset(n int, dt float64) *Dataset {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mk := func(tauSec float64) []float64 {
		out := make([]float64, n)
		for k := range out {
			tsec := float64(k)*dt - tauSec
			out[k] = math.Sin(2*math.Pi*3*tsec) + 0.3*math.Sin(2*math.Pi*7*tsec)
		}
		return out
	}
	return &Dataset{
		Name: "triangle-test",
		Sensors: []DatasetSensor{
			{ID: "S1", Lat: fptr(46.500), Lon: fptr(8.000), SampleInterval: dt, StartTime: start, Samples: mk(0)},
			{ID: "S2", Lat: fptr(46.510), Lon: fptr(8.000), SampleInterval: dt, StartTime: start, Samples: mk(-0.334)},
			{ID: "S3", Lat: fptr(46.500), Lon: fptr(8.015), SampleInterval: dt, StartTime: start, Samples: mk(-0.574)},
			{ID: "X4", SampleInterval: dt, StartTime: start, Samples: mk(0)},
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	input := writeDataset(t, testDataset(1200, 0.01))
	outDir := t.TempDir()
	output := filepath.Join(outDir, "report.json")
	plotDir := filepath.Join(outDir, "plots")

	if err := run(input, "", output, plotDir, "47.0,8.0"); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}

	if report.RunID == "" {
		t.Error("empty run id")
	}
	if report.Dataset != "triangle-test" {
		t.Errorf("dataset name = %q, want triangle-test", report.Dataset)
	}
	if got := len(report.Geometry.SensorIDs); got != 3 {
		t.Errorf("geometry sensors = %d, want 3 (one sensor has no coordinates)", got)
	}
	if got := report.Geometry.Excluded; len(got) != 1 || got[0] != "X4" {
		t.Errorf("excluded sensors = %v, want [X4]", got)
	}
	if report.Geometry.ApertureKm <= 0 {
		t.Errorf("aperture = %v, want positive", report.Geometry.ApertureKm)
	}

	if report.FK == nil {
		t.Fatal("missing fk result")
	}
	if report.FK.Power < 0 || report.FK.Power > 1 {
		t.Errorf("fk power = %v, want within [0,1]", report.FK.Power)
	}
	if report.FK.Backazimuth < 0 || report.FK.Backazimuth >= 360 {
		t.Errorf("fk backazimuth = %v, want within [0,360)", report.FK.Backazimuth)
	}

	// 12 s record, 4 s windows, 50% overlap.
	if got := len(report.DOA); got != 5 {
		t.Errorf("doa points = %d, want 5", got)
	}
	for i := 1; i < len(report.DOA); i++ {
		if !report.DOA[i].Center.After(report.DOA[i-1].Center) {
			t.Errorf("doa point %d: center %v not after previous", i, report.DOA[i].Center)
		}
	}

	if report.Network == nil {
		t.Fatal("missing similarity stack")
	}
	// 1 s windows, quarter-window step.
	if got := len(report.Network.Values); got != 45 {
		t.Errorf("similarity windows = %d, want 45", got)
	}
	for j, v := range report.Network.Values {
		if v < -1-1e-9 || v > 1+1e-9 {
			t.Errorf("similarity window %d = %v, outside [-1,1]", j, v)
		}
	}

	if report.Event == nil {
		t.Fatal("missing event comparison")
	}
	if report.Event.DistanceKm <= 0 {
		t.Errorf("event distance = %v, want positive", report.Event.DistanceKm)
	}
	if report.Event.BackazimuthError < 0 || report.Event.BackazimuthError > 180 {
		t.Errorf("backazimuth error = %v, want within [0,180]", report.Event.BackazimuthError)
	}

	for _, name := range []string{"fk_power.png", "doa_backazimuth.png", "doa_velocity.png", "doa_power.png", "similarity.png"} {
		info, err := os.Stat(filepath.Join(plotDir, name))
		if err != nil {
			t.Errorf("plot %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot %s is empty", name)
		}
	}
}

func TestRun_ConfigOverrides(t *testing.T) {
	input := writeDataset(t, testDataset(1200, 0.01))
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	cfgJSON := `{"doa_method": "lstsq", "doa_window_secs": 2, "doa_overlap_fraction": 0, "workers": 2}`
	if err := os.WriteFile(configPath, []byte(cfgJSON), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	output := filepath.Join(dir, "report.json")

	if err := run(input, configPath, output, "", ""); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	// 12 s record, non-overlapping 2 s windows.
	if got := len(report.DOA); got != 6 {
		t.Errorf("doa points = %d, want 6", got)
	}
	if report.Event != nil {
		t.Error("event report present without -event flag")
	}
}

func TestLoadDataset_Validation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, contents string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	if _, err := LoadDataset(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := LoadDataset(write("bad.json", "not json")); err == nil {
		t.Error("malformed JSON accepted")
	}
	if _, err := LoadDataset(write("empty.json", `{"sensors": []}`)); err == nil {
		t.Error("empty sensor list accepted")
	}
	if _, err := LoadDataset(write("noid.json", `{"sensors": [{"sample_interval_s": 0.01, "samples": [1]}]}`)); err == nil {
		t.Error("sensor without id accepted")
	}
	if _, err := LoadDataset(write("badrate.json", `{"sensors": [{"id": "A", "sample_interval_s": 0, "samples": [1]}]}`)); err == nil {
		t.Error("zero sample interval accepted")
	}
	if _, err := LoadDataset(write("nosamples.json", `{"sensors": [{"id": "A", "sample_interval_s": 0.01, "samples": []}]}`)); err == nil {
		t.Error("sensor without samples accepted")
	}
}

func TestDatasetTraces(t *testing.T) {
	ds := testDataset(100, 0.01)
	traces, err := ds.Traces([]string{"S3", "S1"})
	if err != nil {
		t.Fatalf("Traces: %v", err)
	}
	if traces[0].SensorID != "S3" || traces[1].SensorID != "S1" {
		t.Errorf("trace order = [%s %s], want [S3 S1]", traces[0].SensorID, traces[1].SensorID)
	}
	if _, err := ds.Traces([]string{"nope"}); err == nil {
		t.Error("unknown sensor id accepted")
	}
}

func TestParseLatLon(t *testing.T) {
	tests := []struct {
		in       string
		lat, lon float64
		wantErr  bool
	}{
		{"46.5,8.0", 46.5, 8.0, false},
		{" -12.25 , 100 ", -12.25, 100, false},
		{"46.5", 0, 0, true},
		{"a,b", 0, 0, true},
		{"95,0", 0, 0, true},
		{"0,190", 0, 0, true},
	}
	for _, tt := range tests {
		lat, lon, err := parseLatLon(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLatLon(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLatLon(%q): %v", tt.in, err)
			continue
		}
		if lat != tt.lat || lon != tt.lon {
			t.Errorf("parseLatLon(%q) = (%v, %v), want (%v, %v)", tt.in, lat, lon, tt.lat, tt.lon)
		}
	}
}

func TestAngularDelta(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{10, 350, 20},
		{350, 10, 20},
		{0, 180, 180},
		{90, 90, 0},
		{359, 1, 2},
	}
	for _, tt := range tests {
		if got := angularDelta(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("angularDelta(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
