// Command arrayscan runs the batch array-processing pipeline over a JSON
// dataset of sensor waveforms: FK slowness grid search over the full
// record, a sliding-window DOA time series, and the network local-similarity
// stack. Results are written as a JSON report, optionally with PNG plots.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/wavefront.report/internal/array"
	"github.com/banshee-data/wavefront.report/internal/beam"
	"github.com/banshee-data/wavefront.report/internal/config"
	"github.com/banshee-data/wavefront.report/internal/doa"
	"github.com/banshee-data/wavefront.report/internal/fk"
	"github.com/banshee-data/wavefront.report/internal/monitoring"
	"github.com/banshee-data/wavefront.report/internal/plotting"
	"github.com/banshee-data/wavefront.report/internal/similarity"
	"github.com/banshee-data/wavefront.report/internal/version"
)

// Report is the JSON output envelope for one run.
type Report struct {
	RunID     string    `json:"run_id"`
	Version   string    `json:"version"`
	Dataset   string    `json:"dataset"`
	Generated time.Time `json:"generated"`

	Geometry GeometryReport   `json:"geometry"`
	FK       *FKReport        `json:"fk,omitempty"`
	DOA      []DOAPoint       `json:"doa,omitempty"`
	Network  *SimilarityStack `json:"similarity,omitempty"`
	Event    *EventReport     `json:"event,omitempty"`
}

// GeometryReport describes the projected array.
type GeometryReport struct {
	SensorIDs  []string  `json:"sensor_ids"`
	Excluded   []string  `json:"excluded,omitempty"`
	RefLat     float64   `json:"ref_lat"`
	RefLon     float64   `json:"ref_lon"`
	ApertureKm float64   `json:"aperture_km"`
	X          []float64 `json:"x_km"`
	Y          []float64 `json:"y_km"`
}

// FKReport is the grid-search outcome. Velocity is null when the peak sits
// on the vertical-incidence cell, where the apparent velocity is unbounded.
type FKReport struct {
	Backazimuth float64  `json:"backazimuth_deg"`
	Velocity    *float64 `json:"velocity_kmps"`
	Power       float64  `json:"power"`
	Sx          float64  `json:"sx_spk"`
	Sy          float64  `json:"sy_spk"`
}

// DOAPoint is one row of the sliding-window DOA series.
type DOAPoint struct {
	Center      time.Time `json:"center"`
	Backazimuth float64   `json:"backazimuth_deg"`
	Velocity    *float64  `json:"velocity_kmps"`
	Power       float64   `json:"power"`
}

// SimilarityStack is the network similarity trace.
type SimilarityStack struct {
	Centers []time.Time `json:"centers"`
	Values  []float64   `json:"values"`
}

// EventReport compares the measured backazimuth against the great-circle
// bearing to a known event location.
type EventReport struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	DistanceKm       float64 `json:"distance_km"`
	Backazimuth      float64 `json:"backazimuth_deg"`
	MeasuredBaz      float64 `json:"measured_backazimuth_deg"`
	BackazimuthError float64 `json:"backazimuth_error_deg"`
}

func main() {
	var (
		inputPath  = flag.String("input", "", "path to the JSON waveform dataset (required)")
		configPath = flag.String("config", "", "optional processing config JSON")
		outputPath = flag.String("output", "report.json", "path for the JSON report")
		plotDir    = flag.String("plots", "", "directory for PNG plots (disabled when empty)")
		eventFlag  = flag.String("event", "", "optional event location as 'lat,lon'")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}
	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "arrayscan: -input is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*inputPath, *configPath, *outputPath, *plotDir, *eventFlag); err != nil {
		fmt.Fprintf(os.Stderr, "arrayscan: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, configPath, outputPath, plotDir, eventFlag string) error {
	cfg := config.EmptyProcessingConfig()
	if configPath != "" {
		loaded, err := config.LoadProcessingConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ds, err := LoadDataset(inputPath)
	if err != nil {
		return err
	}
	geom, err := array.NewGeometry(ds.ArraySensors())
	if err != nil {
		return err
	}
	traces, err := ds.Traces(geom.IDs)
	if err != nil {
		return err
	}
	dt := traces[0].SampleInterval

	report := &Report{
		RunID:     uuid.NewString(),
		Version:   version.String(),
		Dataset:   ds.Name,
		Generated: time.Now().UTC(),
		Geometry: GeometryReport{
			SensorIDs:  geom.IDs,
			Excluded:   geom.Excluded,
			RefLat:     geom.RefLat,
			RefLon:     geom.RefLon,
			ApertureKm: geom.Aperture(),
			X:          geom.X,
			Y:          geom.Y,
		},
	}
	monitoring.Logf("run %s: %d sensors, aperture %.2f km", report.RunID, geom.Len(), geom.Aperture())

	smax := cfg.GetSlownessMaxSpk()
	fkParams := fk.Params{
		SxMin: -smax, SxMax: smax,
		SyMin: -smax, SyMax: smax,
		Step:    cfg.GetSlownessStepSpk(),
		FreqMin: cfg.GetFreqMinHz(),
		FreqMax: cfg.GetFreqMaxHz(),
	}

	// Full-record FK search.
	windows := make([][]float64, len(traces))
	for i, tr := range traces {
		windows[i] = tr.Samples
	}
	fkRes, err := fk.Search(geom, windows, dt, fkParams)
	if err != nil {
		return fmt.Errorf("fk search: %w", err)
	}
	report.FK = &FKReport{
		Backazimuth: fkRes.Backazimuth,
		Velocity:    finitePtr(fkRes.Velocity),
		Power:       fkRes.Power,
		Sx:          fkRes.Peak.Sx,
		Sy:          fkRes.Peak.Sy,
	}
	monitoring.Logf("fk: backazimuth %.1f°, velocity %.2f km/s, power %.3f", fkRes.Backazimuth, fkRes.Velocity, fkRes.Power)

	// Sliding-window DOA series.
	doaCfg, err := doa.ConfigFromSeconds(cfg.GetDOAWindowSecs(), cfg.GetDOAOverlapFraction(), dt)
	if err != nil {
		return err
	}
	doaCfg.Workers = cfg.GetWorkers()
	var est doa.WindowEstimator
	if cfg.GetDOAMethod() == config.DOAMethodLstSq {
		est = doa.LeastSquares{}
	} else {
		est = doa.GridSearch{Params: fkParams}
	}
	estimates, err := doa.Slide(geom, traces, doaCfg, est)
	if err != nil {
		return fmt.Errorf("sliding-window doa: %w", err)
	}
	report.DOA = make([]DOAPoint, len(estimates))
	for i, e := range estimates {
		report.DOA[i] = DOAPoint{
			Center:      e.Center,
			Backazimuth: e.Backazimuth,
			Velocity:    finitePtr(e.Velocity),
			Power:       e.Power,
		}
	}

	// Network similarity stack.
	simWindow := int(math.Round(cfg.GetSimilarityWindowSecs() / dt))
	simRes, err := similarity.Estimate(geom, traces, similarity.Params{
		K:               cfg.GetNeighborCount(),
		WindowSamples:   simWindow,
		MinVelocityKmps: cfg.GetMinVelocityKmps(),
		Workers:         cfg.GetWorkers(),
	})
	if err != nil {
		return fmt.Errorf("local similarity: %w", err)
	}
	report.Network = &SimilarityStack{
		Centers: simRes.CenterTimes,
		Values:  simRes.Network,
	}

	if eventFlag != "" {
		lat, lon, err := parseLatLon(eventFlag)
		if err != nil {
			return err
		}
		distKm, baz := geom.DistanceAzimuthTo(lat, lon)
		report.Event = &EventReport{
			Lat:              lat,
			Lon:              lon,
			DistanceKm:       distKm,
			Backazimuth:      baz,
			MeasuredBaz:      fkRes.Backazimuth,
			BackazimuthError: angularDelta(baz, fkRes.Backazimuth),
		}
		monitoring.Logf("event: geometric backazimuth %.1f°, measured %.1f°", baz, fkRes.Backazimuth)
	}

	// Demonstrate the beam at the FK peak so a degenerate peak is caught
	// before the report is written.
	if _, err := beam.FormToward(geom, windows, dt, fkRes.Backazimuth, fkRes.Velocity, stackMode(cfg.GetStackMode())); err != nil {
		monitoring.Logf("beam at fk peak not formable: %v", err)
	}

	if plotDir != "" {
		if err := plotting.SaveGridHeatmap(fkRes.Grid, filepath.Join(plotDir, "fk_power.png")); err != nil {
			return err
		}
		if finiteSeries(estimates) {
			if err := plotting.SaveDOASeries(estimates, plotDir); err != nil {
				return err
			}
		} else {
			monitoring.Logf("doa plots skipped: series contains non-finite velocities")
		}
		x := plotting.SecondsSince(simRes.CenterTimes[0], simRes.CenterTimes)
		if err := plotting.SaveSeries(x, simRes.Network, "Network similarity", "time (s)", "mean similarity", filepath.Join(plotDir, "similarity.png")); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	monitoring.Logf("run %s: report written to %s", report.RunID, outputPath)
	return nil
}

// finitePtr returns v, or nil when v cannot be represented in JSON.
func finitePtr(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func finiteSeries(estimates []doa.Estimate) bool {
	for _, e := range estimates {
		if math.IsInf(e.Velocity, 0) || math.IsNaN(e.Velocity) {
			return false
		}
	}
	return true
}

// parseLatLon parses an "lat,lon" flag value in decimal degrees.
func parseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid location %q, want 'lat,lon'", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude %g out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude %g out of range [-180,180]", lon)
	}
	return lat, lon, nil
}

func angularDelta(a, b float64) float64 {
	d := a - b
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	if d < 0 {
		d = -d
	}
	return d
}

func stackMode(s string) beam.StackMode {
	if s == "sum" {
		return beam.StackSum
	}
	return beam.StackMean
}
