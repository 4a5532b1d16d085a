// Package doa estimates direction-of-arrival time series by applying a
// window estimator (slowness grid search or least-squares plane-wave fit)
// over successive overlapping time windows.
package doa

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/wavefront.report/internal/array"
	"github.com/banshee-data/wavefront.report/internal/fk"
	"github.com/banshee-data/wavefront.report/internal/monitoring"
)

// Estimate is one direction-of-arrival measurement for a single window.
type Estimate struct {
	Center       time.Time
	CenterSample int
	Backazimuth  float64 // degrees from north, [0, 360)
	Velocity     float64 // km/s
	Power        float64 // coherence score in [0, 1]
}

// WindowEstimator produces a single DOA estimate from one windowed
// multi-sensor sample set.
type WindowEstimator interface {
	EstimateWindow(geom *array.Geometry, windows [][]float64, dt float64) (bazDeg, velKmps, power float64, err error)
}

// GridSearch adapts the FK slowness grid search as a WindowEstimator.
type GridSearch struct {
	Params fk.Params
}

// EstimateWindow runs one FK search over the window.
func (g GridSearch) EstimateWindow(geom *array.Geometry, windows [][]float64, dt float64) (float64, float64, float64, error) {
	res, err := fk.Search(geom, windows, dt, g.Params)
	if err != nil {
		return 0, 0, 0, err
	}
	return res.Backazimuth, res.Velocity, res.Power, nil
}

// Config controls the sliding-window partitioning.
type Config struct {
	// WindowSamples is the analysis window length in samples.
	WindowSamples int
	// StepSamples is the advance between consecutive windows in samples.
	StepSamples int
	// Workers caps the number of windows evaluated concurrently. Values
	// below 2 run serially. Output order and content are identical for any
	// worker count.
	Workers int
}

// ConfigFromSeconds converts a window length in seconds and an overlap
// fraction in [0, 1) into sample counts for the given sample interval.
// Both counts are rounded to the nearest sample.
func ConfigFromSeconds(windowSec, overlapFraction, dt float64) (Config, error) {
	if dt <= 0 {
		return Config{}, fmt.Errorf("sample interval must be positive, got %g", dt)
	}
	if windowSec <= 0 {
		return Config{}, fmt.Errorf("window length must be positive, got %gs", windowSec)
	}
	if overlapFraction < 0 || overlapFraction >= 1 {
		return Config{}, fmt.Errorf("overlap fraction must be in [0,1), got %g", overlapFraction)
	}
	w := int(math.Round(windowSec / dt))
	step := int(math.Round(windowSec * (1 - overlapFraction) / dt))
	if w < 1 {
		w = 1
	}
	if step < 1 {
		step = 1
	}
	return Config{WindowSamples: w, StepSamples: step}, nil
}

// WindowCount returns the number of full windows that fit into n samples:
// floor((n-W)/step) + 1, or 0 when n < W.
func (c Config) WindowCount(n int) int {
	if n < c.WindowSamples {
		return 0
	}
	return (n-c.WindowSamples)/c.StepSamples + 1
}

// Slide partitions the traces into overlapping windows and runs the
// estimator on each, returning estimates strictly ordered by increasing
// window center time. Trailing samples that do not fill a whole window are
// dropped (and logged), never padded.
//
// Windows are independent; with Config.Workers > 1 they are evaluated on a
// fixed-size worker pool and the results reassembled into window order.
func Slide(geom *array.Geometry, traces []array.Trace, cfg Config, est WindowEstimator) ([]Estimate, error) {
	if cfg.WindowSamples <= 0 || cfg.StepSamples <= 0 {
		return nil, fmt.Errorf("window config invalid: window=%d step=%d samples", cfg.WindowSamples, cfg.StepSamples)
	}
	if len(traces) != geom.Len() {
		return nil, &array.InputMismatchError{Field: "trace count", Got: len(traces), Want: geom.Len()}
	}
	n := len(traces[0].Samples)
	dt := traces[0].SampleInterval
	start := traces[0].Start
	for _, tr := range traces[1:] {
		if len(tr.Samples) != n {
			return nil, &array.InputMismatchError{SensorID: tr.SensorID, Field: "sample count", Got: len(tr.Samples), Want: n}
		}
		if tr.SampleInterval != dt {
			return nil, &array.InputMismatchError{SensorID: tr.SensorID, Field: "sample interval", Got: tr.SampleInterval, Want: dt}
		}
		if !tr.Start.Equal(start) {
			return nil, &array.InputMismatchError{SensorID: tr.SensorID, Field: "start time", Got: tr.Start, Want: start}
		}
	}
	count := cfg.WindowCount(n)
	if count == 0 {
		return nil, &array.InsufficientDataError{Have: n, Need: cfg.WindowSamples}
	}
	if tail := n - ((count-1)*cfg.StepSamples + cfg.WindowSamples); tail > 0 {
		monitoring.Logf("doa: dropping %d trailing samples (less than one %d-sample window)", tail, cfg.WindowSamples)
	}

	estimates := make([]Estimate, count)
	errs := make([]error, count)

	run := func(w int) {
		i0 := w * cfg.StepSamples
		windows := make([][]float64, len(traces))
		for i, tr := range traces {
			windows[i] = tr.Samples[i0 : i0+cfg.WindowSamples]
		}
		baz, vel, power, err := est.EstimateWindow(geom, windows, dt)
		if err != nil {
			errs[w] = fmt.Errorf("window %d [%d:%d]: %w", w, i0, i0+cfg.WindowSamples, err)
			return
		}
		center := i0 + cfg.WindowSamples/2
		estimates[w] = Estimate{
			Center:       start.Add(time.Duration(float64(center) * dt * float64(time.Second))),
			CenterSample: center,
			Backazimuth:  baz,
			Velocity:     vel,
			Power:        power,
		}
	}

	if cfg.Workers > 1 {
		var wg sync.WaitGroup
		idx := make(chan int)
		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idx {
					run(i)
				}
			}()
		}
		for i := 0; i < count; i++ {
			idx <- i
		}
		close(idx)
		wg.Wait()
	} else {
		for i := 0; i < count; i++ {
			run(i)
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return estimates, nil
}
