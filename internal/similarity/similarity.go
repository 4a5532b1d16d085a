package similarity

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/wavefront.report/internal/array"
	"github.com/banshee-data/wavefront.report/internal/monitoring"
)

// Params configures a local-similarity estimation run.
type Params struct {
	// K is the number of nearest neighbours each sensor is compared
	// against. Zero selects DefaultK.
	K int
	// WindowSamples is the sliding window length in samples.
	WindowSamples int
	// StepSamples is the window advance; zero selects WindowSamples/4
	// (75% overlap).
	StepSamples int
	// MinVelocityKmps is the slowest physically plausible wave speed,
	// used with the neighbour distances to bound the correlation lag
	// search. Zero selects DefaultMinVelocityKmps.
	MinVelocityKmps float64
	// Workers caps concurrent per-sensor evaluation; values below 2 run
	// serially. Output is identical for any worker count.
	Workers int
	// Finder locates nearest neighbours; nil selects BruteForce.
	Finder NeighborFinder
}

// Default parameter values.
const (
	DefaultK               = 2
	DefaultMinVelocityKmps = 0.5
)

// Result holds the per-sensor similarity traces and their network stack.
// All traces share the same window centers: Sensor[i][j] is sensor i's
// averaged neighbour correlation for window j, and Network[j] is the mean
// of column j across sensors.
type Result struct {
	SensorIDs    []string
	Centers      []int // window center sample indices
	CenterTimes  []time.Time
	Sensor       [][]float64
	Network      []float64
	MaxLag       int // lag bound used, in samples
	NeighborIdx  [][]int
	NeighborDist [][]float64
}

// Estimate computes windowed local similarity for every sensor of the
// network and stacks the traces. Traces must agree in length, sample
// interval and start time; the geometry supplies the projected positions
// used for the neighbour search. Silent windows contribute similarity 0.
func Estimate(geom *array.Geometry, traces []array.Trace, p Params) (*Result, error) {
	if p.K == 0 {
		p.K = DefaultK
	}
	if p.MinVelocityKmps == 0 {
		p.MinVelocityKmps = DefaultMinVelocityKmps
	}
	if p.MinVelocityKmps < 0 {
		return nil, fmt.Errorf("minimum velocity must be positive, got %g km/s", p.MinVelocityKmps)
	}
	if p.WindowSamples <= 0 {
		return nil, fmt.Errorf("window length must be positive, got %d samples", p.WindowSamples)
	}
	if p.StepSamples == 0 {
		p.StepSamples = p.WindowSamples / 4
	}
	if p.StepSamples <= 0 {
		return nil, fmt.Errorf("window step must be positive, got %d samples", p.StepSamples)
	}
	if p.Finder == nil {
		p.Finder = BruteForce{}
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
	if dt <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %g", dt)
	}
	if n < p.WindowSamples {
		return nil, &array.InsufficientDataError{Have: n, Need: p.WindowSamples}
	}

	neighborIdx, neighborDist, err := p.Finder.Nearest(geom.Positions(), p.K)
	if err != nil {
		return nil, fmt.Errorf("neighbour search: %w", err)
	}

	// Bound the lag search by the travel time across the largest
	// neighbour separation at the slowest plausible speed.
	var maxDist float64
	for _, ds := range neighborDist {
		for _, d := range ds {
			if d > maxDist {
				maxDist = d
			}
		}
	}
	maxLag := int(math.Ceil(maxDist / p.MinVelocityKmps / dt))
	if maxLag > p.WindowSamples-1 {
		maxLag = p.WindowSamples - 1
	}

	count := (n-p.WindowSamples)/p.StepSamples + 1
	if tail := n - ((count-1)*p.StepSamples + p.WindowSamples); tail > 0 {
		monitoring.Logf("similarity: dropping %d trailing samples (less than one %d-sample window)", tail, p.WindowSamples)
	}

	res := &Result{
		SensorIDs:    append([]string(nil), geom.IDs...),
		Centers:      make([]int, count),
		CenterTimes:  make([]time.Time, count),
		Sensor:       make([][]float64, len(traces)),
		Network:      make([]float64, count),
		MaxLag:       maxLag,
		NeighborIdx:  neighborIdx,
		NeighborDist: neighborDist,
	}
	for j := 0; j < count; j++ {
		center := j*p.StepSamples + p.WindowSamples/2
		res.Centers[j] = center
		res.CenterTimes[j] = start.Add(time.Duration(float64(center) * dt * float64(time.Second)))
	}

	run := func(r int) {
		trace := make([]float64, count)
		for j := 0; j < count; j++ {
			i0 := j * p.StepSamples
			a := traces[r].Samples[i0 : i0+p.WindowSamples]
			var sum float64
			for _, q := range neighborIdx[r] {
				b := traces[q].Samples[i0 : i0+p.WindowSamples]
				sum += NormXCorrMax(a, b, maxLag)
			}
			trace[j] = sum / float64(p.K)
		}
		res.Sensor[r] = trace
	}

	if p.Workers > 1 {
		var wg sync.WaitGroup
		idx := make(chan int)
		for w := 0; w < p.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for r := range idx {
					run(r)
				}
			}()
		}
		for r := range traces {
			idx <- r
		}
		close(idx)
		wg.Wait()
	} else {
		for r := range traces {
			run(r)
		}
	}

	// Network stack: element-wise mean across sensors.
	for j := 0; j < count; j++ {
		var sum float64
		for r := range res.Sensor {
			sum += res.Sensor[r][j]
		}
		res.Network[j] = sum / float64(len(res.Sensor))
	}
	return res, nil
}
