package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/banshee-data/wavefront.report/internal/array"
)

// DatasetSensor is one sensor record of the input file. Lat/Lon may be
// omitted; such sensors are excluded from the geometry and reported.
type DatasetSensor struct {
	ID             string    `json:"id"`
	Lat            *float64  `json:"lat,omitempty"`
	Lon            *float64  `json:"lon,omitempty"`
	SampleInterval float64   `json:"sample_interval_s"`
	StartTime      time.Time `json:"start_time"`
	Samples        []float64 `json:"samples"`
}

// Dataset is the JSON input envelope: pre-filtered waveforms plus sensor
// coordinates for one analysis run.
type Dataset struct {
	Name    string          `json:"name,omitempty"`
	Sensors []DatasetSensor `json:"sensors"`
}

// LoadDataset reads and validates a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	if len(ds.Sensors) == 0 {
		return nil, fmt.Errorf("dataset %s contains no sensors", path)
	}
	for _, s := range ds.Sensors {
		if s.ID == "" {
			return nil, fmt.Errorf("dataset %s contains a sensor without an id", path)
		}
		if s.SampleInterval <= 0 {
			return nil, fmt.Errorf("sensor %s: sample_interval_s must be positive, got %g", s.ID, s.SampleInterval)
		}
		if len(s.Samples) == 0 {
			return nil, fmt.Errorf("sensor %s: no samples", s.ID)
		}
	}
	return &ds, nil
}

// ArraySensors converts the dataset sensors into array.Sensor values;
// missing coordinates become NaN so geometry construction excludes them.
func (ds *Dataset) ArraySensors() []array.Sensor {
	out := make([]array.Sensor, len(ds.Sensors))
	for i, s := range ds.Sensors {
		lat, lon := math.NaN(), math.NaN()
		if s.Lat != nil && s.Lon != nil {
			lat, lon = *s.Lat, *s.Lon
		}
		out[i] = array.Sensor{ID: s.ID, Lat: lat, Lon: lon}
	}
	return out
}

// Traces returns the traces of the sensors named in ids, in that order.
func (ds *Dataset) Traces(ids []string) ([]array.Trace, error) {
	byID := make(map[string]DatasetSensor, len(ds.Sensors))
	for _, s := range ds.Sensors {
		byID[s.ID] = s
	}
	out := make([]array.Trace, len(ids))
	for i, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("dataset has no sensor %s", id)
		}
		out[i] = array.Trace{
			SensorID:       s.ID,
			Samples:        s.Samples,
			SampleInterval: s.SampleInterval,
			Start:          s.StartTime,
		}
	}
	return out, nil
}
