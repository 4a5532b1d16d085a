package array

import (
	"math"

	"github.com/banshee-data/wavefront.report/internal/monitoring"
	"github.com/banshee-data/wavefront.report/internal/units"
)

// EarthRadiusKm is the mean Earth radius used for the tangent-plane
// projection and great-circle geometry.
const EarthRadiusKm = 6371.0

// MinSensors is the smallest number of positioned sensors that can form a
// usable geometry.
const MinSensors = 2

// Geometry holds sensor positions projected into a local Cartesian frame.
// X points east and Y points north, both in kilometers relative to the
// reference point (the array centroid unless a reference was supplied).
// The ordering of IDs, X and Y is shared with every algorithm that consumes
// the geometry, so per-sensor outputs can be indexed consistently.
type Geometry struct {
	IDs []string
	X   []float64
	Y   []float64

	// RefLat/RefLon is the projection origin in decimal degrees. Both are
	// NaN for geometries built directly from Cartesian coordinates.
	RefLat float64
	RefLon float64

	// Excluded lists sensors dropped for missing position metadata.
	Excluded []string
}

// NewGeometry projects the positioned sensors into a local Cartesian frame
// centered on their centroid. Sensors without coordinates are excluded and
// reported via Excluded; fewer than MinSensors usable positions is a
// GeometryError.
func NewGeometry(sensors []Sensor) (*Geometry, error) {
	usable := make([]Sensor, 0, len(sensors))
	var excluded []string
	for _, s := range sensors {
		if !s.HasPosition() {
			excluded = append(excluded, s.ID)
			continue
		}
		usable = append(usable, s)
	}
	if len(excluded) > 0 {
		monitoring.Logf("geometry: excluding %d sensor(s) with missing positions: %v", len(excluded), excluded)
	}
	if len(usable) < MinSensors {
		return nil, &GeometryError{Usable: len(usable), Min: MinSensors}
	}

	var latSum, lonSum float64
	for _, s := range usable {
		latSum += s.Lat
		lonSum += s.Lon
	}
	lat0 := latSum / float64(len(usable))
	lon0 := lonSum / float64(len(usable))

	g := &Geometry{
		IDs:      make([]string, len(usable)),
		X:        make([]float64, len(usable)),
		Y:        make([]float64, len(usable)),
		RefLat:   lat0,
		RefLon:   lon0,
		Excluded: excluded,
	}
	for i, s := range usable {
		g.IDs[i] = s.ID
		g.X[i], g.Y[i] = project(s.Lat, s.Lon, lat0, lon0)
	}
	return g, nil
}

// NewGeometryAt is NewGeometry with an explicit reference point instead of
// the array centroid.
func NewGeometryAt(sensors []Sensor, lat0, lon0 float64) (*Geometry, error) {
	g, err := NewGeometry(sensors)
	if err != nil {
		return nil, err
	}
	// Re-project relative to the requested reference. Shifting the origin
	// is a pure translation in the tangent plane.
	dx, dy := project(g.RefLat, g.RefLon, lat0, lon0)
	for i := range g.X {
		g.X[i] += dx
		g.Y[i] += dy
	}
	g.RefLat = lat0
	g.RefLon = lon0
	return g, nil
}

// NewGeometryXY builds a geometry from already-projected Cartesian
// positions in kilometers. Positions are re-centered on their centroid so
// delay computations stay reference-independent.
func NewGeometryXY(ids []string, x, y []float64) (*Geometry, error) {
	if len(ids) != len(x) || len(ids) != len(y) {
		return nil, &InputMismatchError{Field: "position count", Got: len(x), Want: len(ids)}
	}
	if len(ids) < MinSensors {
		return nil, &GeometryError{Usable: len(ids), Min: MinSensors}
	}
	var cx, cy float64
	for i := range x {
		cx += x[i]
		cy += y[i]
	}
	cx /= float64(len(x))
	cy /= float64(len(y))

	g := &Geometry{
		IDs:    append([]string(nil), ids...),
		X:      make([]float64, len(x)),
		Y:      make([]float64, len(y)),
		RefLat: math.NaN(),
		RefLon: math.NaN(),
	}
	for i := range x {
		g.X[i] = x[i] - cx
		g.Y[i] = y[i] - cy
	}
	return g, nil
}

// Len returns the number of usable sensors in the geometry.
func (g *Geometry) Len() int { return len(g.IDs) }

// Positions returns the projected coordinates as (x, y) pairs in km.
func (g *Geometry) Positions() [][2]float64 {
	out := make([][2]float64, g.Len())
	for i := range out {
		out[i] = [2]float64{g.X[i], g.Y[i]}
	}
	return out
}

// Delays returns the per-sensor plane-wave arrival times in seconds,
// relative to the reference point, for the given slowness vector. A sensor
// in the direction the wave comes from has a negative delay: the wavefront
// reaches it first.
func (g *Geometry) Delays(s Slowness) []float64 {
	tau := make([]float64, g.Len())
	for i := range tau {
		tau[i] = -(g.X[i]*s.Sx + g.Y[i]*s.Sy)
	}
	return tau
}

// Aperture returns the largest inter-sensor distance in km.
func (g *Geometry) Aperture() float64 {
	var max float64
	for i := 0; i < g.Len(); i++ {
		for j := i + 1; j < g.Len(); j++ {
			d := math.Hypot(g.X[i]-g.X[j], g.Y[i]-g.Y[j])
			if d > max {
				max = d
			}
		}
	}
	return max
}

// DistanceAzimuthTo returns the great-circle distance (km) and the initial
// bearing (degrees from north, in [0, 360)) from the projection reference
// to an external point, e.g. an event location. It is only available for
// geographic geometries; Cartesian-built geometries return NaNs.
func (g *Geometry) DistanceAzimuthTo(lat, lon float64) (distKm, bazDeg float64) {
	if math.IsNaN(g.RefLat) || math.IsNaN(g.RefLon) {
		return math.NaN(), math.NaN()
	}
	lat1 := units.Radians(g.RefLat)
	lat2 := units.Radians(lat)
	dLat := units.Radians(lat - g.RefLat)
	dLon := units.Radians(lon - g.RefLon)

	sinLatHalf := math.Sin(dLat / 2)
	sinLonHalf := math.Sin(dLon / 2)
	a := sinLatHalf*sinLatHalf + math.Cos(lat1)*math.Cos(lat2)*sinLonHalf*sinLonHalf
	distKm = 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bazDeg = units.NormalizeBearing(units.Degrees(math.Atan2(y, x)))
	return distKm, bazDeg
}

// project converts geographic coordinates to tangent-plane km relative to
// (lat0, lon0) using an equirectangular approximation. Adequate for array
// apertures up to a few tens of kilometers.
func project(lat, lon, lat0, lon0 float64) (x, y float64) {
	x = EarthRadiusKm * math.Cos(units.Radians(lat0)) * units.Radians(lon-lon0)
	y = EarthRadiusKm * units.Radians(lat - lat0)
	return x, y
}
