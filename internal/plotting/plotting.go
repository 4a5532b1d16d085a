// Package plotting renders analysis results to PNG files: beam-power grid
// heatmaps and DOA/similarity time series. Presentation stays out of the
// algorithm packages; callers hand results here after computation.
package plotting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/wavefront.report/internal/doa"
	"github.com/banshee-data/wavefront.report/internal/fk"
)

// powerGrid adapts fk.Grid to the plotter.GridXYZ interface.
type powerGrid struct {
	g *fk.Grid
}

func (p powerGrid) Dims() (c, r int)   { return p.g.Nx, p.g.Ny }
func (p powerGrid) Z(c, r int) float64 { return p.g.At(c, r) }
func (p powerGrid) X(c int) float64    { return p.g.Sx(c) }
func (p powerGrid) Y(r int) float64    { return p.g.Sy(r) }

// SaveGridHeatmap writes the beam-power grid as a PNG heatmap with slowness
// components on the axes.
func SaveGridHeatmap(grid *fk.Grid, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Beam power"
	p.X.Label.Text = "sx (s/km)"
	p.Y.Label.Text = "sy (s/km)"

	hm := plotter.NewHeatMap(powerGrid{g: grid}, moreland.SmoothBlueRed().Palette(255))
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}

// SaveSeries writes a single line plot of y against x.
func SaveSeries(x, y []float64, title, xLabel, yLabel, path string) error {
	if len(x) != len(y) {
		return fmt.Errorf("series length mismatch: %d x values, %d y values", len(x), len(y))
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// SaveDOASeries writes backazimuth, velocity and power time-series plots
// for a sliding-window DOA run into dir, one PNG per quantity.
func SaveDOASeries(estimates []doa.Estimate, dir string) error {
	if len(estimates) == 0 {
		return fmt.Errorf("no estimates to plot")
	}
	t0 := estimates[0].Center
	x := make([]float64, len(estimates))
	baz := make([]float64, len(estimates))
	vel := make([]float64, len(estimates))
	pow := make([]float64, len(estimates))
	for i, e := range estimates {
		x[i] = e.Center.Sub(t0).Seconds()
		baz[i] = e.Backazimuth
		vel[i] = e.Velocity
		pow[i] = e.Power
	}
	plots := []struct {
		y     []float64
		title string
		yl    string
		file  string
	}{
		{baz, "Backazimuth", "degrees from north", "doa_backazimuth.png"},
		{vel, "Apparent velocity", "km/s", "doa_velocity.png"},
		{pow, "Beam power", "normalized power", "doa_power.png"},
	}
	for _, pl := range plots {
		if err := SaveSeries(x, pl.y, pl.title, "time (s)", pl.yl, filepath.Join(dir, pl.file)); err != nil {
			return err
		}
	}
	return nil
}

// SecondsSince converts absolute timestamps into seconds relative to t0,
// the x-axis convention used by the series plots.
func SecondsSince(t0 time.Time, ts []time.Time) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.Sub(t0).Seconds()
	}
	return out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}
