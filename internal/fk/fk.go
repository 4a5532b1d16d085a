package fk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/banshee-data/wavefront.report/internal/array"
)

// Params configures one slowness grid search. Slowness bounds and step are
// in s/km, frequencies in Hz.
type Params struct {
	SxMin, SxMax float64
	SyMin, SyMax float64
	Step         float64
	FreqMin      float64
	FreqMax      float64
}

// DefaultParams returns a grid suitable for regional seismic phases:
// slowness out to 3 s/km in both components at 0.1 s/km resolution, scored
// over the 1-10 Hz band.
func DefaultParams() Params {
	return Params{
		SxMin: -3, SxMax: 3,
		SyMin: -3, SyMax: 3,
		Step:    0.1,
		FreqMin: 1,
		FreqMax: 10,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Step <= 0 {
		return fmt.Errorf("slowness step must be positive, got %g", p.Step)
	}
	if p.SxMax < p.SxMin || p.SyMax < p.SyMin {
		return fmt.Errorf("slowness bounds inverted: sx [%g,%g], sy [%g,%g]", p.SxMin, p.SxMax, p.SyMin, p.SyMax)
	}
	if p.FreqMin < 0 || p.FreqMax <= p.FreqMin {
		return fmt.Errorf("frequency band invalid: [%g,%g] Hz", p.FreqMin, p.FreqMax)
	}
	return nil
}

// Grid is the rectangular beam-power grid produced by a search. Power is
// stored row-major: row iy spans sy, column ix spans sx.
type Grid struct {
	Params Params
	Nx, Ny int
	Power  []float64
}

func newGrid(p Params) *Grid {
	nx := int(math.Floor((p.SxMax-p.SxMin)/p.Step+1e-9)) + 1
	ny := int(math.Floor((p.SyMax-p.SyMin)/p.Step+1e-9)) + 1
	return &Grid{
		Params: p,
		Nx:     nx,
		Ny:     ny,
		Power:  make([]float64, nx*ny),
	}
}

// Sx returns the slowness x-component of column ix.
func (g *Grid) Sx(ix int) float64 { return g.Params.SxMin + float64(ix)*g.Params.Step }

// Sy returns the slowness y-component of row iy.
func (g *Grid) Sy(iy int) float64 { return g.Params.SyMin + float64(iy)*g.Params.Step }

// At returns the beam power at grid cell (ix, iy).
func (g *Grid) At(ix, iy int) float64 { return g.Power[iy*g.Nx+ix] }

// Max returns the slowness vector and power of the maximum grid cell.
// Exact power ties are broken toward the smallest slowness magnitude; a
// remaining tie falls to row-major scan order. The policy is deterministic
// so repeated runs report the same peak.
func (g *Grid) Max() (array.Slowness, float64) {
	best := array.Slowness{Sx: g.Sx(0), Sy: g.Sy(0)}
	bestPow := g.Power[0]
	bestMag := best.Sx*best.Sx + best.Sy*best.Sy
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			p := g.Power[iy*g.Nx+ix]
			s := array.Slowness{Sx: g.Sx(ix), Sy: g.Sy(iy)}
			mag := s.Sx*s.Sx + s.Sy*s.Sy
			if p > bestPow || (p == bestPow && mag < bestMag) {
				best, bestPow, bestMag = s, p, mag
			}
		}
	}
	return best, bestPow
}

// Result is the outcome of one grid search.
type Result struct {
	Grid        *Grid
	Peak        array.Slowness
	Backazimuth float64 // degrees from north, [0, 360)
	Velocity    float64 // km/s; +Inf at zero slowness
	Power       float64 // normalized beam power in [0, 1]
}

// Search scans the slowness grid for the windowed multi-sensor data and
// returns the full power grid plus its maximum. windows holds one sample
// slice per geometry sensor, all covering the same time interval; dt is the
// sample interval in seconds.
//
// Beam power for a candidate slowness s is the squared magnitude of the
// steered sum of sensor spectra, accumulated over FFT bins inside the
// frequency band and normalized by N times the total single-sensor power in
// the band, which bounds it to [0, 1]. Silent input (zero variance on every
// sensor) yields a uniformly zero grid rather than an error.
func Search(geom *array.Geometry, windows [][]float64, dt float64, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if dt <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %g", dt)
	}
	if len(windows) != geom.Len() {
		return nil, &array.InputMismatchError{Field: "trace count", Got: len(windows), Want: geom.Len()}
	}
	n := 0
	for i, w := range windows {
		if i == 0 {
			n = len(w)
			continue
		}
		if len(w) != n {
			return nil, &array.InputMismatchError{SensorID: geom.IDs[i], Field: "sample count", Got: len(w), Want: n}
		}
	}
	if n < 2 {
		return nil, &array.InsufficientDataError{Have: n, Need: 2}
	}

	grid := newGrid(p)

	// Demean and transform each sensor window.
	fft := fourier.NewFFT(n)
	spectra := make([][]complex128, len(windows))
	buf := make([]float64, n)
	for i, w := range windows {
		var mean float64
		for _, v := range w {
			mean += v
		}
		mean /= float64(n)
		for j, v := range w {
			buf[j] = v - mean
		}
		spectra[i] = fft.Coefficients(nil, buf)
	}

	// Select the FFT bins inside the frequency band. Bin 0 (DC) is skipped:
	// demeaning has already removed it.
	var bins []int
	var freqs []float64
	for k := 1; k < len(spectra[0]); k++ {
		f := fft.Freq(k) / dt
		if f >= p.FreqMin && f <= p.FreqMax {
			bins = append(bins, k)
			freqs = append(freqs, f)
		}
	}
	if len(bins) == 0 {
		return nil, fmt.Errorf("frequency band [%g,%g] Hz selects no FFT bins for a %d-sample window at dt=%gs", p.FreqMin, p.FreqMax, n, dt)
	}

	// Total incoherent power across the band. Zero means silent data; the
	// grid stays uniformly zero and no division happens.
	var total float64
	for _, spec := range spectra {
		for _, k := range bins {
			c := spec[k]
			total += real(c)*real(c) + imag(c)*imag(c)
		}
	}
	if total > 0 {
		norm := float64(len(windows)) * total
		for iy := 0; iy < grid.Ny; iy++ {
			for ix := 0; ix < grid.Nx; ix++ {
				s := array.Slowness{Sx: grid.Sx(ix), Sy: grid.Sy(iy)}
				tau := geom.Delays(s)
				var pow float64
				for bi, k := range bins {
					omega := 2 * math.Pi * freqs[bi]
					var sumRe, sumIm float64
					for si, spec := range spectra {
						// Undo the propagation delay: multiply by
						// exp(+i*omega*tau).
						c := spec[k]
						cosP := math.Cos(omega * tau[si])
						sinP := math.Sin(omega * tau[si])
						sumRe += real(c)*cosP - imag(c)*sinP
						sumIm += real(c)*sinP + imag(c)*cosP
					}
					pow += sumRe*sumRe + sumIm*sumIm
				}
				grid.Power[iy*grid.Nx+ix] = pow / norm
			}
		}
	}

	peak, power := grid.Max()
	baz, vel := peak.BazVel()
	return &Result{
		Grid:        grid,
		Peak:        peak,
		Backazimuth: baz,
		Velocity:    vel,
		Power:       power,
	}, nil
}
