package similarity

import (
	"fmt"
	"math"
	"sort"
)

// NeighborFinder locates, for every point, the indices and distances of its
// k nearest other points by 2-D Euclidean distance. The default is
// BruteForce; callers with an external nearest-neighbour capability can
// plug in their own.
type NeighborFinder interface {
	Nearest(points [][2]float64, k int) (idx [][]int, dist [][]float64, err error)
}

// BruteForce is the exhaustive O(n^2) neighbour finder. Distance ties are
// broken by point index so results are deterministic.
type BruteForce struct{}

// Nearest implements NeighborFinder.
func (BruteForce) Nearest(points [][2]float64, k int) ([][]int, [][]float64, error) {
	if err := checkNeighborArgs(len(points), k); err != nil {
		return nil, nil, err
	}
	idx := make([][]int, len(points))
	dist := make([][]float64, len(points))
	type cand struct {
		i int
		d float64
	}
	for p := range points {
		cands := make([]cand, 0, len(points)-1)
		for q := range points {
			if q == p {
				continue
			}
			cands = append(cands, cand{i: q, d: euclid(points[p], points[q])})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].d != cands[b].d {
				return cands[a].d < cands[b].d
			}
			return cands[a].i < cands[b].i
		})
		idx[p] = make([]int, k)
		dist[p] = make([]float64, k)
		for j := 0; j < k; j++ {
			idx[p][j] = cands[j].i
			dist[p][j] = cands[j].d
		}
	}
	return idx, dist, nil
}

// GridIndex is a NeighborFinder backed by a regular-cell spatial hash.
// CellSize should approximate the expected neighbour distance; the search
// expands cell rings outward until the k-th best distance is inside the
// ring already examined.
type GridIndex struct {
	CellSize float64
}

// Nearest implements NeighborFinder.
func (g GridIndex) Nearest(points [][2]float64, k int) ([][]int, [][]float64, error) {
	if err := checkNeighborArgs(len(points), k); err != nil {
		return nil, nil, err
	}
	if g.CellSize <= 0 {
		return nil, nil, fmt.Errorf("grid index cell size must be positive, got %g", g.CellSize)
	}

	cells := make(map[int64][]int, len(points))
	for i, p := range points {
		cells[g.cellID(p[0], p[1])] = append(cells[g.cellID(p[0], p[1])], i)
	}

	idx := make([][]int, len(points))
	dist := make([][]float64, len(points))
	type cand struct {
		i int
		d float64
	}
	for p, pt := range points {
		cx := int64(math.Floor(pt[0] / g.CellSize))
		cy := int64(math.Floor(pt[1] / g.CellSize))

		var cands []cand
		for ring := int64(0); ; ring++ {
			for dx := -ring; dx <= ring; dx++ {
				for dy := -ring; dy <= ring; dy++ {
					// Only the cells added by this ring.
					if ring > 0 && dx > -ring && dx < ring && dy > -ring && dy < ring {
						continue
					}
					for _, q := range cells[pairCell(cx+dx, cy+dy)] {
						if q == p {
							continue
						}
						cands = append(cands, cand{i: q, d: euclid(pt, points[q])})
					}
				}
			}
			// Stop once k candidates exist and none outside the scanned
			// rings can beat the current k-th distance.
			if len(cands) >= k {
				sort.Slice(cands, func(a, b int) bool {
					if cands[a].d != cands[b].d {
						return cands[a].d < cands[b].d
					}
					return cands[a].i < cands[b].i
				})
				if cands[k-1].d <= float64(ring)*g.CellSize {
					break
				}
			}
		}
		idx[p] = make([]int, k)
		dist[p] = make([]float64, k)
		for j := 0; j < k; j++ {
			idx[p][j] = cands[j].i
			dist[p][j] = cands[j].d
		}
	}
	return idx, dist, nil
}

// cellID maps a coordinate to its cell's pairing key.
func (g GridIndex) cellID(x, y float64) int64 {
	return pairCell(int64(math.Floor(x/g.CellSize)), int64(math.Floor(y/g.CellSize)))
}

// pairCell maps signed cell coordinates to a unique key using zigzag
// encoding and Szudzik's pairing function.
func pairCell(cellX, cellY int64) int64 {
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

func checkNeighborArgs(n, k int) error {
	if k < 1 {
		return fmt.Errorf("neighbour count k must be >= 1, got %d", k)
	}
	if k > n-1 {
		return fmt.Errorf("neighbour count k=%d needs at least %d points, have %d", k, k+1, n)
	}
	return nil
}

func euclid(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}
