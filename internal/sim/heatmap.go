package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// HeatmapBucket aggregates a square block of interior cells for the
// monitor UI.
type HeatmapBucket struct {
	// Coordinate span of the bucket, half-open, in grid cells.
	X0, Y0, X1, Y1 int

	FluidCells int
	SolidCells int

	MeanPressure      float64
	MeanSmoke         float64
	MaxSpeed          float64
	MeanAbsDivergence float64
}

// GridHeatmap is a coarse, serialisable summary of the grid state.
type GridHeatmap struct {
	DimX       int
	DimY       int
	CellWidth  float64
	BucketSize int

	Buckets []HeatmapBucket

	// Interior-wide summary statistics.
	PressureMean      float64
	PressureStdDev    float64
	MeanAbsDivergence float64
	MaxAbsDivergence  float64
}

// Heatmap buckets the interior cells into bucketSize x bucketSize
// blocks and computes per-bucket and grid-wide aggregates from the
// committed buffers. bucketSize values below 1 are treated as 1.
func (g *Grid) Heatmap(bucketSize int) *GridHeatmap {
	if bucketSize < 1 {
		bucketSize = 1
	}

	hm := &GridHeatmap{
		DimX:       g.Dim.X,
		DimY:       g.Dim.Y,
		CellWidth:  g.CellWidth,
		BucketSize: bucketSize,
	}

	pressures := make([]float64, 0, (g.Dim.X-2)*(g.Dim.Y-2))

	for y0 := 1; y0 < g.Dim.Y-1; y0 += bucketSize {
		for x0 := 1; x0 < g.Dim.X-1; x0 += bucketSize {
			x1 := x0 + bucketSize
			if x1 > g.Dim.X-1 {
				x1 = g.Dim.X - 1
			}
			y1 := y0 + bucketSize
			if y1 > g.Dim.Y-1 {
				y1 = g.Dim.Y - 1
			}

			b := HeatmapBucket{X0: x0, Y0: y0, X1: x1, Y1: y1}
			sumP, sumSmoke, sumDiv := 0.0, 0.0, 0.0

			it := newIndexIter(Index2{X: x0, Y: y0}, Index2{X: x1, Y: y1})
			for idx, ok := it.Next(); ok; idx, ok = it.Next() {
				cell := g.CellAt(idx)
				if cell.Mode == Solid {
					b.SolidCells++
					continue
				}
				b.FluidCells++

				sumP += cell.Pressure
				sumSmoke += cell.Smoke.Back

				speed := math.Hypot(cell.Velocity.Back.X, cell.Velocity.Back.Y)
				if speed > b.MaxSpeed {
					b.MaxSpeed = speed
				}

				div := math.Abs(g.DivergenceAt(idx))
				sumDiv += div
				if div > hm.MaxAbsDivergence {
					hm.MaxAbsDivergence = div
				}

				pressures = append(pressures, cell.Pressure)
			}

			if b.FluidCells > 0 {
				n := float64(b.FluidCells)
				b.MeanPressure = sumP / n
				b.MeanSmoke = sumSmoke / n
				b.MeanAbsDivergence = sumDiv / n
			}
			hm.Buckets = append(hm.Buckets, b)
		}
	}

	if len(pressures) > 0 {
		hm.PressureMean = stat.Mean(pressures, nil)
		hm.PressureStdDev = stat.StdDev(pressures, nil)
	}
	hm.MeanAbsDivergence = g.ResidualDivergence()

	return hm
}

// ResidualDivergence is the mean absolute divergence over interior
// Fluid cells, computed from the committed buffer. It is the
// convergence metric tracked per step.
func (g *Grid) ResidualDivergence() float64 {
	sum := 0.0
	n := 0

	it := g.InteriorRange()
	for idx, ok := it.Next(); ok; idx, ok = it.Next() {
		if g.CellAt(idx).Mode != Fluid {
			continue
		}
		sum += math.Abs(g.DivergenceAt(idx))
		n++
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
