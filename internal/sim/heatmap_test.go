package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestHeatmap_BucketsCoverInterior(t *testing.T) {
	g := NewGrid(6, 4, 0.5)
	hm := g.Heatmap(2)

	if hm.BucketSize != 2 {
		t.Fatalf("bucket size %d, want 2", hm.BucketSize)
	}
	// 6x4 interior cells in 2x2 blocks.
	if len(hm.Buckets) != 6 {
		t.Fatalf("got %d buckets, want 6", len(hm.Buckets))
	}

	cells := 0
	for _, b := range hm.Buckets {
		if b.X0 < 1 || b.Y0 < 1 || b.X1 > g.Dim.X-1 || b.Y1 > g.Dim.Y-1 {
			t.Errorf("bucket %+v reaches outside the interior", b)
		}
		cells += b.FluidCells + b.SolidCells
	}
	if want := 6 * 4; cells != want {
		t.Fatalf("buckets cover %d cells, want %d", cells, want)
	}
}

func TestHeatmap_Aggregates(t *testing.T) {
	g := NewGrid(4, 4, 1.0)
	g.CellAt(Index2{1, 1}).Pressure = 8
	g.CellAt(Index2{2, 1}).Pressure = 4
	g.CellAt(Index2{1, 2}).Mode = Solid
	g.CellAt(Index2{2, 2}).Velocity.Back = r2.Vec{X: 3, Y: 4}

	hm := g.Heatmap(2)
	if len(hm.Buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(hm.Buckets))
	}

	b := hm.Buckets[0] // covers (1,1)..(2,2)
	if b.SolidCells != 1 || b.FluidCells != 3 {
		t.Fatalf("bucket cell counts solid=%d fluid=%d", b.SolidCells, b.FluidCells)
	}
	if want := (8.0 + 4.0 + 0.0) / 3; math.Abs(b.MeanPressure-want) > 1e-12 {
		t.Errorf("bucket mean pressure %g, want %g", b.MeanPressure, want)
	}
	if b.MaxSpeed != 5 {
		t.Errorf("bucket max speed %g, want 5", b.MaxSpeed)
	}

	if hm.PressureMean == 0 {
		t.Error("grid-wide pressure mean should be nonzero")
	}
}

func TestHeatmap_ClampsBucketSize(t *testing.T) {
	g := NewGrid(3, 3, 1.0)
	hm := g.Heatmap(0)
	if hm.BucketSize != 1 {
		t.Fatalf("bucket size %d, want clamped to 1", hm.BucketSize)
	}
	if len(hm.Buckets) != 9 {
		t.Fatalf("got %d buckets, want 9", len(hm.Buckets))
	}
}

func TestResidualDivergence(t *testing.T) {
	g := NewGrid(6, 6, 0.5)
	if got := g.ResidualDivergence(); got != 0 {
		t.Fatalf("uniform zero field residual = %g, want 0", got)
	}

	c := g.CellAt(Index2{3, 3})
	c.Velocity.Back = r2.Vec{X: 1, Y: 1}
	if got := g.ResidualDivergence(); got <= 0 {
		t.Fatalf("seeded field residual = %g, want > 0", got)
	}
}

func TestDivergenceAt(t *testing.T) {
	g := NewGrid(6, 6, 0.5)
	g.CellAt(Index2{3, 3}).Velocity.Back = r2.Vec{X: 1, Y: 2}

	// Own faces only: outflow minus inflow.
	if got := g.DivergenceAt(Index2{3, 3}); got != -3 {
		t.Errorf("divergence at seeded cell = %g, want -3", got)
	}
	// The seeded faces are the positive faces of the x-1 / y-1 neighbors.
	if got := g.DivergenceAt(Index2{2, 3}); got != 1 {
		t.Errorf("divergence at x-1 neighbor = %g, want 1", got)
	}
	if got := g.DivergenceAt(Index2{3, 2}); got != 2 {
		t.Errorf("divergence at y-1 neighbor = %g, want 2", got)
	}
}
