// Package sim implements a 2D staggered-grid (MAC) fluid solver core:
// per-cell velocity/pressure/smoke state, gravity integration, solid
// boundary enforcement, iterative incompressibility projection and
// bilinear field sampling at continuous positions.
package sim

import "gonum.org/v1/gonum/spatial/r2"

// CellMode classifies a grid node as impermeable or flow-carrying.
type CellMode int

const (
	// Solid cells block flow; the one-cell grid border is always Solid.
	Solid CellMode = iota
	// Fluid cells participate in the incompressibility projection.
	Fluid
)

func (m CellMode) String() string {
	switch m {
	case Solid:
		return "solid"
	case Fluid:
		return "fluid"
	default:
		return "unknown"
	}
}

// FrontBack pairs the value being written this step (Front) with the
// committed value from the previous step (Back). The solver mutates
// Front in place and swaps once per projection call.
type FrontBack[T any] struct {
	Front T
	Back  T
}

// Swap exchanges the front and back values.
func (b *FrontBack[T]) Swap() {
	b.Front, b.Back = b.Back, b.Front
}

// Cell is one node of the staggered grid. Velocity components live on
// cell faces: the x component is sampled at offset (0, h/2) from the
// cell corner and the y component at (h/2, 0), where h is the cell
// width. Smoke is a passive tracer; this core only stores it.
type Cell struct {
	Velocity FrontBack[r2.Vec]
	Pressure float64
	Smoke    FrontBack[float64]
	Mode     CellMode

	index Index2
}

func newCell(index Index2) Cell {
	return Cell{Mode: Fluid, index: index}
}

// Index returns the cell's grid coordinate, assigned at construction.
func (c *Cell) Index() Index2 {
	return c.index
}

// comp returns the velocity-style component of v along axis (0 = x, 1 = y).
func comp(v r2.Vec, axis int) float64 {
	if axis == 0 {
		return v.X
	}
	return v.Y
}

// setComp writes only the component of v along axis.
func setComp(v *r2.Vec, axis int, val float64) {
	if axis == 0 {
		v.X = val
		return
	}
	v.Y = val
}
