package sim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Grid owns the flat row-major cell storage for the simulation domain.
// A grid requested as width x height stores (width+2) x (height+2)
// cells: the extra one-cell ring is Solid and forms the impermeable
// domain boundary the projection algorithm depends on.
type Grid struct {
	// CellWidth is the physical spacing h between nodes.
	CellWidth float64
	// Dim is the stored dimension, border included.
	Dim Index2

	cells []Cell

	// extent is the physical size of the grid, Dim * CellWidth.
	extent r2.Vec

	// offsets holds the staggering offset per velocity axis: x samples
	// sit at (0, h/2) and y samples at (h/2, 0).
	offsets [2]r2.Vec
}

// NewGrid builds a grid with the requested interior size and cell
// width. Border cells are Solid, interior cells Fluid, all state zeroed.
func NewGrid(width, height int, cellWidth float64) *Grid {
	dim := Index2{X: width + 2, Y: height + 2}
	h2 := cellWidth * 0.5

	g := &Grid{
		CellWidth: cellWidth,
		Dim:       dim,
		cells:     make([]Cell, dim.X*dim.Y),
		extent:    r2.Vec{X: float64(dim.X) * cellWidth, Y: float64(dim.Y) * cellWidth},
		offsets:   [2]r2.Vec{{X: 0, Y: h2}, {X: h2, Y: 0}},
	}

	it := g.FullRange()
	for idx, ok := it.Next(); ok; idx, ok = it.Next() {
		cell := newCell(idx)
		if !isInsideBorder(dim, idx) {
			cell.Mode = Solid
		}
		g.cells[g.dataIndex(idx)] = cell
	}
	return g
}

// dataIndex maps a coordinate to its flat storage offset.
func (g *Grid) dataIndex(idx Index2) int {
	return idx.X + g.Dim.X*idx.Y
}

// Extent returns the physical size of the grid.
func (g *Grid) Extent() r2.Vec {
	return g.extent
}

// FullRange iterates every stored coordinate, border included.
func (g *Grid) FullRange() *IndexIter {
	return newIndexIter(Index2{}, g.Dim)
}

// InteriorRange iterates the coordinates strictly inside the border.
func (g *Grid) InteriorRange() *IndexIter {
	return newIndexIter(Index2{X: 1, Y: 1}, Index2{X: g.Dim.X - 1, Y: g.Dim.Y - 1})
}

// CellAt returns the cell at idx. The coordinate must be in range;
// violating that is a caller bug and panics.
func (g *Grid) CellAt(idx Index2) *Cell {
	if !isInsideRange(Index2{}, g.Dim, idx) {
		panic(fmt.Sprintf("sim: cell index %+v outside grid dim %+v", idx, g.Dim))
	}
	return &g.cells[g.dataIndex(idx)]
}

// CellAtChecked returns the cell at idx, or ok=false when idx lies
// outside the grid. Callers treat absence as a no-op.
func (g *Grid) CellAtChecked(idx Index2) (*Cell, bool) {
	if !isInsideRange(Index2{}, g.Dim, idx) {
		return nil, false
	}
	return &g.cells[g.dataIndex(idx)], true
}

// ModifyCells grants f exclusive mutable access to the cells at the
// given distinct coordinates, in argument order. Duplicate or
// out-of-range coordinates are a caller contract violation and panic
// rather than silently aliasing.
func (g *Grid) ModifyCells(f func(cells []*Cell), indices ...Index2) {
	refs := make([]*Cell, len(indices))
	for i, idx := range indices {
		if !isInsideRange(Index2{}, g.Dim, idx) {
			panic(fmt.Sprintf("sim: ModifyCells index %+v outside grid dim %+v", idx, g.Dim))
		}
		for j := 0; j < i; j++ {
			if indices[j] == idx {
				panic(fmt.Sprintf("sim: ModifyCells duplicate index %+v", idx))
			}
		}
		refs[i] = &g.cells[g.dataIndex(idx)]
	}
	f(refs)
}

// DivergenceAt computes the discrete net outflow at idx from the
// committed (back) velocity buffer: for each axis, the positive
// neighbor's face velocity minus this cell's. Valid for interior
// coordinates only.
func (g *Grid) DivergenceAt(idx Index2) float64 {
	nbs := neighborIndices(idx)
	div := 0.0
	for axis := 0; axis < 2; axis++ {
		div += comp(g.CellAt(nbs[1][axis]).Velocity.Back, axis) -
			comp(g.CellAt(idx).Velocity.Back, axis)
	}
	return div
}
