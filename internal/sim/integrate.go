package sim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/eulerlab/gridflow/internal/monitoring"
)

// Integrator is the per-step capability a time stepper drives: apply
// external forces, then project the velocity field towards zero
// divergence. *Grid implements it in terms of per-cell behavior.
type Integrator interface {
	Integrate(dt float64, gravity r2.Vec)
	SolveIncompressibility(dt float64, iterations int, density float64)
}

var _ Integrator = (*Grid)(nil)

// Overrelaxation is the fixed SOR factor applied to every projection
// correction to accelerate convergence.
const Overrelaxation = 1.9

// Integrate applies the external acceleration over dt: front velocity
// becomes back velocity plus dt*gravity. No pressure term here.
func (c *Cell) Integrate(dt float64, gravity r2.Vec) {
	c.Velocity.Front = r2.Add(c.Velocity.Back, r2.Scale(dt, gravity))
}

// Integrate applies gravity to every cell, Solid and Fluid alike, then
// re-enforces the solid constraints so Solid-adjacent velocities are
// restored before the next projection pass reads them.
func (g *Grid) Integrate(dt float64, gravity r2.Vec) {
	monitoring.Debugf("sim: integrate grid, dt=%g", dt)

	for i := range g.cells {
		g.cells[i].Integrate(dt, gravity)
	}

	g.EnforceSolidConstraints()
}

// SolveIncompressibility runs the given number of Gauss-Seidel
// relaxation sweeps over the interior cells, redistributing front
// velocity to drive per-cell divergence towards zero and accumulating
// the equivalent pressure correction. Sweeps visit cells in row-major
// order and mutate neighbors in place, so later cells in a sweep see
// already-updated values; this ordering is part of the algorithm.
// After all sweeps the velocity front/back buffers are swapped exactly
// once across the full grid.
func (g *Grid) SolveIncompressibility(dt float64, iterations int, density float64) {
	monitoring.Debugf("sim: solve incompressibility, iterations=%d", iterations)

	cp := density * g.CellWidth / dt

	for iter := 0; iter < iterations; iter++ {
		inner := g.InteriorRange()
		for idx, ok := inner.Next(); ok; idx, ok = inner.Next() {
			if !isInsideBorder(g.Dim, idx) {
				panic(fmt.Sprintf("sim: index %+v is not inside border of %+v", idx, g.Dim))
			}

			if g.CellAt(idx).Mode == Solid {
				continue
			}

			nbs := neighborIndices(idx)

			// Open-face indicators per direction: 0 solid, 1 fluid.
			var nbsS [2]r2.Vec
			s := 0.0
			for dir := 0; dir < 2; dir++ {
				nbsS[dir] = r2.Vec{
					X: g.openFactor(nbs[dir][0]),
					Y: g.openFactor(nbs[dir][1]),
				}
				s += nbsS[dir].X + nbsS[dir].Y
			}

			if s == 0 {
				monitoring.Warnf("sim: fluid cell %+v has no open faces", idx)
				continue
			}

			// Net outflow on this cell.
			div := 0.0
			for axis := 0; axis < 2; axis++ {
				div += comp(g.CellAt(nbs[1][axis]).Velocity.Front, axis) -
					comp(g.CellAt(idx).Velocity.Front, axis)
			}

			// Normalize the outflow to the faces we can control.
			p := div / s

			g.ModifyCells(func(cells []*Cell) {
				cur, nbX, nbY := cells[0], cells[1], cells[2]

				cur.Pressure -= cp * p

				// Add the outflow-part to the inflows...
				cur.Velocity.Front.X += Overrelaxation * nbsS[0].X * p
				cur.Velocity.Front.Y += Overrelaxation * nbsS[0].Y * p

				// ...and subtract it from the outflows to reach net zero.
				nbX.Velocity.Front.X -= Overrelaxation * nbsS[1].X * p
				nbY.Velocity.Front.Y -= Overrelaxation * nbsS[1].Y * p
			}, idx, nbs[1][0], nbs[1][1])
		}
	}

	full := g.FullRange()
	for idx, ok := full.Next(); ok; idx, ok = full.Next() {
		g.CellAt(idx).Velocity.Swap()
	}
}

// openFactor is 0 for Solid neighbors and 1 for Fluid ones.
func (g *Grid) openFactor(idx Index2) float64 {
	if g.CellAt(idx).Mode == Solid {
		return 0
	}
	return 1
}
