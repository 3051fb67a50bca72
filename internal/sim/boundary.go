package sim

import "github.com/eulerlab/gridflow/internal/monitoring"

// EnforceSolidConstraints clamps velocity at and around Solid cells so
// no flow crosses a solid face. Every Solid cell gets its front
// velocity reset to the committed back value on both axes. On the
// staggered layout a Solid cell's positive-face samples are shared
// with its x+1 and y+1 neighbors, so for each axis the in-range
// positive neighbor has only that axis component reset as well.
// Out-of-range neighbors are skipped; the border is finite.
func (g *Grid) EnforceSolidConstraints() {
	monitoring.Debugf("sim: enforce solid constraints")

	it := g.FullRange()
	for idx, ok := it.Next(); ok; idx, ok = it.Next() {
		cell := g.CellAt(idx)
		if cell.Mode != Solid {
			continue
		}

		cell.Velocity.Front = cell.Velocity.Back

		for axis := 0; axis < 2; axis++ {
			nbIdx := idx
			if axis == 0 {
				nbIdx.X++
			} else {
				nbIdx.Y++
			}

			if nb, ok := g.CellAtChecked(nbIdx); ok {
				setComp(&nb.Velocity.Front, axis, comp(nb.Velocity.Back, axis))
			}
		}
	}
}
