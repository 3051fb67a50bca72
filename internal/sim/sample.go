package sim

import "gonum.org/v1/gonum/spatial/r2"

// FieldAccessor maps a cell and an axis to the scalar being sampled.
type FieldAccessor func(c *Cell, axis int) float64

// VelocityBack reads the committed velocity component along axis.
func VelocityBack(c *Cell, axis int) float64 {
	return comp(c.Velocity.Back, axis)
}

// SmokeBack reads the committed smoke value; the axis only selects the
// staggering offset used by the sampler.
func SmokeBack(c *Cell, _ int) float64 {
	return c.Smoke.Back
}

// PressureValue reads the accumulated pressure correction.
func PressureValue(c *Cell, _ int) float64 {
	return c.Pressure
}

func clampVec(min, max, v r2.Vec) r2.Vec {
	clamp := func(x, lo, hi float64) float64 {
		if x < lo {
			return lo
		}
		if x > hi {
			return hi
		}
		return x
	}
	return r2.Vec{X: clamp(v.X, min.X, max.X), Y: clamp(v.Y, min.Y, max.Y)}
}

// SampleField reconstructs the field exposed by value at an arbitrary
// continuous position by bilinear interpolation over the staggered
// layout for the given axis. Every input is clamped into the domain,
// so the function is total over all real positions.
func (g *Grid) SampleField(pos r2.Vec, axis int, value FieldAccessor) float64 {
	h := g.CellWidth
	hInv := 1.0 / h

	// Shift onto the staggered lattice for this axis.
	pos = r2.Sub(pos, g.offsets[axis])
	pos = clampVec(r2.Vec{}, g.extent, pos)

	maxIdx := Index2{X: g.Dim.X - 1, Y: g.Dim.Y - 1}
	clamp := func(i Index2) Index2 { return clampIndex(Index2{}, maxIdx, i) }

	idx := clamp(Index2{X: int(pos.X * hInv), Y: int(pos.Y * hInv)})

	// Fractional offset inside the base cell.
	alpha := r2.Vec{
		X: (pos.X - float64(idx.X)*h) * hInv,
		Y: (pos.Y - float64(idx.Y)*h) * hInv,
	}

	// 2x2 stencil, each neighbor independently clamped into range.
	v10 := value(g.CellAt(clamp(idx.Add(Index2{X: 1}))), axis)
	v11 := value(g.CellAt(clamp(idx.Add(Index2{X: 1, Y: 1}))), axis)
	v00 := value(g.CellAt(idx), axis)
	v01 := value(g.CellAt(clamp(idx.Add(Index2{Y: 1}))), axis)

	// Blend each stencil column along y, then across x.
	f1 := v10*(1-alpha.Y) + v11*alpha.Y
	f0 := v00*(1-alpha.Y) + v01*alpha.Y

	return alpha.X*f1 + (1-alpha.X)*f0
}

// SampleVelocity reconstructs the committed velocity vector at pos.
func (g *Grid) SampleVelocity(pos r2.Vec) r2.Vec {
	return r2.Vec{
		X: g.SampleField(pos, 0, VelocityBack),
		Y: g.SampleField(pos, 1, VelocityBack),
	}
}
