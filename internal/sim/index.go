package sim

// Index2 is an integer grid coordinate. Components are signed on
// purpose: negative-neighbor arithmetic near zero yields a plainly
// out-of-range coordinate that trips the accessor bounds check instead
// of wrapping around to a huge index.
type Index2 struct {
	X int
	Y int
}

// Add returns the component-wise sum of two coordinates.
func (i Index2) Add(o Index2) Index2 {
	return Index2{X: i.X + o.X, Y: i.Y + o.Y}
}

// isInsideRange reports whether min <= idx < max component-wise.
func isInsideRange(min, max, idx Index2) bool {
	return idx.X >= min.X && idx.X < max.X && idx.Y >= min.Y && idx.Y < max.Y
}

// isInsideBorder reports whether idx lies strictly inside the one-cell
// border ring of a grid with the given dimensions.
func isInsideBorder(dim, idx Index2) bool {
	return idx.X > 0 && idx.X < dim.X-1 && idx.Y > 0 && idx.Y < dim.Y-1
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clampIndex clamps idx component-wise into [min, max] (inclusive).
func clampIndex(min, max, idx Index2) Index2 {
	return Index2{
		X: clampInt(idx.X, min.X, max.X),
		Y: clampInt(idx.Y, min.Y, max.Y),
	}
}

// IndexIter walks a half-open coordinate range [min, max) in row-major
// order: x increments fastest, wrapping to the next y. Each coordinate
// is yielded exactly once; an exhausted iterator stays exhausted.
type IndexIter struct {
	cur Index2
	min Index2
	max Index2
}

func newIndexIter(min, max Index2) *IndexIter {
	return &IndexIter{cur: min, min: min, max: max}
}

// Next returns the next coordinate in the range, or ok=false once the
// range is exhausted.
func (it *IndexIter) Next() (Index2, bool) {
	cur := it.cur

	it.cur.X++
	if it.cur.X >= it.max.X {
		it.cur.X = it.min.X
		it.cur.Y++
	}

	if !isInsideRange(it.min, it.max, cur) {
		return Index2{}, false
	}
	return cur, true
}

// neighborIndices returns the four axis neighbors of idx: [0] holds the
// negative pair (x-1,y), (x,y-1) and [1] the positive pair (x+1,y),
// (x,y+1). The negative pair is only valid for interior coordinates;
// the projection loop iterates the interior range so this holds
// structurally there.
func neighborIndices(idx Index2) [2][2]Index2 {
	return [2][2]Index2{
		{
			{X: idx.X - 1, Y: idx.Y},
			{X: idx.X, Y: idx.Y - 1},
		},
		{
			{X: idx.X + 1, Y: idx.Y},
			{X: idx.X, Y: idx.Y + 1},
		},
	}
}
