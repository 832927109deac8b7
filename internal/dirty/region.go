// Package dirty tracks the damaged (modified) column range of a single
// display-buffer row. The terminal core's grid is damage-tracked per row,
// not per rectangle, per spec §4.1 ("flush walks rows; for each dirty row,
// emits the minimal column span"); this is a deliberate simplification of
// github.com/dshills/keystorm's internal/renderer/dirty.Region, which
// tracks full 2-D rectangles for a windowed widget tree this core does not
// have. The per-row span model matches
// original_source/vindauga/io/damage_region.py directly.
package dirty

// Region is the dirty column span of one row: [Start, End), or clean if
// IsEmpty.
type Region struct {
	Start int
	End   int
	dirty bool
}

// Clean returns a fresh, undamaged region.
func Clean() Region { return Region{} }

// IsEmpty reports whether the region has no damage.
func (r Region) IsEmpty() bool { return !r.dirty }

// Width returns the number of columns covered, 0 if clean.
func (r Region) Width() int {
	if !r.dirty {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether col falls within the dirty span.
func (r Region) Contains(col int) bool {
	return r.dirty && col >= r.Start && col < r.End
}

// Expand grows the region to cover [start, end), merging with any existing
// damage. Panics if end <= start (a caller bug, not a runtime condition —
// spans come from internal column arithmetic, never external input).
func (r Region) Expand(start, end int) Region {
	if end <= start {
		panic("dirty: Expand requires end > start")
	}
	if !r.dirty {
		return Region{Start: start, End: end, dirty: true}
	}
	if start < r.Start {
		r.Start = start
	}
	if end > r.End {
		r.End = end
	}
	return r
}

// ExpandCell is Expand for a single column.
func (r Region) ExpandCell(col int) Region {
	return r.Expand(col, col+1)
}

// Union merges another region's damage into r.
func (r Region) Union(other Region) Region {
	if other.IsEmpty() {
		return r
	}
	return r.Expand(other.Start, other.End)
}

// Reset clears the region back to clean.
func (r Region) Reset() Region { return Region{} }

// Intersects reports whether [start, end) overlaps the dirty span.
func (r Region) Intersects(start, end int) bool {
	if !r.dirty {
		return false
	}
	return !(end <= r.Start || start >= r.End)
}

// Clamp restricts the region to [0, width), used after a shrinking resize
// so a stale dirty span never runs past the new row length.
func (r Region) Clamp(width int) Region {
	if !r.dirty {
		return r
	}
	if r.Start >= width {
		return Region{}
	}
	if r.End > width {
		r.End = width
	}
	if r.Start >= r.End {
		return Region{}
	}
	return r
}
