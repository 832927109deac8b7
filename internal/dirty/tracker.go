package dirty

import "sync"

// RowTracker tracks the damage region of every row in a grid, plus a
// full-redraw flag for the "resize or scroll invalidates everything" case.
// Grounded on keystorm's internal/renderer/dirty.Tracker, simplified from
// that tracker's rectangle-coalescing model (appropriate for a windowed
// widget tree) down to one Region per row, which is what a flat terminal
// grid with row-granular flush (spec §4.1) actually needs.
type RowTracker struct {
	mu         sync.Mutex
	rows       []Region
	fullRedraw bool
	width      int
}

// NewRowTracker creates a tracker for a grid of the given dimensions.
func NewRowTracker(width, height int) *RowTracker {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &RowTracker{rows: make([]Region, height), width: width}
}

// Resize changes the tracked dimensions and forces a full redraw, since a
// resize invalidates every prior damage span (spec §5.3).
func (t *RowTracker) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make([]Region, height)
	t.width = width
	t.fullRedraw = true
}

// MarkCell marks a single cell dirty.
func (t *RowTracker) MarkCell(row, col int) {
	t.MarkRange(row, col, col+1)
}

// MarkRange marks [start, end) dirty on the given row.
func (t *RowTracker) MarkRange(row, start, end int) {
	if end <= start {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if row < 0 || row >= len(t.rows) {
		return
	}
	t.rows[row] = t.rows[row].Expand(start, end)
}

// MarkRow marks an entire row dirty.
func (t *RowTracker) MarkRow(row int) {
	t.MarkRange(row, 0, t.width)
}

// MarkFullRedraw marks every row dirty, e.g. after a backend reconnect.
func (t *RowTracker) MarkFullRedraw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fullRedraw = true
}

// IsDirty reports whether anything needs flushing.
func (t *RowTracker) IsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fullRedraw {
		return true
	}
	for _, r := range t.rows {
		if !r.IsEmpty() {
			return true
		}
	}
	return false
}

// Row returns the damage region for a row. If a full redraw is pending,
// every row reports as fully dirty regardless of its recorded span.
func (t *RowTracker) Row(row int) Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row < 0 || row >= len(t.rows) {
		return Region{}
	}
	if t.fullRedraw {
		if t.width == 0 {
			return Region{}
		}
		return Region{}.Expand(0, t.width)
	}
	return t.rows[row]
}

// Snapshot returns the damage region of every row, reporting every row as
// fully dirty while a full redraw is pending. It clears nothing: neither
// the row spans nor fullRedraw change until the caller calls Clear after
// it has actually emitted them — Snapshot is read-only.
func (t *RowTracker) Snapshot() []Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Region, len(t.rows))
	if t.fullRedraw {
		full := Region{}.Expand(0, max(t.width, 1))
		if t.width == 0 {
			full = Region{}
		}
		for i := range out {
			out[i] = full
		}
		return out
	}
	copy(out, t.rows)
	return out
}

// Clear resets all damage to clean, called once a flush has fully emitted
// the snapshot it took.
func (t *RowTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		t.rows[i] = Region{}
	}
	t.fullRedraw = false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
