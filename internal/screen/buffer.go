// Package screen implements the double-buffered cell grid (front/back),
// its per-row damage tracking, and the frame-pacing gate that governs when
// a flush is allowed to run, per spec §4.1-§4.2.
//
// Grounded on github.com/dshills/keystorm's
// internal/renderer/backend.ScreenBuffer (front/back split, dirty grid,
// diff computation) generalized to the grapheme-cluster Cell from
// internal/cell and the per-row dirty.Region from internal/dirty, and on
// original_source/vindauga/io/display_buffer.py (PutChar/PutText/ClearRect/
// Scroll semantics, including wide-character trailing-cell placement and
// FPS-gated should_update).
package screen

import (
	"github.com/dshills/tuicore/internal/cell"
	"github.com/dshills/tuicore/internal/dirty"
	"github.com/dshills/tuicore/internal/pacing"
)

// Buffer is a double-buffered, damage-tracked grid of cells.
type Buffer struct {
	width, height int
	front         []cell.Cell
	back          []cell.Cell
	dmg           *dirty.RowTracker
	limiter       *pacing.Limiter
}

// New creates a Buffer of the given dimensions, paced at fps frames per
// second (0 for unlimited). Width and height are clamped to at least 1.
func New(width, height, fps int) *Buffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := &Buffer{
		width:   width,
		height:  height,
		dmg:     dirty.NewRowTracker(width, height),
		limiter: pacing.New(fps),
	}
	b.allocate()
	return b
}

func (b *Buffer) allocate() {
	n := b.width * b.height
	b.front = make([]cell.Cell, n)
	b.back = make([]cell.Cell, n)
	for i := range b.front {
		b.front[i] = cell.Empty()
		b.back[i] = cell.Empty()
	}
}

func (b *Buffer) index(x, y int) int { return y*b.width + x }

// Size returns the buffer's current dimensions.
func (b *Buffer) Size() (width, height int) { return b.width, b.height }

// inBounds reports whether (x, y) addresses a cell.
func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Cell returns the back-buffer cell at (x, y), or an empty cell if out of
// bounds.
func (b *Buffer) Cell(x, y int) cell.Cell {
	if !b.inBounds(x, y) {
		return cell.Empty()
	}
	return b.back[b.index(x, y)]
}

// FrontCell returns the front-buffer (last-flushed) cell at (x, y).
func (b *Buffer) FrontCell(x, y int) cell.Cell {
	if !b.inBounds(x, y) {
		return cell.Empty()
	}
	return b.front[b.index(x, y)]
}

// PutChar writes a single grapheme cluster at (x, y) with attr. A wide
// cluster (Width()==2) also writes a Trailing marker at x+1 if that column
// exists, per spec §3's wide-character pairing invariant; when x+1 is out
// of bounds the wide write is clipped to a single narrow-width cell rather
// than leaving an orphaned half at the edge.
func (b *Buffer) PutChar(x, y int, cluster string, attr cell.Attr) {
	if !b.inBounds(x, y) {
		return
	}

	c := cell.New(cluster, attr)
	if c.Width() == 2 && x+1 >= b.width {
		c = cell.New(" ", attr)
	}

	xe := x + 1
	if c.Width() == 2 {
		xe = x + 2
	}
	b.repairPairBoundary(y, x, xe)

	b.back[b.index(x, y)] = c
	if c.Width() == 2 {
		b.back[b.index(x+1, y)] = cell.Trailing(attr)
		b.dmg.MarkRange(y, x, x+2)
	} else {
		b.dmg.MarkCell(y, x)
	}
}

// repairPairBoundary fixes a wide-character pair straddling the edges of a
// write spanning [xs, xe) in row y. If the cell just before xs is a wide
// leading cell, its trailing half at xs is about to be overwritten and the
// leading cell is orphaned; if the cell at xe is a trailing marker, its
// leading half at xe-1 is about to be overwritten and the marker is
// orphaned. Either case is repaired to a space and marked dirty, matching
// display_buffer.py's put_char rule that a wide character's trail cell is
// always kept in lockstep with its lead.
func (b *Buffer) repairPairBoundary(y, xs, xe int) {
	if xs > 0 {
		i := b.index(xs-1, y)
		if b.back[i].Width() == 2 {
			b.back[i] = cell.New(" ", b.back[i].Attr())
			b.dmg.MarkCell(y, xs-1)
		}
	}
	if xe < b.width {
		i := b.index(xe, y)
		if b.back[i].IsTrailing() {
			b.back[i] = cell.New(" ", b.back[i].Attr())
			b.dmg.MarkCell(y, xe)
		}
	}
}

// PutText writes text starting at (x, y), segmenting it into grapheme
// clusters and clipping at the row boundary. It returns the number of
// columns actually written. Columns at x < 0 are skipped without error,
// matching original_source's negative-start handling.
func (b *Buffer) PutText(x, y int, text string, attr cell.Attr) int {
	if y < 0 || y >= b.height || text == "" {
		return 0
	}

	written := 0
	col := x
	for _, cluster := range cell.SplitClusters(text) {
		if col >= b.width {
			break
		}
		if col < 0 {
			col++
			continue
		}
		b.PutChar(col, y, cluster, attr)
		w := b.Cell(col, y).Width()
		written += w
		col += w
	}
	return written
}

// FillRect fills [x, x+w) x [y, y+h) with cluster/attr, clipped to the
// buffer. A wide fill cluster is rejected in favor of a single space, to
// avoid generating an unbounded run of dangling trailing markers at the
// right edge of the rect.
func (b *Buffer) FillRect(x, y, w, h int, cluster string, attr cell.Attr) {
	c := cell.New(cluster, attr)
	if c.Width() == 2 {
		c = cell.New(" ", attr)
	}

	xs, ys := max0(x), max0(y)
	xe, ye := minInt(b.width, x+w), minInt(b.height, y+h)

	for row := ys; row < ye; row++ {
		if xs < xe {
			b.repairPairBoundary(row, xs, xe)
		}
		for col := xs; col < xe; col++ {
			b.back[b.index(col, row)] = c
		}
		if xs < xe {
			b.dmg.MarkRange(row, xs, xe)
		}
	}
}

// ClearRect fills a rectangle with the empty (space, attr) cell.
func (b *Buffer) ClearRect(x, y, w, h int, attr cell.Attr) {
	b.FillRect(x, y, w, h, " ", attr)
}

// Clear resets the entire buffer to empty cells with attr and marks every
// row fully dirty.
func (b *Buffer) Clear(attr cell.Attr) {
	b.ClearRect(0, 0, b.width, b.height, attr)
}

// Scroll shifts rows [top, bottom) by n lines (positive scrolls content
// up, negative scrolls it down), filling vacated rows with empty cells at
// fillAttr. Out-of-range or degenerate regions are a no-op.
func (b *Buffer) Scroll(top, bottom, n int, fillAttr cell.Attr) {
	if n == 0 || top < 0 || bottom > b.height || top >= bottom {
		return
	}
	if n > 0 {
		b.scrollUp(top, bottom, n, fillAttr)
	} else {
		b.scrollDown(top, bottom, -n, fillAttr)
	}
}

func (b *Buffer) scrollUp(top, bottom, lines int, fillAttr cell.Attr) {
	for y := top; y < bottom-lines; y++ {
		copy(b.rowSlice(y), b.rowSlice(y+lines))
		b.dmg.MarkRow(y)
	}
	for y := maxInt(top, bottom-lines); y < bottom; y++ {
		b.clearRow(y, fillAttr)
		b.dmg.MarkRow(y)
	}
}

func (b *Buffer) scrollDown(top, bottom, lines int, fillAttr cell.Attr) {
	for y := bottom - 1; y >= top+lines; y-- {
		copy(b.rowSlice(y), b.rowSlice(y-lines))
		b.dmg.MarkRow(y)
	}
	end := minInt(bottom, top+lines)
	for y := top; y < end; y++ {
		b.clearRow(y, fillAttr)
		b.dmg.MarkRow(y)
	}
}

func (b *Buffer) rowSlice(y int) []cell.Cell {
	start := b.index(0, y)
	return b.back[start : start+b.width]
}

func (b *Buffer) clearRow(y int, attr cell.Attr) {
	b.repairPairBoundary(y, 0, b.width)
	row := b.rowSlice(y)
	empty := cell.New(" ", attr)
	for i := range row {
		row[i] = empty
	}
}

// Resize changes the buffer dimensions, preserving the overlapping
// top-left region of content and forcing a full redraw.
func (b *Buffer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width == b.width && height == b.height {
		return
	}

	oldBack, oldW, oldH := b.back, b.width, b.height
	b.width, b.height = width, height
	b.allocate()

	copyW, copyH := minInt(oldW, width), minInt(oldH, height)
	for y := 0; y < copyH; y++ {
		srcStart := y * oldW
		dstStart := y * width
		copy(b.back[dstStart:dstStart+copyW], oldBack[srcStart:srcStart+copyW])
	}

	b.dmg.Resize(width, height)
}

// BeginFrame reports whether a flush is currently permitted by the frame
// pacer. Callers should skip EndFrame/flush entirely when this is false.
func (b *Buffer) BeginFrame() bool { return b.limiter.ShouldUpdate() }

// DamageSnapshot returns the damage region for every row without clearing
// it, for a caller (internal/backend's reconciler) that wants to read
// dirty spans before deciding whether it can actually emit them.
func (b *Buffer) DamageSnapshot() []dirty.Region { return b.dmg.Snapshot() }

// EndFrame copies the back buffer into the front buffer and clears all
// damage, completing a flush cycle. Callers call this only after they
// have durably written every damaged span to the backend.
func (b *Buffer) EndFrame() {
	copy(b.front, b.back)
	b.dmg.Clear()
}

// MarkFullRedraw forces every row dirty on the next DamageSnapshot, used
// after a backend reconnect or capability renegotiation.
func (b *Buffer) MarkFullRedraw() { b.dmg.MarkFullRedraw() }

// IsDirty reports whether any row has pending damage.
func (b *Buffer) IsDirty() bool { return b.dmg.IsDirty() }

// Limiter exposes the buffer's frame-pacing limiter for callers that need
// to tune it (e.g. SetFPS from a runtime config change).
func (b *Buffer) Limiter() *pacing.Limiter { return b.limiter }

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
