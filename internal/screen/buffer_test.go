package screen

import (
	"testing"
	"testing/quick"

	"github.com/dshills/tuicore/internal/cell"
)

func TestNewClampsMinSize(t *testing.T) {
	b := New(0, 0, 0)
	w, h := b.Size()
	if w != 1 || h != 1 {
		t.Errorf("Size() = %dx%d, want 1x1", w, h)
	}
}

func TestPutCharNarrow(t *testing.T) {
	b := New(10, 5, 0)
	b.PutChar(2, 1, "a", cell.DefaultAttr)
	c := b.Cell(2, 1)
	if c.Text() != "a" {
		t.Errorf("Cell(2,1).Text() = %q, want %q", c.Text(), "a")
	}
	if !b.dmg.Row(1).Contains(2) {
		t.Error("row 1 should be marked dirty at column 2")
	}
}

func TestPutCharWidePairing(t *testing.T) {
	b := New(10, 5, 0)
	b.PutChar(2, 1, "世", cell.DefaultAttr)
	lead := b.Cell(2, 1)
	trail := b.Cell(3, 1)
	if lead.Width() != 2 {
		t.Errorf("leading cell width = %d, want 2", lead.Width())
	}
	if !trail.IsTrailing() {
		t.Error("cell after a wide char should be a trailing marker")
	}
}

func TestPutCharWideAtRightEdgeClips(t *testing.T) {
	b := New(10, 5, 0)
	b.PutChar(9, 1, "世", cell.DefaultAttr) // last column, no room for trailing half
	c := b.Cell(9, 1)
	if c.Width() != 1 {
		t.Errorf("wide char at right edge should clip to width 1, got %d", c.Width())
	}
}

func TestPutTextClipsAndReturnsWritten(t *testing.T) {
	b := New(5, 2, 0)
	n := b.PutText(0, 0, "hello world", cell.DefaultAttr)
	if n != 5 {
		t.Errorf("PutText clipped write returned %d, want 5", n)
	}
	if b.Cell(4, 0).Text() != "o" {
		t.Errorf("Cell(4,0).Text() = %q, want %q", b.Cell(4, 0).Text(), "o")
	}
}

func TestPutTextNegativeStart(t *testing.T) {
	b := New(5, 2, 0)
	n := b.PutText(-2, 0, "abcdef", cell.DefaultAttr)
	// columns -2,-1 skipped; "c" lands at col 0, "d" at 1, etc. -> 4 written before clip (width 5)
	if n != 4 {
		t.Errorf("PutText from negative start wrote %d, want 4", n)
	}
	if b.Cell(0, 0).Text() != "c" {
		t.Errorf("Cell(0,0).Text() = %q, want %q", b.Cell(0, 0).Text(), "c")
	}
}

func TestFillRectAndClearRect(t *testing.T) {
	b := New(10, 10, 0)
	b.FillRect(2, 2, 3, 3, "x", cell.DefaultAttr)
	if b.Cell(2, 2).Text() != "x" || b.Cell(4, 4).Text() != "x" {
		t.Error("FillRect did not fill the expected rectangle")
	}
	if b.Cell(5, 5).Text() == "x" {
		t.Error("FillRect should not write outside its rectangle")
	}

	b.ClearRect(2, 2, 3, 3, cell.DefaultAttr)
	if b.Cell(2, 2).Text() != " " {
		t.Error("ClearRect should reset cells to space")
	}
}

func TestScrollUp(t *testing.T) {
	b := New(5, 4, 0)
	for y := 0; y < 4; y++ {
		b.PutChar(0, y, string(rune('a'+y)), cell.DefaultAttr)
	}
	b.Scroll(0, 4, 1, cell.DefaultAttr)
	if b.Cell(0, 0).Text() != "b" {
		t.Errorf("after ScrollUp(1), row 0 = %q, want %q", b.Cell(0, 0).Text(), "b")
	}
	if b.Cell(0, 3).Text() != " " {
		t.Errorf("after ScrollUp(1), last row should be cleared, got %q", b.Cell(0, 3).Text())
	}
}

func TestScrollDown(t *testing.T) {
	b := New(5, 4, 0)
	for y := 0; y < 4; y++ {
		b.PutChar(0, y, string(rune('a'+y)), cell.DefaultAttr)
	}
	b.Scroll(0, 4, -1, cell.DefaultAttr)
	if b.Cell(0, 3).Text() != "c" {
		t.Errorf("after ScrollDown(1), row 3 = %q, want %q", b.Cell(0, 3).Text(), "c")
	}
	if b.Cell(0, 0).Text() != " " {
		t.Errorf("after ScrollDown(1), first row should be cleared, got %q", b.Cell(0, 0).Text())
	}
}

func TestResizePreservesOverlap(t *testing.T) {
	b := New(5, 5, 0)
	b.PutChar(1, 1, "z", cell.DefaultAttr)
	b.Resize(10, 10)
	w, h := b.Size()
	if w != 10 || h != 10 {
		t.Fatalf("Size() = %dx%d, want 10x10", w, h)
	}
	if b.Cell(1, 1).Text() != "z" {
		t.Error("Resize should preserve overlapping content")
	}
	if !b.IsDirty() {
		t.Error("Resize should force a full redraw")
	}
}

func TestResizeShrink(t *testing.T) {
	b := New(10, 10, 0)
	b.PutChar(8, 8, "z", cell.DefaultAttr)
	b.Resize(5, 5)
	w, h := b.Size()
	if w != 5 || h != 5 {
		t.Fatalf("Size() = %dx%d, want 5x5", w, h)
	}
}

func TestBeginEndFrameCycle(t *testing.T) {
	b := New(5, 5, 0)
	b.PutChar(0, 0, "a", cell.DefaultAttr)
	if !b.IsDirty() {
		t.Fatal("buffer should be dirty after a write")
	}
	if !b.BeginFrame() {
		t.Fatal("unlimited pacer should always allow a frame")
	}
	b.EndFrame()
	if b.IsDirty() {
		t.Error("buffer should be clean after EndFrame")
	}
	if b.FrontCell(0, 0).Text() != "a" {
		t.Error("EndFrame should have copied the back buffer to front")
	}
}

func TestDamageSnapshotCoversWideWrite(t *testing.T) {
	b := New(10, 2, 0)
	b.PutChar(3, 0, "世", cell.DefaultAttr)
	snap := b.DamageSnapshot()
	if !snap[0].Contains(3) || !snap[0].Contains(4) {
		t.Error("damage snapshot should cover both cells of a wide character")
	}
}

func TestPutCharOverwritingTrailingHalfRepairsLeadingHalf(t *testing.T) {
	b := New(10, 5, 0)
	b.PutChar(2, 1, "世", cell.DefaultAttr)
	b.PutChar(3, 1, "a", cell.DefaultAttr) // overwrites only the trailing marker

	lead := b.Cell(2, 1)
	if lead.Width() == 2 {
		t.Error("leading cell should have been repaired to a space, not left pointing at a narrow neighbor")
	}
	if lead.Text() != " " {
		t.Errorf("repaired leading cell = %q, want a space", lead.Text())
	}
	if !b.dmg.Row(1).Contains(2) {
		t.Error("repairing the orphaned leading cell should mark it dirty")
	}
}

func TestPutCharOverwritingLeadingHalfRepairsTrailingHalf(t *testing.T) {
	b := New(10, 5, 0)
	b.PutChar(2, 1, "世", cell.DefaultAttr)
	b.PutChar(2, 1, "a", cell.DefaultAttr) // overwrites only the leading cell

	trail := b.Cell(3, 1)
	if trail.IsTrailing() {
		t.Error("trailing marker should have been repaired to a space, not left pointing at a missing leading cell")
	}
	if trail.Text() != " " {
		t.Errorf("repaired trailing cell = %q, want a space", trail.Text())
	}
	if !b.dmg.Row(1).Contains(3) {
		t.Error("repairing the orphaned trailing cell should mark it dirty")
	}
}

func TestFillRectRepairsWidePairAtRectEdges(t *testing.T) {
	b := New(10, 5, 0)
	b.PutChar(3, 1, "世", cell.DefaultAttr) // occupies columns 3,4
	b.FillRect(4, 1, 3, 1, "x", cell.DefaultAttr)

	lead := b.Cell(3, 1)
	if lead.Width() == 2 || lead.Text() != " " {
		t.Errorf("leading cell at col 3 = %q width %d, want repaired space", lead.Text(), lead.Width())
	}
}

func TestOutOfBoundsWritesAreNoop(t *testing.T) {
	b := New(5, 5, 0)
	b.PutChar(-1, -1, "a", cell.DefaultAttr)
	b.PutChar(100, 100, "a", cell.DefaultAttr)
	if b.IsDirty() {
		t.Error("out-of-bounds writes should not mark the buffer dirty")
	}
}

// TestDamageCoverageProperty covers spec §8 property 1: for any sequence
// of put_* calls, every cell whose back value differs from front lies
// inside the row's damage region.
func TestDamageCoverageProperty(t *testing.T) {
	const width, height = 12, 6

	f := func(ops []byte) bool {
		b := New(width, height, 0)
		b.EndFrame() // start clean, front == back

		for _, op := range ops {
			x, y := int(op)%width, int(op>>4)%height
			switch op % 3 {
			case 0:
				b.PutChar(x, y, "a", cell.DefaultAttr)
			case 1:
				b.PutChar(x, y, "世", cell.DefaultAttr)
			case 2:
				b.FillRect(x, y, 3, 2, "b", cell.DefaultAttr)
			}
		}

		snapshot := b.DamageSnapshot()
		for y := 0; y < height; y++ {
			region := snapshot[y]
			for x := 0; x < width; x++ {
				if !b.Cell(x, y).EqualDisplay(b.FrontCell(x, y)) && !region.Contains(x) {
					return false
				}
			}
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// TestWideCharPairingProperty covers spec §8 property 3: no reachable
// buffer state contains an orphan leading or trailing wide-char cell,
// regardless of the order narrow and wide writes land in.
func TestWideCharPairingProperty(t *testing.T) {
	const width, height = 12, 4

	f := func(ops []byte) bool {
		b := New(width, height, 0)
		for _, op := range ops {
			x, y := int(op)%width, int(op>>4)%height
			if op%2 == 0 {
				b.PutChar(x, y, "a", cell.DefaultAttr)
			} else {
				b.PutChar(x, y, "世", cell.DefaultAttr)
			}
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := b.Cell(x, y)
				if c.IsTrailing() {
					if x == 0 || b.Cell(x-1, y).Width() != 2 {
						return false
					}
				}
				if c.Width() == 2 {
					if x+1 >= width || !b.Cell(x+1, y).IsTrailing() {
						return false
					}
				}
			}
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
