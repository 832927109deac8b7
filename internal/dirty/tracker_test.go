package dirty

import "testing"

func TestNewRowTracker(t *testing.T) {
	tr := NewRowTracker(80, 24)
	if tr.IsDirty() {
		t.Error("fresh tracker should not be dirty")
	}
}

func TestMarkCellDirty(t *testing.T) {
	tr := NewRowTracker(80, 24)
	tr.MarkCell(3, 10)
	if !tr.IsDirty() {
		t.Error("tracker should be dirty after MarkCell")
	}
	row := tr.Row(3)
	if !row.Contains(10) {
		t.Error("row 3 should have column 10 dirty")
	}
	if !tr.Row(4).IsEmpty() {
		t.Error("row 4 should be clean")
	}
}

func TestMarkRow(t *testing.T) {
	tr := NewRowTracker(80, 24)
	tr.MarkRow(0)
	row := tr.Row(0)
	if row.Width() != 80 {
		t.Errorf("MarkRow width = %d, want 80", row.Width())
	}
}

func TestMarkFullRedraw(t *testing.T) {
	tr := NewRowTracker(10, 3)
	tr.MarkFullRedraw()
	for i := 0; i < 3; i++ {
		if tr.Row(i).Width() != 10 {
			t.Errorf("row %d width = %d after full redraw, want 10", i, tr.Row(i).Width())
		}
	}
}

func TestResizeForcesFullRedraw(t *testing.T) {
	tr := NewRowTracker(80, 24)
	tr.Clear()
	if tr.IsDirty() {
		t.Fatal("cleared tracker should not be dirty")
	}
	tr.Resize(100, 30)
	if !tr.IsDirty() {
		t.Error("Resize should force full redraw")
	}
}

func TestSnapshotAndClear(t *testing.T) {
	tr := NewRowTracker(80, 24)
	tr.MarkCell(1, 5)
	snap := tr.Snapshot()
	if len(snap) != 24 {
		t.Fatalf("Snapshot length = %d, want 24", len(snap))
	}
	if !snap[1].Contains(5) {
		t.Error("snapshot row 1 should contain column 5")
	}
	tr.Clear()
	if tr.IsDirty() {
		t.Error("tracker should be clean after Clear")
	}
}

func TestOutOfRangeMarkIsNoop(t *testing.T) {
	tr := NewRowTracker(80, 24)
	tr.MarkCell(100, 5) // out of range row, should not panic
	if tr.IsDirty() {
		t.Error("out-of-range MarkCell should not mark the tracker dirty")
	}
}
