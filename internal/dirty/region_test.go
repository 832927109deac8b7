package dirty

import "testing"

func TestCleanRegion(t *testing.T) {
	r := Clean()
	if !r.IsEmpty() {
		t.Error("Clean() should be empty")
	}
	if r.Width() != 0 {
		t.Errorf("Clean().Width() = %d, want 0", r.Width())
	}
}

func TestExpand(t *testing.T) {
	r := Clean()
	r = r.Expand(5, 10)
	if r.IsEmpty() {
		t.Error("expanded region should not be empty")
	}
	if r.Start != 5 || r.End != 10 {
		t.Errorf("Expand(5,10) = [%d,%d), want [5,10)", r.Start, r.End)
	}

	r = r.Expand(2, 7)
	if r.Start != 2 || r.End != 10 {
		t.Errorf("after Expand(2,7), got [%d,%d), want [2,10)", r.Start, r.End)
	}
}

func TestExpandPanicsOnInvertedRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expand(5,5) should panic")
		}
	}()
	Clean().Expand(5, 5)
}

func TestExpandCell(t *testing.T) {
	r := Clean().ExpandCell(3)
	if r.Start != 3 || r.End != 4 {
		t.Errorf("ExpandCell(3) = [%d,%d), want [3,4)", r.Start, r.End)
	}
}

func TestContains(t *testing.T) {
	r := Clean().Expand(5, 10)
	if !r.Contains(5) || !r.Contains(9) {
		t.Error("Contains should include both endpoints of [5,10)")
	}
	if r.Contains(10) || r.Contains(4) {
		t.Error("Contains should exclude 10 and 4")
	}
}

func TestUnion(t *testing.T) {
	a := Clean().Expand(0, 5)
	b := Clean().Expand(10, 15)
	u := a.Union(b)
	if u.Start != 0 || u.End != 15 {
		t.Errorf("Union = [%d,%d), want [0,15)", u.Start, u.End)
	}

	// Union with clean is a no-op.
	c := a.Union(Clean())
	if c.Start != a.Start || c.End != a.End {
		t.Errorf("Union with clean changed region: got [%d,%d)", c.Start, c.End)
	}
}

func TestReset(t *testing.T) {
	r := Clean().Expand(1, 2).Reset()
	if !r.IsEmpty() {
		t.Error("Reset should produce an empty region")
	}
}

func TestIntersects(t *testing.T) {
	r := Clean().Expand(5, 10)
	if !r.Intersects(8, 12) {
		t.Error("[5,10) should intersect [8,12)")
	}
	if r.Intersects(10, 15) {
		t.Error("[5,10) should not intersect [10,15) (half-open)")
	}
	if Clean().Intersects(0, 100) {
		t.Error("a clean region should never intersect anything")
	}
}

func TestClamp(t *testing.T) {
	r := Clean().Expand(5, 20).Clamp(10)
	if r.Start != 5 || r.End != 10 {
		t.Errorf("Clamp(10) = [%d,%d), want [5,10)", r.Start, r.End)
	}

	r2 := Clean().Expand(5, 20).Clamp(3)
	if !r2.IsEmpty() {
		t.Error("Clamp below Start should produce empty region")
	}

	r3 := Clean().Clamp(10)
	if !r3.IsEmpty() {
		t.Error("Clamp on a clean region stays clean")
	}
}
