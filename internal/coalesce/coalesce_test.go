package coalesce

import (
	"testing"
	"testing/quick"
	"time"

	"github.com/dshills/tuicore/internal/event"
)

func newTestCoalescer(window time.Duration) (*Coalescer, *time.Time) {
	c := New(Config{Window: window})
	cur := time.Unix(0, 0)
	c.now = func() time.Time { return cur }
	return c, &cur
}

func TestNonMouseMoveEventsPassThroughImmediately(t *testing.T) {
	c, _ := newTestCoalescer(16 * time.Millisecond)
	out := c.Feed(event.Key{Code: event.KeyEnter})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1", len(out))
	}
	if _, ok := out[0].(event.Key); !ok {
		t.Errorf("event = %#v, want Key", out[0])
	}
}

func TestMousePressPassesThroughImmediately(t *testing.T) {
	c, _ := newTestCoalescer(16 * time.Millisecond)
	out := c.Feed(event.Mouse{X: 1, Y: 1, Kind: event.MousePress})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1: %#v", len(out), out)
	}
}

// TestMouseMoveCoalescesWithinWindow covers spec §8.8's coalescing
// bound: a burst of Mouse-move events inside the window collapses into
// a single held event, not one per input.
func TestMouseMoveCoalescesWithinWindow(t *testing.T) {
	c, cur := newTestCoalescer(16 * time.Millisecond)

	out := c.Feed(event.Mouse{X: 1, Y: 1, Kind: event.MouseMove})
	if out != nil {
		t.Fatalf("first move should be held, got %#v", out)
	}

	*cur = cur.Add(5 * time.Millisecond)
	out = c.Feed(event.Mouse{X: 2, Y: 2, Kind: event.MouseMove})
	if out != nil {
		t.Fatalf("move within window should be held, got %#v", out)
	}

	*cur = cur.Add(5 * time.Millisecond)
	out = c.Feed(event.Mouse{X: 3, Y: 3, Kind: event.MouseMove})
	if out != nil {
		t.Fatalf("move within window should be held, got %#v", out)
	}

	flushed := c.Flush()
	if len(flushed) != 1 {
		t.Fatalf("got %d events on flush, want 1: %#v", len(flushed), flushed)
	}
	m := flushed[0].(event.Mouse)
	if m.X != 3 || m.Y != 3 {
		t.Errorf("flushed move = %+v, want latest position (3,3)", m)
	}

	stats := c.Stats()
	if stats.Coalesced != 2 {
		t.Errorf("Coalesced = %d, want 2", stats.Coalesced)
	}
}

func TestMouseMoveEmitsPreviousWhenWindowElapses(t *testing.T) {
	c, cur := newTestCoalescer(16 * time.Millisecond)
	c.Feed(event.Mouse{X: 1, Y: 1, Kind: event.MouseMove})

	*cur = cur.Add(20 * time.Millisecond)
	out := c.Feed(event.Mouse{X: 9, Y: 9, Kind: event.MouseMove})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1 (the aged-out previous move): %#v", len(out), out)
	}
	if m := out[0].(event.Mouse); m.X != 1 || m.Y != 1 {
		t.Errorf("emitted move = %+v, want the old (1,1) position", m)
	}
}

// TestScenarioS6ResizeCoalescing exercises spec scenario S6: a burst of
// resize events arriving faster than the coalescing window collapses to
// the single latest size.
func TestScenarioS6ResizeCoalescing(t *testing.T) {
	c, cur := newTestCoalescer(16 * time.Millisecond)

	sizes := []event.Resize{{Cols: 81, Rows: 24}, {Cols: 90, Rows: 30}, {Cols: 100, Rows: 40}}
	for _, r := range sizes {
		out := c.Feed(r)
		if out != nil {
			t.Fatalf("resize burst within window should be held, got %#v", out)
		}
		*cur = cur.Add(2 * time.Millisecond)
	}

	flushed := c.Flush()
	if len(flushed) != 1 {
		t.Fatalf("got %d events on flush, want 1: %#v", len(flushed), flushed)
	}
	r := flushed[0].(event.Resize)
	if r.Cols != 100 || r.Rows != 40 {
		t.Errorf("flushed resize = %+v, want final size 100x40", r)
	}
}

func TestAgeOutFlushesStaleHeldEvent(t *testing.T) {
	c, cur := newTestCoalescer(16 * time.Millisecond)
	c.Feed(event.Mouse{X: 5, Y: 5, Kind: event.MouseMove})

	out := c.AgeOut()
	if out != nil {
		t.Fatalf("AgeOut before window elapses should return nothing, got %#v", out)
	}

	*cur = cur.Add(17 * time.Millisecond)
	out = c.AgeOut()
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1 after window elapses: %#v", len(out), out)
	}

	out = c.AgeOut()
	if out != nil {
		t.Errorf("AgeOut should not double-flush, got %#v", out)
	}
}

func TestFlushWithNothingHeldReturnsNil(t *testing.T) {
	c, _ := newTestCoalescer(16 * time.Millisecond)
	if out := c.Flush(); out != nil {
		t.Errorf("Flush with nothing held = %#v, want nil", out)
	}
}

// TestResizeFlushesHeldMouseAheadOfItself covers spec §4.7's ordering
// guarantee: a held Mouse-move is not coalescable with an incoming Resize,
// so it must be flushed before the Resize is itself held, never sitting
// behind it until some later event happens to flush it.
func TestResizeFlushesHeldMouseAheadOfItself(t *testing.T) {
	c, _ := newTestCoalescer(16 * time.Millisecond)
	c.Feed(event.Mouse{X: 1, Y: 1, Kind: event.MouseMove})

	out := c.Feed(event.Resize{Cols: 80, Rows: 24})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1 (the held move, flushed ahead of the resize): %#v", len(out), out)
	}
	if _, ok := out[0].(event.Mouse); !ok {
		t.Errorf("flushed event = %#v, want Mouse", out[0])
	}

	out = c.Flush()
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1 (the held resize): %#v", len(out), out)
	}
	if _, ok := out[0].(event.Resize); !ok {
		t.Errorf("flushed event = %#v, want Resize", out[0])
	}
}

// TestKeyFlushesHeldEventsInArrivalOrder covers spec §4.7: a Resize
// flushes a held Mouse-move ahead of itself, and a non-coalescable event
// (Key, Signal, Paste) then flushes the held Resize ahead of itself, so
// nothing is coalesced across them and arrival order is kept.
func TestKeyFlushesHeldEventsInArrivalOrder(t *testing.T) {
	c, _ := newTestCoalescer(16 * time.Millisecond)
	var out []event.Event
	out = append(out, c.Feed(event.Mouse{X: 1, Y: 1, Kind: event.MouseMove})...)
	out = append(out, c.Feed(event.Resize{Cols: 80, Rows: 24})...)
	out = append(out, c.Feed(event.Key{Code: event.KeyEnter})...)
	if len(out) != 3 {
		t.Fatalf("got %d events, want 3 (mouse, resize, key): %#v", len(out), out)
	}
	if _, ok := out[0].(event.Mouse); !ok {
		t.Errorf("out[0] = %#v, want Mouse", out[0])
	}
	if _, ok := out[1].(event.Resize); !ok {
		t.Errorf("out[1] = %#v, want Resize", out[1])
	}
	if _, ok := out[2].(event.Key); !ok {
		t.Errorf("out[2] = %#v, want Key", out[2])
	}
}

func TestDefaultWindowAppliedWhenConfigZero(t *testing.T) {
	c := New(Config{})
	if c.window != DefaultWindow {
		t.Errorf("window = %v, want DefaultWindow %v", c.window, DefaultWindow)
	}
}

// TestCoalescingBoundProperty covers spec §8 property 8: over any window,
// at most one held Mouse-move and one held Resize can be pending delivery
// at once, and non-coalescable events (Key, Paste) are never dropped, no
// matter how the two event kinds interleave.
func TestCoalescingBoundProperty(t *testing.T) {
	f := func(ops []byte) bool {
		c, _ := newTestCoalescer(time.Hour) // window never elapses mid-test

		nonCoalescableFed := 0
		var delivered []event.Event
		for _, op := range ops {
			var ev event.Event
			switch op % 4 {
			case 0:
				ev = event.Mouse{X: int(op), Y: int(op), Kind: event.MouseMove}
			case 1:
				ev = event.Resize{Cols: int(op), Rows: int(op)}
			case 2:
				ev = event.Key{Code: event.KeyEnter}
				nonCoalescableFed++
			case 3:
				ev = event.Paste{Text: "x"}
				nonCoalescableFed++
			}
			delivered = append(delivered, c.Feed(ev)...)
		}

		final := c.Flush()
		if len(final) > 2 {
			return false // more than one held Mouse-move or Resize survived to Flush
		}
		delivered = append(delivered, final...)

		nonCoalescableSeen := 0
		for _, ev := range delivered {
			switch ev.(type) {
			case event.Key, event.Paste:
				nonCoalescableSeen++
			}
		}
		return nonCoalescableSeen == nonCoalescableFed
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
