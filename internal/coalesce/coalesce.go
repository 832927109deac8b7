// Package coalesce holds back rapid-fire Mouse-move and Resize events so
// a slow consumer sees at most one per coalescing window instead of a
// burst, per spec §4.7.
//
// Grounded on original_source/vindauga/io/event_coalescer.py's
// EventCoalescer, narrowed to the spec's scope: vindauga also coalesces
// key repeats by merging them into a single event with an incremented
// repeat_count, but spec §4.7 explicitly limits coalescing to mouse-move
// and resize, so key and button events here always pass straight
// through uncoalesced. The hold-newest/flush-on-dissimilar-or-aged-out
// policy is carried over, translated from vindauga's Optional-return
// add_event/get_pending_event pair into Go's explicit (events, held)
// return shape.
package coalesce

import (
	"sync"
	"time"

	"github.com/dshills/tuicore/internal/event"
)

// DefaultWindow is the coalescing window used when Config.Window is
// zero, matching vindauga's ~60fps mouse_coalesce_time.
const DefaultWindow = 16 * time.Millisecond

// Config configures a Coalescer.
type Config struct {
	// Window is how long a held event may sit and still have a same-kind
	// successor merged into it; once it is older, the held event is
	// emitted and the successor is held in its place.
	Window time.Duration
}

// Stats reports coalescing effectiveness, per vindauga's get_stats
// supplement.
type Stats struct {
	Received  int
	Coalesced int
	Emitted   int
}

// Coalescer holds back Mouse{Kind: MouseMove} and Resize events, emitting
// only the latest one once the window elapses or a dissimilar event
// arrives. All other event kinds pass through immediately.
type Coalescer struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time

	heldMouse  *heldMouse
	heldResize *heldResize
	stats      Stats
}

type heldMouse struct {
	ev event.Mouse
	at time.Time
}

type heldResize struct {
	ev event.Resize
	at time.Time
}

// New creates a Coalescer from cfg.
func New(cfg Config) *Coalescer {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Coalescer{window: window, now: time.Now}
}

// Feed admits one event and returns the events that are ready to be
// delivered immediately. A coalescable event that is merged into a held
// one returns no events; the caller must still call AgeOut periodically
// (or Flush at shutdown) to eventually see the last held value.
func (c *Coalescer) Feed(ev event.Event) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Received++
	now := c.now()

	switch e := ev.(type) {
	case event.Mouse:
		if e.Kind != event.MouseMove {
			out := c.flushHeldLocked()
			out = append(out, e)
			c.stats.Emitted++
			return out
		}
		out := c.flushResizeLocked()
		return append(out, c.holdMouseLocked(e, now)...)
	case event.Resize:
		out := c.flushMouseLocked()
		return append(out, c.holdResizeLocked(e, now)...)
	default:
		out := c.flushHeldLocked()
		out = append(out, ev)
		c.stats.Emitted++
		return out
	}
}

// flushHeldLocked flushes both heldMouse and heldResize, in the order they
// would otherwise have been emitted. Called ahead of any event that is not
// itself coalescable with either held kind, so a later event never
// overtakes an earlier held one (spec §4.7).
func (c *Coalescer) flushHeldLocked() []event.Event {
	out := c.flushMouseLocked()
	return append(out, c.flushResizeLocked()...)
}

func (c *Coalescer) holdMouseLocked(e event.Mouse, now time.Time) []event.Event {
	if c.heldMouse == nil {
		c.heldMouse = &heldMouse{ev: e, at: now}
		return nil
	}
	if now.Sub(c.heldMouse.at) <= c.window {
		c.heldMouse.ev = e
		c.heldMouse.at = now
		c.stats.Coalesced++
		return nil
	}
	out := []event.Event{c.heldMouse.ev}
	c.heldMouse = &heldMouse{ev: e, at: now}
	c.stats.Emitted++
	return out
}

func (c *Coalescer) holdResizeLocked(e event.Resize, now time.Time) []event.Event {
	if c.heldResize == nil {
		c.heldResize = &heldResize{ev: e, at: now}
		return nil
	}
	if now.Sub(c.heldResize.at) <= c.window {
		c.heldResize.ev = e
		c.heldResize.at = now
		c.stats.Coalesced++
		return nil
	}
	out := []event.Event{c.heldResize.ev}
	c.heldResize = &heldResize{ev: e, at: now}
	c.stats.Emitted++
	return out
}

func (c *Coalescer) flushMouseLocked() []event.Event {
	if c.heldMouse == nil {
		return nil
	}
	out := []event.Event{c.heldMouse.ev}
	c.heldMouse = nil
	c.stats.Emitted++
	return out
}

func (c *Coalescer) flushResizeLocked() []event.Event {
	if c.heldResize == nil {
		return nil
	}
	out := []event.Event{c.heldResize.ev}
	c.heldResize = nil
	c.stats.Emitted++
	return out
}

// AgeOut flushes any held event whose window has elapsed without a
// dissimilar or merged successor arriving. The caller's poll loop should
// call this on each idle tick so a lone mouse-move or resize is not held
// forever waiting for a successor that never comes.
func (c *Coalescer) AgeOut() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var out []event.Event
	if c.heldMouse != nil && now.Sub(c.heldMouse.at) > c.window {
		out = append(out, c.flushMouseLocked()...)
	}
	if c.heldResize != nil && now.Sub(c.heldResize.at) > c.window {
		out = append(out, c.flushResizeLocked()...)
	}
	return out
}

// Flush unconditionally emits any held events, regardless of age. Call
// this at shutdown so a held event is never silently dropped.
func (c *Coalescer) Flush() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.flushMouseLocked()
	out = append(out, c.flushResizeLocked()...)
	return out
}

// Stats returns the coalescer's running statistics.
func (c *Coalescer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
