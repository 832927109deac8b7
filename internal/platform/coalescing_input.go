package platform

import (
	"time"

	"github.com/dshills/tuicore/internal/backend"
	"github.com/dshills/tuicore/internal/coalesce"
	"github.com/dshills/tuicore/internal/event"
)

// coalescingInput wraps a backend.Input with internal/coalesce's
// EventCoalescer, so mouse-move and resize bursts collapse to at most one
// delivered event per window (spec §4.7), while every other event kind
// passes straight through. This is the only place in the module that
// wires a raw Input to the coalescer — PlatformFactory is what an
// application actually receives, and it always returns this wrapper
// unless Options.DisableCoalescing opts out.
type coalescingInput struct {
	raw   backend.Input
	coal  *coalesce.Coalescer
	queue []event.Event
}

func newCoalescingInput(raw backend.Input) *coalescingInput {
	return &coalescingInput{raw: raw, coal: coalesce.New(coalesce.Config{})}
}

// Poll drains any queued coalesced events first, then polls raw for new
// bytes until either an event is ready to deliver or deadline elapses. A
// held event that ages out past the coalescing window is returned even if
// the caller's deadline has not yet elapsed, so a lone mouse-move is never
// stuck behind a longer poll deadline.
func (c *coalescingInput) Poll(deadline time.Time) (event.Event, error) {
	if len(c.queue) > 0 {
		ev := c.queue[0]
		c.queue = c.queue[1:]
		return ev, nil
	}

	for {
		pollDeadline := deadline
		if aged := c.coal.AgeOut(); len(aged) > 0 {
			c.queue = append(c.queue, aged[1:]...)
			return aged[0], nil
		}
		if !deadline.IsZero() {
			windowDeadline := time.Now().Add(coalesce.DefaultWindow)
			if windowDeadline.Before(pollDeadline) {
				pollDeadline = windowDeadline
			}
		}

		ev, err := c.raw.Poll(pollDeadline)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			if deadline.IsZero() || !time.Now().Before(deadline) {
				return nil, nil
			}
			continue
		}

		ready := c.coal.Feed(ev)
		if len(ready) == 0 {
			continue
		}
		c.queue = append(c.queue, ready[1:]...)
		return ready[0], nil
	}
}

func (c *coalescingInput) Shutdown() error {
	c.queue = append(c.queue, c.coal.Flush()...)
	return c.raw.Shutdown()
}

var _ backend.Input = (*coalescingInput)(nil)
