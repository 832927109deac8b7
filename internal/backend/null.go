package backend

import (
	"time"

	"github.com/dshills/tuicore/internal/capability"
	"github.com/dshills/tuicore/internal/dirty"
	"github.com/dshills/tuicore/internal/event"
	"github.com/dshills/tuicore/internal/screen"
)

// NullDisplay is a no-op Display, grounded on keystorm's NullBackend: it
// records what was asked of it (for test assertions) without touching any
// real terminal. Flush copies buf's damage into a recorded snapshot and
// calls buf.EndFrame, so tests can drive a full PutChar/Flush cycle
// against it exactly as they would a real backend.
type NullDisplay struct {
	Initialized bool
	ShutdownN   int
	Caps        capability.Capabilities
	FlushCount  int
	CursorX     int
	CursorY     int
	CursorShown bool
	Shape       CursorShape
	LastFlushed []dirty.Region
}

// NewNullDisplay creates an uninitialized NullDisplay.
func NewNullDisplay() *NullDisplay { return &NullDisplay{} }

func (d *NullDisplay) Init(caps capability.Capabilities) error {
	d.Initialized = true
	d.Caps = caps
	return nil
}

func (d *NullDisplay) Flush(buf *screen.Buffer) error {
	if !buf.BeginFrame() {
		return nil
	}
	d.LastFlushed = buf.DamageSnapshot()
	d.FlushCount++
	buf.EndFrame()
	return nil
}

func (d *NullDisplay) SetCursor(x, y int, visible bool, shape CursorShape) error {
	d.CursorX, d.CursorY, d.CursorShown, d.Shape = x, y, visible, shape
	return nil
}

func (d *NullDisplay) Shutdown() error {
	d.ShutdownN++
	return nil
}

// NullInput is a no-op Input backed by a preloaded event queue, letting
// tests script a sequence of events for a consumer to Poll without a real
// TTY, mirroring keystorm's NullBackend.PostEvent/PollEvent pair.
type NullInput struct {
	events    []event.Event
	ShutdownN int
}

// NewNullInput creates a NullInput preloaded with events, delivered in
// order by successive Poll calls.
func NewNullInput(events ...event.Event) *NullInput {
	return &NullInput{events: events}
}

// Push appends an event to the queue, for a test that wants to inject
// events mid-run rather than preload them all.
func (in *NullInput) Push(ev event.Event) { in.events = append(in.events, ev) }

func (in *NullInput) Poll(deadline time.Time) (event.Event, error) {
	if len(in.events) == 0 {
		return nil, nil
	}
	ev := in.events[0]
	in.events = in.events[1:]
	return ev, nil
}

func (in *NullInput) Shutdown() error {
	in.ShutdownN++
	return nil
}
