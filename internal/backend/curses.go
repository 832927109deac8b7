package backend

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/tuicore/internal/capability"
	"github.com/dshills/tuicore/internal/cell"
	"github.com/dshills/tuicore/internal/cleanup"
	"github.com/dshills/tuicore/internal/errs"
	"github.com/dshills/tuicore/internal/event"
	"github.com/dshills/tuicore/internal/screen"
)

// CursesDisplay and CursesInput are the curses-fallback backend: a
// tcell.Screen does its own terminfo-driven reconciliation and input
// decoding, used when neither AnsiDisplay nor TermiosRawDisplay can
// claim the terminal (no usable TERM entry, a non-Unix console, or an
// explicit curses override), per spec §4.9's fallback chain.
//
// Grounded on github.com/dshills/keystorm's internal/renderer/backend's
// Terminal: same tcell.Screen ownership, Init/Shutdown/SetContent/Show
// shape and style/event conversion helpers, adapted from keystorm's own
// core.Cell/core.Style to this module's cell.Cell/cell.Attr and
// event.Event.
type CursesDisplay struct {
	mu     sync.Mutex
	screen tcell.Screen
	stack  *cleanup.Stack

	initialized bool
	shutdownRan bool
	caps        capability.Capabilities

	cursorX, cursorY int
	cursorVis        bool
	shape            CursorShape
}

// NewCursesDisplay creates a CursesDisplay around a fresh tcell.Screen;
// Init later registers its Shutdown (which calls Fini) with stack. A failure to even construct the
// screen (no terminfo database, no controlling terminal) is returned
// immediately rather than deferred to Init, since PlatformFactory's
// scoring pass wants to know before it commits to this backend.
func NewCursesDisplay(stack *cleanup.Stack) (*CursesDisplay, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, &errs.FatalIO{Op: "tcell.NewScreen", Err: err}
	}
	d := &CursesDisplay{screen: screen, stack: stack, cursorVis: true}
	return d, nil
}

// Screen exposes the underlying tcell.Screen so PlatformFactory can build
// a CursesInput reading from the same screen this display writes to;
// tcell conflates display and input ownership into one Screen value.
func (d *CursesDisplay) Screen() tcell.Screen { return d.screen }

func (d *CursesDisplay) Init(caps capability.Capabilities) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return fmt.Errorf("tuicore: CursesDisplay already initialized")
	}
	if err := d.screen.Init(); err != nil {
		return &errs.FatalIO{Op: "tcell screen init", Err: err}
	}
	d.stack.Push(func() { _ = d.Shutdown() })

	d.caps = caps
	if caps.Mouse != capability.MouseNone {
		d.screen.EnableMouse()
	}
	if caps.BracketedPaste {
		d.screen.EnablePaste()
	}
	d.screen.HideCursor()
	d.cursorVis = false
	d.initialized = true
	return nil
}

// Flush reconciles buf into the tcell screen cell by cell; tcell keeps
// its own internal front/back diff, so this does not reuse internal
// backend's reconciler — the damage walk here exists only to avoid
// touching cells tcell already knows are unchanged from our side, not
// to replace tcell's own terminfo-level diffing.
func (d *CursesDisplay) Flush(buf *screen.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("tuicore: CursesDisplay.Flush before Init")
	}
	if !buf.BeginFrame() {
		return nil
	}

	damage := buf.DamageSnapshot()
	for y, region := range damage {
		if region.IsEmpty() {
			continue
		}
		for x := region.Start; x < region.End; x++ {
			c := buf.Cell(x, y)
			if c.IsTrailing() {
				continue
			}
			style := tcellStyle(c.Attr())
			r := firstRune(c.Text())
			d.screen.SetContent(x, y, r, nil, style)
		}
	}

	d.screen.Show()
	buf.EndFrame()
	return nil
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}

func tcellStyle(attr cell.Attr) tcell.Style {
	style := tcell.StyleDefault

	if fg := attr.Foreground(); !fg.IsDefault() {
		style = style.Foreground(tcellColor(fg))
	}
	if bg := attr.Background(); !bg.IsDefault() {
		style = style.Background(tcellColor(bg))
	}

	bits := attr.StyleBits()
	if bits.Has(cell.Bold) {
		style = style.Bold(true)
	}
	if bits.Has(cell.Underline) {
		style = style.Underline(true)
	}
	if bits.Has(cell.Reverse) {
		style = style.Reverse(true)
	}
	if bits.Has(cell.Italic) {
		style = style.Italic(true)
	}
	if bits.Has(cell.Strike) {
		style = style.StrikeThrough(true)
	}
	return style
}

func tcellColor(c cell.Color) tcell.Color {
	switch c.Kind {
	case cell.KindIndexed16, cell.KindIndexed256:
		return tcell.PaletteColor(int(c.Index()))
	case cell.KindRGB24:
		r, g, b := c.RGBComponents()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b))
	default:
		return tcell.ColorDefault
	}
}

func (d *CursesDisplay) SetCursor(x, y int, visible bool, shape CursorShape) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("tuicore: CursesDisplay.SetCursor before Init")
	}

	d.cursorX, d.cursorY, d.cursorVis, d.shape = x, y, visible, shape
	if !visible {
		d.screen.HideCursor()
		return nil
	}
	d.screen.ShowCursor(x, y)
	switch shape {
	case CursorShapeUnderline:
		d.screen.SetCursorStyle(tcell.CursorStyleSteadyUnderline)
	case CursorShapeBar:
		d.screen.SetCursorStyle(tcell.CursorStyleSteadyBar)
	default:
		d.screen.SetCursorStyle(tcell.CursorStyleSteadyBlock)
	}
	return nil
}

func (d *CursesDisplay) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized || d.shutdownRan {
		return nil
	}
	d.shutdownRan = true
	d.screen.Fini()
	return nil
}

var _ Display = (*CursesDisplay)(nil)

// CursesInput pulls tcell's own PollEvent loop and translates its
// events into this module's event.Event union, per spec §4.6. tcell
// blocks until an event or a PostEvent-driven wakeup arrives, so Poll
// runs it on its own goroutine and selects against deadline/a quit
// channel to honor the Input contract's "return by deadline" guarantee.
type CursesInput struct {
	screen tcell.Screen

	mu      sync.Mutex
	started bool
	events  chan event.Event
	quit    chan struct{}
}

// NewCursesInput creates a CursesInput reading from the same tcell
// screen a CursesDisplay owns; the two must share one tcell.Screen
// instance, as tcell itself conflates display and input.
func NewCursesInput(screen tcell.Screen) *CursesInput {
	return &CursesInput{screen: screen, events: make(chan event.Event, 64), quit: make(chan struct{})}
}

func (in *CursesInput) ensureStarted() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.started {
		return
	}
	in.started = true
	go in.pump()
}

func (in *CursesInput) pump() {
	for {
		ev := in.screen.PollEvent()
		if ev == nil {
			close(in.events)
			return
		}
		converted := convertTcellEvent(ev)
		if converted == nil {
			continue
		}
		select {
		case in.events <- converted:
		case <-in.quit:
			return
		}
	}
}

func convertTcellEvent(ev tcell.Event) event.Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return convertTcellKey(e)
	case *tcell.EventMouse:
		return convertTcellMouse(e)
	case *tcell.EventResize:
		w, h := e.Size()
		return event.Resize{Cols: w, Rows: h}
	case *tcell.EventPaste:
		return nil // start/end markers carry no text; tcell delivers paste content as plain key events
	default:
		return nil
	}
}

func convertTcellKey(e *tcell.EventKey) event.Event {
	mods := convertTcellMod(e.Modifiers())
	if e.Key() == tcell.KeyRune {
		return event.Key{Code: event.KeyPrintable, Text: string(e.Rune()), Modifiers: mods}
	}

	if code, ok := namedKeyCodes[e.Key()]; ok {
		return event.Key{Code: code, Modifiers: mods}
	}
	if e.Key() >= tcell.KeyCtrlA && e.Key() <= tcell.KeyCtrlZ {
		return event.Key{
			Code:      event.KeyNamedControl,
			Modifiers: mods | event.ModCtrl,
			Control:   byte('A' + (e.Key() - tcell.KeyCtrlA)),
		}
	}
	return event.Key{Code: event.KeyPrintable, Text: string(e.Rune()), Modifiers: mods}
}

var namedKeyCodes = map[tcell.Key]event.KeyCode{
	tcell.KeyEscape:     event.KeyEscape,
	tcell.KeyEnter:      event.KeyEnter,
	tcell.KeyTab:        event.KeyTab,
	tcell.KeyBackspace:  event.KeyBackspace,
	tcell.KeyBackspace2: event.KeyBackspace,
	tcell.KeyDelete:     event.KeyDelete,
	tcell.KeyInsert:     event.KeyInsert,
	tcell.KeyHome:       event.KeyHome,
	tcell.KeyEnd:        event.KeyEnd,
	tcell.KeyPgUp:       event.KeyPageUp,
	tcell.KeyPgDn:       event.KeyPageDown,
	tcell.KeyUp:         event.KeyUp,
	tcell.KeyDown:       event.KeyDown,
	tcell.KeyLeft:       event.KeyLeft,
	tcell.KeyRight:      event.KeyRight,
	tcell.KeyF1:         event.KeyF1,
	tcell.KeyF2:         event.KeyF2,
	tcell.KeyF3:         event.KeyF3,
	tcell.KeyF4:         event.KeyF4,
	tcell.KeyF5:         event.KeyF5,
	tcell.KeyF6:         event.KeyF6,
	tcell.KeyF7:         event.KeyF7,
	tcell.KeyF8:         event.KeyF8,
	tcell.KeyF9:         event.KeyF9,
	tcell.KeyF10:        event.KeyF10,
	tcell.KeyF11:        event.KeyF11,
	tcell.KeyF12:        event.KeyF12,
}

func convertTcellMod(m tcell.ModMask) event.Modifier {
	var mods event.Modifier
	if m&tcell.ModShift != 0 {
		mods |= event.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		mods |= event.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		mods |= event.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		mods |= event.ModMeta
	}
	return mods
}

func convertTcellMouse(e *tcell.EventMouse) event.Event {
	x, y := e.Position()
	button, kind := convertTcellButtons(e.Buttons())
	return event.Mouse{X: x, Y: y, Button: button, Kind: kind, Modifiers: convertTcellMod(e.Modifiers())}
}

func convertTcellButtons(b tcell.ButtonMask) (event.MouseButton, event.MouseEventKind) {
	switch {
	case b&tcell.WheelUp != 0:
		return event.MouseWheelUp, event.MousePress
	case b&tcell.WheelDown != 0:
		return event.MouseWheelDown, event.MousePress
	case b&tcell.Button1 != 0:
		return event.MouseLeft, event.MousePress
	case b&tcell.Button2 != 0:
		return event.MouseMiddle, event.MousePress
	case b&tcell.Button3 != 0:
		return event.MouseRight, event.MousePress
	default:
		return event.MouseButtonNone, event.MouseRelease
	}
}

func (in *CursesInput) Poll(deadline time.Time) (event.Event, error) {
	in.ensureStarted()

	var timer <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			select {
			case ev, ok := <-in.events:
				if !ok {
					return nil, &errs.FatalIO{Op: "poll", Err: fmt.Errorf("tcell event loop closed")}
				}
				return ev, nil
			default:
				return nil, nil
			}
		}
		t := time.NewTimer(d)
		defer t.Stop()
		timer = t.C
	} else {
		select {
		case ev, ok := <-in.events:
			if !ok {
				return nil, &errs.FatalIO{Op: "poll", Err: fmt.Errorf("tcell event loop closed")}
			}
			return ev, nil
		default:
			return nil, nil
		}
	}

	select {
	case ev, ok := <-in.events:
		if !ok {
			return nil, &errs.FatalIO{Op: "poll", Err: fmt.Errorf("tcell event loop closed")}
		}
		return ev, nil
	case <-timer:
		return nil, nil
	}
}

func (in *CursesInput) Shutdown() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.started {
		close(in.quit)
		in.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
	return nil
}

var _ Input = (*CursesInput)(nil)
