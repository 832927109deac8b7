package backend

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/dshills/tuicore/internal/capability"
	"github.com/dshills/tuicore/internal/cleanup"
	"github.com/dshills/tuicore/internal/cursorpath"
	"github.com/dshills/tuicore/internal/errs"
	"github.com/dshills/tuicore/internal/event"
	"github.com/dshills/tuicore/internal/screen"
)

// ANSI escape sequences, grounded on original_source/vindauga/io/
// display/ansi.py's class constants.
const (
	ansiCSI = "\x1b["

	ansiClearScreen = ansiCSI + "2J"
	ansiCursorHome  = ansiCSI + "H"
	ansiCursorHide  = ansiCSI + "?25l"
	ansiCursorShow  = ansiCSI + "?25h"

	ansiAltScreenEnter = ansiCSI + "?1049h"
	ansiAltScreenExit  = ansiCSI + "?1049l"

	ansiMouseEnableX11  = ansiCSI + "?1000h"
	ansiMouseDisableX11 = ansiCSI + "?1000l"
	ansiMouseEnableSGR  = ansiCSI + "?1006h"
	ansiMouseDisableSGR = ansiCSI + "?1006l"

	ansiPasteEnable  = ansiCSI + "?2004h"
	ansiPasteDisable = ansiCSI + "?2004l"

	ansiResetAttrs = ansiCSI + "0m"
)

// writeRetries bounds how many short-write retries writeAll attempts
// before giving up and surfacing a FatalIO.
const writeRetries = 4

// writeAll writes data to w in full, retrying a short write a bounded
// number of times before escalating to errs.FatalIO, per spec §7's
// TransientIO/FatalIO split.
func writeAll(w io.Writer, data []byte, op string) error {
	attempts := 0
	for len(data) > 0 {
		n, err := w.Write(data)
		data = data[n:]
		if err == nil {
			continue
		}
		attempts++
		if attempts > writeRetries {
			return &errs.FatalIO{Op: op, Err: err}
		}
	}
	return nil
}

// AnsiDisplay is the portable raw-ANSI Display, writing escape sequences
// directly to an *os.File (normally os.Stdout) and acquiring raw mode on
// a paired input file (normally os.Stdin) via golang.org/x/term.
//
// Grounded on vindauga/io/display/ansi.py's ANSIDisplay: the same
// enter-alt-screen/clear/home/hide-cursor/reset-attrs init sequence and
// disable-mouse/show-cursor/reset/exit-alt-screen/restore-termios
// shutdown sequence, translated into the reconciliation algorithm of
// spec §4.4 (run-length damage scan, cursor-path-optimized moves,
// attribute-change-gated SGR emission, single buffered write per flush).
type AnsiDisplay struct {
	out   *os.File
	in    *os.File
	stack *cleanup.Stack

	mu          sync.Mutex
	initialized bool
	shutdownRan bool

	caps     capability.Capabilities
	rec      *reconciler
	rawState *term.State
	gap      int

	cursorX, cursorY int
	cursorVis        bool
	shape            CursorShape
}

// NewAnsiDisplay creates an AnsiDisplay writing to out and acquiring raw
// mode on in, registering its teardown actions with stack. gap is the
// run-merging threshold of spec §4.4 ("merge two damaged spans separated
// by at most G clean cells into a single run"); 4 matches vindauga's
// observed sweet spot between extra redundant writes and extra cursor
// moves.
func NewAnsiDisplay(out, in *os.File, stack *cleanup.Stack) *AnsiDisplay {
	return &AnsiDisplay{out: out, in: in, stack: stack, gap: 4, cursorVis: true}
}

func (d *AnsiDisplay) Init(caps capability.Capabilities) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return fmt.Errorf("tuicore: AnsiDisplay already initialized")
	}
	if !term.IsTerminal(int(d.out.Fd())) {
		return notATerminal("stdout")
	}
	if !term.IsTerminal(int(d.in.Fd())) {
		return notATerminal("stdin")
	}

	state, err := term.MakeRaw(int(d.in.Fd()))
	if err != nil {
		return &errs.FatalIO{Op: "make raw", Err: err}
	}
	d.rawState = state
	d.stack.Push(func() { _ = term.Restore(int(d.in.Fd()), state) })

	d.caps = caps

	var buf bytes.Buffer
	buf.WriteString(ansiAltScreenEnter)
	d.stack.Push(func() { d.writeDirect(ansiAltScreenExit) })
	buf.WriteString(ansiClearScreen)
	buf.WriteString(ansiCursorHome)
	buf.WriteString(ansiCursorHide)
	d.stack.Push(func() { d.writeDirect(ansiCursorShow) })
	buf.WriteString(ansiResetAttrs)

	if caps.Mouse != capability.MouseNone {
		buf.WriteString(ansiMouseEnableX11)
		buf.WriteString(ansiMouseEnableSGR)
		d.stack.Push(func() { d.writeDirect(ansiMouseDisableSGR + ansiMouseDisableX11) })
	}
	if caps.BracketedPaste {
		buf.WriteString(ansiPasteEnable)
		d.stack.Push(func() { d.writeDirect(ansiPasteDisable) })
	}

	if err := writeAll(d.out, buf.Bytes(), "init"); err != nil {
		return err
	}

	width, height, err := term.GetSize(int(d.out.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		width, height = 80, 24
	}
	d.rec = newReconciler(cursorpath.New(width, height), d.gap, caps.Colors)
	d.cursorVis = true
	d.initialized = true
	return nil
}

// writeDirect is a best-effort fire-and-forget write used only from undo
// actions run during shutdown/signal teardown, where there is no error
// path left to report to.
func (d *AnsiDisplay) writeDirect(seq string) {
	_, _ = d.out.Write([]byte(seq))
}

func (d *AnsiDisplay) Flush(buf *screen.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("tuicore: AnsiDisplay.Flush before Init")
	}
	if !buf.BeginFrame() {
		return nil
	}

	damage := buf.DamageSnapshot()
	var out bytes.Buffer
	for y, region := range damage {
		if region.IsEmpty() {
			continue
		}
		d.rec.flushRow(&out, buf, y, region)
	}

	if d.cursorVis {
		move := d.rec.path.MoveTo(d.cursorY+1, d.cursorX+1)
		out.WriteString(move.Sequence())
	}

	if out.Len() > 0 {
		if err := writeAll(d.out, out.Bytes(), "flush"); err != nil {
			return err
		}
	}

	buf.EndFrame()
	return nil
}

func (d *AnsiDisplay) SetCursor(x, y int, visible bool, shape CursorShape) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("tuicore: AnsiDisplay.SetCursor before Init")
	}

	var out bytes.Buffer
	move := d.rec.path.MoveTo(y+1, x+1)
	out.WriteString(move.Sequence())
	d.cursorX, d.cursorY = x, y

	if visible != d.cursorVis {
		if visible {
			out.WriteString(ansiCursorShow)
		} else {
			out.WriteString(ansiCursorHide)
		}
		d.cursorVis = visible
	}
	if visible && shape != d.shape {
		out.WriteString(cursorShapeSeq(shape))
		d.shape = shape
	}

	return writeAll(d.out, out.Bytes(), "set-cursor")
}

func (d *AnsiDisplay) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized || d.shutdownRan {
		return nil
	}
	d.shutdownRan = true

	var out bytes.Buffer
	if d.caps.BracketedPaste {
		out.WriteString(ansiPasteDisable)
	}
	if d.caps.Mouse != capability.MouseNone {
		out.WriteString(ansiMouseDisableSGR)
		out.WriteString(ansiMouseDisableX11)
	}
	out.WriteString(ansiCursorShow)
	out.WriteString(ansiResetAttrs)
	out.WriteString(ansiAltScreenExit)

	err := writeAll(d.out, out.Bytes(), "shutdown")
	if d.rawState != nil {
		_ = term.Restore(int(d.in.Fd()), d.rawState)
	}
	return err
}

// SetColorLevel adjusts the color depth future Flush calls downgrade to,
// used by PlatformFactory after a DA1 refinement raises the negotiated
// level.
func (d *AnsiDisplay) SetColorLevel(level capability.ColorLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.colors = level
	}
	d.caps.Colors = level
}

// Query implements capability.Querier by writing sequence to d.out and
// reading whatever arrives on d.in within a bounded deadline, used by
// PlatformFactory's DA1 refinement pass. Init must have already put the
// input file into raw mode, or the read will block past the deadline
// waiting for a line the terminal never completes.
func (d *AnsiDisplay) Query(sequence string) (string, error) {
	if err := writeAll(d.out, []byte(sequence), "query"); err != nil {
		return "", err
	}
	_ = d.in.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	defer d.in.SetReadDeadline(time.Time{})

	buf := make([]byte, 64)
	n, err := d.in.Read(buf)
	if n == 0 {
		return "", err
	}
	return string(buf[:n]), nil
}

var (
	_ Display           = (*AnsiDisplay)(nil)
	_ capability.Querier = (*AnsiDisplay)(nil)
)

// AnsiInput is the Input half of the raw-ANSI backend: it reads bytes
// from a file already placed in raw mode (by a paired AnsiDisplay.Init)
// and feeds them through internal/escape's parser, handling the
// lone-ESC timeout and delivering the decoded events uncoalesced per spec
// §4.6; internal/platform's coalescingInput wrapper does the coalescing.
//
// Grounded on vindauga/io/input/ansi_fixed.py's ANSIInput.get_event: a
// non-blocking read loop with a short select timeout, distinguishing a
// bare ESC (ESC with no follow-on byte inside the timeout) from the
// start of a CSI/SS3/OSC sequence.
type AnsiInput struct {
	in     *os.File
	parser escapeParser

	escTimeout time.Duration
	pending    time.Time
}

// escapeParser is the subset of *escape.Parser AnsiInput needs, kept as
// an interface so tests can substitute a scripted fake without a real
// byte stream.
type escapeParser interface {
	Feed(b byte) []event.Event
	PendingEscape() bool
	Timeout() []event.Event
}

// NewAnsiInput creates an AnsiInput reading from in and feeding parser.
func NewAnsiInput(in *os.File, parser escapeParser) *AnsiInput {
	return &AnsiInput{in: in, parser: parser, escTimeout: 50 * time.Millisecond}
}

func (in *AnsiInput) Poll(deadline time.Time) (event.Event, error) {
	readDeadline := deadline
	if !deadline.IsZero() && in.parser.PendingEscape() && !in.pending.IsZero() {
		escDeadline := in.pending.Add(in.escTimeout)
		if escDeadline.Before(readDeadline) {
			readDeadline = escDeadline
		}
	}

	if !readDeadline.IsZero() {
		_ = in.in.SetReadDeadline(readDeadline)
	} else {
		_ = in.in.SetReadDeadline(time.Now())
	}

	var b [1]byte
	n, err := in.in.Read(b[:])
	if n == 0 {
		if in.parser.PendingEscape() && !in.pending.IsZero() && time.Now().After(in.pending.Add(in.escTimeout)) {
			in.pending = time.Time{}
			if evs := in.parser.Timeout(); len(evs) > 0 {
				return evs[0], nil
			}
		}
		if isTimeout(err) {
			return nil, nil
		}
		if err == io.EOF {
			return nil, &errs.FatalIO{Op: "poll", Err: err}
		}
		return nil, nil
	}

	wasPending := in.parser.PendingEscape()
	evs := in.parser.Feed(b[0])
	if in.parser.PendingEscape() && !wasPending {
		in.pending = time.Now()
	}
	if len(evs) == 0 {
		return nil, nil
	}
	return evs[0], nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func (in *AnsiInput) Shutdown() error {
	_ = in.in.SetReadDeadline(time.Time{})
	return nil
}

var _ Input = (*AnsiInput)(nil)
