// Package backend defines the Display/Input contract a concrete terminal
// backend must satisfy (spec §4.4/§4.6) and a NullBackend test double pair,
// then supplies three concrete implementations: ansi.go (raw ANSI escape
// codec over a TTY), termiosraw_unix.go (direct Unix termios/ioctl control),
// and curses.go (a tcell-backed fallback for platforms the first two
// refuse, e.g. TERM=dumb or a non-Unix console).
//
// Grounded on github.com/dshills/keystorm's internal/renderer/backend
// (the Backend interface shape and its NullBackend double), split here
// into two narrower interfaces — Display and Input — because spec §2
// treats them as a pair realized independently (C10/C11), not one
// god-interface.
package backend

import (
	"time"

	"github.com/dshills/tuicore/internal/capability"
	"github.com/dshills/tuicore/internal/cleanup"
	"github.com/dshills/tuicore/internal/cursorpath"
	"github.com/dshills/tuicore/internal/errs"
	"github.com/dshills/tuicore/internal/event"
	"github.com/dshills/tuicore/internal/screen"
)

// CursorShape selects the visual cursor shape, when the backend's
// capabilities report cursor_shapes support; backends that can't honor a
// shape fall back to their default block cursor silently.
type CursorShape int

const (
	CursorShapeBlock CursorShape = iota
	CursorShapeUnderline
	CursorShapeBar
)

// Display realizes the output contract of spec §4.4 against a real
// terminal: reconciling a screen.Buffer's damage into a byte stream.
type Display interface {
	// Init enters the backend's screen mode (alternate screen, mouse/paste
	// reporting, cursor visibility) per caps and registers its undo
	// actions with the shared cleanup stack. Init must be idempotent-safe
	// to call at most once; a second call returns an error.
	Init(caps capability.Capabilities) error

	// Flush reconciles buf's back grid into the terminal, subject to
	// buf's own frame-pacing gate (spec §4.4's FpsLimiter guard). A call
	// arriving before the next frame is due returns nil having written
	// nothing; buf retains its damage for the next Flush to pick up.
	Flush(buf *screen.Buffer) error

	// SetCursor positions the terminal cursor and sets its visibility and
	// (capability-permitting) shape.
	SetCursor(x, y int, visible bool, shape CursorShape) error

	// Shutdown leaves the backend's screen mode, undoing exactly what
	// Init did. Idempotent: a second call is a no-op.
	Shutdown() error
}

// Input realizes the input contract of spec §4.6: polling raw bytes,
// feeding them to the escape parser, and delivering normalized events.
type Input interface {
	// Poll waits until an event is available or deadline elapses,
	// whichever comes first. A zero deadline means "return immediately if
	// nothing is queued"; a deadline in the past behaves the same way.
	// Returns (nil, nil) on a timeout with no event, never an error for a
	// bare timeout.
	Poll(deadline time.Time) (event.Event, error)

	// Shutdown releases the input backend's resources. Idempotent.
	Shutdown() error
}

// Pair bundles a Display and Input sharing one TerminalCleanup scope, the
// shape PlatformFactory hands back to an embedding application per spec
// §2's control-flow description.
type Pair struct {
	Display Display
	Input   Input
	Cleanup *cleanup.Stack
}

// Backend identifies one of the three concrete backend families, used by
// PlatformFactory's scoring and fallback-chain logic.
type Backend int

const (
	BackendAuto Backend = iota
	BackendANSI
	BackendTermiosRaw
	BackendCurses
)

func (b Backend) String() string {
	switch b {
	case BackendANSI:
		return "ansi"
	case BackendTermiosRaw:
		return "termios"
	case BackendCurses:
		return "curses"
	default:
		return "auto"
	}
}

// ParseBackend parses the NO_COLOR-style override named in spec §6
// ("a single override naming a preferred backend: values
// ansi | termios | curses | auto").
func ParseBackend(s string) Backend {
	switch s {
	case "ansi":
		return BackendANSI
	case "termios":
		return BackendTermiosRaw
	case "curses":
		return BackendCurses
	default:
		return BackendAuto
	}
}

// pathMover is the subset of cursorpath.Pathfinder a Display needs; kept
// as an unexported interface purely so backend_test.go can substitute a
// recording fake without pulling in the real escape-minimization logic.
type pathMover interface {
	MoveTo(row, col int) cursorpath.Move
	Resize(width, height int)
	ResetPosition(row, col int)
	Advance(n int)
}

var _ pathMover = (*cursorpath.Pathfinder)(nil)

// notATerminal is a small helper shared by every backend's Init: refuse
// to acquire raw mode against a stream that isn't a TTY, per spec §7's
// NotATerminal error kind.
func notATerminal(stream string) error {
	return &errs.NotATerminal{Stream: stream}
}
