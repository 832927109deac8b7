// Package event defines the normalized event types the terminal core
// delivers to an embedding application, per spec §3's tagged Event union.
// Translated from the union into Go's idiomatic sum-type encoding: a
// sealed Event interface implemented by one concrete struct per variant,
// switched on via a type switch rather than a discriminant field.
package event

// Event is implemented by every event variant the core can emit.
type Event interface {
	eventMarker()
}

// Modifier is a bitset of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << 0
	ModCtrl  Modifier = 1 << 1
	ModAlt   Modifier = 1 << 2
	ModMeta  Modifier = 1 << 3
)

// Has reports whether m contains mod.
func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

// KeyCode identifies a logical key, independent of modifiers.
type KeyCode int

const (
	KeyPrintable KeyCode = iota
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyF13
	KeyF14
	KeyF15
	KeyF16
	KeyF17
	KeyF18
	KeyF19
	KeyF20
	KeyF21
	KeyF22
	KeyF23
	KeyF24
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyBackspace
	KeyTab
	KeyEnter
	KeyEscape
	KeyNamedControl // see Key.Control for the specific control letter
)

// Key is a keyboard input event.
type Key struct {
	Code      KeyCode
	Modifiers Modifier
	// Text holds the printable grapheme cluster when Code == KeyPrintable.
	Text string
	// Control holds the letter for a Ctrl+<letter> combination when
	// Code == KeyNamedControl (e.g. 'A' for Ctrl+A).
	Control byte
}

func (Key) eventMarker() {}

// MouseButton identifies which button a Mouse event concerns.
type MouseButton int

const (
	MouseButtonNone MouseButton = iota
	MouseLeft
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
)

// MouseEventKind identifies the action a Mouse event reports.
type MouseEventKind int

const (
	MousePress MouseEventKind = iota
	MouseRelease
	MouseMove
	MouseDrag
)

// Mouse is a mouse input event. Coordinates are 0-indexed cell positions.
type Mouse struct {
	X, Y      int
	Button    MouseButton
	Kind      MouseEventKind
	Modifiers Modifier
}

func (Mouse) eventMarker() {}

// Resize reports a terminal dimension change.
type Resize struct {
	Cols, Rows int
}

func (Resize) eventMarker() {}

// Paste is the payload of a bracketed-paste sequence.
type Paste struct {
	Text string
}

func (Paste) eventMarker() {}

// SignalKind identifies which job-control signal a Signal event reports.
type SignalKind int

const (
	SignalSuspend SignalKind = iota
	SignalContinue
	SignalInterrupt
)

// Signal reports a job-control condition the backend chose to surface as
// an event rather than handling internally.
type Signal struct {
	Kind SignalKind
}

func (Signal) eventMarker() {}
