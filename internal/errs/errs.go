// Package errs defines the error taxonomy shared across the terminal I/O
// core. Terminal and I/O failures from Flush, Poll and backend Init are
// reported with these types so callers can branch with errors.As/errors.Is
// instead of string matching; misuse such as calling Flush before Init or
// Init twice is reported with a plain error.
package errs

import "fmt"

// NotATerminal is returned when a backend that requires raw-mode access is
// initialized against a file descriptor that is not a TTY.
type NotATerminal struct {
	Stream string // "stdin" or "stdout"
}

func (e *NotATerminal) Error() string {
	return fmt.Sprintf("tuicore: %s is not a terminal", e.Stream)
}

// CapabilityMissing describes a requested capability the negotiated
// terminal does not support and the downgrade that replaced it, as a
// warning-carrying value rather than a fatal error; recovery.Classify maps
// it to StrategyRenegotiate. No code in this module constructs it: color
// downgrades happen silently.
type CapabilityMissing struct {
	Requested string
	Fallback  string
}

func (e *CapabilityMissing) Error() string {
	return fmt.Sprintf("tuicore: capability %q unsupported, downgraded to %q", e.Requested, e.Fallback)
}

// TransientIO wraps a short write, EINTR, or EAGAIN condition that
// ErrorRecovery should retry.
type TransientIO struct {
	Op  string
	Err error
}

func (e *TransientIO) Error() string {
	return fmt.Sprintf("tuicore: transient I/O error during %s: %v", e.Op, e.Err)
}

func (e *TransientIO) Unwrap() error { return e.Err }

// FatalIO wraps an unrecoverable read/write failure. The backend that
// returns this has not shut itself down: its terminal state is restored
// only when its Shutdown or its cleanup.Stack runs. The caller is expected
// to escalate to the next fallback backend or bail.
type FatalIO struct {
	Op  string
	Err error
}

func (e *FatalIO) Error() string {
	return fmt.Sprintf("tuicore: fatal I/O error during %s: %v", e.Op, e.Err)
}

func (e *FatalIO) Unwrap() error { return e.Err }

// ParseOverflow is returned internally by the escape parser when a
// sequence exceeds its bound; the parser discards the sequence and
// returns to Ground. It never escapes to an application caller, but is
// exported so tests can assert on it.
type ParseOverflow struct {
	State string
	Len   int
}

func (e *ParseOverflow) Error() string {
	return fmt.Sprintf("tuicore: escape sequence overflow in state %s (%d bytes)", e.State, e.Len)
}

// ResizeOutOfRange describes a resize request that is zero or exceeds
// implementation bounds, and the size it was clamped to. No code in this
// module constructs it: screen.Buffer.Resize and cursorpath's Resize clamp
// sizes below 1 without returning an error.
type ResizeOutOfRange struct {
	Width, Height int
	ClampedW      int
	ClampedH      int
}

func (e *ResizeOutOfRange) Error() string {
	return fmt.Sprintf("tuicore: resize %dx%d out of range, clamped to %dx%d", e.Width, e.Height, e.ClampedW, e.ClampedH)
}
