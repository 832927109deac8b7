// Package capability detects what the connected terminal can do: color
// depth, mouse protocol, Unicode/wide-char rendering, and optional screen
// modes, per spec §5.1-§5.2.
//
// Grounded on original_source/vindauga/io/platform_detector.py
// (environment-variable priority chain, named-terminal performance
// bonuses, overall_score weighting) and terminal_capabilities.py (DA1/DA2
// device-attribute query pattern, terminal capability database). The
// escape-sequence DA1/DA2 round trip is abstracted behind a Querier
// interface rather than vindauga's direct termios/select.select calls, so
// detection is unit-testable without a real TTY; internal/backend wires a
// real Querier over its raw file descriptor.
package capability

import (
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// ColorLevel is the deepest color representation a terminal accepts.
type ColorLevel int

const (
	ColorNone ColorLevel = iota
	Color16
	Color256
	ColorTrueColor
)

func (c ColorLevel) String() string {
	switch c {
	case ColorNone:
		return "none"
	case Color16:
		return "16"
	case Color256:
		return "256"
	case ColorTrueColor:
		return "truecolor"
	default:
		return "unknown"
	}
}

// MouseProtocol identifies the mouse-reporting encoding a terminal
// supports, ordered from none to most capable.
type MouseProtocol int

const (
	MouseNone MouseProtocol = iota
	MouseX10
	MouseSGR
)

// Capabilities is the result of a capability probe.
type Capabilities struct {
	Name           string
	OS             string
	TTY            bool
	Colors         ColorLevel
	Mouse          MouseProtocol
	Unicode        bool
	WideChars      bool
	AltScreen      bool
	BracketedPaste bool
	FocusEvents    bool
	Score          int
}

// namedTerminalBonus scores well-known fast terminal emulators higher, so
// PlatformFactory prefers them over a generic match of the same color
// depth. Mirrors platform_detector.py's kitty/alacritty/iTerm/xterm
// performance_score ladder.
var namedTerminalBonus = []struct {
	match string
	bonus int
}{
	{"kitty", 25},
	{"alacritty", 20},
	{"iterm", 15},
	{"xterm", 5},
}

// Env is the subset of process environment and OS-level state a Probe
// reads. Tests construct one directly instead of mutating real environment
// variables or stdio.
type Env struct {
	Term        string
	ColorTerm   string
	TermProgram string
	Lang        string
	KittyWindow string
	NoColor     string

	// OS is the host operating system family (runtime.GOOS), input #3 of
	// spec §4.2's priority chain: macOS's termios quirks and Linux's
	// console-vs-pty split both depend on it.
	OS string
	// WSL reports a Windows Subsystem for Linux marker in the
	// environment, the other half of input #3 ("WSL markers").
	WSL bool
	// TTY reports whether stdout is a real terminal, input #4 of the
	// priority chain. A detached stdout (piped, redirected to a file)
	// can never support any interactive backend regardless of TERM.
	TTY bool
}

// EnvFromOS reads Env from the real process environment, runtime.GOOS, and
// an isatty check on stdout, per platform_detector.py's
// PlatformDetector.__init__ (is_windows/is_linux/is_mac, is_tty).
func EnvFromOS() Env {
	return Env{
		Term:        os.Getenv("TERM"),
		ColorTerm:   os.Getenv("COLORTERM"),
		TermProgram: os.Getenv("TERM_PROGRAM"),
		Lang:        os.Getenv("LANG"),
		KittyWindow: os.Getenv("KITTY_WINDOW_ID"),
		NoColor:     os.Getenv("NO_COLOR"),
		OS:          runtime.GOOS,
		WSL:         os.Getenv("WSL_DISTRO_NAME") != "" || os.Getenv("WSL_INTEROP") != "",
		TTY:         term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// DetectFromEnv builds a Capabilities value purely from environment
// variables, with no terminal round trip. This is the fast, static first
// pass; RefineWithQuery below refines it with a DA1 query when a Querier is
// available. Priority chain: NO_COLOR disables color outright; COLORTERM
// truecolor/24bit wins over TERM; KITTY_WINDOW_ID forces the kitty
// identity; TERM_PROGRAM names iTerm/vscode/Apple_Terminal; bare TERM
// suffix matching is the fallback.
func DetectFromEnv(env Env) Capabilities {
	c := Capabilities{
		Name:    "unknown",
		OS:      env.OS,
		TTY:     env.TTY,
		Unicode: strings.Contains(strings.ToUpper(env.Lang), "UTF-8"),
	}

	switch {
	case env.NoColor != "":
		c.Colors = ColorNone
	case env.ColorTerm == "truecolor" || env.ColorTerm == "24bit":
		c.Colors = ColorTrueColor
	case strings.Contains(env.Term, "256color"):
		c.Colors = Color256
	case env.Term != "" && env.Term != "dumb":
		c.Colors = Color16
	default:
		c.Colors = ColorNone
	}

	if env.KittyWindow != "" {
		c.Name = "kitty"
		c.Colors = ColorTrueColor
	} else if env.TermProgram != "" {
		c.Name = env.TermProgram
		switch env.TermProgram {
		case "iTerm.app":
			c.Colors = ColorTrueColor
		case "Apple_Terminal":
			if c.Colors < Color256 {
				c.Colors = Color256
			}
		case "vscode":
			c.Colors = ColorTrueColor
		}
	} else if env.Term != "" {
		c.Name = env.Term
	}

	// WSL's PTY layer forwards VT sequences to the Windows Terminal host
	// reliably enough that 256-color is a safe floor even when TERM
	// itself only claims Color16, per spec §4.2 input #3's "WSL markers".
	if env.WSL && c.Colors < Color256 {
		c.Colors = Color256
	}

	// NO_COLOR wins over every identity-based raise above.
	if env.NoColor != "" {
		c.Colors = ColorNone
	}

	// A detached stdout can't drive any interactive backend regardless
	// of what TERM claims, per platform_detector.py's is_tty gate on
	// detect_ansi_capabilities.
	if !env.TTY || env.Term == "dumb" {
		c.Colors = ColorNone
		c.Mouse = MouseNone
		c.AltScreen = false
		c.Score = 0
		return c
	}

	c.Mouse = MouseSGR
	c.AltScreen = true
	c.BracketedPaste = true
	c.WideChars = c.Unicode

	c.Score = ScoreCandidate(c, env, 0)
	return c
}

// Score weights for ScoreCandidate's formula, per spec §4.2: "color_depth
// × weight_color + mouse × weight_mouse + bracketed_paste × weight_paste
// − init_cost".
const (
	weightColor = 10
	weightMouse = 15
	weightPaste = 10
)

// ScoreCandidate scores c as a candidate for one specific backend, whose
// fixed initCost (e.g. curses/tcell's terminfo load versus a raw ANSI
// write) is supplied by the caller — PlatformFactory knows which backend
// it is scoring, capability does not. The named-terminal identity bonus
// from platform_detector.py's performance_score ladder is folded in after
// the weighted formula, and a non-TTY environment always scores zero
// regardless of initCost, since no candidate backend can run without one.
func ScoreCandidate(c Capabilities, env Env, initCost int) int {
	if !c.TTY {
		return 0
	}

	s := int(c.Colors)*weightColor - initCost
	if c.Mouse != MouseNone {
		s += weightMouse
	}
	if c.BracketedPaste {
		s += weightPaste
	}

	name := strings.ToLower(c.Name + " " + env.Term + " " + env.TermProgram)
	for _, b := range namedTerminalBonus {
		if strings.Contains(name, b.match) {
			s += b.bonus
			break
		}
	}

	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}

// Querier sends a terminal query sequence (e.g. DA1 "\x1b[c") and returns
// whatever response bytes arrive within its own bounded timeout, or an
// error/empty string if none did. Implementations must never block past
// their timeout — internal/backend's ansi.go implementation layers this
// over a raw, non-canonical file descriptor read with a deadline.
type Querier interface {
	Query(sequence string) (response string, err error)
}

// RefineWithQuery augments env-derived capabilities with a DA1 device
// attributes probe, per terminal_capabilities.py's
// _query_device_attributes. A query failure or timeout leaves c
// unchanged — the probe is best-effort, bounded by the Querier's own
// timeout (spec §5.1 names 150ms as the ceiling).
func RefineWithQuery(c Capabilities, q Querier) Capabilities {
	if q == nil {
		return c
	}
	resp, err := q.Query("\x1b[c")
	if err != nil || resp == "" {
		return c
	}
	// DA1 response of the form "\x1b[?1;2c" — a "4" parameter after the
	// first (matched as ";4;" or a trailing ";4c") indicates sixel support, which in practice
	// correlates with a terminal capable of at least 256-color output;
	// we use it only to raise a floor, never to lower one.
	if strings.Contains(resp, ";4;") || strings.HasSuffix(resp, ";4c") {
		if c.Colors < Color256 {
			c.Colors = Color256
		}
	}
	return c
}
