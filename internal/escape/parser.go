// Package escape implements the byte-at-a-time ANSI/VT100/xterm escape
// sequence state machine that turns raw terminal input into normalized
// events, per spec §4.3.
//
// Grounded on original_source/vindauga/io/input/ansi_fixed.py's
// ANSIEscapeParser (NORMAL/ESC/CSI/SS3 states, Ctrl+letter and
// Backspace/Tab/Enter recognition, CSI-final-byte dispatch table,
// X10-mouse `ESC [ M` recognition), generalized to the full state list
// spec §4.3 names (Csi_Intermediate, Csi_Ignore, Osc_String,
// Dcs_Passthrough) and to SGR mouse decoding and bracketed paste, which
// ansi_fixed.py's simpler parser does not implement.
package escape

import (
	"unicode/utf8"

	"github.com/dshills/tuicore/internal/errs"
	"github.com/dshills/tuicore/internal/event"
)

// State is a parser state per spec §4.3's state list.
type State int

const (
	Ground State = iota
	Esc
	CsiEntry
	CsiParam
	CsiIntermediate
	CsiIgnore
	Ss3
	OscString
	DcsPassthrough
	mouseX10 // internal: capturing the 3 raw data bytes after "ESC [ M"
)

// maxSeqBytes bounds how long a CSI/OSC/DCS sequence's parameter buffer
// may grow before the parser gives up and discards it as malformed.
const maxSeqBytes = 64

const (
	escByte = 0x1B
	belByte = 0x07
)

// Parser is a byte-at-a-time escape sequence parser. It is not safe for
// concurrent use; the caller (InputBackend) owns a single Parser per
// input stream.
type Parser struct {
	state  State
	params []byte // accumulated parameter + intermediate bytes for CSI/OSC/DCS

	utf8Buf [utf8.UTFMax]byte
	utf8Len int

	pasteBuf []byte
	inPaste  bool

	mouseSGRPrefix bool // params[0] == '<': SGR mouse, decode from text params
	mouseBuf       [3]byte
	mouseBufLen    int

	lastOverflow *errs.ParseOverflow
}

// New creates a fresh Parser in the Ground state.
func New() *Parser {
	return &Parser{}
}

// State reports the parser's current state, mainly for tests and
// diagnostics.
func (p *Parser) State() State { return p.state }

// PendingEscape reports whether the parser is holding a lone ESC byte
// awaiting either a follow-on byte (Alt+key, CSI, SS3) or a timeout. The
// caller's input loop is responsible for timing this out (spec §4.3:
// "ESC alone after a short timeout (≈50ms) ⇒ standalone Escape").
func (p *Parser) PendingEscape() bool { return p.state == Esc && len(p.params) == 0 }

// Timeout is called by the caller when PendingEscape has been true for
// longer than the lone-ESC threshold. It resets the parser to Ground and
// returns a standalone Escape key event.
func (p *Parser) Timeout() []event.Event {
	if !p.PendingEscape() {
		return nil
	}
	p.reset()
	return []event.Event{event.Key{Code: event.KeyEscape}}
}

// LastOverflow returns and clears the most recent ParseOverflow
// condition, if Feed discarded a sequence for being too long.
func (p *Parser) LastOverflow() *errs.ParseOverflow {
	ov := p.lastOverflow
	p.lastOverflow = nil
	return ov
}

func (p *Parser) reset() {
	p.state = Ground
	p.params = p.params[:0]
	p.utf8Len = 0
	p.mouseSGRPrefix = false
	p.mouseBufLen = 0
}

// Feed processes one input byte and returns zero or more events it
// completed. Most bytes complete zero events (they are mid-sequence).
func (p *Parser) Feed(b byte) []event.Event {
	switch p.state {
	case Ground:
		return p.feedGround(b)
	case Esc:
		return p.feedEsc(b)
	case CsiEntry, CsiParam, CsiIntermediate:
		return p.feedCsi(b)
	case CsiIgnore:
		return p.feedCsiIgnore(b)
	case Ss3:
		return p.feedSs3(b)
	case OscString:
		return p.feedOsc(b)
	case DcsPassthrough:
		return p.feedDcs(b)
	case mouseX10:
		return p.feedMouseX10(b)
	default:
		p.reset()
		return nil
	}
}

func (p *Parser) feedGround(b byte) []event.Event {
	if b == escByte {
		p.state = Esc
		return nil
	}

	if p.utf8Len > 0 || b >= 0x80 {
		return p.feedUTF8(b)
	}

	if b < 0x20 || b == 0x7F {
		return p.feedControl(b)
	}

	if p.inPaste {
		p.pasteBuf = append(p.pasteBuf, b)
		return nil
	}

	return []event.Event{event.Key{Code: event.KeyPrintable, Text: string(rune(b))}}
}

func (p *Parser) feedControl(b byte) []event.Event {
	switch b {
	case 0x09:
		return []event.Event{event.Key{Code: event.KeyTab}}
	case 0x0D:
		return []event.Event{event.Key{Code: event.KeyEnter}}
	case 0x08, 0x7F:
		return []event.Event{event.Key{Code: event.KeyBackspace}}
	}
	if b >= 0x01 && b <= 0x1A {
		return []event.Event{event.Key{
			Code:      event.KeyNamedControl,
			Modifiers: event.ModCtrl,
			Control:   b + 0x40,
		}}
	}
	return nil
}

// feedUTF8 accumulates continuation bytes of a multi-byte rune. Ground
// state's Feed routes here once the first byte indicates a multi-byte
// sequence (>=0x80) or a decode is already in progress.
func (p *Parser) feedUTF8(b byte) []event.Event {
	if p.utf8Len == 0 {
		n := utf8SeqLen(b)
		if n <= 1 {
			// Invalid lead byte; treat as Latin-1-ish passthrough rather
			// than silently dropping the keystroke.
			return []event.Event{event.Key{Code: event.KeyPrintable, Text: string(rune(b))}}
		}
		p.utf8Buf[0] = b
		p.utf8Len = 1
		return nil
	}

	p.utf8Buf[p.utf8Len] = b
	p.utf8Len++

	r, size := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
	if r == utf8.RuneError && size <= 1 {
		if p.utf8Len >= utf8.UTFMax {
			p.utf8Len = 0
		}
		return nil // still accumulating, or truly invalid — drop silently
	}

	cluster := string(p.utf8Buf[:p.utf8Len])
	p.utf8Len = 0
	if p.inPaste {
		p.pasteBuf = append(p.pasteBuf, cluster...)
		return nil
	}
	return []event.Event{event.Key{Code: event.KeyPrintable, Text: cluster}}
}

func utf8SeqLen(lead byte) int {
	switch {
	case lead&0x80 == 0x00:
		return 1
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 0
	}
}

func (p *Parser) feedEsc(b byte) []event.Event {
	switch b {
	case '[':
		p.state = CsiEntry
		p.params = p.params[:0]
		return nil
	case 'O':
		p.state = Ss3
		return nil
	case ']':
		p.state = OscString
		p.params = p.params[:0]
		return nil
	case 'P':
		p.state = DcsPassthrough
		p.params = p.params[:0]
		return nil
	default:
		p.reset()
		if b < 0x80 && b >= 0x20 {
			return []event.Event{event.Key{Code: event.KeyPrintable, Text: string(rune(b)), Modifiers: event.ModAlt}}
		}
		return nil
	}
}

func (p *Parser) feedSs3(b byte) []event.Event {
	p.reset()
	switch b {
	case 'P':
		return []event.Event{event.Key{Code: event.KeyF1}}
	case 'Q':
		return []event.Event{event.Key{Code: event.KeyF2}}
	case 'R':
		return []event.Event{event.Key{Code: event.KeyF3}}
	case 'S':
		return []event.Event{event.Key{Code: event.KeyF4}}
	default:
		return nil
	}
}

func (p *Parser) feedCsi(b byte) []event.Event {
	switch {
	case b >= 0x30 && b <= 0x3F: // parameter bytes, including ';' ':' '<' '?'
		if len(p.params) == 0 && b == '<' {
			p.mouseSGRPrefix = true
		}
		return p.appendParam(b, CsiParam)
	case b >= 0x20 && b <= 0x2F: // intermediate bytes
		return p.appendParam(b, CsiIntermediate)
	case b >= 0x40 && b <= 0x7E: // final byte: dispatch
		return p.dispatchCSI(b)
	default:
		p.reset()
		return nil
	}
}

func (p *Parser) appendParam(b byte, next State) []event.Event {
	if len(p.params) >= maxSeqBytes {
		p.lastOverflow = &errs.ParseOverflow{State: "Csi", Len: len(p.params)}
		p.reset()
		return nil
	}
	p.params = append(p.params, b)
	p.state = next
	return nil
}

func (p *Parser) feedCsiIgnore(b byte) []event.Event {
	if b >= 0x40 && b <= 0x7E {
		p.reset()
	}
	return nil
}

func (p *Parser) feedOsc(b byte) []event.Event {
	if b == belByte {
		p.reset()
		return nil
	}
	if b == escByte {
		p.state = CsiIgnore // expect trailing '\' (ST); reuse ignore-until-final logic loosely
		return nil
	}
	if len(p.params) >= maxSeqBytes {
		p.lastOverflow = &errs.ParseOverflow{State: "Osc", Len: len(p.params)}
		p.reset()
		return nil
	}
	p.params = append(p.params, b)
	return nil
}

func (p *Parser) feedDcs(b byte) []event.Event {
	if b == escByte {
		p.state = CsiIgnore // consume the trailing '\' of ST; a DCS payload carries no event we surface
		return nil
	}
	if len(p.params) >= maxSeqBytes {
		p.lastOverflow = &errs.ParseOverflow{State: "Dcs", Len: len(p.params)}
		p.reset()
		return nil
	}
	p.params = append(p.params, b)
	return nil
}

func (p *Parser) feedMouseX10(b byte) []event.Event {
	p.mouseBuf[p.mouseBufLen] = b
	p.mouseBufLen++
	if p.mouseBufLen < 3 {
		return nil
	}
	btn, x, y := p.mouseBuf[0]-32, int(p.mouseBuf[1])-32, int(p.mouseBuf[2])-32
	p.mouseBufLen = 0
	p.reset()
	return []event.Event{decodeX10Mouse(btn, x, y)}
}
