package escape

import (
	"strconv"
	"strings"

	"github.com/dshills/tuicore/internal/event"
)

// dispatchCSI fires on a CSI final byte, decoding the accumulated
// parameter bytes per spec §4.3's key/mouse/paste tables.
func (p *Parser) dispatchCSI(final byte) []event.Event {
	params := string(p.params)
	sgr := p.mouseSGRPrefix
	p.reset()

	switch final {
	case 'A', 'B', 'C', 'D', 'H', 'F':
		return arrowOrHomeEnd(final, params)
	case '~':
		return p.tildeKey(params)
	case 'M', 'm':
		if sgr {
			return []event.Event{decodeSGRMouse(params, final == 'M')}
		}
		if params == "" && final == 'M' {
			p.state = mouseX10
			p.mouseBufLen = 0
			return nil
		}
		return nil
	default:
		return nil
	}
}

// parseParams splits a CSI parameter string on ';' and '<' into its
// integer fields, skipping a leading private-marker byte like '<'.
func parseParams(s string) []int {
	s = strings.TrimPrefix(s, "<")
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ";")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			n = 0
		}
		out = append(out, n)
	}
	return out
}

// modifierParam converts an xterm modifier parameter (1 = none, then
// +1=Shift +2=Alt +4=Ctrl) into a Modifier bitset.
func modifierParam(n int) event.Modifier {
	n--
	var m event.Modifier
	if n&0x1 != 0 {
		m |= event.ModShift
	}
	if n&0x2 != 0 {
		m |= event.ModAlt
	}
	if n&0x4 != 0 {
		m |= event.ModCtrl
	}
	return m
}

func arrowOrHomeEnd(final byte, params string) []event.Event {
	fields := parseParams(params)
	var code event.KeyCode
	switch final {
	case 'A':
		code = event.KeyUp
	case 'B':
		code = event.KeyDown
	case 'C':
		code = event.KeyRight
	case 'D':
		code = event.KeyLeft
	case 'H':
		code = event.KeyHome
	case 'F':
		code = event.KeyEnd
	}

	var mods event.Modifier
	if len(fields) >= 2 {
		mods = modifierParam(fields[1])
	}
	return []event.Event{event.Key{Code: code, Modifiers: mods}}
}

// tildeKeyCodes maps the leading numeric parameter of an "ESC [ n ~"
// sequence to a KeyCode, per xterm's function/editing-key convention.
var tildeKeyCodes = map[int]event.KeyCode{
	1:  event.KeyHome,
	2:  event.KeyInsert,
	3:  event.KeyDelete,
	4:  event.KeyEnd,
	5:  event.KeyPageUp,
	6:  event.KeyPageDown,
	11: event.KeyF1,
	12: event.KeyF2,
	13: event.KeyF3,
	14: event.KeyF4,
	15: event.KeyF5,
	17: event.KeyF6,
	18: event.KeyF7,
	19: event.KeyF8,
	20: event.KeyF9,
	21: event.KeyF10,
	23: event.KeyF11,
	24: event.KeyF12,
}

func (p *Parser) tildeKey(params string) []event.Event {
	fields := parseParams(params)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case 200:
		p.inPaste = true
		p.pasteBuf = p.pasteBuf[:0]
		return nil
	case 201:
		p.inPaste = false
		text := string(p.pasteBuf)
		p.pasteBuf = nil
		return []event.Event{event.Paste{Text: text}}
	}

	code, ok := tildeKeyCodes[fields[0]]
	if !ok {
		return nil
	}

	var mods event.Modifier
	if len(fields) >= 2 {
		mods = modifierParam(fields[1])
	}
	return []event.Event{event.Key{Code: code, Modifiers: mods}}
}
