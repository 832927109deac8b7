package escape

import "github.com/dshills/tuicore/internal/event"

// decodeX10Mouse decodes the legacy 3-byte X10 mouse report: button byte
// plus 1-indexed column and row already offset by -32 by the caller.
// Grounded on the xterm X10 mouse protocol (button bits 0-1 select the
// button or release, bit 5 flags motion, bit 6 flags the wheel, bits 2-4
// carry modifiers), coordinates converted to spec's 0-indexed events.
func decodeX10Mouse(btn byte, col1, row1 int) event.Event {
	button, kind := decodeButtonBits(int(btn), false)
	mods := modifierParam(((int(btn)>>2)&0x7)+1)
	return event.Mouse{
		X:         col1 - 1,
		Y:         row1 - 1,
		Button:    button,
		Kind:      kind,
		Modifiers: mods,
	}
}

// decodeSGRMouse decodes an SGR mouse report's decimal parameter string
// ("<b;x;y", the leading '<' already stripped in parseParams) and the
// sense of the final byte (M = press/motion, m = release).
func decodeSGRMouse(params string, isPress bool) event.Event {
	fields := parseParams(params)
	if len(fields) < 3 {
		return event.Mouse{}
	}
	btn, x1, y1 := fields[0], fields[1], fields[2]

	button, kind := decodeButtonBits(btn, true)
	if !isPress {
		kind = event.MouseRelease
	}
	mods := modifierParam(((btn>>2)&0x7)+1)

	return event.Mouse{
		X:         x1 - 1,
		Y:         y1 - 1,
		Button:    button,
		Kind:      kind,
		Modifiers: mods,
	}
}

func decodeButtonBits(b int, sgr bool) (event.MouseButton, event.MouseEventKind) {
	low := b & 0x3
	motion := b&0x20 != 0
	wheel := b&0x40 != 0

	if wheel {
		if low == 0 {
			return event.MouseWheelUp, event.MousePress
		}
		return event.MouseWheelDown, event.MousePress
	}

	button := buttonFromBits(low)

	if motion {
		if button == event.MouseButtonNone {
			return event.MouseButtonNone, event.MouseMove
		}
		return button, event.MouseDrag
	}

	if !sgr && low == 3 {
		return event.MouseButtonNone, event.MouseRelease
	}

	return button, event.MousePress
}

func buttonFromBits(low int) event.MouseButton {
	switch low {
	case 0:
		return event.MouseLeft
	case 1:
		return event.MouseMiddle
	case 2:
		return event.MouseRight
	default:
		return event.MouseButtonNone
	}
}
