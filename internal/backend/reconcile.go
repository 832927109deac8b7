package backend

import (
	"bytes"
	"fmt"

	"github.com/dshills/tuicore/internal/capability"
	"github.com/dshills/tuicore/internal/cell"
	"github.com/dshills/tuicore/internal/dirty"
	"github.com/dshills/tuicore/internal/screen"
)

// reconciler implements the flush reconciliation algorithm of spec §4.4
// shared by every escape-sequence-emitting backend (ansi.go,
// termiosraw_unix.go): scan each damaged row for the actual back/front
// differences, merge damaged runs separated by at most gap clean cells
// into one write, minimize cursor movement via path, and gate SGR
// emission on an actual attribute change since the last cell written.
// curses.go does not use this — tcell owns its own diff/reconcile loop.
type reconciler struct {
	path   pathMover
	gap    int
	colors capability.ColorLevel

	lastAttr cell.Attr
	haveAttr bool
}

func newReconciler(path pathMover, gap int, colors capability.ColorLevel) *reconciler {
	return &reconciler{path: path, gap: gap, colors: colors}
}

// flushRow emits every damaged run in row y within region.
func (r *reconciler) flushRow(out *bytes.Buffer, buf *screen.Buffer, y int, region dirty.Region) {
	start, end := region.Start, region.End
	x := start
	for x < end {
		if buf.Cell(x, y).EqualDisplay(buf.FrontCell(x, y)) {
			x++
			continue
		}
		runStart := x
		runEnd := x + 1
		clean := 0
		for runEnd < end {
			if buf.Cell(runEnd, y).EqualDisplay(buf.FrontCell(runEnd, y)) {
				clean++
				if clean > r.gap {
					break
				}
			} else {
				clean = 0
			}
			runEnd++
		}
		r.writeRun(out, buf, y, runStart, runEnd)
		x = runEnd
	}
}

func (r *reconciler) writeRun(out *bytes.Buffer, buf *screen.Buffer, y, start, end int) {
	move := r.path.MoveTo(y+1, start+1)
	out.WriteString(move.Sequence())

	col := start
	written := 0
	for col < end {
		c := buf.Cell(col, y)
		if c.IsTrailing() {
			col++
			continue
		}
		if !r.haveAttr || c.Attr() != r.lastAttr {
			out.WriteString(attrSGR(c.Attr(), r.colors))
			r.lastAttr = c.Attr()
			r.haveAttr = true
		}
		out.WriteString(c.Text())
		w := c.Width()
		if w < 1 {
			w = 1
		}
		written += w
		col += w
	}
	r.path.Advance(written)
}

// attrSGR renders attr to an SGR escape sequence, downgrading colors to
// level first via internal/capability's perceptual-distance matching.
func attrSGR(attr cell.Attr, level capability.ColorLevel) string {
	var codes []string

	style := attr.StyleBits()
	if style.Has(cell.Bold) {
		codes = append(codes, "1")
	}
	if style.Has(cell.Italic) {
		codes = append(codes, "3")
	}
	if style.Has(cell.Underline) {
		codes = append(codes, "4")
	}
	if style.Has(cell.Reverse) {
		codes = append(codes, "7")
	}
	if style.Has(cell.Strike) {
		codes = append(codes, "9")
	}

	fg := capability.Downgrade(attr.Foreground(), level)
	if code := colorSGR(fg, false); code != "" {
		codes = append(codes, code)
	}
	bg := capability.Downgrade(attr.Background(), level)
	if code := colorSGR(bg, true); code != "" {
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return ansiResetAttrs
	}

	joined := ansiResetAttrs[:len(ansiResetAttrs)-1] // "\x1b[0" without the trailing 'm'
	for _, c := range codes {
		joined += ";" + c
	}
	return joined + "m"
}

func colorSGR(c cell.Color, bg bool) string {
	base16 := 30
	base16Bright := 90
	if bg {
		base16 = 40
		base16Bright = 100
	}

	switch c.Kind {
	case cell.KindDefault:
		return ""
	case cell.KindIndexed16:
		idx := int(c.Index())
		if idx < 8 {
			return fmt.Sprintf("%d", base16+idx)
		}
		return fmt.Sprintf("%d", base16Bright+idx-8)
	case cell.KindIndexed256:
		if bg {
			return fmt.Sprintf("48;5;%d", c.Index())
		}
		return fmt.Sprintf("38;5;%d", c.Index())
	case cell.KindRGB24:
		r, g, b := c.RGBComponents()
		if bg {
			return fmt.Sprintf("48;2;%d;%d;%d", r, g, b)
		}
		return fmt.Sprintf("38;2;%d;%d;%d", r, g, b)
	default:
		return ""
	}
}

// cursorShapeSeq maps a CursorShape to its DECSCUSR final parameter.
// Terminals that don't implement DECSCUSR ignore the sequence outright,
// so no capability gate is needed.
func cursorShapeSeq(shape CursorShape) string {
	switch shape {
	case CursorShapeUnderline:
		return ansiCSI + "4 q"
	case CursorShapeBar:
		return ansiCSI + "6 q"
	default:
		return ansiCSI + "2 q"
	}
}
