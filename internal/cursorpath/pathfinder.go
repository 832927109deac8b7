// Package cursorpath chooses the shortest escape-sequence encoding of a
// cursor move, per spec §4.3. Grounded directly on
// original_source/vindauga/io/cursor_optimizer.py's candidate-generation
// and byte-count-minimization strategy (absolute positioning, home,
// relative up/down/left/right, carriage return, carriage-return-plus-
// newlines, backspace), translated from its dataclass-and-enum shape into
// Go value types. The Tab and Newline kinds render through Sequence, but
// MoveTo never proposes them as candidates.
package cursorpath

import (
	"fmt"
	"strings"
)

// MoveKind identifies which escape encoding a Move uses.
type MoveKind int

const (
	NoOp MoveKind = iota
	Absolute
	Up
	Down
	Right
	Left
	Home
	CarriageReturn
	Newline
	Tab
	Backspace
	CRDown // carriage return followed by n newlines, a single combined move
)

// Move is one candidate cursor movement and its resulting byte sequence.
type Move struct {
	Kind     MoveKind
	Distance int
	Row, Col int // 1-based, only meaningful for Absolute
}

// Sequence renders m to the bytes that should be written to the terminal.
func (m Move) Sequence() string {
	switch m.Kind {
	case NoOp:
		return ""
	case Absolute:
		return fmt.Sprintf("\x1b[%d;%dH", m.Row, m.Col)
	case Up:
		return repeatOrN(m.Distance, "\x1b[A", "\x1b[%dA")
	case Down:
		return repeatOrN(m.Distance, "\x1b[B", "\x1b[%dB")
	case Right:
		return repeatOrN(m.Distance, "\x1b[C", "\x1b[%dC")
	case Left:
		return repeatOrN(m.Distance, "\x1b[D", "\x1b[%dD")
	case Home:
		return "\x1b[H"
	case CarriageReturn:
		return "\r"
	case Newline:
		return strings.Repeat("\n", maxInt(m.Distance, 1))
	case Tab:
		return strings.Repeat("\t", maxInt(m.Distance, 1))
	case Backspace:
		return strings.Repeat("\b", maxInt(m.Distance, 1))
	case CRDown:
		return "\r" + strings.Repeat("\n", maxInt(m.Distance, 1))
	default:
		return ""
	}
}

func repeatOrN(n int, single, multi string) string {
	if n == 1 {
		return single
	}
	return fmt.Sprintf(multi, n)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Pathfinder tracks the terminal's assumed current cursor position and
// picks the shortest Move to get to a new target, bounded by terminal
// dimensions.
type Pathfinder struct {
	width, height int
	row, col      int // 1-based

	totalMoves     int
	movesOptimized int
	bytesSaved     int
}

// New creates a Pathfinder for a width x height terminal, cursor starting
// at (1, 1).
func New(width, height int) *Pathfinder {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Pathfinder{width: width, height: height, row: 1, col: 1}
}

// Resize updates the terminal dimensions the Pathfinder clamps targets
// to.
func (p *Pathfinder) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	p.width, p.height = width, height
}

// ResetPosition tells the Pathfinder the cursor is now at (row, col)
// without emitting a move — used after the backend has repositioned the
// cursor by some means the Pathfinder didn't generate (e.g. a resize or
// scroll).
func (p *Pathfinder) ResetPosition(row, col int) {
	p.row = clamp(row, 1, p.height)
	p.col = clamp(col, 1, p.width)
}

// Position returns the Pathfinder's believed current cursor position.
func (p *Pathfinder) Position() (row, col int) { return p.row, p.col }

// MoveTo returns the shortest Move from the current believed position to
// (targetRow, targetCol), updates the believed position to the clamped
// target, and records optimization statistics.
func (p *Pathfinder) MoveTo(targetRow, targetCol int) Move {
	p.totalMoves++

	targetRow = clamp(targetRow, 1, p.height)
	targetCol = clamp(targetCol, 1, p.width)

	if p.row == targetRow && p.col == targetCol {
		return Move{Kind: NoOp}
	}

	absolute := Move{Kind: Absolute, Row: targetRow, Col: targetCol}
	candidates := []Move{absolute}

	if targetRow == 1 && targetCol == 1 {
		candidates = append(candidates, Move{Kind: Home})
	}

	rowDiff := targetRow - p.row
	colDiff := targetCol - p.col

	if rowDiff != 0 {
		if rowDiff > 0 {
			switch {
			case colDiff == 0:
				candidates = append(candidates, Move{Kind: Down, Distance: rowDiff})
			case p.col == 1 && targetCol == 1:
				candidates = append(candidates, Move{Kind: Newline, Distance: rowDiff})
			case targetCol == 1:
				candidates = append(candidates, Move{Kind: CRDown, Distance: rowDiff})
			}
		} else if colDiff == 0 {
			candidates = append(candidates, Move{Kind: Up, Distance: -rowDiff})
		}
	}

	if colDiff != 0 && rowDiff == 0 {
		if colDiff > 0 {
			candidates = append(candidates, Move{Kind: Right, Distance: colDiff})
		} else {
			dist := -colDiff
			candidates = append(candidates, Move{Kind: Left, Distance: dist})
			if dist < 8 {
				candidates = append(candidates, Move{Kind: Backspace, Distance: dist})
			}
		}
		if targetCol == 1 {
			candidates = append(candidates, Move{Kind: CarriageReturn})
		}
	}

	best := shortest(candidates)

	naive := len(absolute.Sequence())
	optimal := len(best.Sequence())
	if optimal < naive {
		p.movesOptimized++
		p.bytesSaved += naive - optimal
	}

	p.row, p.col = targetRow, targetCol
	return best
}

func shortest(candidates []Move) Move {
	best := candidates[0]
	bestLen := len(best.Sequence())
	for _, c := range candidates[1:] {
		if l := len(c.Sequence()); l < bestLen {
			best, bestLen = c, l
		}
	}
	return best
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Stats reports the Pathfinder's optimization statistics since the last
// ResetStats call, per original_source's get_statistics supplement.
type Stats struct {
	TotalMoves       int
	MovesOptimized   int
	BytesSaved       int
	OptimizationRate float64
}

// Stats returns the current statistics.
func (p *Pathfinder) Stats() Stats {
	rate := 0.0
	if p.totalMoves > 0 {
		rate = float64(p.movesOptimized) / float64(p.totalMoves)
	}
	return Stats{
		TotalMoves:       p.totalMoves,
		MovesOptimized:   p.movesOptimized,
		BytesSaved:       p.bytesSaved,
		OptimizationRate: rate,
	}
}

// ResetStats zeroes the optimization counters without affecting position.
func (p *Pathfinder) ResetStats() {
	p.totalMoves = 0
	p.movesOptimized = 0
	p.bytesSaved = 0
}

// Advance tells the Pathfinder that n columns of text were just written
// at the believed cursor position, which moves the real terminal cursor
// n columns to the right without any escape sequence — the common case
// of printing a run of characters after a single MoveTo. A run that
// would cross the right edge wraps to the start of the next row, the
// same as a real terminal's autowrap.
func (p *Pathfinder) Advance(n int) {
	if n <= 0 {
		return
	}
	col := p.col + n
	for col > p.width {
		col -= p.width
		p.row++
	}
	p.row = clamp(p.row, 1, p.height)
	p.col = clamp(col, 1, p.width)
}
