package engine

import (
	"strings"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
)

/* Principal variation bookkeeping.

Triangular table layout: row p stores the principal variation from search
ply p onward, at absolute indices p..size-1. Row 0 is the full line from
the root. See https://www.chessprogramming.org/Triangular_PV-Table
*/

// PVLine is one row of the table: a fixed-capacity move sequence.
type PVLine struct {
	moves [MaxDepth + 1]board.Move
	size  int
}

func (pv *PVLine) clear() {
	pv.size = 0
	for i := range pv.moves {
		pv.moves[i] = board.NoMove
	}
}

// Size returns the absolute ply index one past the line's last move.
func (pv *PVLine) Size() int {
	return pv.size
}

// Move returns the move at absolute ply index i.
func (pv *PVLine) Move(i int) board.Move {
	return pv.moves[i]
}

// Moves returns the line as a slice, starting at ply from.
func (pv *PVLine) Moves(from int) []board.Move {
	if from >= pv.size {
		return nil
	}
	line := make([]board.Move, 0, pv.size-from)
	for i := from; i < pv.size; i++ {
		if pv.moves[i] == board.NoMove {
			break
		}
		line = append(line, pv.moves[i])
	}
	return line
}

func (pv *PVLine) String() string {
	var sb strings.Builder
	for i, m := range pv.Moves(0) {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(m.String())
	}
	return sb.String()
}

// PVTable is the triangular table, indexed by ply.
type PVTable struct {
	lines [MaxDepth + 1]PVLine
}

func (t *PVTable) clear() {
	for i := range t.lines {
		t.lines[i].clear()
	}
}

func (t *PVTable) line(ply int) *PVLine {
	return &t.lines[ply]
}

// Root returns the principal variation from the root.
func (t *PVTable) Root() *PVLine {
	return &t.lines[0]
}

// movcpy copies up to n moves, stopping early at a null move.
func movcpy(dst, src []board.Move, n int) {
	if n > len(src) {
		n = len(src)
	}
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n && src[i] != board.NoMove; i++ {
		dst[i] = src[i]
	}
}
