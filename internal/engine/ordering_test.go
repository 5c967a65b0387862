package engine

import (
	"testing"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
)

func TestScoreMovesPriorities(t *testing.T) {
	// White can capture the d5 pawn or play quiet moves.
	pos := mustPos(t, "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	s, _ := newTestSearcher(pos, Limits{Depth: 1})

	var moves board.MoveList
	pos.GenerateMoves(&moves)

	// Pick a quiet move as the fake previous-iteration PV move, and another
	// quiet one as a killer.
	var pvMove, killerMove, capture board.Move
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		switch {
		case pos.IsCapture(m):
			capture = m
		case pvMove == board.NoMove:
			pvMove = m
		case killerMove == board.NoMove:
			killerMove = m
		}
	}
	if capture == board.NoMove || killerMove == board.NoMove {
		t.Fatal("fixture position lacks the expected move mix")
	}

	killers := [2]board.Move{killerMove, board.NoMove}
	s.scoreMoves(&moves, pvMove, &killers)

	scoreOf := func(m board.Move) int {
		for i := 0; i < moves.Len(); i++ {
			if moves.Get(i) == m {
				return moves.Score(i)
			}
		}
		t.Fatalf("move %s missing from list", m.String())
		return 0
	}

	if scoreOf(pvMove) != pvMoveScore {
		t.Errorf("pv move scored %d, want %d", scoreOf(pvMove), pvMoveScore)
	}
	if got := scoreOf(capture); got < captureBase {
		t.Errorf("capture scored %d, want >= %d", got, captureBase)
	}
	if got := scoreOf(killerMove); got != killerScore1 {
		t.Errorf("killer scored %d, want %d", got, killerScore1)
	}
	if !(scoreOf(pvMove) > scoreOf(capture) && scoreOf(capture) > scoreOf(killerMove)) {
		t.Error("priority order pv > capture > killer violated")
	}
}

func TestRecordCutoffShiftsKillers(t *testing.T) {
	pos := board.NewPosition()
	s, _ := newTestSearcher(pos, Limits{Depth: 1})

	var moves board.MoveList
	pos.GenerateMoves(&moves)
	first, second := moves.Get(0), moves.Get(1)

	s.recordCutoff(first, 3, 2)
	if s.stack[3].killers[0] != first {
		t.Fatal("first killer not installed")
	}

	s.recordCutoff(second, 3, 2)
	if s.stack[3].killers[0] != second || s.stack[3].killers[1] != first {
		t.Error("killers did not shift")
	}

	// Re-recording the same move must not duplicate it into both slots.
	s.recordCutoff(second, 3, 2)
	if s.stack[3].killers[1] != first {
		t.Error("duplicate killer overwrote the second slot")
	}
}

func TestHistoryBumpAndDecay(t *testing.T) {
	var h historyTable
	h.bump(board.White, board.Knight, 42, 4)
	if got := h.get(board.White, board.Knight, 42); got != 16 {
		t.Errorf("history after depth-4 bump = %d, want 16", got)
	}

	h.decay()
	if got := h.get(board.White, board.Knight, 42); got != 1 {
		t.Errorf("history after decay = %d, want 1", got)
	}
	h.decay()
	if got := h.get(board.White, board.Knight, 42); got != 0 {
		t.Errorf("history after second decay = %d, want 0", got)
	}
}

func TestMvvLvaPrefersValuableVictims(t *testing.T) {
	if mvvLva[board.Queen][board.Pawn] <= mvvLva[board.Pawn][board.Pawn] {
		t.Error("taking a queen should outrank taking a pawn")
	}
	if mvvLva[board.Rook][board.Pawn] <= mvvLva[board.Rook][board.Queen] {
		t.Error("cheap attackers should outrank expensive ones")
	}
}
