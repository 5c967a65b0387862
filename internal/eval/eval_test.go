package eval

import (
	"math"
	"testing"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
)

func mustPos(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	return pos
}

func TestStartposBalanced(t *testing.T) {
	var ctx Context
	score := Evaluate(board.NewPosition(), &ctx)

	// Material and piece-square terms cancel; only tempo remains.
	if score < 0 || score > 50 {
		t.Errorf("startpos eval = %d, want small positive tempo edge", score)
	}
	if ctx.Phase != 256 {
		t.Errorf("startpos phase = %d, want 256", ctx.Phase)
	}
}

func TestColorSymmetry(t *testing.T) {
	pairs := [][2]string{
		{
			"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
			"4k3/4p3/8/8/8/8/8/4K3 b - - 0 1",
		},
		{
			"r1bqkbnr/pppppppp/n7/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 0 1",
			"rnbqkb1r/pppppppp/5n2/8/8/N7/PPPPPPPP/R1BQKBNR b KQkq - 0 1",
		},
	}

	for _, pair := range pairs {
		var ctx Context
		white := Evaluate(mustPos(t, pair[0]), &ctx)
		black := Evaluate(mustPos(t, pair[1]), &ctx)
		if white != black {
			t.Errorf("mirror eval mismatch: %q=%d, %q=%d", pair[0], white, pair[1], black)
		}
	}
}

func TestPhaseEndgame(t *testing.T) {
	var ctx Context
	Evaluate(mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"), &ctx)
	if ctx.Phase != 0 {
		t.Errorf("bare-kings-and-pawn phase = %d, want 0", ctx.Phase)
	}
}

func TestMaterialDominates(t *testing.T) {
	// White is a queen up.
	var ctx Context
	score := Evaluate(mustPos(t, "4k3/8/8/8/8/8/8/3QK3 w - - 0 1"), &ctx)
	if score < 500 {
		t.Errorf("queen-up eval = %d, want clearly winning", score)
	}

	// Same position from black's perspective is clearly losing.
	score = Evaluate(mustPos(t, "4k3/8/8/8/8/8/8/3QK3 b - - 0 1"), &ctx)
	if score > -500 {
		t.Errorf("queen-down eval = %d, want clearly losing", score)
	}
}

func TestWinningProb(t *testing.T) {
	if p := WinningProb(0); math.Abs(p-0.5) > 1e-9 {
		t.Errorf("WinningProb(0) = %f, want 0.5", p)
	}
	if p := WinningProb(400); math.Abs(p-10.0/11.0) > 1e-9 {
		t.Errorf("WinningProb(400) = %f, want %f", p, 10.0/11.0)
	}
	for cp := -900; cp < 900; cp += 100 {
		if WinningProb(cp) >= WinningProb(cp+100) {
			t.Errorf("WinningProb not increasing at %d", cp)
		}
	}
}

func TestCentipawnRoundTrip(t *testing.T) {
	for _, cp := range []int{-800, -250, -1, 0, 1, 50, 333, 800} {
		got := CentipawnFromProb(WinningProb(cp))
		if got < cp-1 || got > cp+1 {
			t.Errorf("roundtrip of %d cp = %d", cp, got)
		}
	}

	// Degenerate probabilities stay finite.
	if CentipawnFromProb(0) > -1000 {
		t.Error("CentipawnFromProb(0) should be strongly negative")
	}
	if CentipawnFromProb(1) < 1000 {
		t.Error("CentipawnFromProb(1) should be strongly positive")
	}
}
