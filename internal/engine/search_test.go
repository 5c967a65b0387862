package engine

import (
	"testing"
	"time"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
	"github.com/vladi-petroff/lishex-mcts/internal/eval"
)

func mustPos(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	return pos
}

func newTestSearcher(pos *board.Position, limits Limits) (*Searcher, *SearchInfo) {
	s := NewSearcher()
	info := &SearchInfo{}
	info.Reset(limits)
	s.pos, s.info = pos, info
	s.initSearch()
	return s, info
}

func isLegal(pos *board.Position, m board.Move) bool {
	var moves board.MoveList
	pos.GenerateMoves(&moves)
	return moves.Contains(m)
}

func TestSearchReturnsLegalMove(t *testing.T) {
	pos := mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	s, _ := newTestSearcher(pos, Limits{Depth: 1})

	best := s.Search(pos, s.info)
	if best == board.NoMove {
		t.Fatal("no best move at depth 1")
	}
	if !isLegal(pos, best) {
		t.Errorf("best move %s is not legal", best.String())
	}
}

func TestMateInOne(t *testing.T) {
	// Rf8 is mate: the black king is boxed in by the white king.
	pos := mustPos(t, "7k/8/6K1/8/8/8/8/5R2 w - - 0 1")
	s, info := newTestSearcher(pos, Limits{Depth: 3})

	var lastScore int
	s.onInfo = func(r Report) { lastScore = r.Score }

	best := s.Search(pos, info)
	if got := best.String(); got != "f1f8" {
		t.Errorf("best move = %s, want f1f8", got)
	}
	if !IsMateScore(lastScore) {
		t.Fatalf("score %d does not encode mate", lastScore)
	}
	if d := MateIn(lastScore); d != 1 {
		t.Errorf("mate distance = %d, want 1", d)
	}
}

func TestStalemateScoresZero(t *testing.T) {
	pos := mustPos(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	s, _ := newTestSearcher(pos, Limits{Depth: 1})

	if score := s.negamax(-Infinity, Infinity, 1); score != 0 {
		t.Errorf("stalemate score = %d, want 0", score)
	}
}

func TestQuiescenceIdempotentWhenQuiet(t *testing.T) {
	pos := mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	s, _ := newTestSearcher(pos, Limits{Depth: 1})

	var ctx eval.Context
	want := eval.Evaluate(pos, &ctx)
	if got := s.quiescence(-Infinity, Infinity); got != want {
		t.Errorf("quiescence = %d, want static eval %d", got, want)
	}
}

func TestFailHardWindow(t *testing.T) {
	pos := board.NewPosition()
	s, _ := newTestSearcher(pos, Limits{Depth: 3})

	alpha, beta := -10, 10
	score := s.negamax(alpha, beta, 3)
	if score < alpha || score > beta {
		t.Errorf("score %d outside fail-hard window [%d, %d]", score, alpha, beta)
	}
}

func TestNegamaxSymmetry(t *testing.T) {
	white := mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	black := mustPos(t, "4k3/4p3/8/8/8/8/8/4K3 b - - 0 1")

	sw, _ := newTestSearcher(white, Limits{Depth: 2})
	sb, _ := newTestSearcher(black, Limits{Depth: 2})

	if a, b := sw.negamax(-Infinity, Infinity, 2), sb.negamax(-Infinity, Infinity, 2); a != b {
		t.Errorf("mirror search scores differ: %d vs %d", a, b)
	}
}

func TestPVIsPlayable(t *testing.T) {
	pos := board.NewPosition()
	s, info := newTestSearcher(pos, Limits{Depth: 4})
	s.Search(pos, info)

	line := s.pv.Root().Moves(0)
	if len(line) == 0 {
		t.Fatal("empty principal variation")
	}

	replay := board.NewPosition()
	for i, m := range line {
		if !isLegal(replay, m) {
			t.Fatalf("pv move %d (%s) not legal", i, m.String())
		}
		replay.MakeMove(m)
	}
}

func TestFiftyMoveDraw(t *testing.T) {
	// Below the root with the clock run out, negamax returns the randomized
	// draw score.
	pos := mustPos(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 99 80")
	s, _ := newTestSearcher(pos, Limits{Depth: 4})

	var moves board.MoveList
	pos.GenerateMoves(&moves)
	kingMove := board.NoMove
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if pos.PieceTypeAt(m.From()) == board.King {
			kingMove = m
			break
		}
	}
	pos.MakeMove(kingMove)

	score := s.negamax(-Infinity, Infinity, 2)
	if score < -2 || score > 2 {
		t.Errorf("draw score = %d, want within ±2 of zero", score)
	}
}

func TestStopDiscardsIteration(t *testing.T) {
	pos := board.NewPosition()
	s, info := newTestSearcher(pos, Limits{Depth: MaxDepth, MoveTime: 30 * time.Millisecond})

	start := time.Now()
	best := s.Search(pos, info)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("search overran its budget: %v", elapsed)
	}
	if best != board.NoMove && !isLegal(pos, best) {
		t.Errorf("best move %s not legal", best.String())
	}
}

func TestDeepeningReports(t *testing.T) {
	pos := board.NewPosition()
	eng := New(Options{Mode: ModeAlphaBeta, ArenaMB: 16})

	var depths []int
	eng.OnInfo = func(r Report) { depths = append(depths, r.Depth) }

	best := eng.Search(pos, Limits{Depth: 3})
	if !isLegal(pos, best) {
		t.Fatalf("engine best move %s not legal", best.String())
	}
	if len(depths) == 0 {
		t.Fatal("no info reports emitted")
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] != depths[i-1]+1 {
			t.Errorf("iteration depths not consecutive: %v", depths)
		}
	}
	if eng.Info().State() != Stopped {
		t.Error("engine state not STOPPED after search")
	}
}

func TestMateScoreHelpers(t *testing.T) {
	if !IsMateScore(Infinity - 1) || !IsMateScore(-Infinity + 5) {
		t.Error("mate scores not recognized")
	}
	if IsMateScore(250) || IsMateScore(-Infinity+MaxDepth+1) {
		t.Error("non-mate scores flagged as mate")
	}
	if d := MateIn(Infinity - 3); d != 2 {
		t.Errorf("MateIn(+oo-3) = %d, want 2", d)
	}
	if d := MateIn(-Infinity + 3); d != -1 {
		t.Errorf("MateIn(-oo+3) = %d, want -1", d)
	}
}

func TestStopProtocol(t *testing.T) {
	info := &SearchInfo{}
	info.Reset(Limits{Depth: 5})

	if info.Stopped() {
		t.Error("fresh search reports stopped")
	}
	info.RequestStop()
	if !info.Stopped() {
		t.Error("stop request not observed")
	}

	info.Reset(Limits{Depth: 5, MoveTime: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	if !info.Stopped() {
		t.Error("expired deadline not observed")
	}
}

func TestAllocateTime(t *testing.T) {
	budget := AllocateTime(Clock{Remaining: time.Minute, MovesToGo: 40}, 0)
	if budget < time.Second || budget > 3*time.Second {
		t.Errorf("budget %v outside expected range", budget)
	}

	// Never more than 80% of the remaining clock.
	budget = AllocateTime(Clock{Remaining: 100 * time.Millisecond, Increment: time.Minute}, 0)
	if budget > 80*time.Millisecond {
		t.Errorf("budget %v exceeds 80%% of remaining time", budget)
	}
}
