package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
	"github.com/vladi-petroff/lishex-mcts/internal/eval"
)

// stackFrame holds the per-ply search state: the two killer moves that
// caused cutoffs at this ply, and the cached static evaluation.
type stackFrame struct {
	killers [2]board.Move
	score   int
}

// Searcher runs the iterative-deepening alpha-beta search. All of its state
// is scoped to one search invocation and reinitialized at entry; only the
// history table carries across searches (decayed, to blend positions).
type Searcher struct {
	pos     *board.Position
	info    *SearchInfo
	evalCtx eval.Context

	pv      PVTable
	stack   [MaxDepth + 1]stackFrame
	history historyTable

	// Principal variation of the previous completed iteration; its move at
	// the current ply is ordered first on the next one.
	prevPV PVLine

	onInfo func(Report)
}

// NewSearcher creates an alpha-beta searcher.
func NewSearcher() *Searcher {
	return &Searcher{}
}

// PV returns the triangular table of the last search.
func (s *Searcher) PV() *PVTable {
	return &s.pv
}

// initSearch prepares the per-search state: the history heuristic is decayed
// rather than cleared, the PV table and stack are wiped, and the board's ply
// counter rewinds to the search root.
func (s *Searcher) initSearch() {
	s.history.decay()
	s.pv.clear()
	s.prevPV.clear()
	for i := range s.stack {
		s.stack[i] = stackFrame{}
	}
	s.pos.ResetPly()
}

// pvMoveAt returns the previous iteration's move at the given ply, if any.
func (s *Searcher) pvMoveAt(ply int) board.Move {
	if ply < s.prevPV.size {
		return s.prevPV.moves[ply]
	}
	return board.NoMove
}

// drawScore is slightly randomized around zero so the searcher does not go
// blind between equally drawish lines.
func drawScore(nodes uint64) int {
	return -2 + int(nodes&0x3)
}

// negamax searches the position to the given depth inside the fail-hard
// window (alpha, beta). Scores from the move loop are clamped to
// [alpha, beta]; draw, mate, stalemate and max-ply scores are returned
// as they are. Magnitudes within MaxDepth of Infinity encode mate distances.
func (s *Searcher) negamax(alpha, beta, depth int) int {
	ply := s.pos.Ply()
	pv := s.pv.line(ply)
	nextPV := s.pv.line(ply + 1)
	pv.size = ply

	if depth <= 0 {
		return s.quiescence(alpha, beta)
	}

	s.info.Nodes++

	// Draws are only detected below the root; the driver still needs a move.
	if ply > 0 && (s.pos.IsRepetition() || s.pos.FiftyMove() >= 100) {
		return drawScore(s.info.Nodes)
	}

	if ply >= MaxDepth-1 {
		return eval.Evaluate(s.pos, &s.evalCtx)
	}

	s.stack[ply].score = eval.Evaluate(s.pos, &s.evalCtx)

	var moves board.MoveList
	s.pos.GenerateMoves(&moves)
	s.scoreMoves(&moves, s.pvMoveAt(ply), &s.stack[ply].killers)

	movesSearched := 0
	bestScore := -Infinity
	bestMove := board.NoMove

	for m := moves.NextBest(); m != board.NoMove; m = moves.NextBest() {
		if !s.pos.MakeMove(m) {
			continue
		}
		score := -s.negamax(-beta, -alpha, depth-1)
		s.pos.UndoMove()

		if s.info.Stopped() {
			return 0
		}
		movesSearched++

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				if score >= beta {
					// Fail-high: the opponent will not allow this line.
					if movesSearched == 1 {
						s.info.FailHighFirst++
					}
					s.info.FailHigh++
					if s.pos.IsQuiet(m) {
						s.recordCutoff(m, ply, depth)
					}
					return beta
				}
				pv.moves[ply] = bestMove
				movcpy(pv.moves[ply+1:], nextPV.moves[ply+1:], nextPV.size-(ply+1))
				pv.size = nextPV.size
				alpha = score
			}
		}
	}

	if movesSearched == 0 {
		if s.pos.InCheck() {
			// Mated: closer to the root is worse for us.
			return -Infinity + ply
		}
		return 0
	}

	return alpha
}

// quiescence extends the search over noisy moves only, so the leaf score is
// measured at a tactically quiet position. It never touches the PV table or
// the killers.
func (s *Searcher) quiescence(alpha, beta int) int {
	s.info.Nodes++

	ply := s.pos.Ply()
	if ply > s.info.SelDepth {
		s.info.SelDepth = ply
	}

	score := eval.Evaluate(s.pos, &s.evalCtx)
	s.stack[ply].score = score

	if ply >= MaxDepth-1 {
		return score
	}

	// Stand pat: the side to move can usually decline all captures.
	if score >= beta {
		return beta
	}
	if score > alpha {
		alpha = score
	}

	var noisy board.MoveList
	s.pos.GenerateNoisy(&noisy)
	s.scoreMoves(&noisy, board.NoMove, nil)

	for m := noisy.NextBest(); m != board.NoMove; m = noisy.NextBest() {
		if !s.pos.MakeMove(m) {
			continue
		}
		score = -s.quiescence(-beta, -alpha)
		s.pos.UndoMove()

		if s.info.Stopped() {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

// Search runs iterative deepening on pos until the depth limit, the time
// budget, or a stop request ends it. It returns the best move of the last
// completed iteration; a partial iteration's result is discarded.
func (s *Searcher) Search(pos *board.Position, info *SearchInfo) board.Move {
	s.pos, s.info = pos, info
	s.initSearch()

	bestMove := board.NoMove

	for depth := 1; depth <= info.DepthLimit; depth++ {
		depthNodes := info.Nodes

		bestScore := s.negamax(-Infinity, Infinity, depth)

		if info.Stopped() {
			break
		}

		root := s.pv.Root()
		bestMove = root.Move(0)
		s.prevPV = *root

		if s.onInfo != nil {
			s.onInfo(Report{
				Depth:    depth,
				SelDepth: info.SelDepth,
				Score:    bestScore,
				Nodes:    info.Nodes,
				Time:     info.Elapsed(),
				PV:       root.Moves(0),
			})
		}
		log.Debug().
			Int("depth", depth).
			Uint64("depth_nodes", info.Nodes-depthNodes).
			Float64("ordering", orderingRatio(info)).
			Msg("iteration complete")

		// Skip the next iteration when it can't finish: each depth costs
		// more than everything searched so far.
		if info.TimeSet && info.Elapsed()*2 >= info.End.Sub(info.Start) {
			break
		}
	}

	return bestMove
}

// orderingRatio is the fraction of fail-highs produced by the first move
// searched; a crude measure of move-ordering quality.
func orderingRatio(info *SearchInfo) float64 {
	if info.FailHigh == 0 {
		return 0
	}
	return float64(info.FailHighFirst) / float64(info.FailHigh)
}
