package engine

import (
	"github.com/vladi-petroff/lishex-mcts/internal/board"
)

// Move ordering priorities. The principal variation move from the previous
// iteration goes first, then captures by MVV-LVA, then the two killers,
// then everything else by history score.
const (
	pvMoveScore  = 10000000
	captureBase  = 1000000
	killerScore1 = 900000
	killerScore2 = 800000
)

// mvvLva[victim][attacker] prefers valuable victims taken by cheap attackers.
var mvvLva [board.PieceKinds][board.PieceKinds]int

func init() {
	for victim := board.Pawn; victim <= board.King; victim++ {
		for attacker := board.Pawn; attacker <= board.King; attacker++ {
			mvvLva[victim][attacker] = 100*victim + (board.King - attacker)
		}
	}
}

// historyTable accumulates depth-weighted cutoff counts per
// [color][piece][to-square], decayed at the start of every search.
type historyTable [2][board.PieceKinds][64]int32

func (h *historyTable) decay() {
	for c := range h {
		for p := range h[c] {
			for sq := range h[c][p] {
				h[c][p][sq] /= 16
			}
		}
	}
}

func (h *historyTable) bump(color board.Color, piece int, to uint8, depth int) {
	h[color][piece][to] += int32(depth * depth)
}

func (h *historyTable) get(color board.Color, piece int, to uint8) int {
	return int(h[color][piece][to])
}

// scoreMoves annotates every move in ml with its ordering score. killers may
// be nil (quiescence orders captures only).
func (s *Searcher) scoreMoves(ml *board.MoveList, pvMove board.Move, killers *[2]board.Move) {
	pos := s.pos
	color := pos.SideToMove()
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		switch {
		case m == pvMove && m != board.NoMove:
			ml.SetScore(i, pvMoveScore)
		case pos.IsNoisy(m):
			attacker := pos.PieceTypeAt(m.From())
			victim := pos.PieceTypeAt(m.To())
			if victim == board.NoPiece {
				// En passant, or a non-capturing promotion.
				victim = board.Pawn
			}
			score := captureBase + mvvLva[victim][attacker]
			if promo := int(m.Promote()); promo != board.NoPiece {
				score += 100 * promo
			}
			ml.SetScore(i, score)
		case killers != nil && m == killers[0]:
			ml.SetScore(i, killerScore1)
		case killers != nil && m == killers[1]:
			ml.SetScore(i, killerScore2)
		default:
			ml.SetScore(i, s.history.get(color, pos.PieceTypeAt(m.From()), m.To()))
		}
	}
}

// recordCutoff updates the killer slots and history table after a quiet move
// caused a beta cutoff at the given ply.
func (s *Searcher) recordCutoff(m board.Move, ply, depth int) {
	killers := &s.stack[ply].killers
	if killers[0] != m {
		killers[1] = killers[0]
		killers[0] = m
	}
	s.history.bump(s.pos.SideToMove(), s.pos.PieceTypeAt(m.From()), m.To(), depth)
}
