// Package eval implements the static evaluator shared by both searchers:
// a tapered middlegame/endgame score in centipawns, and the sigmoid mapping
// between centipawns and winning probability used by the MCTS rollouts.
package eval

import (
	"math/bits"

	dragon "github.com/dylhunn/dragontoothmg"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
)

// Context stores the intermediate results of the last evaluation. One lives
// per search; the "eval" debug command prints it.
type Context struct {
	Phase      int // game phase, 0 (bare kings) .. 256 (full board)
	Middlegame int
	Endgame    int
	Score      int // tapered, from white's POV
}

// Piece values, middlegame and endgame.
var valueMg = [board.PieceKinds]int{0, 82, 337, 365, 477, 1025, 0}
var valueEg = [board.PieceKinds]int{0, 94, 281, 297, 512, 936, 0}

// Piece-square tables from white's perspective, square 0 = a1 .. 63 = h8.
// Black uses the vertically mirrored square (sq ^ 56).
var pawnMg = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	-35, -1, -20, -23, -15, 24, 38, -22,
	-26, -4, -4, -10, 3, 3, 33, -12,
	-27, -2, -5, 12, 17, 6, 10, -25,
	-14, 13, 6, 21, 23, 12, 17, -23,
	-6, 7, 26, 31, 65, 56, 25, -20,
	98, 134, 61, 95, 68, 126, 34, -11,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var pawnEg = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	13, 8, 8, 10, 13, 0, 2, -7,
	4, 7, -6, 1, 0, -5, -1, -8,
	13, 9, -3, -7, -7, -8, 3, -1,
	32, 24, 13, 5, -2, 4, 17, 17,
	94, 100, 85, 67, 56, 53, 82, 84,
	178, 173, 158, 134, 147, 132, 165, 187,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightMg = [64]int{
	-105, -21, -58, -33, -17, -28, -19, -23,
	-29, -53, -12, -3, -1, 18, -14, -19,
	-23, -9, 12, 10, 19, 17, 25, -16,
	-13, 4, 16, 13, 28, 19, 21, -8,
	-9, 17, 19, 53, 37, 69, 18, 22,
	-47, 60, 37, 65, 84, 129, 73, 44,
	-73, -41, 72, 36, 23, 62, 7, -17,
	-167, -89, -34, -49, 61, -97, -15, -107,
}

var knightEg = [64]int{
	-29, -51, -23, -15, -22, -18, -50, -64,
	-42, -20, -10, -5, -2, -20, -23, -44,
	-23, -3, -1, 15, 10, -3, -20, -22,
	-18, -6, 16, 25, 16, 17, 4, -18,
	-17, 3, 22, 22, 22, 11, 8, -18,
	-24, -20, 10, 9, -1, -9, -19, -41,
	-25, -8, -25, -2, -9, -25, -24, -52,
	-58, -38, -13, -28, -31, -27, -63, -99,
}

var bishopMg = [64]int{
	-33, -3, -14, -21, -13, -12, -39, -21,
	4, 15, 16, 0, 7, 21, 33, 1,
	0, 15, 15, 15, 14, 27, 18, 10,
	-6, 13, 13, 26, 34, 12, 10, 4,
	-4, 5, 19, 50, 37, 37, 7, -2,
	-16, 37, 43, 40, 35, 50, 37, -2,
	-26, 16, -18, -13, 30, 59, 18, -47,
	-29, 4, -82, -37, -25, -42, 7, -8,
}

var bishopEg = [64]int{
	-23, -9, -23, -5, -9, -16, -5, -17,
	-14, -18, -7, -1, 4, -9, -15, -27,
	-12, -3, 8, 10, 13, 3, -7, -15,
	-6, 3, 13, 19, 7, 10, -3, -9,
	-3, 9, 12, 9, 14, 10, 3, 2,
	2, -8, 0, -1, -2, 6, 0, 4,
	-8, -4, 7, -12, -3, -13, -4, -14,
	-14, -21, -11, -8, -7, -9, -17, -24,
}

var rookMg = [64]int{
	-19, -13, 1, 17, 16, 7, -37, -26,
	-44, -16, -20, -9, -1, 11, -6, -71,
	-45, -25, -16, -17, 3, 0, -5, -33,
	-36, -26, -12, -1, 9, -7, 6, -23,
	-24, -11, 7, 26, 24, 35, -8, -20,
	-5, 19, 26, 36, 17, 45, 61, 16,
	27, 32, 58, 62, 80, 67, 26, 44,
	32, 42, 32, 51, 63, 9, 31, 43,
}

var rookEg = [64]int{
	-9, 2, 3, -1, -5, -13, 4, -20,
	-6, -6, 0, 2, -9, -9, -11, -3,
	-4, 0, -5, -1, -7, -12, -8, -16,
	3, 5, 8, 4, -5, -6, -8, -11,
	4, 3, 13, 1, 2, 1, -1, 2,
	7, 7, 7, 5, 4, -3, -5, -3,
	11, 13, 13, 11, -3, 3, 8, 3,
	13, 10, 18, 15, 12, 12, 8, 5,
}

var queenMg = [64]int{
	-1, -18, -9, 10, -15, -25, -31, -50,
	-35, -8, 11, 2, 8, 15, -3, 1,
	-14, 2, -11, -2, -5, 2, 14, 5,
	-9, -26, -9, -10, -2, -4, 3, -3,
	-27, -27, -16, -16, -1, 17, -2, 1,
	-13, -17, 7, 8, 29, 56, 47, 57,
	-24, -39, -5, 1, -16, 57, 28, 54,
	-28, 0, 29, 12, 59, 44, 43, 45,
}

var queenEg = [64]int{
	-33, -28, -22, -43, -5, -32, -20, -41,
	-22, -23, -30, -16, -16, -23, -36, -32,
	-16, -27, 15, 6, 9, 17, 10, 5,
	-18, 28, 19, 47, 31, 34, 39, 23,
	3, 22, 24, 45, 57, 40, 57, 36,
	-20, 6, 9, 49, 47, 35, 19, 9,
	-17, 20, 32, 41, 58, 25, 30, 0,
	-9, 22, 22, 27, 27, 19, 10, 20,
}

var kingMg = [64]int{
	-15, 36, 12, -54, 8, -28, 24, 14,
	1, 7, -8, -64, -43, -16, 9, 8,
	-14, -14, -22, -46, -44, -30, -15, -27,
	-49, -1, -27, -39, -46, -44, -33, -51,
	-17, -20, -12, -27, -30, -25, -14, -36,
	-9, 24, 2, -16, -20, 6, 22, -22,
	29, -1, -20, -7, -8, -4, -38, -29,
	-65, 23, 16, -15, -56, -34, 2, 13,
}

var kingEg = [64]int{
	-53, -34, -21, -11, -28, -14, -24, -43,
	-27, -11, 4, 13, 14, 4, -5, -17,
	-19, -3, 11, 21, 23, 16, 7, -9,
	-18, -4, 21, 24, 27, 23, 9, -11,
	-8, 22, 24, 27, 26, 33, 26, 3,
	10, 17, 23, 15, 20, 45, 44, 13,
	-12, 17, 14, 17, 17, 38, 23, 11,
	-74, -35, -18, -18, -11, 15, 4, -17,
}

var psqtMg = [board.PieceKinds]*[64]int{nil, &pawnMg, &knightMg, &bishopMg, &rookMg, &queenMg, &kingMg}
var psqtEg = [board.PieceKinds]*[64]int{nil, &pawnEg, &knightEg, &bishopEg, &rookEg, &queenEg, &kingEg}

// Pawn structure and piece bonuses.
var passedPawnBonus = [8]int{0, 10, 17, 15, 62, 168, 276, 0}

const (
	isolatedPawnPenalty = 14
	doubledPawnPenalty  = 11
	bishopPairMg        = 25
	bishopPairEg        = 50
	rookOpenFile        = 23
	rookSemiOpenFile    = 11
	tempoBonusMg        = 14
	tempoBonusEg        = 6
)

// fileMasks[f] covers every square on file f.
var fileMasks [8]uint64

// adjacentFiles[f] covers files f-1 and f+1.
var adjacentFiles [8]uint64

// passedMask[color][sq] covers the squares a pawn on sq must be clear of
// enemy pawns on to be passed (own and adjacent files, in front).
var passedMask [2][64]uint64

func init() {
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			fileMasks[f] |= 1 << (r*8 + f)
		}
	}
	for f := 0; f < 8; f++ {
		if f > 0 {
			adjacentFiles[f] |= fileMasks[f-1]
		}
		if f < 7 {
			adjacentFiles[f] |= fileMasks[f+1]
		}
	}
	for sq := 0; sq < 64; sq++ {
		f, r := sq%8, sq/8
		span := fileMasks[f] | adjacentFiles[f]
		var front, back uint64
		for rr := r + 1; rr < 8; rr++ {
			front |= 0xff << (8 * rr)
		}
		for rr := 0; rr < r; rr++ {
			back |= 0xff << (8 * rr)
		}
		passedMask[board.White][sq] = span & front
		passedMask[board.Black][sq] = span & back
	}
}

// phaseOf scales the remaining material into 0..256, endgame to middlegame.
func phaseOf(bd *dragon.Board) int {
	phase := bits.OnesCount64(bd.White.Pawns|bd.Black.Pawns) << 1
	phase += 6 * bits.OnesCount64(bd.White.Knights|bd.Black.Knights)
	phase += 12 * bits.OnesCount64(bd.White.Bishops|bd.Black.Bishops)
	phase += 18 * bits.OnesCount64(bd.White.Rooks|bd.Black.Rooks)
	phase += 40 * bits.OnesCount64(bd.White.Queens|bd.Black.Queens)
	phase = (phase*3 - 128) >> 1
	if phase < 0 {
		phase = 0
	}
	if phase > 256 {
		phase = 256
	}
	return phase
}

// Evaluate returns the static score of the position in centipawns from the
// side-to-move's point of view. ctx receives the phase and the untapered
// component scores.
func Evaluate(pos *board.Position, ctx *Context) int {
	bd := pos.Board()

	var mg, eg int
	mg += sideMaterialPsqt(&bd.White, board.White, &eg)
	negEg := 0
	mg -= sideMaterialPsqt(&bd.Black, board.Black, &negEg)
	eg -= negEg

	mgP, egP := pawnStructure(bd.White.Pawns, bd.Black.Pawns, board.White)
	mg, eg = mg+mgP, eg+egP
	mgP, egP = pawnStructure(bd.Black.Pawns, bd.White.Pawns, board.Black)
	mg, eg = mg-mgP, eg-egP

	mg, eg = rookFiles(bd.White.Rooks, bd.White.Pawns, bd.Black.Pawns, mg, eg, 1)
	mg, eg = rookFiles(bd.Black.Rooks, bd.Black.Pawns, bd.White.Pawns, mg, eg, -1)

	if bits.OnesCount64(bd.White.Bishops) >= 2 {
		mg += bishopPairMg
		eg += bishopPairEg
	}
	if bits.OnesCount64(bd.Black.Bishops) >= 2 {
		mg -= bishopPairMg
		eg -= bishopPairEg
	}

	if bd.Wtomove {
		mg += tempoBonusMg
		eg += tempoBonusEg
	} else {
		mg -= tempoBonusMg
		eg -= tempoBonusEg
	}

	phase := phaseOf(bd)
	score := (mg*phase + eg*(256-phase)) / 256

	ctx.Phase = phase
	ctx.Middlegame = mg
	ctx.Endgame = eg
	ctx.Score = score

	if !bd.Wtomove {
		return -score
	}
	return score
}

// sideMaterialPsqt sums material and piece-square values for one side's
// middlegame score, accumulating the endgame score into eg.
func sideMaterialPsqt(bbs *dragon.Bitboards, color board.Color, eg *int) int {
	mg := 0
	for piece, mask := range [board.PieceKinds]uint64{
		board.Pawn:   bbs.Pawns,
		board.Knight: bbs.Knights,
		board.Bishop: bbs.Bishops,
		board.Rook:   bbs.Rooks,
		board.Queen:  bbs.Queens,
		board.King:   bbs.Kings,
	} {
		if mask == 0 {
			continue
		}
		for bb := mask; bb != 0; bb &= bb - 1 {
			sq := bits.TrailingZeros64(bb)
			if color == board.Black {
				sq ^= 56
			}
			mg += valueMg[piece] + psqtMg[piece][sq]
			*eg += valueEg[piece] + psqtEg[piece][sq]
		}
	}
	return mg
}

// pawnStructure scores isolated, doubled, and passed pawns for one side.
func pawnStructure(own, theirs uint64, color board.Color) (mg, eg int) {
	for bb := own; bb != 0; bb &= bb - 1 {
		sq := bits.TrailingZeros64(bb)
		f := sq % 8

		if own&adjacentFiles[f] == 0 {
			mg -= isolatedPawnPenalty
			eg -= isolatedPawnPenalty
		}
		if theirs&passedMask[color][sq] == 0 {
			rank := sq / 8
			if color == board.Black {
				rank = 7 - rank
			}
			mg += passedPawnBonus[rank]
			eg += passedPawnBonus[rank] * 3 / 2
		}
	}
	for f := 0; f < 8; f++ {
		if n := bits.OnesCount64(own & fileMasks[f]); n > 1 {
			mg -= (n - 1) * doubledPawnPenalty
			eg -= (n - 1) * doubledPawnPenalty * 2
		}
	}
	return mg, eg
}

// rookFiles rewards rooks on open and semi-open files.
func rookFiles(rooks, ownPawns, theirPawns uint64, mg, eg, sign int) (int, int) {
	for bb := rooks; bb != 0; bb &= bb - 1 {
		f := bits.TrailingZeros64(bb) % 8
		switch {
		case (ownPawns|theirPawns)&fileMasks[f] == 0:
			mg += sign * rookOpenFile
			eg += sign * rookOpenFile
		case ownPawns&fileMasks[f] == 0:
			mg += sign * rookSemiOpenFile
			eg += sign * rookSemiOpenFile
		}
	}
	return mg, eg
}
