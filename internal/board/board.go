// Package board wraps the dragontoothmg move generator with the search-side
// bookkeeping the engine needs: a search ply counter, a hash history for
// repetition detection, and an undo stack.
package board

import (
	"fmt"
	"strings"

	dragon "github.com/dylhunn/dragontoothmg"
)

// Move is the wire representation of a chess move.
type Move = dragon.Move

// NoMove represents an invalid or null move.
const NoMove Move = 0

// Startpos is the FEN of the standard starting position.
var Startpos = dragon.Startpos

// Color of the side to move.
type Color int

const (
	White Color = iota
	Black
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// Piece kinds, aliased from dragontoothmg so callers index tables with them.
const (
	NoPiece = int(dragon.Nothing)
	Pawn    = int(dragon.Pawn)
	Knight  = int(dragon.Knight)
	Bishop  = int(dragon.Bishop)
	Rook    = int(dragon.Rook)
	Queen   = int(dragon.Queen)
	King    = int(dragon.King)
)

// PieceKinds is the number of distinct piece indices (NoPiece included).
const PieceKinds = King + 1

// Position is a dragontoothmg board plus the state a tree search needs to
// walk up and down: the current search ply, the zobrist hashes of every
// position seen since the game root, and the unapply stack.
type Position struct {
	bd     dragon.Board
	ply    int
	hashes []uint64
	undos  []func()
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	p, _ := ParseFEN(Startpos)
	return p
}

// ParseFEN builds a position from a FEN string. It returns an error unless the
// string has six fields, eight ranks, and a side to move of w or b; the
// contents of each rank are passed to dragontoothmg unchecked.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 || strings.Count(fields[0], "/") != 7 || (fields[1] != "w" && fields[1] != "b") {
		return nil, fmt.Errorf("want six fields, eight ranks and side w or b: %q", fen)
	}
	bd := dragon.ParseFen(fen)
	p := &Position{bd: bd}
	p.hashes = append(p.hashes, bd.Hash())
	return p, nil
}

// FEN renders the current position.
func (p *Position) FEN() string {
	return p.bd.ToFen()
}

// Hash returns the zobrist hash of the current position.
func (p *Position) Hash() uint64 {
	return p.bd.Hash()
}

// SideToMove returns the color to play.
func (p *Position) SideToMove() Color {
	if p.bd.Wtomove {
		return White
	}
	return Black
}

// Ply returns the current search ply (distance from the search root).
func (p *Position) Ply() int {
	return p.ply
}

// ResetPly zeroes the search ply at the start of a search.
func (p *Position) ResetPly() {
	p.ply = 0
}

// FiftyMove returns the halfmove clock.
func (p *Position) FiftyMove() int {
	return int(p.bd.Halfmoveclock)
}

// SetHashHistory seeds the repetition history with the hashes of the game so
// far, ending with the current position. Called by the front-end after
// "position ... moves ...".
func (p *Position) SetHashHistory(hashes []uint64) {
	p.hashes = p.hashes[:0]
	p.hashes = append(p.hashes, hashes...)
	if n := len(p.hashes); n == 0 || p.hashes[n-1] != p.bd.Hash() {
		p.hashes = append(p.hashes, p.bd.Hash())
	}
}

// IsRepetition reports whether the current position occurred before in the
// hash history. A single prior occurrence counts: if a repeat can be forced
// once it can be forced again.
func (p *Position) IsRepetition() bool {
	h := p.bd.Hash()
	for i := 0; i < len(p.hashes)-1; i++ {
		if p.hashes[i] == h {
			return true
		}
	}
	return false
}

// GenerateMoves fills ml with every legal move in the position.
// dragontoothmg generates fully legal moves, so MakeMove succeeds for each.
func (p *Position) GenerateMoves(ml *MoveList) {
	ml.Clear()
	for _, m := range p.bd.GenerateLegalMoves() {
		ml.Add(m)
	}
}

// GenerateNoisy fills ml with legal captures and promotions only.
func (p *Position) GenerateNoisy(ml *MoveList) {
	ml.Clear()
	for _, m := range p.bd.GenerateLegalMoves() {
		if p.IsNoisy(m) {
			ml.Add(m)
		}
	}
}

// IsCapture reports whether m takes a piece (en passant included).
func (p *Position) IsCapture(m Move) bool {
	toBB := uint64(1) << m.To()
	if (p.bd.White.All|p.bd.Black.All)&toBB != 0 {
		return true
	}
	// A pawn changing file onto an empty square is an en passant capture.
	fromBB := uint64(1) << m.From()
	pawns := p.bd.White.Pawns | p.bd.Black.Pawns
	return pawns&fromBB != 0 && m.To()%8 != m.From()%8
}

// IsNoisy reports whether m is a capture or a promotion.
func (p *Position) IsNoisy(m Move) bool {
	return p.IsCapture(m) || m.Promote() != dragon.Nothing
}

// IsQuiet reports whether m is neither a capture nor a promotion.
func (p *Position) IsQuiet(m Move) bool {
	return !p.IsNoisy(m)
}

// PieceTypeAt returns the piece kind on sq, or NoPiece.
func (p *Position) PieceTypeAt(sq uint8) int {
	bb := uint64(1) << sq
	for _, side := range []*dragon.Bitboards{&p.bd.White, &p.bd.Black} {
		if side.All&bb == 0 {
			continue
		}
		switch {
		case side.Pawns&bb != 0:
			return Pawn
		case side.Knights&bb != 0:
			return Knight
		case side.Bishops&bb != 0:
			return Bishop
		case side.Rooks&bb != 0:
			return Rook
		case side.Queens&bb != 0:
			return Queen
		default:
			return King
		}
	}
	return NoPiece
}

// MakeMove applies m and pushes the undo frame. The return value reports
// whether the move was legal; with legal move generation it is always true,
// the signature keeps the make/skip contract the search is written against.
func (p *Position) MakeMove(m Move) bool {
	unapply := p.bd.Apply(m)
	p.undos = append(p.undos, unapply)
	p.hashes = append(p.hashes, p.bd.Hash())
	p.ply++
	return true
}

// UndoMove reverses the most recent MakeMove.
func (p *Position) UndoMove() {
	n := len(p.undos) - 1
	p.undos[n]()
	p.undos = p.undos[:n]
	p.hashes = p.hashes[:len(p.hashes)-1]
	p.ply--
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.bd.OurKingInCheck()
}

// Board exposes the underlying dragontoothmg board for evaluation.
func (p *Position) Board() *dragon.Board {
	return &p.bd
}

// Snapshot is a cheap copy of the position used to rewind to the search root.
type Snapshot struct {
	bd      dragon.Board
	ply     int
	nHashes int
}

// Save captures the current state.
func (p *Position) Save() Snapshot {
	return Snapshot{bd: p.bd, ply: p.ply, nHashes: len(p.hashes)}
}

// Restore rewinds the position to a saved snapshot, discarding any moves
// made since. Pending undo frames are dropped, not replayed.
func (p *Position) Restore(s Snapshot) {
	p.bd = s.bd
	p.ply = s.ply
	p.hashes = p.hashes[:s.nHashes]
	p.undos = p.undos[:0]
}
