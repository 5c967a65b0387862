package board

// maxMoves bounds the number of legal moves in any chess position.
const maxMoves = 256

// MoveList is a fixed-size list of moves with a parallel ordering score per
// move. The picked cursor supports lazy best-first iteration: NextBest does
// one selection-sort step per call instead of sorting the whole list.
type MoveList struct {
	moves  [maxMoves]Move
	scores [maxMoves]int
	count  int
	picked int
}

// Add appends a move with score zero.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.scores[ml.count] = 0
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Empty reports whether the list has no moves.
func (ml *MoveList) Empty() bool {
	return ml.count == 0
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Score returns the ordering score of the move at index i.
func (ml *MoveList) Score(i int) int {
	return ml.scores[i]
}

// SetScore sets the ordering score of the move at index i.
func (ml *MoveList) SetScore(i, score int) {
	ml.scores[i] = score
}

// Swap exchanges two moves together with their scores.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
	ml.scores[i], ml.scores[j] = ml.scores[j], ml.scores[i]
}

// Clear empties the list and rewinds the pick cursor.
func (ml *MoveList) Clear() {
	ml.count = 0
	ml.picked = 0
}

// Contains reports whether the list holds m.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// RemoveAt deletes the move at index i, preserving order of the rest.
func (ml *MoveList) RemoveAt(i int) {
	copy(ml.moves[i:], ml.moves[i+1:ml.count])
	copy(ml.scores[i:], ml.scores[i+1:ml.count])
	ml.count--
}

// Remove deletes the first occurrence of m. It reports whether m was found.
func (ml *MoveList) Remove(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			ml.RemoveAt(i)
			return true
		}
	}
	return false
}

// NextBest swaps the highest-scored unpicked move to the front of the
// unpicked region and returns it, advancing the cursor. Returns NoMove once
// the list is exhausted.
func (ml *MoveList) NextBest() Move {
	if ml.picked >= ml.count {
		return NoMove
	}
	best := ml.picked
	for i := ml.picked + 1; i < ml.count; i++ {
		if ml.scores[i] > ml.scores[best] {
			best = i
		}
	}
	if best != ml.picked {
		ml.Swap(ml.picked, best)
	}
	m := ml.moves[ml.picked]
	ml.picked++
	return m
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
