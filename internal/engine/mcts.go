package engine

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
	"github.com/vladi-petroff/lishex-mcts/internal/eval"
)

// MCTS defaults, all tunable through UCI options.
const (
	DefaultUCBConst      = 2.7
	DefaultRolloutBudget = 3
	DefaultArenaMB       = 2048

	// A progress report is emitted every this many tree nodes.
	mctsReportInterval = 10000
)

// nullNode marks the absence of a node index (the root's parent).
const nullNode int32 = -1

// ExpandPolicy selects which untried move an expansion step tries first.
type ExpandPolicy int

const (
	// ExpandRandom draws uniformly from the untried moves.
	ExpandRandom ExpandPolicy = iota
	// ExpandEvalWeighted samples untried moves with probability proportional
	// to a cubed static-evaluation weight.
	ExpandEvalWeighted
)

// Node is one state in the MCTS tree. Only the root's board state exists
// concretely; every other node is implied by the move chain from the root.
// Reward accumulates from the point of view of the side that made the move
// into this node (the parent's side to move), the value the parent's UCB
// selection maximizes.
type Node struct {
	parent   int32
	move     board.Move
	children []int32
	untried  []board.Move
	visits   int32
	reward   float64
}

func (n *Node) fullyExpanded() bool {
	return len(n.untried) == 0
}

func (n *Node) terminal() bool {
	return n.fullyExpanded() && len(n.children) == 0
}

func (n *Node) update(reward float64) {
	n.visits++
	n.reward += reward
}

// MCTS runs Monte-Carlo tree search with UCB1 selection, arena-allocated
// nodes, bounded random playouts, and negamax-style backpropagation.
type MCTS struct {
	arena *Arena
	rng   *rand.Rand

	ucbConst      float64
	rolloutBudget int
	policy        ExpandPolicy

	pos     *board.Position
	info    *SearchInfo
	evalCtx eval.Context

	onInfo func(Report)
}

// NewMCTS creates a searcher with an arena of the given megabyte budget.
func NewMCTS(arenaMB int, seed int64) *MCTS {
	return &MCTS{
		arena:         NewArena(arenaMB),
		rng:           rand.New(rand.NewSource(seed)),
		ucbConst:      DefaultUCBConst,
		rolloutBudget: DefaultRolloutBudget,
		policy:        ExpandRandom,
	}
}

// SetUCBConst tunes the exploration constant.
func (m *MCTS) SetUCBConst(c float64) { m.ucbConst = c }

// SetRolloutBudget bounds the playout length in plies.
func (m *MCTS) SetRolloutBudget(plies int) { m.rolloutBudget = plies }

// SetExpandPolicy picks the expansion move-selection policy.
func (m *MCTS) SetExpandPolicy(p ExpandPolicy) { m.policy = p }

// Arena exposes the node arena, mostly for telemetry and tests.
func (m *MCTS) Arena() *Arena { return m.arena }

// newNode allocates and initializes a node for the position reached by mv.
func (m *MCTS) newNode(mv board.Move, parent int32) (int32, bool) {
	idx, ok := m.arena.Alloc()
	if !ok {
		return nullNode, false
	}
	var moves board.MoveList
	m.pos.GenerateMoves(&moves)
	n := m.arena.Node(idx)
	n.parent = parent
	n.move = mv
	n.untried = append(n.untried, moves.Slice()...)
	return idx, true
}

// ucb scores a child for selection. The +1 denominators sidestep division by
// zero for fresh nodes and bias exploration toward unvisited siblings.
func (m *MCTS) ucb(idx int32, exploration bool) float64 {
	n := m.arena.Node(idx)
	value := n.reward / float64(n.visits+1)
	if exploration {
		parent := m.arena.Node(n.parent)
		value += m.ucbConst * math.Sqrt(math.Log(float64(parent.visits))/float64(n.visits+1))
	}
	return value
}

// bestChild returns the child with the highest UCB score. Ties go to the
// earliest child, which keeps the pick deterministic per call.
func (m *MCTS) bestChild(idx int32, exploration bool) int32 {
	best := nullNode
	bestValue := math.Inf(-1)
	for _, child := range m.arena.Node(idx).children {
		if v := m.ucb(child, exploration); v > bestValue {
			bestValue = v
			best = child
		}
	}
	return best
}

// insertChild allocates a child for mv (already applied to the board),
// links it, and strikes mv from the untried list.
func (m *MCTS) insertChild(parent int32, mv board.Move) int32 {
	child, ok := m.newNode(mv, parent)
	if !ok {
		return parent
	}
	n := m.arena.Node(parent)
	for i, um := range n.untried {
		if um == mv {
			n.untried[i] = n.untried[len(n.untried)-1]
			n.untried = n.untried[:len(n.untried)-1]
			break
		}
	}
	n.children = append(n.children, child)
	return child
}

// selectNode descends from the root through fully expanded nodes, applying
// each selected move to the working board, and stops at the first node that
// still has untried moves (or is terminal).
func (m *MCTS) selectNode(root int32) int32 {
	node := root
	for {
		n := m.arena.Node(node)
		if n.terminal() || !n.fullyExpanded() {
			return node
		}
		node = m.bestChild(node, true)
		m.pos.MakeMove(m.arena.Node(node).move)
	}
}

// pickUntried chooses which untried move to expand, per the active policy.
func (m *MCTS) pickUntried(untried []board.Move) int {
	if m.policy == ExpandEvalWeighted && len(untried) > 1 {
		return m.pickEvalWeighted(untried)
	}
	return m.rng.Intn(len(untried))
}

// pickEvalWeighted weighs each candidate by how little it helps the opponent:
// after making the move the evaluation is from the opponent's point of view,
// so a low winning probability there means a strong move here. The cube
// sharpens the distribution.
func (m *MCTS) pickEvalWeighted(untried []board.Move) int {
	weights := make([]float64, len(untried))
	for i, mv := range untried {
		if !m.pos.MakeMove(mv) {
			weights[i] = 0
			continue
		}
		w := 1.0 - eval.WinningProb(eval.Evaluate(m.pos, &m.evalCtx))
		weights[i] = 100 * w * w * w
		m.pos.UndoMove()
	}
	return NewCategorical(weights).Sample(m.rng)
}

// expand grows the tree by one child of node, chosen by the expansion
// policy, and leaves the board in the child's state. When the node is
// terminal, already fully expanded, or the arena is out of space, the node
// is returned unchanged and the board stays put.
func (m *MCTS) expand(node int32) int32 {
	n := m.arena.Node(node)
	if n.terminal() || n.fullyExpanded() {
		return node
	}
	if !m.arena.HasSpace(1) {
		log.Debug().Int("nodes", m.arena.Size()).Msg("mcts arena exhausted")
		return node
	}

	// Sample moves until one applies. Illegal candidates are struck from the
	// untried list; with legal generation the first pick always lands.
	for len(n.untried) > 0 {
		i := m.pickUntried(n.untried)
		mv := n.untried[i]
		if !m.pos.MakeMove(mv) {
			n.untried[i] = n.untried[len(n.untried)-1]
			n.untried = n.untried[:len(n.untried)-1]
			continue
		}
		m.info.Nodes++
		if ply := m.pos.Ply(); ply > m.info.SelDepth {
			m.info.SelDepth = ply
		}
		return m.insertChild(node, mv)
	}
	return node
}

// simulate plays a bounded uniformly random playout from the current board
// state and scores it in [-1, +1] from the point of view of the side to move
// at entry. Terminal positions score a mate as a loss for the side that is
// mated; a stalemate is zero. Non-terminal playouts fall back on the static
// evaluation squashed to a winning probability.
func (m *MCTS) simulate() float64 {
	color := m.pos.SideToMove()

	var moves board.MoveList
	budget := m.rolloutBudget
	playedOut := false
	for {
		m.pos.GenerateMoves(&moves)
		if moves.Empty() {
			playedOut = true
			break
		}
		if budget <= 0 {
			break
		}
		m.pos.MakeMove(moves.Get(m.rng.Intn(moves.Len())))
		budget--
	}

	if playedOut {
		if m.pos.InCheck() {
			if m.pos.SideToMove() == color {
				return -1
			}
			return 1
		}
		return 0
	}

	score := eval.Evaluate(m.pos, &m.evalCtx)
	if m.pos.SideToMove() != color {
		score = -score
	}
	return 2*eval.WinningProb(score) - 1
}

// backprop walks the parent chain from node to the root, negating the reward
// before every update. The incoming reward is from the point of view of the
// side to move in node's position, so each node accumulates reward from the
// point of view of the side that moved into it.
func (m *MCTS) backprop(node int32, reward float64) {
	for cur := node; cur != nullNode; {
		n := m.arena.Node(cur)
		reward = -reward
		n.update(reward)
		cur = n.parent
	}
}

// report emits a progress line every mctsReportInterval tree nodes, scoring
// the root's greedy best child by its exploitation-only UCB mapped back to
// centipawns.
func (m *MCTS) report(root int32) {
	if m.onInfo == nil || m.info.Nodes == 0 || m.info.Nodes%mctsReportInterval != 0 {
		return
	}
	best := m.bestChild(root, false)
	if best == nullNode {
		return
	}
	ucb := m.ucb(best, false)
	m.onInfo(Report{
		Depth:    m.info.SelDepth,
		SelDepth: m.info.SelDepth,
		Score:    eval.CentipawnFromProb((ucb + 1) / 2),
		Nodes:    m.info.Nodes,
		Time:     m.info.Elapsed(),
		PV:       []board.Move{m.arena.Node(best).move},
	})
}

// Search grows the tree until stopped, then plays the root child with the
// best greedy value. The board is restored to its entry state.
func (m *MCTS) Search(pos *board.Position, info *SearchInfo) board.Move {
	m.pos, m.info = pos, info
	pos.ResetPly()
	snapshot := pos.Save()

	m.arena.Reset()
	root, ok := m.newNode(board.NoMove, nullNode)
	if !ok {
		return board.NoMove
	}

	for !info.Stopped() {
		node := m.selectNode(root)
		node = m.expand(node)
		reward := m.simulate()
		m.backprop(node, reward)
		m.report(root)
		pos.Restore(snapshot)
	}

	bestMove := board.NoMove
	if best := m.bestChild(root, false); best != nullNode {
		bestMove = m.arena.Node(best).move
	}
	log.Debug().
		Uint64("nodes", info.Nodes).
		Int32("root_visits", m.arena.Node(root).visits).
		Str("bestmove", bestMove.String()).
		Msg("mcts search done")

	m.arena.Reset()
	return bestMove
}
