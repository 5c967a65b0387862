package engine

import (
	"time"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
	"github.com/vladi-petroff/lishex-mcts/internal/eval"
)

// Mode selects which of the two searchers answers a "go".
type Mode int

const (
	ModeAlphaBeta Mode = iota
	ModeMCTS
)

// ParseMode maps an option string to a search mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "alphabeta":
		return ModeAlphaBeta, true
	case "mcts":
		return ModeMCTS, true
	}
	return ModeAlphaBeta, false
}

func (m Mode) String() string {
	if m == ModeMCTS {
		return "mcts"
	}
	return "alphabeta"
}

// Limits constrains one search.
type Limits struct {
	Depth    int           // maximum depth (0 = no limit)
	MoveTime time.Duration // budget for this move (0 = no limit)
	Infinite bool          // search until stopped
}

// Options configures the engine across searches.
type Options struct {
	Mode          Mode
	UCBConst      float64
	RolloutBudget int
	ExpandPolicy  ExpandPolicy
	ArenaMB       int
}

// DefaultOptions returns the engine's defaults.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeAlphaBeta,
		UCBConst:      DefaultUCBConst,
		RolloutBudget: DefaultRolloutBudget,
		ExpandPolicy:  ExpandRandom,
		ArenaMB:       DefaultArenaMB,
	}
}

// Engine owns the two searchers and dispatches searches to the active one.
// A search runs synchronously on the calling goroutine; Stop may be called
// from any other goroutine.
type Engine struct {
	searcher *Searcher
	mcts     *MCTS
	info     SearchInfo
	opts     Options

	// OnInfo, when set, receives one Report per completed alpha-beta
	// iteration and periodic MCTS progress reports.
	OnInfo func(Report)
}

// New creates an engine with the given options.
func New(opts Options) *Engine {
	if opts.ArenaMB <= 0 {
		opts.ArenaMB = DefaultArenaMB
	}
	e := &Engine{
		searcher: NewSearcher(),
		mcts:     NewMCTS(opts.ArenaMB, time.Now().UnixNano()),
	}
	e.applyOptions(opts)
	return e
}

func (e *Engine) applyOptions(opts Options) {
	e.opts = opts
	// C = 0 is meaningful: it recovers greedy selection.
	e.mcts.SetUCBConst(opts.UCBConst)
	if opts.RolloutBudget > 0 {
		e.mcts.SetRolloutBudget(opts.RolloutBudget)
	}
	e.mcts.SetExpandPolicy(opts.ExpandPolicy)
}

// SetOptions reconfigures the engine. A changed arena budget reallocates the
// MCTS arena; never call this during a search.
func (e *Engine) SetOptions(opts Options) {
	if opts.ArenaMB > 0 && opts.ArenaMB != e.opts.ArenaMB {
		e.mcts = NewMCTS(opts.ArenaMB, time.Now().UnixNano())
	}
	e.applyOptions(opts)
}

// Options returns the active configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Info exposes the search info record for state and counter reads.
func (e *Engine) Info() *SearchInfo {
	return &e.info
}

// Nodes returns the node count of the current or last search.
func (e *Engine) Nodes() uint64 {
	return e.info.Nodes
}

// Stop requests cooperative termination of a running search.
func (e *Engine) Stop() {
	e.info.RequestStop()
}

// Search finds the best move in pos under the given limits using the active
// search mode. It always returns a legal move when one exists: if the search
// is stopped before any iteration completes, the first legal move stands in.
func (e *Engine) Search(pos *board.Position, limits Limits) board.Move {
	// MCTS terminates on time or an explicit stop, never on depth; give a
	// depth-only request a concrete budget so it cannot spin forever.
	if e.opts.Mode == ModeMCTS && !limits.Infinite && limits.MoveTime == 0 {
		limits.MoveTime = 5 * time.Second
	}

	e.info.Reset(limits)

	e.searcher.onInfo = e.OnInfo
	e.mcts.onInfo = e.OnInfo

	var best board.Move
	switch e.opts.Mode {
	case ModeMCTS:
		best = e.mcts.Search(pos, &e.info)
	default:
		best = e.searcher.Search(pos, &e.info)
	}

	if best == board.NoMove {
		var moves board.MoveList
		pos.GenerateMoves(&moves)
		if !moves.Empty() {
			best = moves.Get(0)
		}
	}

	e.info.SetState(Stopped)
	return best
}

// Evaluate returns the static evaluation of pos, side-to-move POV, along
// with the evaluation context for debug printing.
func (e *Engine) Evaluate(pos *board.Position) (int, eval.Context) {
	var ctx eval.Context
	score := eval.Evaluate(pos, &ctx)
	return score, ctx
}

// PV returns the alpha-beta principal variation of the last search.
func (e *Engine) PV() *PVTable {
	return e.searcher.PV()
}
