// Package uci implements the Universal Chess Interface protocol on top of
// the engine package. One UCI instance owns the engine, the current
// position, the persisted options, and the optional telemetry hub.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vladi-petroff/lishex-mcts/internal/board"
	"github.com/vladi-petroff/lishex-mcts/internal/engine"
	"github.com/vladi-petroff/lishex-mcts/internal/storage"
	"github.com/vladi-petroff/lishex-mcts/internal/telemetry"
)

// UCI is the protocol handler.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	out      io.Writer

	// Game state fed to the searchers.
	positionHashes []uint64
	gamePly        int

	// Persisted settings; store may be nil when persistence is unavailable.
	store *storage.Storage
	opts  *storage.Options

	hub *telemetry.Hub

	searching  bool
	searchDone chan struct{}
}

// New creates a UCI handler writing protocol output to out. store may be
// nil; persisted options then default and are not saved.
func New(eng *engine.Engine, store *storage.Storage, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		position: board.NewPosition(),
		out:      out,
		store:    store,
		opts:     optionRecord(eng.Options()),
	}
	if store != nil {
		if opts, err := store.LoadOptions(); err == nil {
			u.opts = opts
		} else {
			log.Warn().Err(err).Msg("loading persisted options")
		}
	}
	u.applyOptions()
	return u
}

// optionRecord mirrors the engine's live configuration into the persisted
// option shape, so an engine constructed with explicit options keeps them
// when nothing was persisted.
func optionRecord(opts engine.Options) *storage.Options {
	policy := "random"
	if opts.ExpandPolicy == engine.ExpandEvalWeighted {
		policy = "eval"
	}
	return &storage.Options{
		SearchMode:    opts.Mode.String(),
		UCBConst:      opts.UCBConst,
		RolloutBudget: opts.RolloutBudget,
		ExpandPolicy:  policy,
		ArenaMB:       opts.ArenaMB,
	}
}

// Run reads commands from in until EOF or "quit".
func (u *UCI) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Fprintln(u.out, "readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "setoption":
			u.handleSetOption(args)
		case "bench":
			u.handleBench(args)
		case "quit":
			u.handleStop()
			u.shutdown()
			return
		// Debug commands.
		case "d":
			fmt.Fprintln(u.out, u.position.FEN())
		case "eval":
			u.handleEval()
		default:
			log.Debug().Str("cmd", cmd).Msg("unknown command")
		}
	}

	u.handleStop()
	u.shutdown()
}

func (u *UCI) shutdown() {
	if u.hub != nil {
		u.hub.Close()
	}
	if u.store != nil {
		u.store.Close()
	}
}

func (u *UCI) handleUCI() {
	fmt.Fprintln(u.out, "id name lishex-mcts")
	fmt.Fprintln(u.out, "id author vladi-petroff")
	fmt.Fprintln(u.out)
	fmt.Fprintf(u.out, "option name SearchMode type combo default %s var alphabeta var mcts\n", u.opts.SearchMode)
	fmt.Fprintf(u.out, "option name UCBConst type string default %g\n", u.opts.UCBConst)
	fmt.Fprintf(u.out, "option name RolloutBudget type spin default %d min 1 max 64\n", u.opts.RolloutBudget)
	fmt.Fprintf(u.out, "option name ExpandPolicy type combo default %s var random var eval\n", u.opts.ExpandPolicy)
	fmt.Fprintf(u.out, "option name ArenaMB type spin default %d min 16 max 16384\n", u.opts.ArenaMB)
	fmt.Fprintf(u.out, "option name Telemetry type string default %s\n", orEmpty(u.opts.Telemetry))
	fmt.Fprintln(u.out, "uciok")
}

func orEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return s
}

func (u *UCI) handleNewGame() {
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash()}
	u.gamePly = 0
}

// handlePosition parses "position startpos|fen <fen> [moves m1 m2 ...]".
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesIdx := -1
	for i, arg := range args {
		if arg == "moves" {
			movesIdx = i
			break
		}
	}
	fenEnd := len(args)
	moveStart := len(args)
	if movesIdx >= 0 {
		fenEnd = movesIdx
		moveStart = movesIdx + 1
	}

	var pos *board.Position
	var err error
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		pos, err = board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			fmt.Fprintf(u.out, "info string invalid fen: %v\n", err)
			return
		}
	default:
		return
	}

	u.position = pos
	u.positionHashes = []uint64{pos.Hash()}
	u.gamePly = 0

	for i := moveStart; i < len(args); i++ {
		m := u.parseMove(args[i])
		if m == board.NoMove {
			fmt.Fprintf(u.out, "info string invalid move: %s\n", args[i])
			return
		}
		u.position.MakeMove(m)
		u.positionHashes = append(u.positionHashes, u.position.Hash())
		u.gamePly++
	}

	u.position.SetHashHistory(u.positionHashes)
	u.position.ResetPly()
}

// parseMove matches a UCI move string against the legal moves.
func (u *UCI) parseMove(s string) board.Move {
	var moves board.MoveList
	u.position.GenerateMoves(&moves)
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.String() == s {
			return m
		}
	}
	return board.NoMove
}

// goOptions holds the parsed "go" arguments.
type goOptions struct {
	depth     int
	moveTime  time.Duration
	infinite  bool
	wtime     time.Duration
	btime     time.Duration
	winc      time.Duration
	binc      time.Duration
	movesToGo int
}

func parseGoOptions(args []string) goOptions {
	var opts goOptions

	ms := func(i int) time.Duration {
		n, _ := strconv.Atoi(args[i])
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				opts.moveTime = ms(i + 1)
				i++
			}
		case "infinite":
			opts.infinite = true
		case "wtime":
			if i+1 < len(args) {
				opts.wtime = ms(i + 1)
				i++
			}
		case "btime":
			if i+1 < len(args) {
				opts.btime = ms(i + 1)
				i++
			}
		case "winc":
			if i+1 < len(args) {
				opts.winc = ms(i + 1)
				i++
			}
		case "binc":
			if i+1 < len(args) {
				opts.binc = ms(i + 1)
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.movesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}
	return opts
}

func (u *UCI) limitsFrom(opts goOptions) engine.Limits {
	limits := engine.Limits{Depth: opts.depth, Infinite: opts.infinite}
	if opts.infinite {
		return limits
	}

	if opts.moveTime > 0 {
		limits.MoveTime = opts.moveTime
		return limits
	}

	clock := engine.Clock{MovesToGo: opts.movesToGo}
	if u.position.SideToMove() == board.White {
		clock.Remaining, clock.Increment = opts.wtime, opts.winc
	} else {
		clock.Remaining, clock.Increment = opts.btime, opts.binc
	}
	if clock.Remaining > 0 {
		limits.MoveTime = engine.AllocateTime(clock, u.gamePly)
	}
	return limits
}

func (u *UCI) handleGo(args []string) {
	if u.searching {
		return
	}

	limits := u.limitsFrom(parseGoOptions(args))

	u.engine.OnInfo = u.sendInfo

	u.searching = true
	u.searchDone = make(chan struct{})

	go func() {
		defer close(u.searchDone)
		best := u.engine.Search(u.position, limits)

		if best == board.NoMove {
			fmt.Fprintln(u.out, "bestmove 0000")
		} else {
			fmt.Fprintf(u.out, "bestmove %s\n", best.String())
		}
		u.searching = false
	}()
}

func (u *UCI) handleStop() {
	if u.searching {
		u.engine.Stop()
		<-u.searchDone
	}
}

// sendInfo renders one engine report as a UCI info line and forwards it to
// the telemetry hub when one is running.
func (u *UCI) sendInfo(r engine.Report) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", r.Depth))
	if r.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", r.SelDepth))
	}

	mate := 0
	if engine.IsMateScore(r.Score) {
		mate = engine.MateIn(r.Score)
		parts = append(parts, fmt.Sprintf("score mate %d", mate))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", r.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", r.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", r.Time.Milliseconds()))

	if secs := r.Time.Seconds(); secs > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(r.Nodes)/secs)))
	}

	if len(r.PV) > 0 {
		pv := make([]string, len(r.PV))
		for i, m := range r.PV {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	fmt.Fprintf(u.out, "info %s\n", strings.Join(parts, " "))

	if u.hub != nil {
		pv := make([]string, len(r.PV))
		for i, m := range r.PV {
			pv[i] = m.String()
		}
		u.hub.Publish(telemetry.InfoPayload{
			Depth:    r.Depth,
			SelDepth: r.SelDepth,
			Score:    r.Score,
			Mate:     mate,
			Nodes:    r.Nodes,
			TimeMs:   r.Time.Milliseconds(),
			PV:       pv,
		})
	}
}

func (u *UCI) handleSetOption(args []string) {
	name, value := parseNameValue(args)

	switch strings.ToLower(name) {
	case "searchmode":
		if _, ok := engine.ParseMode(value); !ok {
			fmt.Fprintf(u.out, "info string unknown search mode %q\n", value)
			return
		}
		u.opts.SearchMode = value
	case "ucbconst":
		c, err := strconv.ParseFloat(value, 64)
		if err != nil || c < 0 {
			fmt.Fprintf(u.out, "info string bad UCBConst %q\n", value)
			return
		}
		u.opts.UCBConst = c
	case "rolloutbudget":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			fmt.Fprintf(u.out, "info string bad RolloutBudget %q\n", value)
			return
		}
		u.opts.RolloutBudget = n
	case "expandpolicy":
		if value != "random" && value != "eval" {
			fmt.Fprintf(u.out, "info string unknown expand policy %q\n", value)
			return
		}
		u.opts.ExpandPolicy = value
	case "arenamb":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			fmt.Fprintf(u.out, "info string bad ArenaMB %q\n", value)
			return
		}
		u.opts.ArenaMB = n
	case "telemetry":
		if value == "<empty>" {
			value = ""
		}
		u.opts.Telemetry = value
	default:
		return
	}

	u.applyOptions()
	if u.store != nil {
		if err := u.store.SaveOptions(u.opts); err != nil {
			log.Warn().Err(err).Msg("persisting options")
		}
	}
}

// applyOptions pushes the persisted option record into the engine and the
// telemetry hub.
func (u *UCI) applyOptions() {
	mode, _ := engine.ParseMode(u.opts.SearchMode)
	policy := engine.ExpandRandom
	if u.opts.ExpandPolicy == "eval" {
		policy = engine.ExpandEvalWeighted
	}
	u.engine.SetOptions(engine.Options{
		Mode:          mode,
		UCBConst:      u.opts.UCBConst,
		RolloutBudget: u.opts.RolloutBudget,
		ExpandPolicy:  policy,
		ArenaMB:       u.opts.ArenaMB,
	})

	if u.opts.Telemetry != "" && u.hub == nil {
		u.hub = telemetry.NewHub()
		u.hub.Serve(u.opts.Telemetry)
	}
}

// parseNameValue splits "name <name...> value <value...>".
func parseNameValue(args []string) (name, value string) {
	var names, values []string
	target := &names
	for _, arg := range args {
		switch arg {
		case "name":
			target = &names
		case "value":
			target = &values
		default:
			*target = append(*target, arg)
		}
	}
	return strings.Join(names, " "), strings.Join(values, " ")
}

func (u *UCI) handleEval() {
	score, ctx := u.engine.Evaluate(u.position)
	fmt.Fprintf(u.out, "info string phase %d mg %d eg %d tapered %d stm %d\n",
		ctx.Phase, ctx.Middlegame, ctx.Endgame, ctx.Score, score)
}

// benchPositions is the standard mixed suite many engines report bench
// node counts over.
var benchPositions = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"r3k2r/1bp1qpb1/p1np1np1/4p2p/2P1P3/1PN2N1P/PB1PQPB1/R3K2R w KQkq - 0 1",
	"2kr3r/pbpn1pq1/1p2pn1p/3p2p1/2PP4/P1N1P1P1/1PQ1NPBP/R4RK1 w - - 0 1",
}

const defaultBenchDepth = 6

// handleBench searches the suite at a fixed depth with the alpha-beta
// searcher and prints the total node count. The totals are recorded so runs
// can be compared across engine versions.
func (u *UCI) handleBench(args []string) {
	depth := defaultBenchDepth
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	// Bench always measures the deterministic searcher.
	saved := u.engine.Options()
	opts := saved
	opts.Mode = engine.ModeAlphaBeta
	u.engine.SetOptions(opts)
	defer u.engine.SetOptions(saved)

	onInfo := u.engine.OnInfo
	u.engine.OnInfo = nil
	defer func() { u.engine.OnInfo = onInfo }()

	start := time.Now()
	var totalNodes uint64

	for _, fen := range benchPositions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			log.Error().Err(err).Str("fen", fen).Msg("bench position")
			continue
		}
		u.engine.Search(pos, engine.Limits{Depth: depth})
		totalNodes += u.engine.Nodes()
	}

	elapsed := time.Since(start)
	fmt.Fprintf(u.out, "info string bench depth %d time %d\n", depth, elapsed.Milliseconds())
	fmt.Fprintf(u.out, "%d\n", totalNodes)

	if u.store != nil {
		err := u.store.RecordBench(storage.BenchRecord{
			When:    start,
			Depth:   depth,
			Nodes:   totalNodes,
			Elapsed: elapsed,
		})
		if err != nil {
			log.Warn().Err(err).Msg("recording bench run")
		}
	}
}
