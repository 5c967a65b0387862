package uci

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vladi-petroff/lishex-mcts/internal/engine"
)

func testEngine() *engine.Engine {
	opts := engine.DefaultOptions()
	opts.ArenaMB = 16
	return engine.New(opts)
}

func runScript(t *testing.T, script string) string {
	t.Helper()
	var buf bytes.Buffer
	u := New(testEngine(), nil, &buf)
	u.Run(strings.NewReader(script))
	return buf.String()
}

func TestHandshake(t *testing.T) {
	out := runScript(t, "uci\nisready\nquit\n")

	for _, want := range []string{"id name lishex-mcts", "option name SearchMode", "uciok", "readyok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// goAndWait runs a position and a "go", waiting for the search goroutine so
// the output buffer is complete and quiescent.
func goAndWait(t *testing.T, position, goArgs string) string {
	t.Helper()
	var buf bytes.Buffer
	u := New(testEngine(), nil, &buf)
	u.handlePosition(strings.Fields(position))
	u.handleGo(strings.Fields(goArgs))
	<-u.searchDone
	return buf.String()
}

func TestGoProducesBestmove(t *testing.T) {
	out := goAndWait(t, "startpos moves e2e4 e7e5", "depth 3")

	if !strings.Contains(out, "bestmove ") {
		t.Fatalf("no bestmove in output:\n%s", out)
	}
	if !strings.Contains(out, "info depth 1") {
		t.Errorf("no depth-1 info line:\n%s", out)
	}
}

func TestMateReporting(t *testing.T) {
	out := goAndWait(t, "fen 7k/8/6K1/8/8/8/8/5R2 w - - 0 1", "depth 3")

	if !strings.Contains(out, "score mate 1") {
		t.Errorf("mate in 1 not reported:\n%s", out)
	}
	if !strings.Contains(out, "bestmove f1f8") {
		t.Errorf("mating move not chosen:\n%s", out)
	}
}

func TestInvalidInputRejected(t *testing.T) {
	out := runScript(t, "position fen not-a-fen\nposition startpos moves e2e5\nquit\n")

	if !strings.Contains(out, "invalid fen") {
		t.Errorf("bad fen not reported:\n%s", out)
	}
	if !strings.Contains(out, "invalid move: e2e5") {
		t.Errorf("bad move not reported:\n%s", out)
	}
}

func TestSetOptionSwitchesMode(t *testing.T) {
	var buf bytes.Buffer
	u := New(testEngine(), nil, &buf)

	u.handleSetOption(strings.Fields("name SearchMode value mcts"))
	if u.engine.Options().Mode != engine.ModeMCTS {
		t.Error("SearchMode option did not switch the engine mode")
	}

	u.handleSetOption(strings.Fields("name UCBConst value 0.7"))
	if u.opts.UCBConst != 0.7 {
		t.Errorf("UCBConst = %f, want 0.7", u.opts.UCBConst)
	}

	u.handleSetOption(strings.Fields("name SearchMode value bogus"))
	if u.opts.SearchMode != "mcts" {
		t.Error("invalid mode overwrote the stored option")
	}
}

func TestParseNameValue(t *testing.T) {
	name, value := parseNameValue(strings.Fields("name Search Mode value al pha"))
	if name != "Search Mode" || value != "al pha" {
		t.Errorf("parsed %q / %q", name, value)
	}
}

func TestParseGoOptions(t *testing.T) {
	opts := parseGoOptions(strings.Fields("wtime 60000 btime 50000 winc 1000 binc 2000 movestogo 30 depth 12"))
	if opts.wtime != time.Minute || opts.btime != 50*time.Second {
		t.Errorf("times parsed wrong: %+v", opts)
	}
	if opts.winc != time.Second || opts.binc != 2*time.Second {
		t.Errorf("increments parsed wrong: %+v", opts)
	}
	if opts.movesToGo != 30 || opts.depth != 12 {
		t.Errorf("counters parsed wrong: %+v", opts)
	}

	opts = parseGoOptions(strings.Fields("infinite"))
	if !opts.infinite {
		t.Error("infinite not parsed")
	}
}

func TestBenchPrintsNodeTotal(t *testing.T) {
	out := runScript(t, "bench 1\nquit\n")

	if !strings.Contains(out, "info string bench depth 1") {
		t.Fatalf("no bench summary:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	for _, r := range last {
		if r < '0' || r > '9' {
			t.Fatalf("last line %q is not a node total", last)
		}
	}
}
