// lishex-uci is the UCI front-end of the engine.
package main

import (
	"flag"
	"os"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vladi-petroff/lishex-mcts/internal/engine"
	"github.com/vladi-petroff/lishex-mcts/internal/storage"
	"github.com/vladi-petroff/lishex-mcts/internal/uci"
)

var (
	cpuprofile = flag.Bool("cpuprofile", false, "write a cpu profile to the working directory")
	debug      = flag.Bool("debug", false, "enable debug logging")
	noPersist  = flag.Bool("no-persist", false, "do not load or save options")
)

func main() {
	flag.Parse()

	// Protocol output owns stdout; logs go to stderr.
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	var store *storage.Storage
	if !*noPersist {
		var err error
		store, err = storage.Open()
		if err != nil {
			log.Warn().Err(err).Msg("options will not persist")
			store = nil
		}
	}

	eng := engine.New(engine.DefaultOptions())

	protocol := uci.New(eng, store, os.Stdout)
	protocol.Run(os.Stdin)
}
