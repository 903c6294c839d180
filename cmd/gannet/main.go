package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"gannet/internal/engine"
	"gannet/internal/uci"
)

var (
	nnueFile   = flag.String("nnue", "", "NNUE network file to load at startup")
	bookFile   = flag.String("book", "", "opening book: a Polyglot file or a store directory")
	hashMB     = flag.Int("hash", 0, "transposition table size in MB")
	threads    = flag.Int("threads", 0, "number of search threads")
	benchDepth = flag.Int("bench", 0, "run the benchmark to this depth and exit")
	cpuprofile = flag.String("cpuprofile", "", "write a CPU profile to this file")
)

func main() {
	log.SetPrefix("gannet: ")
	log.SetFlags(0)
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("create profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("start profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	eng := engine.NewEngine()
	defer eng.Close()

	setOption := func(name, value string) {
		if err := eng.SetOption(name, value); err != nil {
			log.Printf("%v", err)
		}
	}
	if *hashMB > 0 {
		setOption("Hash", fmt.Sprint(*hashMB))
	}
	if *threads > 0 {
		setOption("Threads", fmt.Sprint(*threads))
	}
	if *nnueFile != "" {
		setOption("EvalFile", *nnueFile)
	}
	if *bookFile != "" {
		setOption("BookFile", *bookFile)
		setOption("OwnBook", "true")
	}

	if *benchDepth > 0 {
		nodes, elapsed := eng.Bench(*benchDepth)
		fmt.Printf("nodes %d\ntime %d\nnps %d\n",
			nodes, elapsed.Milliseconds(),
			int64(float64(nodes)/elapsed.Seconds()))
		return
	}

	uci.New(eng, os.Stdout).Run(os.Stdin)
}
