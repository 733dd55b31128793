// Command tmharness grades one or more compiled transactional memory
// plugins against a reference implementation, running the same bank
// account workload against each and reporting correctness and
// relative performance.
//
// Adapted from original_source/grading/grading.cpp's main(): parameter
// computation, per-artifact evaluation order, and exit code convention
// are unchanged.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/txnbench/tmharness/internal/bounded"
	"github.com/txnbench/tmharness/internal/clockutil"
	"github.com/txnbench/tmharness/internal/grading"
)

// maxSideTime bounds a candidate library's tm_create/tm_destroy calls,
// independent of the per-phase timeouts derived from the reference's
// own measured performance.
const maxSideTime = 2 * time.Second

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 3 {
		prog := "tmharness"
		if len(args) > 0 {
			prog = args[0]
		}
		fmt.Printf("Usage: %s <seed> <reference library path> <tested library path>...\n", prog)
		return 1
	}

	seed, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Printf("Usage: %s <seed> <reference library path> <tested library path>...\n", args[0])
		return 1
	}

	nbWorkers := runtime.GOMAXPROCS(0)
	if nbWorkers <= 0 {
		nbWorkers = 16
	}
	const (
		totalTx     = 200000
		initBalance = 100
		probLong    = 0.5
		probAlloc   = 0.01
		nbRepeats   = 7
		slowFactor  = 8
	)
	nbTxPerWrk := totalTx / nbWorkers
	nbAccounts := 32 * nbWorkers
	expNbAccounts := 256 * nbWorkers

	fmt.Printf("# worker threads:     %d\n", nbWorkers)
	fmt.Printf("# TX per worker:      %d\n", nbTxPerWrk)
	fmt.Printf("# repetitions:        %d\n", nbRepeats)
	fmt.Printf("Initial # accounts:   %d\n", nbAccounts)
	fmt.Printf("Expected # accounts:  %d\n", expNbAccounts)
	fmt.Printf("Initial balance:      %d\n", initBalance)
	fmt.Printf("Long TX probability:  %v\n", probLong)
	fmt.Printf("Allocation TX prob.:  %v\n", probAlloc)
	fmt.Printf("Slow trigger factor:  %d\n", slowFactor)
	fmt.Printf("Clock resolution:     %v\n", clockutil.Resolution())
	fmt.Printf("Seed value:           %d\n", seed)

	params := grading.Params{
		NbWorkers:     nbWorkers,
		NbTxPerWrk:    nbTxPerWrk,
		NbAccounts:    nbAccounts,
		ExpNbAccounts: expNbAccounts,
		InitBalance:   initBalance,
		ProbLong:      probLong,
		ProbAlloc:     probAlloc,
		NbRepeats:     nbRepeats,
		SlowFactor:    slowFactor,
		SideTimeout:   maxSideTime,
	}
	engine := grading.NewEngine(params)

	pertxdiv := float64(nbWorkers) * float64(nbTxPerWrk)
	for _, path := range args[2:] {
		reference := engine.ReferenceNS() == 0
		tag := ""
		if reference {
			tag = " (reference)"
		}
		fmt.Printf("Evaluating '%s'%s...\n", path, tag)

		result, err := engine.Evaluate(path, seed)
		if errors.Is(err, grading.ErrFatal) || errors.Is(err, bounded.ErrOverrun) {
			fmt.Fprintln(os.Stderr, "*** EXCEPTION ***")
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "*** EXCEPTION ***")
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		if result.Measure.Error != "" {
			fmt.Println(result.Measure.Error)
			return 1
		}

		perf := float64(result.Measure.Perf)
		fmt.Printf("Total user execution time: %v ms", perf/1e6)
		if !result.Reference {
			fmt.Printf(" -> %.3fx speedup", engine.ReferenceNS()/perf)
		}
		fmt.Println()
		fmt.Printf("Average TX execution time: %v ns (mean %.1f, stddev %.1f over %d repeats)\n",
			perf/pertxdiv, result.MeanNS/pertxdiv, result.StdDevNS/pertxdiv, len(result.Measure.Times))
		fmt.Printf("Run id:               %s\n", result.CorrelationID)
	}
	return 0
}
