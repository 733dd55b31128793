package grading

import (
	"fmt"
	"time"

	"github.com/aclements/go-moremath/stats"
	"github.com/google/uuid"

	"github.com/txnbench/tmharness/internal/bank"
	"github.com/txnbench/tmharness/internal/clockutil"
	"github.com/txnbench/tmharness/internal/loader"
)

// Params holds the bank workload's tuning knobs, shared across every
// artifact evaluated in one run.
type Params struct {
	NbWorkers     int
	NbTxPerWrk    int
	NbAccounts    int
	ExpNbAccounts int
	InitBalance   bank.Balance
	ProbLong      float64
	ProbAlloc     float64
	NbRepeats     int
	SlowFactor    uint64
	SideTimeout   time.Duration
}

// ArtifactResult is one candidate (or the reference itself) evaluated
// by Engine.Evaluate.
type ArtifactResult struct {
	Path          string
	CorrelationID uuid.UUID
	Reference     bool
	Measure       Result

	// Diagnostic statistics over Measure.Times, beyond the median the
	// original reports; zero if fewer than two repeats were run.
	MeanNS   float64
	StdDevNS float64
}

// Engine evaluates one or more compiled transactional memory libraries
// against the bank workload, using the first artifact's performance as
// the reference against which every later artifact's timeout and
// speedup are computed.
type Engine struct {
	params Params

	haveReference bool
	maxTickInit   time.Duration
	maxTickPerf   time.Duration
	maxTickChck   time.Duration
	referenceNS   float64
}

// NewEngine creates an Engine bound to the given workload parameters.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Evaluate loads the library at path, runs it through the bank
// workload, and records its timing. The first call establishes the
// reference timeouts (params.SlowFactor times its own measured ticks)
// that bound every subsequent call; the error returned by Measure for
// an overrun phase is passed through unwrapped so the caller can
// distinguish a fatal timeout (no further artifacts should run; the
// original quick_exits here since worker goroutines may still be
// running) from a correctness failure (safe to continue).
func (e *Engine) Evaluate(path string, seed uint64) (ArtifactResult, error) {
	lib, err := loader.Load(path)
	if err != nil {
		return ArtifactResult{}, fmt.Errorf("grading: loading %s: %w", path, err)
	}

	w, err := bank.New(lib, e.params.NbWorkers, e.params.NbTxPerWrk, e.params.NbAccounts,
		e.params.ExpNbAccounts, e.params.InitBalance, e.params.ProbLong, e.params.ProbAlloc,
		e.params.SideTimeout)
	if err != nil {
		return ArtifactResult{}, fmt.Errorf("grading: building workload for %s: %w", path, err)
	}
	defer w.Close()

	return e.evaluate(path, w, seed)
}

// evaluate holds Evaluate's escalation and statistics logic, factored
// out so it can be driven directly against a Workload in tests without
// needing a compiled plugin.
func (e *Engine) evaluate(path string, w Workload, seed uint64) (ArtifactResult, error) {
	isReference := !e.haveReference
	res, err := Measure(w, e.params.NbWorkers, e.params.NbRepeats, seed, e.maxTickInit, e.maxTickPerf, e.maxTickChck)
	if err != nil {
		return ArtifactResult{Path: path, Reference: isReference}, err
	}

	out := ArtifactResult{
		Path:          path,
		CorrelationID: uuid.New(),
		Reference:     isReference,
		Measure:       res,
	}
	if len(res.Times) >= 2 {
		ns := make([]float64, len(res.Times))
		for i, t := range res.Times {
			ns[i] = float64(t)
		}
		out.MeanNS = stats.Mean(ns)
		out.StdDevNS = stats.StdDev(ns)
	}

	if isReference {
		e.haveReference = true
		e.maxTickInit = e.escalate(res.Init)
		e.maxTickPerf = e.escalate(res.Perf)
		e.maxTickChck = e.escalate(res.Check)
		e.referenceNS = float64(res.Perf)
	}
	return out, nil
}

// ReferenceNS returns the reference artifact's median performance tick
// in nanoseconds, for computing a candidate's speedup. Zero until the
// first Evaluate call completes.
func (e *Engine) ReferenceNS() float64 { return e.referenceNS }

// escalate derives a candidate timeout from one of the reference's
// measured ticks, scaled by the configured slow factor and bumped by
// one tick in the unlikely event the multiplication lands exactly on
// the invalid-tick sentinel.
func (e *Engine) escalate(reference clockutil.Tick) time.Duration {
	scaled := clockutil.Tick(e.params.SlowFactor) * reference
	if scaled == clockutil.InvalidTick {
		scaled++
	}
	return time.Duration(scaled)
}
