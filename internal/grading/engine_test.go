package grading

import (
	"testing"
	"time"

	"github.com/txnbench/tmharness/internal/clockutil"
)

func TestEscalateSentinelBump(t *testing.T) {
	e := &Engine{params: Params{SlowFactor: 1}}
	got := e.escalate(clockutil.InvalidTick)
	want := time.Duration(clockutil.InvalidTick + 1)
	if got != want {
		t.Errorf("escalate(InvalidTick) = %v, want %v", got, want)
	}
}

func TestEscalateScalesBySlowFactor(t *testing.T) {
	e := &Engine{params: Params{SlowFactor: 8}}
	got := e.escalate(10)
	if got != 80 {
		t.Errorf("escalate(10) with SlowFactor 8 = %v, want 80", got)
	}
}

func TestEvaluateEscalatesReferenceTimeout(t *testing.T) {
	e := NewEngine(Params{NbWorkers: 3, NbRepeats: 4, SlowFactor: 8})

	ref := &fakeWorkload{}
	out, err := e.evaluate("reference.so", ref, 1)
	if err != nil {
		t.Fatalf("evaluate(reference): %v", err)
	}
	if !out.Reference {
		t.Fatalf("first evaluate() result.Reference = false, want true")
	}
	if e.ReferenceNS() == 0 {
		t.Fatalf("ReferenceNS() = 0 after reference evaluation")
	}
	if e.maxTickPerf != time.Duration(8*out.Measure.Perf) {
		t.Errorf("maxTickPerf = %v, want %v", e.maxTickPerf, time.Duration(8*out.Measure.Perf))
	}

	// A candidate so slow its performance phase alone would overrun the
	// timeout just derived from the reference must be reported as a
	// fatal overrun, proving the second call is actually bounded by it.
	slow := &blockingCandidateWorkload{delay: e.maxTickPerf + 50*time.Millisecond}
	out, err = e.evaluate("candidate.so", slow, 1)
	if err == nil {
		t.Fatalf("evaluate(candidate) = %+v, nil; want an overrun error bounded by the reference timeout", out)
	}
	if out.Reference {
		t.Errorf("second evaluate() result.Reference = true, want false")
	}
}

// blockingCandidateWorkload's Run sleeps past whatever timeout the
// caller is testing, simulating a candidate far slower than the
// reference it is being measured against.
type blockingCandidateWorkload struct {
	delay time.Duration
}

func (blockingCandidateWorkload) Init() error { return nil }

func (b blockingCandidateWorkload) Run(uid uint32, seed uint64) error {
	time.Sleep(b.delay)
	return nil
}

func (blockingCandidateWorkload) Check(uid uint32, seed uint64) error { return nil }
