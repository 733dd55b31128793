// Package phase implements the master/worker rendezvous that drives
// the grading engine's three phases (init, K repeat runs, check) in
// lock-step across all worker goroutines, timing each phase and
// reporting the first failure.
//
// Adapted from original_source/grading/grading.cpp's Sync class: a
// status word with six states (Wait/Run/Abort/Done/Fail/Quit), a ready
// counter that the last arriving worker resets while flipping the
// status, and a completion latch the master blocks on. The original's
// release/acquire/acq-rel memory orders are dropped in favor of Go's
// sequentially consistent atomics, which are at least as strong.
package phase

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/txnbench/tmharness/internal/clockutil"
	"github.com/txnbench/tmharness/internal/latch"
)

type status int32

const (
	statusWait status = iota
	statusRun
	statusAbort
	statusDone
	statusFail
	statusQuit
)

// ErrOverrun is returned by MasterWait when the phase does not
// complete within the given timeout.
var ErrOverrun = errors.New("phase: workers took too long to complete the phase")

// Sync coordinates nbWorkers goroutines through repeated
// notify/wait-for-ready/run/notify-done rounds. The zero value is not
// usable; use New.
type Sync struct {
	nbWorkers int32
	nbReady   int32
	status    int32 // status, accessed atomically
	errMsg    atomic.Value
	runtime   clockutil.Chrono
	elapsed   clockutil.Tick // phase time recorded by the last notifying worker
	done      latch.Latch
}

// New creates a Sync for nbWorkers participants, initially in the Done
// state (matching the original's idle-at-construction status).
func New(nbWorkers int) *Sync {
	s := &Sync{nbWorkers: int32(nbWorkers), status: int32(statusDone)}
	s.errMsg.Store("")
	return s
}

// MasterNotify starts a new phase: workers blocked in WorkerWait are
// released once all nbWorkers have arrived, and the phase clock starts.
func (s *Sync) MasterNotify() {
	atomic.StoreInt32(&s.status, int32(statusWait))
	s.runtime.Start()
}

// MasterJoin signals every worker to quit instead of starting another
// phase; call after the last phase so WorkerWait returns false and
// worker goroutines exit their loop.
func (s *Sync) MasterJoin() {
	atomic.StoreInt32(&s.status, int32(statusQuit))
}

// MasterWait blocks until every worker has finished the current phase,
// or until timeout elapses (non-positive means wait forever). On
// success it returns the phase's elapsed time and, if any worker
// reported an error, that error message (empty on full success). It
// returns ErrOverrun if the timeout elapses first.
func (s *Sync) MasterWait(timeout time.Duration) (clockutil.Tick, string, error) {
	if !s.done.Wait(timeout) {
		return clockutil.InvalidTick, "", ErrOverrun
	}
	s.done.Reset()

	switch status(atomic.LoadInt32(&s.status)) {
	case statusDone:
		return s.elapsed, "", nil
	case statusFail:
		msg, _ := s.errMsg.Load().(string)
		return clockutil.InvalidTick, msg, nil
	default:
		return clockutil.InvalidTick, "", errors.New("phase: master woke with unexpected status")
	}
}

// WorkerWait blocks a worker goroutine until the master calls
// MasterNotify, returning true once the phase may proceed. It returns
// false if the master called MasterJoin instead, telling the worker to
// exit its loop.
func (s *Sync) WorkerWait() bool {
	for {
		st := status(atomic.LoadInt32(&s.status))
		if st == statusQuit {
			return false
		}
		if st == statusWait {
			break
		}
		runtime.Gosched()
	}

	if atomic.AddInt32(&s.nbReady, 1) == s.nbWorkers {
		atomic.StoreInt32(&s.nbReady, 0)
		atomic.StoreInt32(&s.status, int32(statusRun))
		return true
	}
	for {
		st := status(atomic.LoadInt32(&s.status))
		if st == statusRun || st == statusAbort {
			return true
		}
		runtime.Gosched()
	}
}

// WorkerNotify reports the completion of a worker's share of the
// current phase. errMsg should be empty on success; a nonempty message
// moves the phase to Abort/Fail and is surfaced to MasterWait. The last
// worker to call WorkerNotify stops the phase clock and releases the
// master.
func (s *Sync) WorkerNotify(errMsg string) {
	if errMsg != "" {
		s.errMsg.Store(errMsg)
		atomic.StoreInt32(&s.status, int32(statusAbort))
	}
	if atomic.AddInt32(&s.nbReady, 1) == s.nbWorkers {
		atomic.StoreInt32(&s.nbReady, 0)
		final := statusDone
		if status(atomic.LoadInt32(&s.status)) == statusAbort {
			final = statusFail
		}
		atomic.StoreInt32(&s.status, int32(final))
		s.elapsed = s.runtime.Stop()
		s.done.Raise()
	}
}
