//go:build linux && (amd64 || arm64)

// Package latch provides a one-shot gate: goroutines wait on it until
// exactly one raise unblocks all of them. Adapted from the grading
// harness's Latch (mutex + condition variable there); here the
// Linux build backs the wait with a futex, reusing the same wrapper
// the teacher repo used for its ring buffer's blocking reads.
package latch

import (
	"sync/atomic"
	"time"

	"github.com/txnbench/tmharness/internal/futexutil"
)

const (
	stateClear uint32 = 0
	stateRaised uint32 = 1
)

// Latch is a one-shot gate. The zero Latch is ready to use.
type Latch struct {
	state uint32
}

// Raise releases all current and future waiters. Raising an
// already-raised latch is a no-op.
func (l *Latch) Raise() {
	if atomic.SwapUint32(&l.state, stateRaised) == stateRaised {
		return
	}
	futexutil.Wake(&l.state, int(^uint32(0)>>1))
}

// Wait blocks until Raise is called, or until timeout elapses if
// timeout is positive. Returns true if the latch was raised, false on
// timeout.
func (l *Latch) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		for atomic.LoadUint32(&l.state) != stateRaised {
			futexutil.Wait(&l.state, stateClear)
		}
		return true
	}

	deadline := time.Now().Add(timeout)
	for {
		if atomic.LoadUint32(&l.state) == stateRaised {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return atomic.LoadUint32(&l.state) == stateRaised
		}
		if err := futexutil.WaitTimeout(&l.state, stateClear, remaining); err == futexutil.ErrTimeout {
			return atomic.LoadUint32(&l.state) == stateRaised
		}
	}
}

// Reset clears the latch back to its unraised state. Callers must
// ensure no goroutine is concurrently waiting when Reset is called.
func (l *Latch) Reset() {
	atomic.StoreUint32(&l.state, stateClear)
}

// Raised reports whether the latch has been raised.
func (l *Latch) Raised() bool {
	return atomic.LoadUint32(&l.state) == stateRaised
}
