// Package bank implements the bank account workload the grading
// engine drives against each transactional memory candidate: a linked
// list of account segments in shared memory, exercised by long
// read-only audits, short read-write transfers, and account
// allocation/deallocation, plus a separate counter workload used to
// stress the check phase.
//
// Adapted from original_source/grading/workload.hpp's Workload and
// WorkloadBank classes, translated onto internal/txm's Cell/PtrCell/
// ArrayCell in place of the Shared<T> template family and
// internal/spinbar.Barrier in place of the original's own Barrier.
package bank

import (
	"errors"
	"math/rand"
	"time"
	"unsafe"

	"github.com/txnbench/tmharness/internal/abi"
	"github.com/txnbench/tmharness/internal/spinbar"
	"github.com/txnbench/tmharness/internal/txm"
)

// Errors reported by Init, Run, and Check, mirroring the distinct
// diagnostic strings the original workload returns for each failure
// site.
var (
	ErrInitConsistency  = errors.New("bank: violated consistency (check that committed writes in shared memory become visible to the following transactions' reads)")
	ErrIsolation        = errors.New("bank: violated isolation or atomicity")
	ErrCheckInit        = errors.New("bank: violated consistency")
	ErrCheckConsistency = errors.New("bank: violated consistency, isolation or atomicity")
	ErrCheckFinal       = errors.New("bank: violated consistency")
)

// Uid is a worker's position among its peers, from 0 to n-1.
type Uid = uint32

// Seed drives one worker's private pseudo-random stream.
type Seed = uint64

// Bank is the bank account workload: nbWorkers concurrent goroutines
// transact against a region of linked account segments.
type Bank struct {
	region *txm.Region

	nbWorkers     uintptr
	nbTxPerWrk    uintptr
	nbAccounts    uintptr
	expNbAccounts uintptr
	initBalance   Balance
	probLong      float64
	probAlloc     float64

	barrier *spinbar.Barrier
}

// New constructs a Bank workload over a freshly created shared memory
// region sized for nbAccounts accounts.
func New(lib abi.Library, nbWorkers, nbTxPerWrk, nbAccounts, expNbAccounts int, initBalance Balance, probLong, probAlloc float64, sideTimeout time.Duration) (*Bank, error) {
	region, err := txm.NewRegion(lib, segmentAlign(), segmentSize(uintptr(nbAccounts)), sideTimeout)
	if err != nil {
		return nil, err
	}
	return &Bank{
		region:        region,
		nbWorkers:     uintptr(nbWorkers),
		nbTxPerWrk:    uintptr(nbTxPerWrk),
		nbAccounts:    uintptr(nbAccounts),
		expNbAccounts: uintptr(expNbAccounts),
		initBalance:   initBalance,
		probLong:      probLong,
		probAlloc:     probAlloc,
		barrier:       spinbar.New(nbWorkers),
	}, nil
}

// Close tears down the workload's region.
func (b *Bank) Close() error {
	return b.region.Close()
}

// longTx sums every account's balance and compares it against the
// expected total, read-only so it observes the whole list atomically.
// It also reports back the number of accounts it walked, used by Run
// to re-derive the live account count for the uniform index pick.
func (b *Bank) longTx(count *uintptr) (bool, error) {
	return txm.Retry(b.region, txm.ReadOnly, func(tx *txm.Transaction) (bool, error) {
		var n uintptr
		sum := Balance(0)
		start := b.region.Start()
		for start != nil {
			seg, err := bindSegment(tx, start)
			if err != nil {
				return false, err
			}
			segCount, err := seg.count.Read()
			if err != nil {
				return false, err
			}
			n += uintptr(segCount)
			parity, err := seg.parity.Read()
			if err != nil {
				return false, err
			}
			sum += parity
			for i := uintptr(0); i < uintptr(segCount); i++ {
				local, err := seg.accounts.Read(i)
				if err != nil {
					return false, err
				}
				if local < 0 {
					return false, nil
				}
				sum += local
			}
			next, err := seg.next.Read()
			if err != nil {
				return false, err
			}
			start = next
		}
		*count = n
		return sum == b.initBalance*Balance(n), nil
	})
}

// allocTx adds an account with the configured initial balance, or
// removes one, depending on whether the live account count is above
// or below trigger.
func (b *Bank) allocTx(trigger uintptr) error {
	_, err := txm.Retry(b.region, txm.ReadWrite, func(tx *txm.Transaction) (struct{}, error) {
		count := uintptr(0)
		var prev unsafe.Pointer
		start := b.region.Start()
		for {
			seg, err := bindSegment(tx, start)
			if err != nil {
				return struct{}{}, err
			}
			segCount, err := seg.count.Read()
			if err != nil {
				return struct{}{}, err
			}
			count += uintptr(segCount)
			segNext, err := seg.next.Read()
			if err != nil {
				return struct{}{}, err
			}

			if segNext == nil { // last segment
				if count > trigger && count > 2 { // deallocate
					segCount--
					removed, err := seg.accounts.Read(uintptr(segCount))
					if err != nil {
						return struct{}{}, err
					}
					parity, err := seg.parity.Read()
					if err != nil {
						return struct{}{}, err
					}
					newParity := parity + removed - b.initBalance
					if segCount > 0 {
						if err := seg.count.Write(segCount); err != nil {
							return struct{}{}, err
						}
						if err := seg.parity.Write(newParity); err != nil {
							return struct{}{}, err
						}
					} else {
						prevSeg, err := bindSegment(tx, prev)
						if err != nil {
							return struct{}{}, err
						}
						if err := prevSeg.next.Free(); err != nil {
							return struct{}{}, err
						}
						prevParity, err := prevSeg.parity.Read()
						if err != nil {
							return struct{}{}, err
						}
						if err := prevSeg.parity.Write(prevParity + newParity); err != nil {
							return struct{}{}, err
						}
					}
				} else { // allocate
					if segCount < uint64(b.nbAccounts) {
						if err := seg.accounts.Write(uintptr(segCount), b.initBalance); err != nil {
							return struct{}{}, err
						}
						if err := seg.count.Write(segCount + 1); err != nil {
							return struct{}{}, err
						}
					} else {
						addr, err := seg.next.Alloc(segmentSize(b.nbAccounts))
						if err != nil {
							return struct{}{}, err
						}
						nextSeg, err := bindSegment(tx, addr)
						if err != nil {
							return struct{}{}, err
						}
						if err := nextSeg.count.Write(1); err != nil {
							return struct{}{}, err
						}
						if err := nextSeg.accounts.Write(0, b.initBalance); err != nil {
							return struct{}{}, err
						}
					}
				}
				return struct{}{}, nil
			}

			prev = start
			start = segNext
		}
	})
	return err
}

// shortTx transfers one unit from sendID's account to recvID's
// account (which may be the same account). It returns false, with no
// error, if either index does not currently name a live account, in
// which case the caller should retry with fresh indices.
func (b *Bank) shortTx(sendID, recvID uintptr) (bool, error) {
	return txm.Retry(b.region, txm.ReadWrite, func(tx *txm.Transaction) (bool, error) {
		var sendPtr, recvPtr unsafe.Pointer
		start := b.region.Start()
		for {
			seg, err := bindSegment(tx, start)
			if err != nil {
				return false, err
			}
			segCount, err := seg.count.Read()
			if err != nil {
				return false, err
			}
			n := uintptr(segCount)

			if sendPtr == nil {
				if sendID < n {
					sendPtr = seg.accounts.At(sendID).Addr()
					if recvPtr != nil {
						break
					}
				} else {
					sendID -= n
				}
			}
			if recvPtr == nil {
				if recvID < n {
					recvPtr = seg.accounts.At(recvID).Addr()
					if sendPtr != nil {
						break
					}
				} else {
					recvID -= n
				}
			}

			next, err := seg.next.Read()
			if err != nil {
				return false, err
			}
			if next == nil {
				return false, nil
			}
			start = next
		}

		sender, err := txm.NewCell[Balance](tx, sendPtr)
		if err != nil {
			return false, err
		}
		recver, err := txm.NewCell[Balance](tx, recvPtr)
		if err != nil {
			return false, err
		}
		sendVal, err := sender.Read()
		if err != nil {
			return false, err
		}
		if sendVal > 0 {
			if err := sender.Write(sendVal - 1); err != nil {
				return false, err
			}
			recvVal, err := recver.Read()
			if err != nil {
				return false, err
			}
			if err := recver.Write(recvVal + 1); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// Init seeds the region with one segment holding nbAccounts accounts
// at the configured initial balance, then reads it back to confirm the
// write became visible.
func (b *Bank) Init() error {
	_, err := txm.Retry(b.region, txm.ReadWrite, func(tx *txm.Transaction) (struct{}, error) {
		seg, err := bindSegment(tx, b.region.Start())
		if err != nil {
			return struct{}{}, err
		}
		if err := seg.count.Write(uint64(b.nbAccounts)); err != nil {
			return struct{}{}, err
		}
		for i := uintptr(0); i < b.nbAccounts; i++ {
			if err := seg.accounts.Write(i, b.initBalance); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	correct, err := txm.Retry(b.region, txm.ReadOnly, func(tx *txm.Transaction) (bool, error) {
		seg, err := bindSegment(tx, b.region.Start())
		if err != nil {
			return false, err
		}
		v, err := seg.accounts.Read(0)
		if err != nil {
			return false, err
		}
		return v == b.initBalance, nil
	})
	if err != nil {
		return err
	}
	if !correct {
		return ErrInitConsistency
	}
	return nil
}

// Run executes this worker's share of transactions: a mix of long
// audits, account allocation/deallocation, and short transfers, picked
// according to the configured probabilities, followed by one final
// audit.
func (b *Bank) Run(_ Uid, seed Seed) error {
	rng := rand.New(rand.NewSource(int64(seed)))
	count := b.nbAccounts

	for i := uintptr(0); i < b.nbTxPerWrk; i++ {
		switch {
		case rng.Float64() < b.probLong:
			ok, err := b.longTx(&count)
			if err != nil {
				return err
			}
			if !ok {
				return ErrIsolation
			}
		case rng.Float64() < b.probAlloc:
			trigger := gammaSample(rng, float64(b.expNbAccounts))
			if err := b.allocTx(uintptr(trigger)); err != nil {
				return err
			}
		default:
			for {
				sendID := uintptr(rng.Intn(int(count)))
				recvID := uintptr(rng.Intn(int(count)))
				ok, err := b.shortTx(sendID, recvID)
				if err != nil {
					return err
				}
				if ok {
					break
				}
			}
		}
	}

	var dummy uintptr
	ok, err := b.longTx(&dummy)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIsolation
	}
	return nil
}

// checkRepeats is the fixed number of counter-decrement rounds the
// check phase runs per worker, independent of the main run's
// nbTxPerWrk.
const checkRepeats = 100

// Check stresses the transactional library with a single shared
// counter that every worker races to decrement, using
// internal/spinbar.Barrier to keep all workers in lock-step between
// stages. uid 0 is responsible for (re)initializing and for the final
// consistency check.
func (b *Bank) Check(uid Uid, _ Seed) error {
	b.barrier.Sync()

	if uid == 0 {
		initCounter := uint64(checkRepeats * b.nbWorkers)
		_, err := txm.Retry(b.region, txm.ReadWrite, func(tx *txm.Transaction) (struct{}, error) {
			counter, err := txm.NewCell[uint64](tx, b.region.Start())
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, counter.Write(initCounter)
		})
		if err != nil {
			return err
		}
		correct, err := txm.Retry(b.region, txm.ReadOnly, func(tx *txm.Transaction) (bool, error) {
			counter, err := txm.NewCell[uint64](tx, b.region.Start())
			if err != nil {
				return false, err
			}
			v, err := counter.Read()
			if err != nil {
				return false, err
			}
			return v == initCounter, nil
		})
		if err != nil {
			return err
		}
		if !correct {
			b.barrier.Sync()
			b.barrier.Sync()
			return ErrCheckInit
		}
	}

	b.barrier.Sync()
	for i := 0; i < checkRepeats; i++ {
		last, err := txm.Retry(b.region, txm.ReadOnly, func(tx *txm.Transaction) (uint64, error) {
			counter, err := txm.NewCell[uint64](tx, b.region.Start())
			if err != nil {
				return 0, err
			}
			return counter.Read()
		})
		if err != nil {
			return err
		}
		correct, err := txm.Retry(b.region, txm.ReadWrite, func(tx *txm.Transaction) (bool, error) {
			counter, err := txm.NewCell[uint64](tx, b.region.Start())
			if err != nil {
				return false, err
			}
			value, err := counter.Read()
			if err != nil {
				return false, err
			}
			if value > last {
				return false, nil
			}
			return true, counter.Write(value - 1)
		})
		if err != nil {
			return err
		}
		if !correct {
			b.barrier.Sync()
			return ErrCheckConsistency
		}
	}
	b.barrier.Sync()

	if uid == 0 {
		correct, err := txm.Retry(b.region, txm.ReadOnly, func(tx *txm.Transaction) (bool, error) {
			counter, err := txm.NewCell[uint64](tx, b.region.Start())
			if err != nil {
				return false, err
			}
			v, err := counter.Read()
			if err != nil {
				return false, err
			}
			return v == 0, nil
		})
		if err != nil {
			return err
		}
		if !correct {
			return ErrCheckFinal
		}
	}
	return nil
}
