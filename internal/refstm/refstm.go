// Package refstm implements the reference software transactional
// memory: a single coarse-grained lock per region. It intentionally
// is not a high-performance STM — the grading engine always runs it
// first and times every candidate against it.
//
// Adapted from original_source/reference/tm.c's USE_RW_LOCK variant:
// one rwlock per region, tm_begin acquiring it shared for read-only
// transactions and exclusive otherwise, tm_read/tm_write degenerating
// to plain copies because the lock already serializes writers against
// readers. Segment allocation keeps the same "first segment is part of
// the region, never freed, every other allocation goes on an intrusive
// free list that tm_destroy drains" shape; the free list itself is kept
// as a map from address to segment record rather than the original's
// pointer-arithmetic-to-embedded-link trick, since Go's unsafe.Pointer
// does not support recovering a header from a re-aligned user pointer
// the way C's uintptr subtraction does.
package refstm

import (
	"sync"
	"unsafe"

	"github.com/txnbench/tmharness/internal/abi"
	"github.com/txnbench/tmharness/internal/memalloc"
)

const (
	roTx abi.Tx = ^abi.Tx(0) - 10
	rwTx abi.Tx = ^abi.Tx(0) - 11
)

type segment struct {
	blk *memalloc.Block
}

type regionState struct {
	mu     sync.RWMutex
	first  *memalloc.Block
	size   uintptr
	align  uintptr
	allocs map[uintptr]*segment
	allocM sync.Mutex
}

// Library implements abi.Library using one sync.RWMutex per region.
type Library struct{}

// New returns a Library value bound to the reference implementation.
func New() abi.Library { return Library{} }

// Create allocates a new region backed by anonymous mmap'd memory.
func (Library) Create(size, align uintptr) (abi.Region, bool) {
	blk, err := memalloc.Alloc(size, align)
	if err != nil {
		return abi.InvalidRegion, false
	}
	rs := &regionState{
		first:  blk,
		size:   size,
		align:  align,
		allocs: make(map[uintptr]*segment),
	}
	return abi.NewRegion(unsafe.Pointer(rs)), true
}

// Destroy releases the region's first segment and every segment still
// on its allocation list.
func (Library) Destroy(r abi.Region) {
	rs := state(r)
	for _, seg := range rs.allocs {
		seg.blk.Free()
	}
	rs.allocs = nil
	rs.first.Free()
}

// Start returns the base address of the region's first segment.
func (Library) Start(r abi.Region) unsafe.Pointer {
	return state(r).first.Ptr()
}

// Size returns the size in bytes of the region's first segment.
func (Library) Size(r abi.Region) uintptr {
	return state(r).size
}

// Align returns the region's claimed alignment.
func (Library) Align(r abi.Region) uintptr {
	return state(r).align
}

// Begin acquires the region's lock, shared for read-only transactions
// and exclusive otherwise, and returns the matching sentinel handle.
func (Library) Begin(r abi.Region, ro bool) (abi.Tx, bool) {
	rs := state(r)
	if ro {
		rs.mu.RLock()
		return roTx, true
	}
	rs.mu.Lock()
	return rwTx, true
}

// End releases the lock acquired by the matching Begin.
func (Library) End(r abi.Region, tx abi.Tx) bool {
	rs := state(r)
	if tx == roTx {
		rs.mu.RUnlock()
	} else {
		rs.mu.Unlock()
	}
	return true
}

// Read copies n bytes from shared memory at src into private memory at
// dst. Never fails: the region's single lock already serializes
// writers against readers.
func (Library) Read(r abi.Region, tx abi.Tx, src unsafe.Pointer, n uintptr, dst unsafe.Pointer) bool {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
	return true
}

// Write copies n bytes from private memory at src into shared memory
// at dst. Never fails, for the same reason as Read.
func (Library) Write(r abi.Region, tx abi.Tx, src unsafe.Pointer, n uintptr, dst unsafe.Pointer) bool {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
	return true
}

// Alloc reserves a new zeroed segment of n bytes, aligned to the
// region's alignment, and links it onto the region's allocation list.
func (Library) Alloc(r abi.Region, tx abi.Tx, n uintptr) (unsafe.Pointer, abi.AllocResult) {
	rs := state(r)
	blk, err := memalloc.Alloc(n, rs.align)
	if err != nil {
		return nil, abi.AllocNomem
	}
	seg := &segment{blk: blk}
	ptr := blk.Ptr()

	rs.allocM.Lock()
	rs.allocs[uintptr(ptr)] = seg
	rs.allocM.Unlock()

	return ptr, abi.AllocSuccess
}

// Free releases a segment previously returned by Alloc on the same
// region. Never fails, matching the original's tm_free, which cannot
// observe a double free or a foreign pointer under well-behaved
// callers.
func (Library) Free(r abi.Region, tx abi.Tx, addr unsafe.Pointer) bool {
	rs := state(r)
	key := uintptr(addr)

	rs.allocM.Lock()
	seg, ok := rs.allocs[key]
	if ok {
		delete(rs.allocs, key)
	}
	rs.allocM.Unlock()

	if ok {
		seg.blk.Free()
	}
	return true
}

func state(r abi.Region) *regionState {
	return (*regionState)(r.Ptr())
}
