package txm

import (
	"unsafe"

	"github.com/txnbench/tmharness/internal/abi"
)

// Mode selects whether a Transaction may mutate shared memory.
type Mode bool

const (
	// ReadWrite transactions may read, write, alloc, and free.
	ReadWrite Mode = false
	// ReadOnly transactions may only read.
	ReadOnly Mode = true
)

// Transaction is one begin/end pair against a Region. The zero value
// is not usable; construct with Begin.
type Transaction struct {
	region  *Region
	tx      abi.Tx
	aborted bool
	ro      bool
}

// Begin starts a transaction on r in the given mode.
func Begin(r *Region, mode Mode) (*Transaction, error) {
	tx, ok := r.lib.Begin(r.region, bool(mode))
	if !ok {
		return nil, ErrBegin
	}
	return &Transaction{region: r, tx: tx, ro: bool(mode)}, nil
}

// Close commits the transaction if it was not already aborted by a
// failed operation. Callers should defer Close and check its error the
// same way they would check Read/Write/Alloc/Free's.
func (t *Transaction) Close() error {
	if t.aborted {
		return nil
	}
	if !t.region.lib.End(t.region.region, t.tx) {
		return ErrRetry
	}
	return nil
}

// Region returns the Transaction's bound Region.
func (t *Transaction) Region() *Region { return t.region }

// Read copies size bytes from src (in shared memory) into dst (private
// memory).
func (t *Transaction) Read(src unsafe.Pointer, size uintptr, dst unsafe.Pointer) error {
	if !t.region.lib.Read(t.region.region, t.tx, src, size, dst) {
		t.aborted = true
		return ErrRetry
	}
	return nil
}

// Write copies size bytes from src (private memory) into dst (in
// shared memory).
func (t *Transaction) Write(src unsafe.Pointer, size uintptr, dst unsafe.Pointer) error {
	if assertMode && t.ro {
		return ErrReadOnly
	}
	if !t.region.lib.Write(t.region.region, t.tx, src, size, dst) {
		t.aborted = true
		return ErrRetry
	}
	return nil
}

// Alloc reserves size bytes of shared memory within the transaction.
func (t *Transaction) Alloc(size uintptr) (unsafe.Pointer, error) {
	if assertMode && t.ro {
		return nil, ErrReadOnly
	}
	ptr, res := t.region.lib.Alloc(t.region.region, t.tx, size)
	switch res {
	case abi.AllocSuccess:
		return ptr, nil
	case abi.AllocNomem:
		return nil, ErrAlloc
	default:
		t.aborted = true
		return nil, ErrRetry
	}
}

// Free releases shared memory previously returned by Alloc on the same
// region.
func (t *Transaction) Free(addr unsafe.Pointer) error {
	if assertMode && t.ro {
		return ErrReadOnly
	}
	if !t.region.lib.Free(t.region.region, t.tx, addr) {
		t.aborted = true
		return ErrRetry
	}
	return nil
}
