package bank

import (
	"unsafe"

	"github.com/txnbench/tmharness/internal/txm"
)

// Balance is the signed unit of account held in each slot. Matches
// the original's intptr_t choice: as wide as a pointer on 64-bit
// platforms.
type Balance = int64

// accountSegment is a typed view over one linked chunk of accounts,
// replacing the original's AccountSegment template: count accounts
// live in this segment, next chains to the following segment (nil at
// the tail), parity absorbs the balance correction left behind when an
// account is removed, and accounts holds the per-account balances.
type accountSegment struct {
	count    txm.Cell[uint64]
	next     txm.PtrCell[byte]
	parity   txm.Cell[Balance]
	accounts txm.ArrayCell[Balance]
}

func bindSegment(tx *txm.Transaction, address unsafe.Pointer) (accountSegment, error) {
	count, err := txm.NewCell[uint64](tx, address)
	if err != nil {
		return accountSegment{}, err
	}
	next, err := txm.NewPtrCell[byte](tx, count.After())
	if err != nil {
		return accountSegment{}, err
	}
	parity, err := txm.NewCell[Balance](tx, next.After())
	if err != nil {
		return accountSegment{}, err
	}
	accounts, err := txm.NewArrayCell[Balance](tx, parity.After())
	if err != nil {
		return accountSegment{}, err
	}
	return accountSegment{count: count, next: next, parity: parity, accounts: accounts}, nil
}

// segmentSize returns the byte size of a segment holding up to
// nbAccounts accounts.
func segmentSize(nbAccounts uintptr) uintptr {
	var count uint64
	var ptr unsafe.Pointer
	var parity Balance
	return unsafe.Sizeof(count) + unsafe.Sizeof(ptr) + unsafe.Sizeof(parity) + nbAccounts*unsafe.Sizeof(parity)
}

// segmentAlign returns the alignment required by a segment, the
// widest alignment among its fields.
func segmentAlign() uintptr {
	var ptr unsafe.Pointer
	var parity Balance
	align := unsafe.Alignof(ptr)
	if a := unsafe.Alignof(parity); a > align {
		align = a
	}
	return align
}
