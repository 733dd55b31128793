//go:build linux && (amd64 || arm64)

// Package memalloc provides page-backed, zeroed, alignment-respecting
// memory blocks for internal/refstm's region and segment storage.
// Adapted from the teacher's mmap-based segment allocator: anonymous
// mmap gives stable addresses and pre-zeroed pages without the
// fragmentation risk of a general-purpose allocator.
package memalloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PageSize is the system page size; Alloc does not consult it, and
// mmap rounds each mapping up to it.
var PageSize = unix.Getpagesize()

// Block is a mapped region of memory. The zero Block is not valid; use
// Alloc to obtain one.
type Block struct {
	raw   []byte // the full mmap mapping, needed to munmap
	view  []byte // the aligned, size-bounded sub-slice handed to callers
}

// Alloc reserves a zeroed block of at least size bytes whose base
// address is a multiple of align. align must be a power of two and
// size must be nonzero.
func Alloc(size, align uintptr) (*Block, error) {
	if size == 0 {
		return nil, fmt.Errorf("memalloc: size must be nonzero")
	}
	if align == 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("memalloc: align %d is not a power of two", align)
	}

	// Over-allocate by align so the mapping can be sliced down to an
	// aligned sub-range; mmap itself only guarantees page alignment.
	raw := uintptr(size) + align
	mem, err := unix.Mmap(-1, 0, int(raw), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memalloc: mmap failed: %w", err)
	}

	base := uintptr(unsafe.Pointer(&mem[0]))
	aligned := (base + align - 1) &^ (align - 1)
	offset := aligned - base

	return &Block{raw: mem, view: mem[offset : offset+size]}, nil
}

// Bytes returns the block's aligned backing slice.
func (b *Block) Bytes() []byte { return b.view }

// Ptr returns a pointer to the start of the block's aligned slice.
func (b *Block) Ptr() unsafe.Pointer {
	if len(b.view) == 0 {
		return nil
	}
	return unsafe.Pointer(&b.view[0])
}

// Free unmaps the block. The block must not be used after Free
// returns.
func (b *Block) Free() error {
	if b == nil || b.raw == nil {
		return nil
	}
	err := unix.Munmap(b.raw)
	b.raw = nil
	b.view = nil
	if err != nil {
		return fmt.Errorf("memalloc: munmap failed: %w", err)
	}
	return nil
}
