package txm

import "unsafe"

// Cell is a typed view of one T-sized slot in shared memory, bound to
// a transaction. It replaces the per-type Shared<T> template
// specialization with a single generic type.
type Cell[T any] struct {
	tx   *Transaction
	addr unsafe.Pointer
}

// NewCell binds a Cell[T] to addr within tx. If assertMode is enabled
// and addr is misaligned relative to either the region's alignment or
// T's own alignment, it returns ErrAlign.
func NewCell[T any](tx *Transaction, addr unsafe.Pointer) (Cell[T], error) {
	if assertMode {
		var zero T
		align := unsafe.Alignof(zero)
		regionAlign := tx.region.Align()
		a := uintptr(addr)
		if a%regionAlign != 0 || a%align != 0 {
			return Cell[T]{}, ErrAlign
		}
	}
	return Cell[T]{tx: tx, addr: addr}, nil
}

// Addr returns the cell's address in shared memory.
func (c Cell[T]) Addr() unsafe.Pointer { return c.addr }

// Read returns a private copy of the cell's content.
func (c Cell[T]) Read() (T, error) {
	var out T
	err := c.tx.Read(c.addr, unsafe.Sizeof(out), unsafe.Pointer(&out))
	return out, err
}

// Write stores v at the cell's address.
func (c Cell[T]) Write(v T) error {
	return c.tx.Write(unsafe.Pointer(&v), unsafe.Sizeof(v), c.addr)
}

// After returns the address of the first byte past the cell.
func (c Cell[T]) After() unsafe.Pointer {
	var zero T
	return unsafe.Add(c.addr, unsafe.Sizeof(zero))
}

// PtrCell is a typed view of a *T-sized slot in shared memory that
// also owns the pointee's lifetime: Alloc/Free allocate and release
// shared memory and write the resulting pointer (or nil) into the
// slot, mirroring Shared<Type*>'s alloc()/free() pair.
type PtrCell[T any] struct {
	tx   *Transaction
	addr unsafe.Pointer
}

// NewPtrCell binds a PtrCell[T] to addr within tx, with the same
// alignment checks as NewCell.
func NewPtrCell[T any](tx *Transaction, addr unsafe.Pointer) (PtrCell[T], error) {
	if assertMode {
		var zero *T
		align := unsafe.Alignof(zero)
		regionAlign := tx.region.Align()
		a := uintptr(addr)
		if a%regionAlign != 0 || a%align != 0 {
			return PtrCell[T]{}, ErrAlign
		}
	}
	return PtrCell[T]{tx: tx, addr: addr}, nil
}

// Addr returns the slot's address in shared memory.
func (c PtrCell[T]) Addr() unsafe.Pointer { return c.addr }

// Read returns the pointer currently stored in the slot.
func (c PtrCell[T]) Read() (unsafe.Pointer, error) {
	var out unsafe.Pointer
	err := c.tx.Read(c.addr, unsafe.Sizeof(out), unsafe.Pointer(&out))
	return out, err
}

// Write stores ptr in the slot.
func (c PtrCell[T]) Write(ptr unsafe.Pointer) error {
	return c.tx.Write(unsafe.Pointer(&ptr), unsafe.Sizeof(ptr), c.addr)
}

// Alloc reserves size bytes of shared memory (size defaults to
// sizeof(T) when zero) and stores the resulting address in the slot.
func (c PtrCell[T]) Alloc(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		var zero T
		size = unsafe.Sizeof(zero)
	}
	addr, err := c.tx.Alloc(size)
	if err != nil {
		return nil, err
	}
	if err := c.Write(addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// Free releases the shared memory currently pointed to by the slot and
// clears the slot to nil.
func (c PtrCell[T]) Free() error {
	ptr, err := c.Read()
	if err != nil {
		return err
	}
	if err := c.tx.Free(ptr); err != nil {
		return err
	}
	return c.Write(nil)
}

// After returns the address of the first byte past the pointer slot.
func (c PtrCell[T]) After() unsafe.Pointer {
	var zero unsafe.Pointer
	return unsafe.Add(c.addr, unsafe.Sizeof(zero))
}

// ArrayCell is a typed view of a contiguous run of T elements in
// shared memory, replacing Shared<Type[]>/Shared<Type[n]>: element
// addresses are computed by pointer arithmetic rather than carrying a
// compile-time length, since Go arrays of a runtime-determined size
// are not expressible as a type parameter.
type ArrayCell[T any] struct {
	tx   *Transaction
	addr unsafe.Pointer
}

// NewArrayCell binds an ArrayCell[T] to the first element's address.
func NewArrayCell[T any](tx *Transaction, addr unsafe.Pointer) (ArrayCell[T], error) {
	if assertMode {
		var zero T
		align := unsafe.Alignof(zero)
		regionAlign := tx.region.Align()
		a := uintptr(addr)
		if a%regionAlign != 0 || a%align != 0 {
			return ArrayCell[T]{}, ErrAlign
		}
	}
	return ArrayCell[T]{tx: tx, addr: addr}, nil
}

// At returns a Cell[T] bound to the element at index.
func (a ArrayCell[T]) At(index uintptr) Cell[T] {
	var zero T
	return Cell[T]{tx: a.tx, addr: unsafe.Add(a.addr, index*unsafe.Sizeof(zero))}
}

// Read returns a private copy of the element at index.
func (a ArrayCell[T]) Read(index uintptr) (T, error) {
	return a.At(index).Read()
}

// Write stores v at the element at index.
func (a ArrayCell[T]) Write(index uintptr, v T) error {
	return a.At(index).Write(v)
}

// After returns the address of the first byte past the length-element
// array.
func (a ArrayCell[T]) After(length uintptr) unsafe.Pointer {
	var zero T
	return unsafe.Add(a.addr, length*unsafe.Sizeof(zero))
}
