package txm

import (
	"testing"
	"time"
	"unsafe"

	"github.com/txnbench/tmharness/internal/refstm"
)

func newTestRegion(t *testing.T) *Region {
	t.Helper()
	r, err := NewRegion(refstm.New(), 8, 256, time.Second)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestCellReadWrite(t *testing.T) {
	r := newTestRegion(t)

	err := func() error {
		tx, err := Begin(r, ReadWrite)
		if err != nil {
			return err
		}
		defer tx.Close()

		cell, err := NewCell[uint64](tx, r.Start())
		if err != nil {
			return err
		}
		if err := cell.Write(0x1122334455667788); err != nil {
			return err
		}
		got, err := cell.Read()
		if err != nil {
			return err
		}
		if got != 0x1122334455667788 {
			t.Errorf("Read() = %x, want %x", got, 0x1122334455667788)
		}
		return nil
	}()
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestArrayCell(t *testing.T) {
	r := newTestRegion(t)

	err := func() error {
		tx, err := Begin(r, ReadWrite)
		if err != nil {
			return err
		}
		defer tx.Close()

		arr, err := NewArrayCell[int32](tx, r.Start())
		if err != nil {
			return err
		}
		for i := uintptr(0); i < 4; i++ {
			if err := arr.Write(i, int32(i*10)); err != nil {
				return err
			}
		}
		for i := uintptr(0); i < 4; i++ {
			got, err := arr.Read(i)
			if err != nil {
				return err
			}
			if got != int32(i*10) {
				t.Errorf("arr[%d] = %d, want %d", i, got, i*10)
			}
		}
		return nil
	}()
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestPtrCellAllocFree(t *testing.T) {
	r := newTestRegion(t)

	err := func() error {
		tx, err := Begin(r, ReadWrite)
		if err != nil {
			return err
		}
		defer tx.Close()

		slot, err := NewPtrCell[uint64](tx, unsafe.Add(r.Start(), 8))
		if err != nil {
			return err
		}
		addr, err := slot.Alloc(0)
		if err != nil {
			return err
		}
		if addr == nil {
			t.Fatalf("Alloc returned nil pointer")
		}

		cell, err := NewCell[uint64](tx, addr)
		if err != nil {
			return err
		}
		if err := cell.Write(42); err != nil {
			return err
		}

		got, err := slot.Read()
		if err != nil {
			return err
		}
		if got != addr {
			t.Errorf("slot.Read() = %p, want %p", got, addr)
		}

		return slot.Free()
	}()
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestRetryLoopsUntilCommit(t *testing.T) {
	r := newTestRegion(t)

	attempts := 0
	v, err := Retry(r, ReadWrite, func(tx *Transaction) (int, error) {
		attempts++
		cell, err := NewCell[int32](tx, r.Start())
		if err != nil {
			return 0, err
		}
		if err := cell.Write(7); err != nil {
			return 0, err
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if v != 7 {
		t.Errorf("Retry result = %d, want 7", v)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (refstm never aborts)", attempts)
	}
}
