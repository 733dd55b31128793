package refstm

import (
	"testing"
	"unsafe"

	"github.com/txnbench/tmharness/internal/abi"
)

func TestCreateDestroy(t *testing.T) {
	lib := New()
	r, ok := lib.Create(4096, 8)
	if !ok {
		t.Fatalf("Create failed")
	}
	if !r.Valid() {
		t.Fatalf("Create returned invalid region")
	}
	if lib.Size(r) != 4096 {
		t.Errorf("Size() = %d, want 4096", lib.Size(r))
	}
	if lib.Align(r) != 8 {
		t.Errorf("Align() = %d, want 8", lib.Align(r))
	}
	lib.Destroy(r)
}

func TestReadWriteRoundTrip(t *testing.T) {
	lib := New()
	r, ok := lib.Create(64, 8)
	if !ok {
		t.Fatalf("Create failed")
	}
	defer lib.Destroy(r)

	tx, ok := lib.Begin(r, false)
	if !ok {
		t.Fatalf("Begin failed")
	}

	want := uint64(0xdeadbeefcafef00d)
	if !lib.Write(r, tx, unsafe.Pointer(&want), 8, lib.Start(r)) {
		t.Fatalf("Write failed")
	}

	var got uint64
	if !lib.Read(r, tx, lib.Start(r), 8, unsafe.Pointer(&got)) {
		t.Fatalf("Read failed")
	}
	if got != want {
		t.Errorf("round trip = %x, want %x", got, want)
	}

	if !lib.End(r, tx) {
		t.Errorf("End failed")
	}
}

func TestReadOnlyAllowsConcurrentReaders(t *testing.T) {
	lib := New()
	r, ok := lib.Create(64, 8)
	if !ok {
		t.Fatalf("Create failed")
	}
	defer lib.Destroy(r)

	tx1, ok := lib.Begin(r, true)
	if !ok {
		t.Fatalf("Begin(ro) failed")
	}
	tx2, ok := lib.Begin(r, true)
	if !ok {
		t.Fatalf("second Begin(ro) should not block or fail")
	}
	lib.End(r, tx1)
	lib.End(r, tx2)
}

func TestAllocFree(t *testing.T) {
	lib := New()
	r, ok := lib.Create(64, 8)
	if !ok {
		t.Fatalf("Create failed")
	}
	defer lib.Destroy(r)

	tx, ok := lib.Begin(r, false)
	if !ok {
		t.Fatalf("Begin failed")
	}

	ptr, res := lib.Alloc(r, tx, 128)
	if res != abi.AllocSuccess {
		t.Fatalf("Alloc = %v, want success", res)
	}
	if ptr == nil {
		t.Fatalf("Alloc returned nil pointer on success")
	}

	// newly allocated memory must be zeroed
	zeroed := unsafe.Slice((*byte)(ptr), 128)
	for i, b := range zeroed {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}

	if !lib.Free(r, tx, ptr) {
		t.Errorf("Free failed")
	}
	lib.End(r, tx)
}

func TestDestroyDrainsOutstandingAllocs(t *testing.T) {
	lib := New()
	r, ok := lib.Create(64, 8)
	if !ok {
		t.Fatalf("Create failed")
	}

	tx, _ := lib.Begin(r, false)
	for i := 0; i < 4; i++ {
		if _, res := lib.Alloc(r, tx, 32); res != abi.AllocSuccess {
			t.Fatalf("Alloc[%d] failed", i)
		}
	}
	lib.End(r, tx)

	// Destroy must not panic even with segments still outstanding.
	lib.Destroy(r)
}
