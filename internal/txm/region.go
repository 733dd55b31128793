package txm

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/txnbench/tmharness/internal/abi"
	"github.com/txnbench/tmharness/internal/bounded"
)

func isPowerOfTwo(n uintptr) bool { return n != 0 && n&(n-1) == 0 }

// Region binds a (reference or candidate) abi.Library to one created
// shared memory region, and times its create/destroy calls against a
// caller-supplied deadline so a misbehaving library cannot hang the
// grading engine forever.
type Region struct {
	lib        abi.Library
	region     abi.Region
	startAddr  unsafe.Pointer
	startSize  uintptr
	alignment  uintptr
	sideTimeout time.Duration
}

// NewRegion creates a shared memory region of size bytes aligned to
// align, via lib, bounding the call by sideTimeout.
func NewRegion(lib abi.Library, align, size uintptr, sideTimeout time.Duration) (*Region, error) {
	if assertMode && (!isPowerOfTwo(align) || size%align != 0) {
		return nil, ErrAlign
	}

	r := &Region{lib: lib, startSize: size, alignment: align, sideTimeout: sideTimeout}
	err := bounded.Run(sideTimeout, "region create", func() error {
		region, ok := lib.Create(size, align)
		if !ok {
			return ErrCreate
		}
		r.region = region
		r.startAddr = lib.Start(region)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("txm: %w", err)
	}
	return r, nil
}

// Close destroys the region, bounding the call by the same side
// timeout used at construction.
func (r *Region) Close() error {
	return bounded.Run(r.sideTimeout, "region destroy", func() error {
		r.lib.Destroy(r.region)
		return nil
	})
}

// Start returns the start address of the region's first segment.
func (r *Region) Start() unsafe.Pointer { return r.startAddr }

// Size returns the size in bytes of the region's first segment.
func (r *Region) Size() uintptr { return r.startSize }

// Align returns the region's alignment in bytes.
func (r *Region) Align() uintptr { return r.alignment }
