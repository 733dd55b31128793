// Command refstm builds the reference STM implementation as a Go
// plugin (`go build -buildmode=plugin -o refstm.so ./cmd/refstm`), so
// it can be loaded by internal/loader exactly like any candidate
// artifact passed on the tmharness command line.
package main

import (
	"unsafe"

	"github.com/txnbench/tmharness/internal/abi"
	"github.com/txnbench/tmharness/internal/refstm"
)

var impl = refstm.New()

// TmCreate is the plugin entry point internal/loader resolves for
// abi.Library.Create.
func TmCreate(size, align uintptr) (abi.Region, bool) {
	return impl.Create(size, align)
}

// TmDestroy is the plugin entry point internal/loader resolves for
// abi.Library.Destroy.
func TmDestroy(r abi.Region) {
	impl.Destroy(r)
}

// TmStart is the plugin entry point internal/loader resolves for
// abi.Library.Start.
func TmStart(r abi.Region) unsafe.Pointer {
	return impl.Start(r)
}

// TmSize is the plugin entry point internal/loader resolves for
// abi.Library.Size.
func TmSize(r abi.Region) uintptr {
	return impl.Size(r)
}

// TmAlign is the plugin entry point internal/loader resolves for
// abi.Library.Align.
func TmAlign(r abi.Region) uintptr {
	return impl.Align(r)
}

// TmBegin is the plugin entry point internal/loader resolves for
// abi.Library.Begin.
func TmBegin(r abi.Region, ro bool) (abi.Tx, bool) {
	return impl.Begin(r, ro)
}

// TmEnd is the plugin entry point internal/loader resolves for
// abi.Library.End.
func TmEnd(r abi.Region, tx abi.Tx) bool {
	return impl.End(r, tx)
}

// TmRead is the plugin entry point internal/loader resolves for
// abi.Library.Read.
func TmRead(r abi.Region, tx abi.Tx, src unsafe.Pointer, n uintptr, dst unsafe.Pointer) bool {
	return impl.Read(r, tx, src, n, dst)
}

// TmWrite is the plugin entry point internal/loader resolves for
// abi.Library.Write.
func TmWrite(r abi.Region, tx abi.Tx, src unsafe.Pointer, n uintptr, dst unsafe.Pointer) bool {
	return impl.Write(r, tx, src, n, dst)
}

// TmAlloc is the plugin entry point internal/loader resolves for
// abi.Library.Alloc.
func TmAlloc(r abi.Region, tx abi.Tx, n uintptr) (unsafe.Pointer, abi.AllocResult) {
	return impl.Alloc(r, tx, n)
}

// TmFree is the plugin entry point internal/loader resolves for
// abi.Library.Free.
func TmFree(r abi.Region, tx abi.Tx, addr unsafe.Pointer) bool {
	return impl.Free(r, tx, addr)
}

func main() {}
