//go:build linux && (amd64 || arm64)

package grading

import (
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/txnbench/tmharness/internal/bank"
	"github.com/txnbench/tmharness/internal/loader"
)

// TestGradingWithBuiltPlugin builds the reference implementation as an
// actual `-buildmode=plugin` artifact and drives it through loader.Load
// and bank.New, rather than constructing an abi.Library value directly
// from refstm.New as the rest of this package's tests do. Skipped when
// the toolchain or platform can't build plugins in this environment.
func TestGradingWithBuiltPlugin(t *testing.T) {
	soPath := filepath.Join(t.TempDir(), "refstm.so")
	cmd := exec.Command("go", "build", "-buildmode=plugin", "-o", soPath, "./../../cmd/refstm")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("building reference plugin: %v\n%s", err, out)
	}

	lib, err := loader.Load(soPath)
	if err != nil {
		t.Fatalf("loader.Load: %v", err)
	}

	w, err := bank.New(lib, 2, 200, 8, 16, 100, 0.5, 0.01, time.Second)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}
	defer w.Close()

	res, err := Measure(w, 2, 2, 1, time.Second, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("res.Error = %q, want empty", res.Error)
	}
}
