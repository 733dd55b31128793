package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.so"))
	if !errors.Is(err, ErrPath) {
		t.Fatalf("Load() = %v, want ErrPath", err)
	}
}

func TestLoadRejectsNonPlugin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-plugin.so")
	if err := os.WriteFile(path, []byte("not an ELF shared object"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("Load() = %v, want ErrLoad", err)
	}
}
