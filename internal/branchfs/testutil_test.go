package branchfs

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestMount creates a base directory seeded with the given files
// (name -> content) and a Mount over it, storage rooted in a fresh temp
// directory. Both directories are cleaned up automatically by t.TempDir.
func newTestMount(t *testing.T, files map[string]string) *Mount {
	t.Helper()
	base := t.TempDir()
	for name, content := range files {
		abs := filepath.Join(base, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("seed mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("seed write: %v", err)
		}
	}
	m, err := NewMount(Options{ID: "t1", Base: base, StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}
	return m
}

func readLogical(t *testing.T, m *Mount, view *Branch, logical string) string {
	t.Helper()
	v, err := m.Resolve(view, logical)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", logical, err)
	}
	if !v.Found {
		t.Fatalf("Resolve(%s): not found", logical)
	}
	data, err := os.ReadFile(v.AbsPath)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", v.AbsPath, err)
	}
	return string(data)
}

func writeLogical(t *testing.T, m *Mount, view *Branch, logical, content string) {
	t.Helper()
	h, err := m.OpenHandle(view, logical, true, true)
	if err != nil {
		t.Fatalf("OpenHandle(%s): %v", logical, err)
	}
	if _, err := h.File.WriteAt([]byte(content), 0); err != nil {
		t.Fatalf("WriteAt(%s): %v", logical, err)
	}
	if err := m.CloseHandle(h); err != nil {
		t.Fatalf("CloseHandle(%s): %v", logical, err)
	}
}

func mustBranch(t *testing.T, m *Mount, name string) *Branch {
	t.Helper()
	b, ok := m.store.Lookup(name)
	if !ok {
		t.Fatalf("branch %s not found", name)
	}
	return b
}
