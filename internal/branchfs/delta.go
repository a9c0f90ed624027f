package branchfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// deltaPath returns the path, under branch b's delta directory, that
// backs logical path p ("" or "/"-prefixed forms are normalized by the
// caller before reaching here).
func deltaPath(b *Branch, logical string) string {
	return filepath.Join(b.Delta, filepath.FromSlash(logical))
}

// tombstonePath returns the marker file path for logical path p in
// branch b's delta (spec §3: "a zero-length file with a reserved suffix").
func tombstonePath(b *Branch, logical string) string {
	return deltaPath(b, logical) + TombstoneSuffix
}

// hasTombstone reports whether logical path p is tombstoned directly in
// branch b (not in an ancestor).
func hasTombstone(b *Branch, logical string) bool {
	_, err := os.Lstat(tombstonePath(b, logical))
	return err == nil
}

// hasDeltaEntry reports whether logical path p has a delta entry (file or
// branch-created directory) directly in branch b, and returns its FileInfo.
func hasDeltaEntry(b *Branch, logical string) (os.FileInfo, bool) {
	fi, err := os.Lstat(deltaPath(b, logical))
	if err != nil {
		return nil, false
	}
	return fi, true
}

// writeTombstone creates the tombstone marker for logical path p in
// branch b, creating parent delta directories as needed, and removes any
// delta entry for p that the tombstone now shadows.
func writeTombstone(b *Branch, logical string) error {
	if err := os.MkdirAll(filepath.Dir(deltaPath(b, logical)), 0o755); err != nil {
		return wrapErr(KindIO, "unlink", logical, err)
	}
	if err := os.RemoveAll(deltaPath(b, logical)); err != nil {
		return wrapErr(KindIO, "unlink", logical, err)
	}
	f, err := os.OpenFile(tombstonePath(b, logical), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapErr(KindIO, "unlink", logical, err)
	}
	return f.Close()
}

// removeTombstone clears a tombstone for logical path p in branch b, if
// present. Used when mkdir/create resurrects a previously deleted path
// (spec §4.1 "mkdir on a tombstoned directory removes the tombstone").
func removeTombstone(b *Branch, logical string) error {
	err := os.Remove(tombstonePath(b, logical))
	if err != nil && !os.IsNotExist(err) {
		return wrapErr(KindIO, "mkdir", logical, err)
	}
	return nil
}

// listDeltaNames returns the names of direct entries materialized in
// branch b's delta directory for logical directory dir, excluding
// tombstone marker files themselves (those are represented to callers as
// absence, not as entries).
func listDeltaNames(b *Branch, dir string) (map[string]os.FileInfo, error) {
	p := deltaPath(b, dir)
	entries, err := os.ReadDir(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]os.FileInfo{}, nil
		}
		return nil, wrapErr(KindIO, "readdir", dir, err)
	}
	out := make(map[string]os.FileInfo, len(entries))
	for _, e := range entries {
		name := e.Name()
		if hasTombstoneSuffix(name) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out[name] = fi
	}
	return out, nil
}

// tombstonedNames returns the set of child names directly tombstoned in
// branch b's delta directory for logical directory dir.
func tombstonedNames(b *Branch, dir string) (map[string]bool, error) {
	p := deltaPath(b, dir)
	entries, err := os.ReadDir(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, wrapErr(KindIO, "readdir", dir, err)
	}
	out := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		if hasTombstoneSuffix(name) {
			out[trimTombstoneSuffix(name)] = true
		}
	}
	return out, nil
}

// deltaEntry is one entry discovered by walkDelta.
type deltaEntry struct {
	Logical     string // "/"-rooted logical path
	IsTombstone bool
	IsDir       bool
	AbsPath     string
}

// walkDelta enumerates every entry in branch b's delta directory, depth
// first, parents before children. Tombstone marker files are reported with
// IsTombstone true and Logical already trimmed of the marker suffix; they
// are never descended into (they are files, not directories).
func walkDelta(b *Branch, fn func(deltaEntry) error) error {
	root := b.Delta
	_, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel := filepath.ToSlash(strings.TrimPrefix(path, root))
		name := d.Name()
		if hasTombstoneSuffix(name) {
			logical := filepath.ToSlash(strings.TrimPrefix(strings.TrimSuffix(path, TombstoneSuffix), root))
			return fn(deltaEntry{Logical: logical, IsTombstone: true, AbsPath: path})
		}
		return fn(deltaEntry{Logical: rel, IsDir: d.IsDir(), AbsPath: path})
	})
}

func hasTombstoneSuffix(name string) bool {
	n := len(name)
	s := len(TombstoneSuffix)
	return n > s && name[n-s:] == TombstoneSuffix
}

func trimTombstoneSuffix(name string) string {
	return name[:len(name)-len(TombstoneSuffix)]
}
