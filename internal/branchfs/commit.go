package branchfs

import (
	"os"
	"path/filepath"
)

// Commit implements spec §4.4 for the mount's current view branch.
func (m *Mount) Commit() error {
	return m.CommitBranch(m.View())
}

// Abort implements spec §4.4 for the mount's current view branch.
func (m *Mount) Abort() error {
	return m.AbortBranch(m.View())
}

// AbortBranch discards branch name's delta, removes it from the graph, and
// switches the mount's view to its parent. name must be a leaf and must not
// be main (spec §4.4).
func (m *Mount) AbortBranch(name string) error {
	m.adminMu.Lock()
	defer m.adminMu.Unlock()

	b, ok := m.store.Lookup(name)
	if !ok {
		return newErr(KindNotFound, "abort", name)
	}
	if b.Name == MainBranch {
		return newErr(KindCannotModifyMain, "abort", name)
	}
	if !b.IsLeaf() {
		return newErr(KindHasChildren, "abort", name)
	}

	parent := b.Parent
	if err := m.store.destroyLocked(b); err != nil {
		return err
	}
	m.setViewLocked(parent.Name)
	m.bumpAndInvalidate()
	return nil
}

// CommitBranch applies branch name's delta to its parent: directly into
// the base if the parent is main, or merged into the parent's own delta
// otherwise. name must be a leaf and must not be main (spec §4.4). On
// success name is destroyed and the mount's view, if it pointed at name,
// moves to the parent.
func (m *Mount) CommitBranch(name string) error {
	m.adminMu.Lock()
	defer m.adminMu.Unlock()

	b, ok := m.store.Lookup(name)
	if !ok {
		return newErr(KindNotFound, "commit", name)
	}
	if b.Name == MainBranch {
		return newErr(KindCannotModifyMain, "commit", name)
	}
	if !b.IsLeaf() {
		return newErr(KindHasChildren, "commit", name)
	}

	parent := b.Parent
	if parent.Name == MainBranch {
		if err := m.applyToBase(b); err != nil {
			return err
		}
	} else {
		if err := m.mergeIntoParent(b, parent); err != nil {
			return err
		}
	}

	if err := m.store.destroyLocked(b); err != nil {
		return err
	}
	if m.View() == name {
		m.setViewLocked(parent.Name)
	}
	m.bumpAndInvalidate()
	return nil
}

// applyToBase implements spec §4.4's "commit to main" case: tombstones are
// applied as base-side deletions first (plain files, then directories,
// so a directory whiteout can remove everything beneath it in one shot),
// then materializations are applied as moves/copies into the base,
// creating parent directories as needed. It stops and returns on the
// first error, leaving b's delta and the base exactly as they were before
// that point (spec §7: "a commit that fails partway through... aborts on
// the first base-side error, leaving B intact"; whatever base-side
// changes already landed are not rolled back — see DESIGN.md).
func (m *Mount) applyToBase(b *Branch) error {
	var fileTombstones, dirTombstones []string

	if err := walkDelta(b, func(e deltaEntry) error {
		if !e.IsTombstone {
			return nil
		}
		abs := filepath.Join(m.Base, filepath.FromSlash(e.Logical))
		if fi, err := os.Lstat(abs); err == nil && fi.IsDir() {
			dirTombstones = append(dirTombstones, e.Logical)
		} else {
			fileTombstones = append(fileTombstones, e.Logical)
		}
		return nil
	}); err != nil {
		return wrapErr(KindIO, "commit", b.Name, err)
	}

	for _, logical := range fileTombstones {
		abs := filepath.Join(m.Base, filepath.FromSlash(logical))
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return wrapErr(KindIO, "commit", logical, err)
		}
	}
	for _, logical := range dirTombstones {
		abs := filepath.Join(m.Base, filepath.FromSlash(logical))
		if err := os.RemoveAll(abs); err != nil {
			return wrapErr(KindIO, "commit", logical, err)
		}
	}

	var dirs, files []deltaEntry
	if err := walkDelta(b, func(e deltaEntry) error {
		if e.IsTombstone {
			return nil
		}
		if e.IsDir {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
		return nil
	}); err != nil {
		return wrapErr(KindIO, "commit", b.Name, err)
	}

	for _, e := range dirs {
		abs := filepath.Join(m.Base, filepath.FromSlash(e.Logical))
		mode := os.FileMode(0o755)
		if fi, err := os.Lstat(e.AbsPath); err == nil {
			mode = fi.Mode().Perm()
		}
		if err := os.MkdirAll(abs, mode); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
	}
	for _, e := range files {
		abs := filepath.Join(m.Base, filepath.FromSlash(e.Logical))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
		if err := moveOrCopy(e.AbsPath, abs); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
	}
	return nil
}

// mergeIntoParent implements spec §4.4's "commit to a non-main parent"
// case: b's tombstones and delta entries are moved directly into parent's
// delta directory, shadowing anything parent itself had at those paths.
func (m *Mount) mergeIntoParent(b, parent *Branch) error {
	var tombstones, dirs, files []deltaEntry

	if err := walkDelta(b, func(e deltaEntry) error {
		switch {
		case e.IsTombstone:
			tombstones = append(tombstones, e)
		case e.IsDir:
			dirs = append(dirs, e)
		default:
			files = append(files, e)
		}
		return nil
	}); err != nil {
		return wrapErr(KindIO, "commit", b.Name, err)
	}

	for _, e := range tombstones {
		if err := os.RemoveAll(deltaPath(parent, e.Logical)); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
		if err := os.MkdirAll(filepath.Dir(deltaPath(parent, e.Logical)), 0o755); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
		if err := writeTombstone(parent, e.Logical); err != nil {
			return err
		}
	}
	for _, e := range dirs {
		dst := deltaPath(parent, e.Logical)
		if err := removeTombstone(parent, e.Logical); err != nil {
			return err
		}
		mode := os.FileMode(0o755)
		if fi, err := os.Lstat(e.AbsPath); err == nil {
			mode = fi.Mode().Perm()
		}
		if err := os.MkdirAll(dst, mode); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
	}
	for _, e := range files {
		dst := deltaPath(parent, e.Logical)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
		if err := removeTombstone(parent, e.Logical); err != nil {
			return err
		}
		if err := moveOrCopy(e.AbsPath, dst); err != nil {
			return wrapErr(KindIO, "commit", e.Logical, err)
		}
	}
	return nil
}

// moveOrCopy renames src to dst, falling back to a copy-then-remove whenever
// the rename fails (as it does with EXDEV when src and dst are on different
// devices) — the delta directory and
// the commit target are ordinarily on the same storage filesystem, but a
// cross-device layout must still produce a correct, if non-atomic, result.
func moveOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if err := os.Symlink(target, dst); err != nil {
			return err
		}
		return os.Remove(src)
	}
	if err := copyFileContents(src, dst, fi.Mode()); err != nil {
		return err
	}
	return os.Remove(src)
}
