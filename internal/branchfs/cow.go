package branchfs

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ensureParentDirs walks the logical path from the branch root down to the
// parent of logical, creating a real delta directory for any ancestor
// directory that is not already a delta entry in view but does resolve
// (in the chain or base) to a directory — i.e. "create parent delta
// directories on demand" (spec §4.3 step 2), grounded on
// newunionfs.unionFSNode.promote's walk-up-then-apply-top-down shape.
func (m *Mount) ensureParentDirs(view *Branch, logical string) error {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(logical)))
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	segs := strings.Split(strings.Trim(dir, "/"), "/")

	cur := ""
	for _, seg := range segs {
		cur = cur + "/" + seg
		if _, ok := hasDeltaEntry(view, cur); ok {
			continue
		}
		v := m.resolveChain(view, cur)
		if !v.Found || !v.IsDir {
			return newErr(KindNotFound, "create", cur)
		}
		mode := os.FileMode(0o755)
		if fi, err := os.Stat(v.AbsPath); err == nil {
			mode = fi.Mode().Perm()
		}
		if err := os.Mkdir(deltaPath(view, cur), mode); err != nil && !os.IsExist(err) {
			return wrapErr(KindIO, "create", cur, err)
		}
	}
	return nil
}

// Materialize performs the COW copy of spec §4.3 steps 1-3: resolves the
// backing file, copies its bytes into view's delta at logical (preserving
// mode bits), and removes any tombstone that previously shadowed logical
// in view. It is a no-op if logical is already a delta entry of view
// itself. Concurrent callers for the same (view, logical) serialize on the
// keyed lock so exactly one materialization occurs (spec §4.3
// "Concurrency within a branch").
func (m *Mount) Materialize(view *Branch, logical string) (string, error) {
	if _, ok := hasDeltaEntry(view, logical); ok {
		return deltaPath(view, logical), nil
	}

	unlock := m.locks.Lock(view.Name, logical)
	defer unlock()

	// Re-check: another writer may have materialized while we waited.
	if _, ok := hasDeltaEntry(view, logical); ok {
		return deltaPath(view, logical), nil
	}

	// view.Parent is nil only for main; Branch.Chain() on a nil receiver
	// returns an empty chain, so resolveChain correctly falls straight
	// through to the base probe in that case ("backed by ancestor or
	// base" collapses to "backed by base" for main).
	v := m.resolveChain(view.Parent, logical)
	if !v.Found {
		return "", newErr(KindNotFound, "write", logical)
	}
	if v.IsDir {
		return "", wrapErr(KindIO, "write", logical, os.ErrInvalid)
	}

	if err := m.ensureParentDirs(view, logical); err != nil {
		return "", err
	}

	dst := deltaPath(view, logical)
	if v.IsSymlink {
		target, err := os.Readlink(v.AbsPath)
		if err != nil {
			return "", wrapErr(KindIO, "write", logical, err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return "", wrapErr(KindIO, "write", logical, err)
		}
	} else {
		srcFi, err := os.Stat(v.AbsPath)
		if err != nil {
			return "", wrapErr(KindIO, "write", logical, err)
		}
		if err := copyFileContents(v.AbsPath, dst, srcFi.Mode()); err != nil {
			return "", wrapErr(KindIO, "write", logical, err)
		}
	}
	if err := removeTombstone(view, logical); err != nil {
		return "", err
	}
	return dst, nil
}

// copyFileContents copies src's bytes to dst, creating dst with the given
// mode (spec §4.3: "preserving mode bits"). Grounded on
// unionfs.UnionFs.CopyFile / newunionfs.unionFSRoot.promoteRegularFile.
func copyFileContents(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CreateFile implements "create" (spec §4.3: "a delta file is created
// directly"), removing any stale tombstone first.
func (m *Mount) CreateFile(view *Branch, logical string, mode os.FileMode) (*os.File, error) {
	unlock := m.locks.Lock(view.Name, logical)
	defer unlock()

	if err := m.ensureParentDirs(view, logical); err != nil {
		return nil, err
	}
	if err := removeTombstone(view, logical); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(deltaPath(view, logical), os.O_CREATE|os.O_EXCL|os.O_RDWR, mode)
	if err != nil {
		return nil, wrapErr(KindIO, "create", logical, err)
	}
	return f, nil
}

// OpenForWrite implements O_WRONLY|O_RDWR|O_TRUNC opening (spec §4.3: "the
// copy step is elided; a zero-length delta is created directly") when the
// path is not yet a delta entry of view, and ordinary materialize-then-open
// otherwise. With truncate set, a path that resolves nowhere in the chain
// or base is created as a new, empty delta file (mode 0644).
func (m *Mount) OpenForWrite(view *Branch, logical string, truncate bool) (*os.File, error) {
	if _, ok := hasDeltaEntry(view, logical); ok {
		flags := os.O_RDWR
		if truncate {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(deltaPath(view, logical), flags, 0)
		if err != nil {
			return nil, wrapErr(KindIO, "open", logical, err)
		}
		return f, nil
	}

	if truncate {
		unlock := m.locks.Lock(view.Name, logical)
		defer unlock()
		if _, ok := hasDeltaEntry(view, logical); ok {
			f, err := os.OpenFile(deltaPath(view, logical), os.O_RDWR|os.O_TRUNC, 0)
			if err != nil {
				return nil, wrapErr(KindIO, "open", logical, err)
			}
			return f, nil
		}
		v := m.resolveChain(view, logical)
		mode := os.FileMode(0o644)
		if v.Found {
			if fi, err := os.Stat(v.AbsPath); err == nil {
				mode = fi.Mode()
			}
		}
		if err := m.ensureParentDirs(view, logical); err != nil {
			return nil, err
		}
		if err := removeTombstone(view, logical); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(deltaPath(view, logical), os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
		if err != nil {
			return nil, wrapErr(KindIO, "open", logical, err)
		}
		return f, nil
	}

	dst, err := m.Materialize(view, logical)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(dst, os.O_RDWR, 0)
	if err != nil {
		return nil, wrapErr(KindIO, "open", logical, err)
	}
	return f, nil
}

// Truncate implements spec §4.3's "the file is materialized then
// truncated".
func (m *Mount) Truncate(view *Branch, logical string, size int64) error {
	dst, err := m.Materialize(view, logical)
	if err != nil {
		return err
	}
	if err := os.Truncate(dst, size); err != nil {
		return wrapErr(KindIO, "truncate", logical, err)
	}
	return nil
}

// Unlink implements spec §4.1's edge policy: removing a delta file also
// writes a tombstone if the path exists below; removing a below-only path
// writes a tombstone directly.
func (m *Mount) Unlink(view *Branch, logical string) error {
	unlock := m.locks.Lock(view.Name, logical)
	defer unlock()

	_, hasOwn := hasDeltaEntry(view, logical)
	if hasOwn {
		if err := os.Remove(deltaPath(view, logical)); err != nil {
			return wrapErr(KindIO, "unlink", logical, err)
		}
	} else if !m.resolveChainExcluding(view, logical).Found {
		return newErr(KindNotFound, "unlink", logical)
	}

	if m.resolveChainExcluding(view, logical).Found {
		return writeTombstone(view, logical)
	}
	return nil
}

// resolveChainExcluding resolves logical starting at view.Parent (or,
// when view is main, falling straight through to the base — see the
// comment in Materialize), i.e. "does this path exist below the current
// branch". Used to decide whether an unlink needs a tombstone.
func (m *Mount) resolveChainExcluding(view *Branch, logical string) Verdict {
	return m.resolveChain(view.Parent, logical)
}

// Rmdir implements the same tombstone-on-delete policy as Unlink, for
// directories. The caller (fsnode) is responsible for verifying the
// directory is logically empty before calling this.
func (m *Mount) Rmdir(view *Branch, logical string) error {
	unlock := m.locks.Lock(view.Name, logical)
	defer unlock()

	_, hasOwn := hasDeltaEntry(view, logical)
	if hasOwn {
		if err := os.RemoveAll(deltaPath(view, logical)); err != nil {
			return wrapErr(KindIO, "rmdir", logical, err)
		}
	} else if !m.resolveChainExcluding(view, logical).Found {
		return newErr(KindNotFound, "rmdir", logical)
	}

	if m.resolveChainExcluding(view, logical).Found {
		return writeTombstone(view, logical)
	}
	return nil
}

// Mkdir implements spec §4.1: "a mkdir on a path that corresponds to a
// tombstoned directory removes the tombstone and creates a fresh delta
// directory."
func (m *Mount) Mkdir(view *Branch, logical string, mode os.FileMode) error {
	unlock := m.locks.Lock(view.Name, logical)
	defer unlock()

	if v := m.resolveChain(view, logical); v.Found {
		return newErr(KindDuplicate, "mkdir", logical)
	}
	if err := m.ensureParentDirs(view, logical); err != nil {
		return err
	}
	if err := removeTombstone(view, logical); err != nil {
		return err
	}
	if err := os.Mkdir(deltaPath(view, logical), mode); err != nil {
		return wrapErr(KindIO, "mkdir", logical, err)
	}
	return nil
}

// Rename implements spec §4.1: copy-materialize-then-unlink within the
// branch's delta, tombstoning the source if it existed below.
func (m *Mount) Rename(view *Branch, srcLogical, dstLogical string) error {
	v := m.resolveChain(view, srcLogical)
	if !v.Found {
		return newErr(KindNotFound, "rename", srcLogical)
	}
	if v.IsDir {
		return m.renameDir(view, srcLogical, dstLogical)
	}

	srcDst, err := m.Materialize(view, srcLogical)
	if err != nil {
		return err
	}

	if err := m.ensureParentDirs(view, dstLogical); err != nil {
		return err
	}
	if err := removeTombstone(view, dstLogical); err != nil {
		return err
	}
	if err := os.Rename(srcDst, deltaPath(view, dstLogical)); err != nil {
		return wrapErr(KindIO, "rename", dstLogical, err)
	}

	return m.tombstoneIfBelow(view, srcLogical)
}

func (m *Mount) renameDir(view *Branch, srcLogical, dstLogical string) error {
	if _, ok := hasDeltaEntry(view, srcLogical); !ok {
		if err := m.Mkdir(view, dstLogical, 0o755); err != nil {
			return err
		}
	} else {
		if err := m.ensureParentDirs(view, dstLogical); err != nil {
			return err
		}
		if err := removeTombstone(view, dstLogical); err != nil {
			return err
		}
		if err := os.Rename(deltaPath(view, srcLogical), deltaPath(view, dstLogical)); err != nil {
			return wrapErr(KindIO, "rename", dstLogical, err)
		}
	}
	return m.tombstoneIfBelow(view, srcLogical)
}

// Symlink implements spec §7's symlink support: the link is created
// directly in view's delta, the same as CreateFile but via os.Symlink,
// grounded on newunionfs.unionFSNode.Symlink.
func (m *Mount) Symlink(view *Branch, logical, target string) error {
	unlock := m.locks.Lock(view.Name, logical)
	defer unlock()

	if err := m.ensureParentDirs(view, logical); err != nil {
		return err
	}
	if err := removeTombstone(view, logical); err != nil {
		return err
	}
	if err := os.Symlink(target, deltaPath(view, logical)); err != nil {
		return wrapErr(KindIO, "symlink", logical, err)
	}
	return nil
}

// Readlink resolves logical through the chain and base and returns the
// symlink target at whichever layer backs it.
func (m *Mount) Readlink(view *Branch, logical string) (string, error) {
	v, err := m.Resolve(view, logical)
	if err != nil {
		return "", err
	}
	if !v.Found {
		return "", newErr(KindNotFound, "readlink", logical)
	}
	target, err := os.Readlink(v.AbsPath)
	if err != nil {
		return "", wrapErr(KindIO, "readlink", logical, err)
	}
	return target, nil
}

// tombstoneIfBelow writes a tombstone at srcLogical in view if, after
// whatever delta entry view itself had is gone, the path still resolves
// below (ancestor or base) — completing the rename's source-side cleanup.
func (m *Mount) tombstoneIfBelow(view *Branch, logical string) error {
	if m.resolveChainExcluding(view, logical).Found {
		return writeTombstone(view, logical)
	}
	return nil
}
