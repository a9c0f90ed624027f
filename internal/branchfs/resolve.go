package branchfs

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Verdict is the outcome of resolving a logical path in a view branch
// (spec §4.1).
type Verdict struct {
	// Found is false when the path does not exist anywhere in the chain
	// or the base (not a tombstone — genuinely absent).
	Found bool
	// Deleted is true when a tombstone hid the path; Found is also false
	// in that case. Kept as a separate field because callers sometimes
	// want to distinguish "never existed" from "deleted" for logging.
	Deleted bool

	// AbsPath is the absolute backing path: a file under some branch's
	// delta directory, or a file under the base directory.
	AbsPath string
	// Branch is the branch whose delta produced this verdict, or nil if
	// the verdict came from the base directory.
	Branch    *Branch
	IsDir     bool
	IsSymlink bool
}

// splitFirst splits a "/"-separated logical path into its first segment
// and the remainder (remainder has no leading slash).
func splitFirst(p string) (first, rest string) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", ""
	}
	idx := strings.IndexByte(p, '/')
	if idx < 0 {
		return p, ""
	}
	return p[:idx], p[idx+1:]
}

// resolveView strips any number of leading "@branch" segments, re-rooting
// the view branch at each one, per spec §4.1 step 1. @main is rejected:
// the unprefixed root view is the only way to reach main.
func (m *Mount) resolveView(view *Branch, logical string) (*Branch, string, error) {
	for {
		first, rest := splitFirst(logical)
		if !strings.HasPrefix(first, "@") {
			return view, logical, nil
		}
		name := first[1:]
		if name == MainBranch {
			return nil, "", newErr(KindNotFound, "lookup", logical)
		}
		b, ok := m.store.Lookup(name)
		if !ok {
			return nil, "", newErr(KindNotFound, "lookup", logical)
		}
		view = b
		logical = "/" + rest
	}
}

// Resolve implements spec §4.1 in full: virtual-namespace strip followed
// by the chain walk with base fallback.
func (m *Mount) Resolve(view *Branch, logical string) (Verdict, error) {
	view, logical, err := m.resolveView(view, logical)
	if err != nil {
		return Verdict{}, err
	}
	logical = normalizeLogical(logical)
	return m.resolveChain(view, logical), nil
}

func normalizeLogical(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}

func (m *Mount) resolveChain(view *Branch, logical string) Verdict {
	for _, b := range view.Chain() {
		if hasTombstone(b, logical) {
			return Verdict{Found: false, Deleted: true}
		}
		if fi, ok := hasDeltaEntry(b, logical); ok {
			return Verdict{
				Found:     true,
				AbsPath:   deltaPath(b, logical),
				Branch:    b,
				IsDir:     fi.IsDir(),
				IsSymlink: fi.Mode()&os.ModeSymlink != 0,
			}
		}
	}
	// Probe the base.
	abs := filepath.Join(m.Base, filepath.FromSlash(logical))
	if fi, err := os.Lstat(abs); err == nil {
		return Verdict{Found: true, AbsPath: abs, Branch: nil, IsDir: fi.IsDir(), IsSymlink: fi.Mode()&os.ModeSymlink != 0}
	}
	return Verdict{Found: false}
}

// DirEntry is one synthesized or real entry returned by ReadDir.
type DirEntry struct {
	Name  string
	IsDir bool
}

// ReadDir implements the directory-listing union of spec §4.1: entries
// present in the delta of the view branch, its ancestors, or the base,
// minus anything hidden by a tombstone at a higher-priority layer for
// that child name. It also synthesizes .branchfs_ctl and @<branch> names
// at the mount root (and, transitively, at every @branch root).
func (m *Mount) ReadDir(view *Branch, logical string) ([]DirEntry, error) {
	view, logical, err := m.resolveView(view, logical)
	if err != nil {
		return nil, err
	}
	logical = normalizeLogical(logical)

	v := m.resolveChain(view, logical)
	if !v.Found {
		return nil, newErr(KindNotFound, "readdir", logical)
	}
	if !v.IsDir {
		return nil, wrapErr(KindIO, "readdir", logical, os.ErrInvalid)
	}

	chain := view.Chain()

	type layer struct {
		entries    map[string]os.FileInfo
		tombstoned map[string]bool
	}
	layers := make([]layer, len(chain))

	g := new(errgroup.Group)
	for i, b := range chain {
		i, b := i, b
		g.Go(func() error {
			entries, err := listDeltaNames(b, logical)
			if err != nil {
				return err
			}
			tomb, err := tombstonedNames(b, logical)
			if err != nil {
				return err
			}
			layers[i] = layer{entries: entries, tombstoned: tomb}
			return nil
		})
	}
	var baseEntries map[string]os.FileInfo
	g.Go(func() error {
		baseEntries = map[string]os.FileInfo{}
		ents, err := os.ReadDir(filepath.Join(m.Base, filepath.FromSlash(logical)))
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return wrapErr(KindIO, "readdir", logical, err)
		}
		for _, e := range ents {
			if fi, err := e.Info(); err == nil {
				baseEntries[e.Name()] = fi
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	hidden := map[string]bool{}
	result := map[string]bool{} // name -> isDir

	visit := func(name string, isDir bool) {
		if hidden[name] || seen[name] {
			return
		}
		seen[name] = true
		result[name] = isDir
	}

	for _, l := range layers {
		for name := range l.tombstoned {
			if !seen[name] {
				hidden[name] = true
			}
		}
		for name, fi := range l.entries {
			visit(name, fi.IsDir())
		}
	}
	for name, fi := range baseEntries {
		visit(name, fi.IsDir())
	}

	out := make([]DirEntry, 0, len(result)+2)
	for name, isDir := range result {
		out = append(out, DirEntry{Name: name, IsDir: isDir})
	}

	if logical == "/" {
		out = append(out, DirEntry{Name: ControlFileName})
		for _, info := range m.store.List() {
			if info.Name == MainBranch {
				continue
			}
			out = append(out, DirEntry{Name: "@" + info.Name, IsDir: true})
		}
	}
	return out, nil
}
