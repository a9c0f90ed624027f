package branchfs

// MainBranch is the reserved name of the root branch, created when a mount
// is opened and destroyed only at unmount.
const MainBranch = "main"

// TombstoneSuffix names the zero-length marker file that records a
// deletion in a branch's delta directory.
const TombstoneSuffix = ".bfs_tombstone"

// ControlFileName is the synthetic control file recognized at the mount
// root and inside every @branch root.
const ControlFileName = ".branchfs_ctl"

// Branch is a named node in a mount's branch tree (spec §3).
type Branch struct {
	Name     string
	Parent   *Branch
	Children map[string]*Branch

	// Delta is the absolute path of this branch's delta directory on the
	// storage filesystem. main has a Delta directory too (for symmetry)
	// but the commit/abort engine never populates or reads it, since main
	// has no parent to diverge from.
	Delta string
}

// IsLeaf reports whether b has no children. Only leaf branches may be
// committed or aborted (spec §3 invariant 6).
func (b *Branch) IsLeaf() bool {
	return len(b.Children) == 0
}

// Chain returns the branch chain from b (inclusive) up to and including
// main: B0=b, B1=parent(b), ..., Bk=main. Used by the path resolver's
// chain walk (spec §4.1 step 2).
func (b *Branch) Chain() []*Branch {
	var chain []*Branch
	for cur := b; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// IsAncestorOf reports whether b is x or an ancestor of x.
func (b *Branch) IsAncestorOf(x *Branch) bool {
	for cur := x; cur != nil; cur = cur.Parent {
		if cur == b {
			return true
		}
	}
	return false
}
