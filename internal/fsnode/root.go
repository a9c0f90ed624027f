// Package fsnode binds a *branchfs.Mount to the kernel through
// github.com/hanwen/go-fuse/v2/fs's InodeEmbedder tree, the way
// fs.loopbackNode binds a plain directory. One tree is built per mount.
package fsnode

import (
	"context"
	"os"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/branchfs"
)

// Root is the InodeEmbedder at a mount's root. Its view follows the
// mount's current view branch dynamically (spec §4.4: "switch changes
// what the unprefixed root resolves through" without rebuilding the tree).
type Root struct {
	Node
	Mount *branchfs.Mount
}

// NewRoot returns the root InodeEmbedder for mount.
func NewRoot(mount *branchfs.Mount) *Root {
	r := &Root{Mount: mount}
	r.Node.owner = r
	r.Node.logical = "/"
	return r
}

var (
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpendirer = (*Node)(nil)
	_ fs.NodeStatfser  = (*Node)(nil)
)

// Node is one entry in the branchfs tree: a file or directory resolved
// through (owner's view, logical). pinned, when non-nil, fixes the view
// to a specific branch regardless of the mount's current view — every
// node reached by first passing through an "@branch" segment is pinned
// to that branch (spec §4.1: "@branch re-roots the view for everything
// beneath it").
type Node struct {
	fs.Inode

	owner   *Root
	pinned  *branchfs.Branch
	logical string
	isCtl   bool
}

// view resolves which branch this node is presented through right now.
func (n *Node) view() *branchfs.Branch {
	if n.pinned != nil {
		return n.pinned
	}
	return n.owner.Mount.ViewBranch()
}

func (n *Node) mount() *branchfs.Mount { return n.owner.Mount }

func joinLogical(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// Lookup implements spec §4.1's resolution plus the §4.1/§4.6 synthetic
// entries: .branchfs_ctl and @<branch> only appear at a branch root
// (logical == "/").
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if n.logical == "/" {
		if name == branchfs.ControlFileName {
			return n.lookupCtl(ctx, out)
		}
		if strings.HasPrefix(name, "@") {
			return n.lookupVirtualBranch(ctx, name, out)
		}
	}

	child := joinLogical(n.logical, name)
	v, err := n.mount().Resolve(n.view(), child)
	if err != nil || !v.Found {
		return nil, branchfs.ToErrno(err)
	}

	mode := uint32(fuse.S_IFREG | 0o644)
	if v.IsDir {
		mode = fuse.S_IFDIR | 0o755
	} else if v.IsSymlink {
		mode = fuse.S_IFLNK | 0o777
	}
	out.Mode = mode

	node := &Node{owner: n.owner, pinned: n.pinned, logical: child}
	stable := fs.StableAttr{Mode: mode}
	ch := n.NewInode(ctx, node, stable)
	return ch, 0
}

// lookupCtl synthesizes the .branchfs_ctl entry. It inherits n's own
// pinning rather than calling n.view(): at the real mount root (pinned
// nil) the ctl file must keep following the mount's current view as it
// switches; inside an @branch root it is fixed to that branch, same as
// every other node reached through it.
func (n *Node) lookupCtl(ctx context.Context, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	out.Mode = fuse.S_IFREG | 0o644
	node := &Node{owner: n.owner, pinned: n.pinned, logical: joinLogical(n.logical, branchfs.ControlFileName), isCtl: true}
	ch := n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFREG})
	return ch, 0
}

func (n *Node) lookupVirtualBranch(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	branchName := strings.TrimPrefix(name, "@")
	if branchName == branchfs.MainBranch {
		return nil, syscall.ENOENT
	}
	b, ok := n.mount().LookupBranch(branchName)
	if !ok {
		return nil, syscall.ENOENT
	}
	out.Mode = fuse.S_IFDIR | 0o755
	node := &Node{owner: n.owner, pinned: b, logical: "/"}
	ch := n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR})
	return ch, 0
}

// Getattr reports directory/regular-file attributes; the ctl file's size
// reflects the current status document so a plain `cat` sees live state.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if n.isCtl {
		out.Mode = fuse.S_IFREG | 0o644
		out.Size = uint64(n.mount().StatusDocSize())
		return 0
	}

	v, err := n.mount().Resolve(n.view(), n.logical)
	if err != nil || !v.Found {
		return branchfs.ToErrno(err)
	}
	if v.IsDir {
		out.Mode = fuse.S_IFDIR | 0o755
		return 0
	}
	if v.IsSymlink {
		out.Mode = fuse.S_IFLNK | 0o777
		if fi, statErr := os.Lstat(v.AbsPath); statErr == nil {
			out.Size = uint64(fi.Size())
		}
		return 0
	}
	out.Mode = fuse.S_IFREG | 0o644
	if fi, statErr := os.Stat(v.AbsPath); statErr == nil {
		out.Size = uint64(fi.Size())
		out.Mode = fuse.S_IFREG | uint32(fi.Mode().Perm())
	}
	return 0
}

// Opendir validates that logical currently resolves to a directory.
func (n *Node) Opendir(ctx context.Context) syscall.Errno {
	v, err := n.mount().Resolve(n.view(), n.logical)
	if err != nil {
		return branchfs.ToErrno(err)
	}
	if !v.Found || !v.IsDir {
		return syscall.ENOTDIR
	}
	return 0
}

// Readdir implements the union listing of spec §4.1 via Mount.ReadDir.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.mount().ReadDir(n.view(), n.logical)
	if err != nil {
		return nil, branchfs.ToErrno(err)
	}
	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(fuse.S_IFREG)
		if e.IsDir {
			mode = fuse.S_IFDIR
		}
		list = append(list, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(list), 0
}

// Statfs reports the base filesystem's statistics, the way
// fs.loopbackNode.Statfs does for a plain loopback tree (spec §7 supplemented
// features: required so df and OS X mount policies behave), with Ffree
// reduced by the live branch count so each branch's delta/tombstone
// bookkeeping is visible as inode pressure.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	var st syscall.Statfs_t
	if err := syscall.Statfs(n.mount().Base, &st); err != nil {
		return branchfs.ToErrno(err)
	}
	out.FromStatfsT(&st)
	if branches := uint64(len(n.mount().ListBranches())); branches < out.Ffree {
		out.Ffree -= branches
	}
	return 0
}
