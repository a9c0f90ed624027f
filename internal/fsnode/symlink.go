package fsnode

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/branchfs"
)

var (
	_ fs.NodeSymlinker  = (*Node)(nil)
	_ fs.NodeReadlinker = (*Node)(nil)
)

// Symlink implements spec §7's symlink support via Mount.Symlink, the same
// delta-entry-directly shape as Create.
func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if n.isCtl {
		return nil, syscall.EPERM
	}
	child := joinLogical(n.logical, name)
	if err := n.mount().Symlink(n.view(), child, target); err != nil {
		return nil, branchfs.ToErrno(err)
	}
	out.Mode = fuse.S_IFLNK | 0o777
	node := &Node{owner: n.owner, pinned: n.pinned, logical: child}
	ch := n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFLNK})
	return ch, 0
}

// Readlink implements spec §7's symlink support via Mount.Readlink.
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.mount().Readlink(n.view(), n.logical)
	if err != nil {
		return nil, branchfs.ToErrno(err)
	}
	return []byte(target), 0
}
