package fsnode

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/branchfs"
)

var (
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
)

// Create implements spec §4.3's "create" path: the delta file is created
// directly, no materialization needed.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	if n.isCtl {
		return nil, nil, 0, syscall.EPERM
	}
	child := joinLogical(n.logical, name)
	f, err := n.mount().CreateFile(n.view(), child, fromFuseMode(mode))
	if err != nil {
		return nil, nil, 0, branchfs.ToErrno(err)
	}
	h := n.mount().OpenHandleFromFile(n.view(), child, f)
	out.Mode = fuse.S_IFREG | mode
	node := &Node{owner: n.owner, pinned: n.pinned, logical: child}
	ch := n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFREG})
	return ch, &FileHandle{mount: n.mount(), h: h}, 0, 0
}

// Open implements read/write opens, including the ctl file's read path
// (spec §4.6: "reads return a status document").
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.isCtl {
		return &ctlFileHandle{node: n}, fuse.FOPEN_DIRECT_IO, 0
	}

	write := flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0
	truncate := flags&syscall.O_TRUNC != 0

	h, err := n.mount().OpenHandle(n.view(), n.logical, write, truncate)
	if err != nil {
		return nil, 0, branchfs.ToErrno(err)
	}
	return &FileHandle{mount: n.mount(), h: h}, 0, 0
}

// Mkdir implements spec §4.1's mkdir-on-tombstone edge policy via
// Mount.Mkdir.
func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := joinLogical(n.logical, name)
	if err := n.mount().Mkdir(n.view(), child, fromFuseMode(mode)); err != nil {
		return nil, branchfs.ToErrno(err)
	}
	out.Mode = fuse.S_IFDIR | mode
	node := &Node{owner: n.owner, pinned: n.pinned, logical: child}
	ch := n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR})
	return ch, 0
}

// Rmdir implements spec §4.1's tombstone-on-delete policy for directories.
// It lists the directory's union view first and fails with ENOTEMPTY if
// anything is visible in it, which is the emptiness check Mount.Rmdir
// leaves to its caller.
func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	child := joinLogical(n.logical, name)
	entries, err := n.mount().ReadDir(n.view(), child)
	if err != nil {
		return branchfs.ToErrno(err)
	}
	if len(entries) > 0 {
		return syscall.ENOTEMPTY
	}
	return branchfs.ToErrno(n.mount().Rmdir(n.view(), child))
}

// Unlink implements spec §4.1's tombstone-on-delete policy for files.
func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	if n.logical == "/" && name == branchfs.ControlFileName {
		return syscall.EPERM
	}
	return branchfs.ToErrno(n.mount().Unlink(n.view(), joinLogical(n.logical, name)))
}

// Rename implements spec §4.1's copy-materialize-then-unlink edge policy.
// Cross-directory renames within the same view are supported the way
// Mount.Rename expects: both paths are resolved relative to the same view
// branch, which holds for every rename the kernel issues within one mount.
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	destNode, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	src := joinLogical(n.logical, name)
	dst := joinLogical(destNode.logical, newName)
	return branchfs.ToErrno(n.mount().Rename(n.view(), src, dst))
}

// Setattr handles truncation (via the COW engine) and is a no-op
// otherwise: mode, owner and timestamp changes (chmod/chown/utimes) are
// not applied to any layer, and the attributes reported back are those of
// whatever currently backs the path.
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if n.isCtl {
		return 0
	}
	if sz, ok := in.GetSize(); ok {
		if err := n.mount().Truncate(n.view(), n.logical, int64(sz)); err != nil {
			return branchfs.ToErrno(err)
		}
	}
	return n.Getattr(ctx, f, out)
}

func fromFuseMode(mode uint32) os.FileMode {
	return os.FileMode(mode & 0o7777)
}
