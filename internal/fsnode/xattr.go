package fsnode

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"

	"github.com/branchfs/branchfs/internal/branchfs"
)

var (
	_ fs.NodeGetxattrer    = (*Node)(nil)
	_ fs.NodeSetxattrer    = (*Node)(nil)
	_ fs.NodeRemovexattrer = (*Node)(nil)
	_ fs.NodeListxattrer   = (*Node)(nil)
)

// Getxattr passes through to whatever currently backs n.logical (spec §7
// "xattr pass-through"), the way fs.loopbackNode delegates to the
// underlying filesystem.
func (n *Node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	if n.isCtl {
		return 0, syscall.ENODATA
	}
	sz, err := n.mount().Getxattr(n.view(), n.logical, attr, dest)
	if err != nil {
		return 0, branchfs.ToErrno(err)
	}
	return uint32(sz), 0
}

// Setxattr materializes the file before setting the attribute, the same
// copy-on-write ordering as any other mutation.
func (n *Node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	if n.isCtl {
		return syscall.EPERM
	}
	return branchfs.ToErrno(n.mount().Setxattr(n.view(), n.logical, attr, data, flags))
}

// Removexattr materializes the file before removing the attribute.
func (n *Node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	if n.isCtl {
		return syscall.EPERM
	}
	return branchfs.ToErrno(n.mount().Removexattr(n.view(), n.logical, attr))
}

// Listxattr passes through to whatever currently backs n.logical.
func (n *Node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	if n.isCtl {
		return 0, 0
	}
	sz, err := n.mount().Listxattr(n.view(), n.logical, dest)
	if err != nil {
		return 0, branchfs.ToErrno(err)
	}
	return uint32(sz), 0
}
