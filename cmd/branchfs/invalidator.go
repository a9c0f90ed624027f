package main

import "github.com/hanwen/go-fuse/v2/fuse"

// fuseInvalidator implements branchfs.Invalidator for a live mount. The
// go-fuse version vendored by this module does not expose entry/inode
// notification methods on fs.Inode (only the lower-level fuse.Server has
// them, unexported) — so instead of a best-effort partial notify, the
// daemon sets zero-length kernel attribute/entry caching at mount time
// (see MountCmd) and InvalidateAll here is a deliberate no-op: every
// Lookup/Getattr/Readdir already calls straight into Mount.Resolve, so
// there is nothing cached in the kernel that could go stale.
type fuseInvalidator struct {
	server *fuse.Server
}

func newFuseInvalidator() *fuseInvalidator {
	return &fuseInvalidator{}
}

func (f *fuseInvalidator) InvalidateAll(mountID string)        {}
func (f *fuseInvalidator) InvalidatePath(mountID, path string) {}
