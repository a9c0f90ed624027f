package fsnode

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/branchfs/branchfs/internal/branchfs"
)

var (
	_ fs.FileHandle   = (*FileHandle)(nil)
	_ fs.FileReader   = (*FileHandle)(nil)
	_ fs.FileWriter   = (*FileHandle)(nil)
	_ fs.FileFlusher  = (*FileHandle)(nil)
	_ fs.FileFsyncer  = (*FileHandle)(nil)
	_ fs.FileReleaser = (*FileHandle)(nil)
)

// FileHandle wraps a *branchfs.Handle, re-validating it against the
// mount's epoch on every I/O the way spec §4.5 requires ("handle validity
// is checked on every I/O; stale if the branch is gone or resolution
// changed"). Grounded on fs.LoopbackFile's forward-to-fd shape, with the
// staleness check added in front of Read, Write and Fsync; Flush and
// Release run without it so that closing a stale handle still succeeds.
type FileHandle struct {
	mount *branchfs.Mount
	h     *branchfs.Handle
}

func (f *FileHandle) Read(ctx context.Context, buf []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if err := f.mount.ValidateHandle(f.h); err != nil {
		return nil, branchfs.ToErrno(err)
	}
	n, err := f.h.File.ReadAt(buf, off)
	if err != nil && n == 0 {
		return nil, branchfs.ToErrno(err)
	}
	return &fuse.ReadResultData{Data: buf[:n]}, 0
}

func (f *FileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	if err := f.mount.ValidateHandle(f.h); err != nil {
		return 0, branchfs.ToErrno(err)
	}
	n, err := f.h.File.WriteAt(data, off)
	if err != nil {
		return uint32(n), branchfs.ToErrno(err)
	}
	return uint32(n), 0
}

func (f *FileHandle) Flush(ctx context.Context) syscall.Errno {
	return branchfs.ToErrno(f.h.File.Sync())
}

func (f *FileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	if err := f.mount.ValidateHandle(f.h); err != nil {
		return branchfs.ToErrno(err)
	}
	return branchfs.ToErrno(f.h.File.Sync())
}

func (f *FileHandle) Release(ctx context.Context) syscall.Errno {
	return branchfs.ToErrno(f.mount.CloseHandle(f.h))
}

// ctlFileHandle implements the .branchfs_ctl protocol (spec §4.6):
// reads return the status document, writes dispatch commit/abort/switch.
type ctlFileHandle struct {
	node *Node
}

var (
	_ fs.FileReader = (*ctlFileHandle)(nil)
	_ fs.FileWriter = (*ctlFileHandle)(nil)
)

func (c *ctlFileHandle) Read(ctx context.Context, buf []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if p := c.node.pinned; p != nil {
		if _, ok := c.node.mount().LookupBranch(p.Name); !ok {
			return nil, syscall.ESTALE
		}
	}
	doc := c.node.mount().StatusDoc()
	if off >= int64(len(doc)) {
		return &fuse.ReadResultData{}, 0
	}
	end := off + int64(len(buf))
	if end > int64(len(doc)) {
		end = int64(len(doc))
	}
	return &fuse.ReadResultData{Data: []byte(doc[off:end])}, 0
}

func (c *ctlFileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	// allowSwitch only at the real mount root: a ctl file reached through
	// an @branch root is pinned, and its scope is that branch by name,
	// not the mount's current view (spec §4.6).
	allowSwitch := c.node.pinned == nil
	scope := c.node.view().Name
	if err := c.node.mount().Control(scope, string(data), allowSwitch); err != nil {
		return 0, branchfs.ToErrno(err)
	}
	return uint32(len(data)), 0
}
