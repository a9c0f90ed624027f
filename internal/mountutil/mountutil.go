// Package mountutil verifies kernel-visible mount state for the branchfs
// daemon's unmount path: the admin layer can tear down its own bookkeeping
// as soon as it decides to, but the storage directory must not be deleted
// until the kernel has actually released the FUSE session, or a concurrent
// reader could still be resolving paths through it.
package mountutil

import (
	"context"
	"fmt"
	"time"

	"github.com/moby/sys/mountinfo"
)

// WaitUnmounted polls /proc/self/mountinfo until mountpoint no longer
// appears, or ctx is done. FUSE session teardown triggered by
// fuse.Server.Unmount is asynchronous from the kernel's point of view;
// this is what makes "the storage directory is only removed once the
// session has actually left the mount table" an observable fact rather
// than an assumption.
func WaitUnmounted(ctx context.Context, mountpoint string) error {
	for {
		mounted, err := mountinfo.Mounted(mountpoint)
		if err != nil {
			return fmt.Errorf("checking mount state of %s: %w", mountpoint, err)
		}
		if !mounted {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to unmount: %w", mountpoint, ctx.Err())
		case <-time.After(20 * time.Millisecond):
		}
	}
}
