package branchfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Invalidator is the callback contract the core uses to tell an external
// transport (the FUSE kernel binding) that cached attribute/data state for
// a mount is no longer trustworthy (spec §4.5). A Mount with a nil
// Invalidator simply skips notification — useful for tests that only
// exercise the core logic.
type Invalidator interface {
	// InvalidateAll is called after any administrative mutation that
	// changes what the whole tree resolves to (branch create/destroy,
	// commit, abort, switch).
	InvalidateAll(mountID string)

	// InvalidatePath is called when only one logical path's resolution
	// is known to have changed (not currently used by the admin engine,
	// which always invalidates the whole tree per spec §4.5, but kept so
	// a future finer-grained caller — e.g. a single COW materialization —
	// has somewhere to plug in without changing the interface).
	InvalidatePath(mountID, path string)
}

// noopInvalidator is used when a Mount is constructed without a transport.
type noopInvalidator struct{}

func (noopInvalidator) InvalidateAll(string)          {}
func (noopInvalidator) InvalidatePath(string, string) {}

// epoch is the per-mount monotonically increasing counter of spec §4.5.
// It is bumped exactly once per administrative mutation, strictly before
// that mutation is reported complete (spec §5 ordering guarantee 1).
type epoch struct {
	v uint64
}

func (e *epoch) current() uint64 {
	return atomic.LoadUint64(&e.v)
}

// bump increments the epoch and returns the new value. Callers must hold
// whatever lock serializes administrative operations for the mount (the
// Mount's adminMu) so that "bumps exactly once, ordered before the next
// administrative operation begins" holds even though the counter itself
// is atomic.
func (e *epoch) bump() uint64 {
	return atomic.AddUint64(&e.v, 1)
}

// destroyDeltaTree removes a branch's entire delta directory, truncating
// every regular file to zero length before unlinking it. Unlinking alone
// leaves the data of any still-mapped page intact; truncating to zero
// first shrinks the file's extent so a subsequent access through an
// existing mmap of it faults with SIGBUS (spec §4.5 "memory-map
// invalidation"; §9 "mmap destruction must truncate/unmap").
func destroyDeltaTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.Type().IsRegular() {
			_ = os.Truncate(path, 0)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(root)
}
