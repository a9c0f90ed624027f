// Package mmapguard implements and exercises spec §4.5's memory-map
// invalidation contract: destroying a branch (commit or abort) must leave
// any process that already had one of its files mapped faulting with
// SIGBUS on the next touch, not silently reading stale or zeroed data.
package mmapguard

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Map maps f's full current extent read-only. Callers that want to
// observe the SIGBUS behavior must do so from a subprocess (see
// internal/mmapguard's test helper pattern): a fault in-process would
// crash the calling test binary itself, not just the mapped region.
func Map(f *os.File) (mmap.MMap, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("mmapguard: cannot map zero-length file %s", f.Name())
	}
	return mmap.Map(f, mmap.RDONLY, 0)
}

// Destroy implements the branch-destruction half of the invalidation
// contract directly against a single file, for tests that want to drive
// it without a full Mount: truncating to zero shrinks the file's extent
// out from under any existing mapping of it, so a subsequent access
// faults with SIGBUS rather than reading through to unmapped or stale
// pages. branchfs.destroyDeltaTree applies this to every file in a
// branch's delta directory before removing it.
func Destroy(path string) error {
	if err := os.Truncate(path, 0); err != nil {
		return err
	}
	return os.Remove(path)
}

// TouchByte reads a single byte from m to provoke a fault if the backing
// file has been destroyed out from under the mapping. Used only from the
// re-exec subprocess helper in tests: a real SIGBUS terminates the
// process, which is the whole point of the test.
func TouchByte(m mmap.MMap) byte {
	return m[0]
}
