package branchfs

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

// Registry tracks every active mount under a single storage directory,
// laid out as <storage>/mounts/<mount-id>/ per spec §4.7 and §6's
// on-disk-layout table. The process that owns a Registry is expected to
// exit once it goes empty (spec §4.7: "the process exits when the
// registry is empty"); Registry only signals that moment via Done,
// it does not call os.Exit itself.
type Registry struct {
	storageRoot string

	mu     sync.Mutex
	mounts map[string]*Mount
	empty  chan struct{} // closed exactly once, when the last mount is removed
}

// NewRegistry creates the <storage>/mounts directory if needed and returns
// an empty Registry rooted there.
func NewRegistry(storageRoot string) (*Registry, error) {
	root, err := filepath.Abs(storageRoot)
	if err != nil {
		return nil, wrapErr(KindIO, "registry", storageRoot, err)
	}
	if err := os.MkdirAll(filepath.Join(root, "mounts"), 0o755); err != nil {
		return nil, wrapErr(KindIO, "registry", storageRoot, err)
	}
	return &Registry{
		storageRoot: root,
		mounts:      map[string]*Mount{},
		empty:       make(chan struct{}),
	}, nil
}

// newMountID returns a short random hex identifier, unique enough that
// collisions across concurrent Open calls are not worth guarding against
// beyond the directory-creation failing if one somehow occurred.
func newMountID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

// Open allocates a new mount-id subdirectory, opens a Mount over it, and
// registers it. inv may be nil.
func (r *Registry) Open(base string, inv Invalidator) (*Mount, error) {
	id, err := newMountID()
	if err != nil {
		return nil, wrapErr(KindIO, "mount", base, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	storageDir := filepath.Join(r.storageRoot, "mounts", id)
	m, err := NewMount(Options{
		ID:          id,
		Base:        base,
		StorageDir:  storageDir,
		Invalidator: inv,
	})
	if err != nil {
		return nil, err
	}
	r.mounts[id] = m
	return m, nil
}

// Lookup returns the mount registered under id.
func (r *Registry) Lookup(id string) (*Mount, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mounts[id]
	return m, ok
}

// Unmount tears down the mount registered under id: destroys every branch
// (including main) and removes its storage subdirectory. If this was the
// last mount, Done's channel closes.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	m, ok := r.mounts[id]
	if !ok {
		r.mu.Unlock()
		return newErr(KindNotFound, "unmount", id)
	}
	delete(r.mounts, id)
	n := len(r.mounts)
	r.mu.Unlock()

	if err := m.Close(); err != nil {
		return err
	}
	if n == 0 {
		r.mu.Lock()
		select {
		case <-r.empty:
		default:
			close(r.empty)
		}
		r.mu.Unlock()
	}
	return nil
}

// Len reports how many mounts are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mounts)
}

// Done returns a channel that closes the first time the registry becomes
// empty after having held at least one mount.
func (r *Registry) Done() <-chan struct{} {
	return r.empty
}
