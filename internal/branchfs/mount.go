package branchfs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Mount is a single branchfs presentation at a host directory: a base
// directory, a storage directory holding this mount's state, a branch
// store, a current view branch, an epoch counter, and a handle table
// (spec §3).
type Mount struct {
	ID         string
	Base       string // absolute path to the read-write base directory
	StorageDir string // <storage>/mounts/<id>

	store *store
	locks *keyedLocks
	epoch epoch

	// adminMu serializes every administrative operation (create, commit,
	// abort, switch) for this mount, giving the total order spec §5's
	// ordering guarantee 1 requires and the cross-branch exclusivity
	// guarantee 3 requires for commit.
	adminMu sync.Mutex

	// viewMu protects viewName, read far more often (every path
	// resolution) than it is written (only on switch, commit, abort, and
	// create with switchView), so
	// it is a dedicated lock rather than piggybacking on adminMu.
	viewMu   sync.RWMutex
	viewName string

	invalidator Invalidator
	handles     *handleTable

	Log *log.Logger
}

// Options configures a new Mount.
type Options struct {
	ID          string
	Base        string
	StorageDir  string
	Invalidator Invalidator // nil uses a no-op invalidator
}

// NewMount opens a mount: creates the storage layout, the "main" branch,
// and an empty handle table. main is created here and destroyed only by
// Mount.Close (spec §3 Branch lifecycle).
func NewMount(opts Options) (*Mount, error) {
	base, err := filepath.Abs(opts.Base)
	if err != nil {
		return nil, wrapErr(KindIO, "mount", opts.ID, err)
	}
	if st, err := os.Stat(base); err != nil || !st.IsDir() {
		return nil, wrapErr(KindIO, "mount", opts.ID, fmt.Errorf("base %q is not a directory", base))
	}

	storageDir, err := filepath.Abs(opts.StorageDir)
	if err != nil {
		return nil, wrapErr(KindIO, "mount", opts.ID, err)
	}
	branchDir := filepath.Join(storageDir, "branches")
	if err := os.MkdirAll(branchDir, 0o755); err != nil {
		return nil, wrapErr(KindIO, "mount", opts.ID, err)
	}

	st, err := newStore(branchDir)
	if err != nil {
		return nil, err
	}

	inv := opts.Invalidator
	if inv == nil {
		inv = noopInvalidator{}
	}

	m := &Mount{
		ID:          opts.ID,
		Base:        base,
		StorageDir:  storageDir,
		store:       st,
		locks:       newKeyedLocks(),
		viewName:    MainBranch,
		invalidator: inv,
		handles:     newHandleTable(),
		Log:         log.New(os.Stderr, fmt.Sprintf("[mount %s] ", opts.ID), log.LstdFlags|log.Lmicroseconds),
	}
	return m, nil
}

// View returns the name of the branch currently presented at the mount
// root.
func (m *Mount) View() string {
	m.viewMu.RLock()
	defer m.viewMu.RUnlock()
	return m.viewName
}

// ViewBranch returns the *Branch currently presented at the mount root.
func (m *Mount) ViewBranch() *Branch {
	name := m.View()
	b, _ := m.store.Lookup(name)
	return b
}

// Epoch returns the current epoch value.
func (m *Mount) Epoch() uint64 {
	return m.epoch.current()
}

// setViewLocked sets the view branch. Caller must hold adminMu.
func (m *Mount) setViewLocked(name string) {
	m.viewMu.Lock()
	m.viewName = name
	m.viewMu.Unlock()
}

// bumpAndInvalidate bumps the epoch and notifies the transport. Caller
// must hold adminMu so the bump is ordered before the next administrative
// operation begins (spec §5 ordering guarantee 1).
func (m *Mount) bumpAndInvalidate() {
	m.epoch.bump()
	m.invalidator.InvalidateAll(m.ID)
}

// CreateBranch creates a new branch named name under parentName, bumping
// the epoch (spec §4.2, §3 invariant 7: "every branch create/destroy/switch
// bumps the per-mount epoch"). If switchView is true the mount's view is
// moved to the new branch as part of the same administrative operation.
func (m *Mount) CreateBranch(name, parentName string, switchView bool) (*Branch, error) {
	m.adminMu.Lock()
	defer m.adminMu.Unlock()

	b, err := m.store.Create(name, parentName)
	if err != nil {
		return nil, err
	}
	if switchView {
		m.setViewLocked(name)
	}
	m.bumpAndInvalidate()
	return b, nil
}

// Switch moves the mount's view to branch name, failing if it does not
// exist.
func (m *Mount) Switch(name string) error {
	m.adminMu.Lock()
	defer m.adminMu.Unlock()

	if _, ok := m.store.Lookup(name); !ok {
		return newErr(KindNotFound, "switch", name)
	}
	m.setViewLocked(name)
	m.bumpAndInvalidate()
	return nil
}

// ListBranches returns the branch tree in stable depth-first order.
func (m *Mount) ListBranches() []BranchInfo {
	return m.store.List()
}

// Close tears down every branch in the mount, including main's metadata
// (spec §4.7), and removes the per-mount storage subdirectory. It does
// not touch the base directory.
func (m *Mount) Close() error {
	m.adminMu.Lock()
	defer m.adminMu.Unlock()

	if err := os.RemoveAll(m.StorageDir); err != nil {
		return wrapErr(KindIO, "unmount", m.ID, err)
	}
	return nil
}
