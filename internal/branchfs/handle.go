package branchfs

import (
	"os"
	"sync"
	"sync/atomic"
)

// Handle is a live file descriptor bound to (mount, branch at open time,
// opened-at epoch, backing file) per spec §3. Handles hold a weak
// reference to a branch — by name, not by pointer — so that branch
// destruction never leaves a dangling pointer; every operation re-looks
// the branch up by name (spec §9 "Handle lifetimes").
type Handle struct {
	ID          uint64
	LogicalPath string
	BranchName  string
	OpenEpoch   uint64
	Backing     string // absolute path of the delta or base file backing this handle
	File        *os.File
}

// handleTable is the mount's table of live handles, keyed by ID.
type handleTable struct {
	mu   sync.Mutex
	next uint64
	byID map[uint64]*Handle
}

func newHandleTable() *handleTable {
	return &handleTable{byID: map[uint64]*Handle{}}
}

func (t *handleTable) New(branchName, logical, backing string, openEpoch uint64, f *os.File) *Handle {
	id := atomic.AddUint64(&t.next, 1)
	h := &Handle{
		ID:          id,
		LogicalPath: logical,
		BranchName:  branchName,
		OpenEpoch:   openEpoch,
		Backing:     backing,
		File:        f,
	}
	t.mu.Lock()
	t.byID[id] = h
	t.mu.Unlock()
	return h
}

func (t *handleTable) Drop(id uint64) {
	t.mu.Lock()
	delete(t.byID, id)
	t.mu.Unlock()
}

func (t *handleTable) Get(id uint64) (*Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.byID[id]
	return h, ok
}

// OpenHandle opens logical for I/O under branch, returning a Handle bound
// to the branch name and the epoch at open time (spec §3's Handle fields).
// write selects materializing (or creating, if truncate) the path versus a
// plain read-only open against whatever backs it today.
func (m *Mount) OpenHandle(branch *Branch, logical string, write, truncate bool) (*Handle, error) {
	var f *os.File
	var backing string

	if write {
		var err error
		f, err = m.OpenForWrite(branch, logical, truncate)
		if err != nil {
			return nil, err
		}
		backing = deltaPath(branch, logical)
	} else {
		v, err := m.Resolve(branch, logical)
		if err != nil {
			return nil, err
		}
		if !v.Found {
			return nil, newErr(KindNotFound, "open", logical)
		}
		f, err = os.Open(v.AbsPath)
		if err != nil {
			return nil, wrapErr(KindIO, "open", logical, err)
		}
		backing = v.AbsPath
	}

	h := m.handles.New(branch.Name, logical, backing, m.Epoch(), f)
	return h, nil
}

// OpenHandleFromFile registers an already-open *os.File (e.g. one just
// returned by CreateFile) as a Handle, for callers that opened the file
// themselves as part of a combined create-and-open operation.
func (m *Mount) OpenHandleFromFile(branch *Branch, logical string, f *os.File) *Handle {
	return m.handles.New(branch.Name, logical, deltaPath(branch, logical), m.Epoch(), f)
}

// ValidateHandle implements spec §4.5's handle-validity rule: a handle is
// stale if its branch no longer exists, or if the logical path it was
// opened against no longer resolves to the same backing file (the branch
// was committed/aborted out from under it, or a later write on another
// handle redirected the path to a different delta entry).
func (m *Mount) ValidateHandle(h *Handle) error {
	b, ok := m.store.Lookup(h.BranchName)
	if !ok {
		return newErr(KindStale, "io", h.LogicalPath)
	}
	v, err := m.Resolve(b, h.LogicalPath)
	if err != nil || !v.Found || v.AbsPath != h.Backing {
		return newErr(KindStale, "io", h.LogicalPath)
	}
	return nil
}

// CloseHandle closes the underlying file and drops h from the table.
func (m *Mount) CloseHandle(h *Handle) error {
	m.handles.Drop(h.ID)
	if err := h.File.Close(); err != nil {
		return wrapErr(KindIO, "close", h.LogicalPath, err)
	}
	return nil
}
