// Package ipc implements the JSON-line admin RPC protocol spoken between
// cmd/branchfs's subcommands and a running mount daemon over its
// daemon.sock Unix socket (spec §6's on-disk layout, §4.7's admin surface).
// One JSON object per line, request then response, the same synchronous
// request/response shape as the teacher's fuse.Server read-dispatch-write
// loop, but addressed at the admin surface instead of the kernel channel.
package ipc

// Request is one administrative call. Op selects which branchfs.Mount
// method to invoke; the remaining fields are op-specific.
type Request struct {
	Op     string `json:"op"` // "create", "commit", "abort", "switch", "list", "unmount"
	Name   string `json:"name,omitempty"`
	Parent string `json:"parent,omitempty"`
	Switch bool   `json:"switch,omitempty"`
}

// Response carries either a result or a structural error token (spec §6's
// stderr error-token table — the same Kind strings, so the CLI layer can
// print them verbatim and choose the matching exit code).
type Response struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"` // branchfs.Kind string, empty on success
	Tree  []BranchStatus `json:"tree,omitempty"`
	View  string         `json:"view,omitempty"`
	Epoch uint64         `json:"epoch,omitempty"`
}

// BranchStatus mirrors branchfs.BranchInfo for wire transport without
// internal/branchfs needing to be JSON-tagged itself.
type BranchStatus struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}
