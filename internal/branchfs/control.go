package branchfs

import (
	"fmt"
	"strings"
)

// ctlCommand is a parsed request to the control-file protocol (spec §4.6).
type ctlCommand struct {
	op     string // "commit", "abort", "switch"
	target string // branch name for "switch"
}

// parseCtlCommand parses the bytes written to a .branchfs_ctl file.
// Unrecognized text is a protocol error (spec §7: "unknown commands produce
// a protocol error").
func parseCtlCommand(raw string) (ctlCommand, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "commit":
		return ctlCommand{op: "commit"}, nil
	case s == "abort":
		return ctlCommand{op: "abort"}, nil
	case strings.HasPrefix(s, "switch:"):
		name := strings.TrimPrefix(s, "switch:")
		if name == "" {
			return ctlCommand{}, newErr(KindProtocol, "control", raw)
		}
		return ctlCommand{op: "switch", target: name}, nil
	default:
		return ctlCommand{}, newErr(KindProtocol, "control", raw)
	}
}

// Control applies a control-file write addressed at branch "scope" (the
// mount root passes the current view's name; an @branch root passes that
// branch's name directly — spec §4.6: "a write inside a @branch root
// applies to that specific branch, regardless of the mount's current
// view"). "switch" is only meaningful at the mount root; the caller is
// responsible for rejecting it elsewhere, since only it knows which root
// the write came through.
func (m *Mount) Control(scope string, raw string, allowSwitch bool) error {
	cmd, err := parseCtlCommand(raw)
	if err != nil {
		return err
	}
	switch cmd.op {
	case "commit":
		return m.CommitBranch(scope)
	case "abort":
		return m.AbortBranch(scope)
	case "switch":
		if !allowSwitch {
			return newErr(KindProtocol, "control", raw)
		}
		return m.Switch(cmd.target)
	default:
		return newErr(KindProtocol, "control", raw)
	}
}

// StatusDoc renders the read side of the control-file protocol: the view
// branch, the branch tree, and the current epoch (spec §4.6: "reads
// return a status document").
func (m *Mount) StatusDoc() string {
	var b strings.Builder
	fmt.Fprintf(&b, "view: %s\n", m.View())
	fmt.Fprintf(&b, "epoch: %d\n", m.Epoch())
	fmt.Fprintln(&b, "branches:")
	for _, info := range m.ListBranches() {
		parent := info.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(&b, "  %s <- %s\n", info.Name, parent)
	}
	return b.String()
}

// StatusDocSize is the byte length fsnode reports for a .branchfs_ctl
// node's size attribute, computed from the same status document a read
// returns.
func (m *Mount) StatusDocSize() int64 {
	return int64(len(m.StatusDoc()))
}

// LookupBranch exposes the branch store to the FUSE transport for
// resolving @<branch> pseudo-entries (spec §4.1).
func (m *Mount) LookupBranch(name string) (*Branch, bool) {
	return m.store.Lookup(name)
}
