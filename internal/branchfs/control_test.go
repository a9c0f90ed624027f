package branchfs

import (
	"strings"
	"testing"
)

func TestControl_SwitchMovesView(t *testing.T) {
	m := newTestMount(t, map[string]string{"f.txt": "base"})
	if _, err := m.CreateBranch("b", MainBranch, true); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if err := m.Control("b", "switch:main", true); err != nil {
		t.Fatalf("Control(switch:main): %v", err)
	}
	if m.View() != MainBranch {
		t.Fatalf("view after switch = %q, want %q", m.View(), MainBranch)
	}
}

func TestControl_SwitchDisallowedFromPinnedRoot(t *testing.T) {
	m := newTestMount(t, nil)
	if _, err := m.CreateBranch("b", MainBranch, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	err := m.Control("b", "switch:main", false)
	if err == nil {
		t.Fatalf("Control switch with allowSwitch=false should fail")
	}
	if kind, _ := AsKind(err); kind != KindProtocol {
		t.Fatalf("kind = %v, want %v", kind, KindProtocol)
	}
}

func TestControl_UnknownCommandIsProtocolError(t *testing.T) {
	m := newTestMount(t, nil)
	err := m.Control(MainBranch, "frobnicate", true)
	if err == nil {
		t.Fatalf("Control(frobnicate) succeeded, want protocol error")
	}
	if kind, _ := AsKind(err); kind != KindProtocol {
		t.Fatalf("kind = %v, want %v", kind, KindProtocol)
	}
}

func TestControl_CommitViaCtlDestroysBranch(t *testing.T) {
	m := newTestMount(t, map[string]string{"f.txt": "base"})
	if _, err := m.CreateBranch("b", MainBranch, true); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if err := m.Control("b", "commit", true); err != nil {
		t.Fatalf("Control(commit): %v", err)
	}
	if _, ok := m.store.Lookup("b"); ok {
		t.Fatalf("branch b should be gone after commit via control file")
	}
}

func TestStatusDoc_ReportsViewAndEpoch(t *testing.T) {
	m := newTestMount(t, nil)
	doc := m.StatusDoc()
	if len(doc) == 0 {
		t.Fatalf("StatusDoc is empty")
	}
	if int64(len(doc)) != m.StatusDocSize() {
		t.Fatalf("StatusDocSize = %d, want %d", m.StatusDocSize(), len(doc))
	}
	if !strings.Contains(doc, "view: main\n") {
		t.Fatalf("StatusDoc = %q, want it to report view main", doc)
	}
	if !strings.Contains(doc, "epoch: 0\n") {
		t.Fatalf("StatusDoc = %q, want it to report epoch 0", doc)
	}
}
