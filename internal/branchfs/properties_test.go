package branchfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Property 1: after create(N, P) succeeds, list contains exactly the
// previous branches plus N under P, and the epoch increased by 1.
func TestProperty_CreateUpdatesListAndEpoch(t *testing.T) {
	m := newTestMount(t, nil)
	before := m.ListBranches()
	epochBefore := m.Epoch()

	if _, err := m.CreateBranch("feature", MainBranch, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	after := m.ListBranches()
	want := append(append([]BranchInfo{}, before...), BranchInfo{Name: "feature", Parent: MainBranch})
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("ListBranches() mismatch (-want +got):\n%s", diff)
	}
	if m.Epoch() != epochBefore+1 {
		t.Fatalf("epoch after create = %d, want %d", m.Epoch(), epochBefore+1)
	}
}

// Property 2: a branch with a child cannot be committed or aborted, and
// neither attempt changes any state.
func TestProperty_HasChildrenBlocksCommitAndAbort(t *testing.T) {
	m := newTestMount(t, nil)
	if _, err := m.CreateBranch("parent", MainBranch, false); err != nil {
		t.Fatalf("CreateBranch parent: %v", err)
	}
	if _, err := m.CreateBranch("child", "parent", false); err != nil {
		t.Fatalf("CreateBranch child: %v", err)
	}

	epochBefore := m.Epoch()
	listBefore := m.ListBranches()

	if err := m.CommitBranch("parent"); err == nil {
		t.Fatalf("CommitBranch(parent) succeeded, want has-children error")
	} else if kind, _ := AsKind(err); kind != KindHasChildren {
		t.Fatalf("CommitBranch(parent) kind = %v, want %v", kind, KindHasChildren)
	}
	if err := m.AbortBranch("parent"); err == nil {
		t.Fatalf("AbortBranch(parent) succeeded, want has-children error")
	} else if kind, _ := AsKind(err); kind != KindHasChildren {
		t.Fatalf("AbortBranch(parent) kind = %v, want %v", kind, KindHasChildren)
	}

	if m.Epoch() != epochBefore {
		t.Fatalf("epoch changed after failed commit/abort: before=%d after=%d", epochBefore, m.Epoch())
	}
	if len(m.ListBranches()) != len(listBefore) {
		t.Fatalf("branch list changed after failed commit/abort")
	}
}

// Property 3: reading an untouched base file through any branch returns
// exactly the base's bytes.
func TestProperty_UntouchedFileReadsEqualBase(t *testing.T) {
	m := newTestMount(t, map[string]string{"a/b/c.txt": "hello world"})

	parent, err := m.CreateBranch("p", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch p: %v", err)
	}
	child, err := m.CreateBranch("c", "p", false)
	if err != nil {
		t.Fatalf("CreateBranch c: %v", err)
	}

	basePath := filepath.Join(m.Base, "a", "b", "c.txt")
	baseBytes, err := os.ReadFile(basePath)
	if err != nil {
		t.Fatalf("ReadFile base: %v", err)
	}

	for _, b := range []*Branch{mustBranch(t, m, MainBranch), parent, child} {
		got := readLogical(t, m, b, "/a/b/c.txt")
		if got != string(baseBytes) {
			t.Fatalf("branch %s read = %q, want %q", b.Name, got, string(baseBytes))
		}
	}
}

// Property 4: writes through @X are visible from the mount root only when
// the root's current view is X or a descendant of X.
func TestProperty_WriteIsolationByAncestry(t *testing.T) {
	m := newTestMount(t, nil)

	x, err := m.CreateBranch("x", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch x: %v", err)
	}
	descendant, err := m.CreateBranch("x-child", "x", false)
	if err != nil {
		t.Fatalf("CreateBranch x-child: %v", err)
	}
	unrelated, err := m.CreateBranch("y", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch y: %v", err)
	}

	writeLogical(t, m, x, "/secret.txt", "x wrote this\n")

	cases := []struct {
		view    *Branch
		visible bool
	}{
		{x, true},
		{descendant, true},
		{unrelated, false},
		{mustBranch(t, m, MainBranch), false},
	}
	for _, c := range cases {
		v, err := m.Resolve(c.view, "/secret.txt")
		if err != nil {
			t.Fatalf("Resolve from %s: %v", c.view.Name, err)
		}
		if v.Found != c.visible {
			t.Fatalf("view=%s Found=%v, want %v", c.view.Name, v.Found, c.visible)
		}
	}
}

// Property 5: committing B into main is equivalent to applying every
// tombstone as an unlink/rmdir and every delta file as a copy-into-base.
func TestProperty_CommitToMainEquivalence(t *testing.T) {
	m := newTestMount(t, map[string]string{
		"keep.txt":   "keep",
		"remove.txt": "gone soon",
	})

	if _, err := m.CreateBranch("b", MainBranch, true); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	view := m.ViewBranch()
	if err := m.Unlink(view, "/remove.txt"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	writeLogical(t, m, view, "/added.txt", "new content\n")

	if err := m.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	main := mustBranch(t, m, MainBranch)
	if v, err := m.Resolve(main, "/remove.txt"); err != nil || v.Found {
		t.Fatalf("remove.txt should be gone from base, Found=%v err=%v", v.Found, err)
	}
	if got := readLogical(t, m, main, "/keep.txt"); got != "keep" {
		t.Fatalf("keep.txt = %q, want %q", got, "keep")
	}
	if got := readLogical(t, m, main, "/added.txt"); got != "new content\n" {
		t.Fatalf("added.txt = %q, want %q", got, "new content\n")
	}
}

// Property 6: aborting B leaves the base and every other branch
// bitwise-identical to their pre-abort state.
func TestProperty_AbortLeavesOthersUntouched(t *testing.T) {
	m := newTestMount(t, map[string]string{"f.txt": "base"})

	other, err := m.CreateBranch("other", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch other: %v", err)
	}
	writeLogical(t, m, other, "/other_file.txt", "other content\n")

	doomed, err := m.CreateBranch("doomed", MainBranch, true)
	if err != nil {
		t.Fatalf("CreateBranch doomed: %v", err)
	}
	writeLogical(t, m, doomed, "/f.txt", "doomed edit\n")
	writeLogical(t, m, doomed, "/new.txt", "doomed new\n")

	baseBefore, err := os.ReadFile(filepath.Join(m.Base, "f.txt"))
	if err != nil {
		t.Fatalf("ReadFile base: %v", err)
	}
	otherBefore := readLogical(t, m, other, "/other_file.txt")

	if err := m.AbortBranch("doomed"); err != nil {
		t.Fatalf("AbortBranch: %v", err)
	}

	baseAfter, err := os.ReadFile(filepath.Join(m.Base, "f.txt"))
	if err != nil {
		t.Fatalf("ReadFile base after abort: %v", err)
	}
	if string(baseAfter) != string(baseBefore) {
		t.Fatalf("base f.txt changed after abort: before=%q after=%q", baseBefore, baseAfter)
	}
	if got := readLogical(t, m, other, "/other_file.txt"); got != otherBefore {
		t.Fatalf("other branch changed after abort: before=%q after=%q", otherBefore, got)
	}
	if _, ok := m.store.Lookup("doomed"); ok {
		t.Fatalf("doomed branch should be gone")
	}
	if m.View() != MainBranch {
		t.Fatalf("view after abort = %q, want %q", m.View(), MainBranch)
	}
}
