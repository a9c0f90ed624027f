package branchfs

import (
	"testing"
)

// S1: write through a switched-to branch is visible at root; base is
// untouched; switching back to main hides the write again.
func TestScenario_WriteVisibleThroughSwitchedView(t *testing.T) {
	m := newTestMount(t, map[string]string{"file1.txt": "base content\n"})

	if _, err := m.CreateBranch("feature-a", MainBranch, true); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	writeLogical(t, m, m.ViewBranch(), "/file1.txt", "modified\n")

	if got := readLogical(t, m, m.ViewBranch(), "/file1.txt"); got != "modified\n" {
		t.Fatalf("root read = %q, want %q", got, "modified\n")
	}
	if got := readLogical(t, m, mustBranch(t, m, MainBranch), "/file1.txt"); got != "base content\n" {
		t.Fatalf("base read via main = %q, want %q", got, "base content\n")
	}

	if err := m.Switch(MainBranch); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if got := readLogical(t, m, m.ViewBranch(), "/file1.txt"); got != "base content\n" {
		t.Fatalf("root read after switch back = %q, want %q", got, "base content\n")
	}
}

// S2: writing through @branch without switching is isolated to that
// branch's namespace; main's view never sees it and the base is untouched.
func TestScenario_WriteThroughAtBranchIsolated(t *testing.T) {
	m := newTestMount(t, map[string]string{"file1.txt": "base content\n"})

	feature, err := m.CreateBranch("feature-a", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	writeLogical(t, m, feature, "/branch_file.txt", "branch a content\n")

	if v, err := m.Resolve(m.ViewBranch(), "/branch_file.txt"); err != nil || v.Found {
		t.Fatalf("root should not see branch_file.txt, got Found=%v err=%v", v.Found, err)
	}
	if got := readLogical(t, m, feature, "/branch_file.txt"); got != "branch a content\n" {
		t.Fatalf("@feature-a read = %q, want %q", got, "branch a content\n")
	}
}

// S3: unlinking through a switched branch does not touch the base until
// commit; after commit the base reflects the deletion and the branch is
// gone.
func TestScenario_CommitDeleteToBase(t *testing.T) {
	m := newTestMount(t, map[string]string{"file2.txt": "x"})

	if _, err := m.CreateBranch("commit_del", MainBranch, true); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := m.Unlink(m.ViewBranch(), "/file2.txt"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	if v, err := m.Resolve(mustBranch(t, m, MainBranch), "/file2.txt"); err != nil || !v.Found {
		t.Fatalf("base should still have file2.txt before commit, Found=%v err=%v", v.Found, err)
	}

	if err := m.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if m.View() != MainBranch {
		t.Fatalf("view after commit = %q, want %q", m.View(), MainBranch)
	}
	if v, err := m.Resolve(mustBranch(t, m, MainBranch), "/file2.txt"); err != nil || v.Found {
		t.Fatalf("base should not have file2.txt after commit, Found=%v err=%v", v.Found, err)
	}
	if _, ok := m.store.Lookup("commit_del"); ok {
		t.Fatalf("commit_del should be gone from the store")
	}
}

// S4: a grandchild branch inherits a write made to its parent after the
// grandchild was created, via the chain walk.
func TestScenario_InheritedWriteThroughChain(t *testing.T) {
	m := newTestMount(t, map[string]string{})

	parent, err := m.CreateBranch("parent-br", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch parent: %v", err)
	}
	child, err := m.CreateBranch("child-br", "parent-br", false)
	if err != nil {
		t.Fatalf("CreateBranch child: %v", err)
	}

	writeLogical(t, m, child, "/child_file.txt", "child content\n")
	writeLogical(t, m, parent, "/parent_file.txt", "parent content\n")

	if got := readLogical(t, m, child, "/parent_file.txt"); got != "parent content\n" {
		t.Fatalf("child read of parent_file.txt = %q, want %q", got, "parent content\n")
	}
}

// S5: invalid branch names are rejected with KindInvalidName.
func TestScenario_InvalidBranchNames(t *testing.T) {
	m := newTestMount(t, map[string]string{})

	for _, name := range []string{"", "foo/bar", "@x", ".."} {
		_, err := m.CreateBranch(name, MainBranch, false)
		if err == nil {
			t.Fatalf("CreateBranch(%q) succeeded, want error", name)
		}
		kind, ok := AsKind(err)
		if !ok || kind != KindInvalidName {
			t.Fatalf("CreateBranch(%q) kind = %v, want %v", name, kind, KindInvalidName)
		}
	}
}

// S6: two independent mounts over the same base are fully isolated; a
// commit in one does not affect the other's identically-named branch.
func TestScenario_IndependentMountsIsolated(t *testing.T) {
	base := t.TempDir()

	m1, err := NewMount(Options{ID: "m1", Base: base, StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewMount m1: %v", err)
	}
	m2, err := NewMount(Options{ID: "m2", Base: base, StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewMount m2: %v", err)
	}

	if _, err := m1.CreateBranch("experiment", MainBranch, true); err != nil {
		t.Fatalf("m1 CreateBranch: %v", err)
	}
	if _, err := m2.CreateBranch("experiment", MainBranch, true); err != nil {
		t.Fatalf("m2 CreateBranch: %v", err)
	}

	writeLogical(t, m1, m1.ViewBranch(), "/note.txt", "m1 content\n")
	writeLogical(t, m2, m2.ViewBranch(), "/note.txt", "m2 content\n")

	if err := m1.Commit(); err != nil {
		t.Fatalf("m1 Commit: %v", err)
	}

	if _, ok := m2.store.Lookup("experiment"); !ok {
		t.Fatalf("m2's experiment branch should be unaffected by m1's commit")
	}
	if got := readLogical(t, m2, m2.ViewBranch(), "/note.txt"); got != "m2 content\n" {
		t.Fatalf("m2 note.txt = %q, want %q", got, "m2 content\n")
	}
}
