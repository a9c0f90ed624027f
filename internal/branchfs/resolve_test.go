package branchfs

import (
	"sort"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestResolve_AtBranchNamespaceStrip(t *testing.T) {
	m := newTestMount(t, map[string]string{"f.txt": "base"})
	if _, err := m.CreateBranch("b", MainBranch, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	v, err := m.Resolve(mustBranch(t, m, MainBranch), "/@b/f.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !v.Found {
		t.Fatalf("expected /@b/f.txt to resolve to the base file")
	}
}

func TestResolve_AtMainRejected(t *testing.T) {
	m := newTestMount(t, nil)
	_, err := m.Resolve(mustBranch(t, m, MainBranch), "/@main/f.txt")
	if err == nil {
		t.Fatalf("Resolve(@main/...) succeeded, want not-found error")
	}
	if kind, _ := AsKind(err); kind != KindNotFound {
		t.Fatalf("kind = %v, want %v", kind, KindNotFound)
	}
}

func TestResolve_AtUnknownBranchNotFound(t *testing.T) {
	m := newTestMount(t, nil)
	_, err := m.Resolve(mustBranch(t, m, MainBranch), "/@nope/f.txt")
	if err == nil {
		t.Fatalf("Resolve(@nope/...) succeeded, want not-found error")
	}
	if kind, _ := AsKind(err); kind != KindNotFound {
		t.Fatalf("kind = %v, want %v", kind, KindNotFound)
	}
}

func TestResolve_TombstoneHidesBaseFile(t *testing.T) {
	m := newTestMount(t, map[string]string{"f.txt": "base"})
	branch, err := m.CreateBranch("b", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := m.Unlink(branch, "/f.txt"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	v, err := m.Resolve(branch, "/f.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v.Found || !v.Deleted {
		t.Fatalf("Resolve after unlink: Found=%v Deleted=%v, want Found=false Deleted=true", v.Found, v.Deleted)
	}

	// main's view should be untouched.
	if v, err := m.Resolve(mustBranch(t, m, MainBranch), "/f.txt"); err != nil || !v.Found {
		t.Fatalf("main should still see f.txt, Found=%v err=%v", v.Found, err)
	}
}

func TestReadDir_UnionAcrossChainAndBase(t *testing.T) {
	m := newTestMount(t, map[string]string{
		"base_only.txt": "a",
		"shared.txt":    "original",
	})
	parent, err := m.CreateBranch("parent", MainBranch, false)
	if err != nil {
		t.Fatalf("CreateBranch parent: %v", err)
	}
	writeLogical(t, m, parent, "/parent_only.txt", "p")
	if err := m.Unlink(parent, "/shared.txt"); err != nil {
		t.Fatalf("Unlink shared.txt in parent: %v", err)
	}

	child, err := m.CreateBranch("child", "parent", false)
	if err != nil {
		t.Fatalf("CreateBranch child: %v", err)
	}
	writeLogical(t, m, child, "/child_only.txt", "c")

	entries, err := m.ReadDir(child, "/")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}

	for _, want := range []string{"base_only.txt", "parent_only.txt", "child_only.txt", ControlFileName} {
		if !names[want] {
			t.Fatalf("ReadDir missing %q, got %+v", want, entries)
		}
	}
	if names["shared.txt"] {
		t.Fatalf("ReadDir should hide shared.txt (tombstoned by parent), got %+v", entries)
	}

	got := make([]string, 0, len(entries))
	for name := range names {
		got = append(got, name)
	}
	sort.Strings(got)
	want := []string{"@child", "@parent", "base_only.txt", "child_only.txt", ControlFileName, "parent_only.txt"}
	sort.Strings(want)
	if diff := pretty.Compare(want, got); diff != "" {
		t.Fatalf("ReadDir entry set mismatch (-want +got):\n%s", diff)
	}
}
