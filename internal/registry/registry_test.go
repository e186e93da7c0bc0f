package registry

import (
	"testing"

	"github.com/nmoscene/nmofile/internal/guid"
)

func TestManagerRegistryDuplicateRejection(t *testing.T) {
	r := NewManagerRegistry()
	e1 := &ManagerEntry{ID: 1, GUID: guid.New(1, 1), Hooks: NopHooks{}}
	if err := r.Register(e1); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&ManagerEntry{ID: 1, GUID: guid.New(2, 2), Hooks: NopHooks{}}); err == nil {
		t.Fatal("expected error registering duplicate manager ID")
	}
	if err := r.Register(&ManagerEntry{ID: 2, GUID: guid.New(1, 1), Hooks: NopHooks{}}); err == nil {
		t.Fatal("expected error registering duplicate manager GUID")
	}

	got, ok := r.ByID(1)
	if !ok || got != e1 {
		t.Fatalf("ByID(1) = %v, %v, want e1", got, ok)
	}
	if _, ok := r.ByGUID(guid.New(1, 1)); !ok {
		t.Fatal("ByGUID lookup failed")
	}
	if len(r.All()) != 1 {
		t.Fatalf("All() = %d entries, want 1", len(r.All()))
	}
}

func TestPluginRegistryCheck(t *testing.T) {
	r := NewPluginRegistry()
	g := guid.New(0xAAAA, 0xBBBB)
	if err := r.Register(&PluginEntry{ID: 1, GUID: g, Category: 3, Version: "1.2.0"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		name string
		dep  PluginDependency
		want DependencyStatus
	}{
		{"missing", PluginDependency{GUID: guid.New(1, 2), Category: 3}, DependencyMissing},
		{"category mismatch", PluginDependency{GUID: g, Category: 4}, DependencyCategoryMismatch},
		{"ok no version", PluginDependency{GUID: g, Category: 3}, DependencyOK},
		{"ok older requested", PluginDependency{GUID: g, Category: 3, Version: "1.0.0"}, DependencyOK},
		{"version too new", PluginDependency{GUID: g, Category: 3, Version: "2.0.0"}, DependencyVersionMismatch},
	}
	for _, c := range cases {
		if got := r.Check(c.dep); got != c.want {
			t.Errorf("%s: Check() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPluginRegistryBuildDependencyList(t *testing.T) {
	r := NewPluginRegistry()
	g1, g2 := guid.New(1, 1), guid.New(2, 2)
	if err := r.Register(&PluginEntry{ID: 1, GUID: g1, Category: 1, Version: "1.0.0"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&PluginEntry{ID: 2, GUID: g2, Category: 2, Version: "2.0.0"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	deps := r.BuildDependencyList()
	if len(deps) != 2 {
		t.Fatalf("BuildDependencyList() = %d entries, want 2", len(deps))
	}
	for _, d := range deps {
		if d.Version != "" {
			t.Fatalf("BuildDependencyList() entry carries a version %q, want none saved", d.Version)
		}
	}
}

func TestDependencyStatusString(t *testing.T) {
	for _, s := range []DependencyStatus{DependencyOK, DependencyMissing, DependencyCategoryMismatch, DependencyVersionMismatch} {
		if s.String() == "unknown" {
			t.Fatalf("String() returned unknown for %d", s)
		}
	}
}
