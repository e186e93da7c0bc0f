package resolver

import (
	"testing"

	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/object"
)

func TestResolveAllByNameAndGUID(t *testing.T) {
	a := arena.New(4096, 0)
	repo := object.NewRepository(a)
	target := &object.Object{ClassID: 1, Name: "Target", TypeGUID: guid.New(9, 9)}
	repo.Insert(target)

	byNameSite := []uint32{0}
	byGUIDSite := []uint32{0}

	r := New(repo, a, false)
	r.Add(&Citation{Site: Site{Data: byNameSite, Offset: 0}, Strategy: ByName, Name: "Target"})
	r.Add(&Citation{Site: Site{Data: byGUIDSite, Offset: 0}, Strategy: ByGUID, GUID: guid.New(9, 9)})

	resolved, unresolved, err := r.ResolveAll()
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if resolved != 2 || unresolved != 0 {
		t.Fatalf("resolved=%d unresolved=%d, want 2, 0", resolved, unresolved)
	}
	if byNameSite[0] != target.ID || byGUIDSite[0] != target.ID {
		t.Fatalf("sites not written: byName=%d byGUID=%d, want %d", byNameSite[0], byGUIDSite[0], target.ID)
	}
}

func TestResolveAllUnresolvedNonStrict(t *testing.T) {
	a := arena.New(4096, 0)
	repo := object.NewRepository(a)
	site := []uint32{0}

	r := New(repo, a, false)
	r.Add(&Citation{Site: Site{Data: site, Offset: 0}, Strategy: ByName, Name: "Nobody"})
	resolved, unresolved, err := r.ResolveAll()
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if resolved != 0 || unresolved != 1 {
		t.Fatalf("resolved=%d unresolved=%d, want 0, 1", resolved, unresolved)
	}
}

func TestResolveAllUnresolvedStrictFails(t *testing.T) {
	a := arena.New(4096, 0)
	repo := object.NewRepository(a)
	site := []uint32{0}

	r := New(repo, a, true)
	r.Add(&Citation{Site: Site{Data: site, Offset: 0}, Strategy: ByID, ID: 42})
	if _, _, err := r.ResolveAll(); err == nil {
		t.Fatal("expected error in strict mode with an unresolved citation")
	}
}
