package object

import (
	"testing"

	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/guid"
)

func TestRepositoryInsertAndFind(t *testing.T) {
	a := arena.New(4096, 0)
	repo := NewRepository(a)

	o1 := &Object{ClassID: 1, Name: "Alpha", TypeGUID: guid.New(1, 1)}
	o2 := &Object{ClassID: 1, Name: "Beta", TypeGUID: guid.New(2, 2)}
	o3 := &Object{ClassID: 2, Name: "Alpha", TypeGUID: guid.New(1, 1)}

	repo.Insert(o1)
	repo.Insert(o2)
	repo.Insert(o3)

	if repo.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", repo.Len())
	}
	if o1.ID == 0 || o2.ID == 0 || o3.ID == 0 {
		t.Fatal("Insert did not assign nonzero runtime IDs")
	}
	if o1.ID == o2.ID || o2.ID == o3.ID {
		t.Fatal("Insert assigned duplicate runtime IDs")
	}

	got, ok := repo.FindByID(o2.ID)
	if !ok || got != o2 {
		t.Fatalf("FindByID(%d) = %v, %v, want o2", o2.ID, got, ok)
	}

	byName := repo.FindByName("Alpha", 0)
	if len(byName) != 2 {
		t.Fatalf("FindByName(Alpha, 0) = %d results, want 2", len(byName))
	}
	byNameClass := repo.FindByName("Alpha", 2)
	if len(byNameClass) != 1 || byNameClass[0] != o3 {
		t.Fatalf("FindByName(Alpha, 2) = %v, want [o3]", byNameClass)
	}

	byGUID := repo.FindByGUID(guid.New(1, 1))
	if len(byGUID) != 2 {
		t.Fatalf("FindByGUID = %d results, want 2", len(byGUID))
	}

	byClass := repo.GetByClass(1)
	if len(byClass) != 2 {
		t.Fatalf("GetByClass(1) = %d results, want 2", len(byClass))
	}
}

func TestRepositoryRemoveAndRebuild(t *testing.T) {
	a := arena.New(4096, 0)
	repo := NewRepository(a)
	o1 := &Object{ClassID: 1, Name: "One"}
	o2 := &Object{ClassID: 1, Name: "Two"}
	repo.Insert(o1)
	repo.Insert(o2)

	if err := repo.Remove(o1.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if repo.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", repo.Len())
	}
	if _, ok := repo.FindByID(o1.ID); ok {
		t.Fatal("removed object still findable by ID")
	}
	if got := repo.FindByName("One", 0); len(got) != 0 {
		t.Fatalf("removed object still findable by name: %v", got)
	}

	if err := repo.Remove(9999); err == nil {
		t.Fatal("Remove of unknown ID did not error")
	}
}

func TestReferenceOnlyBit(t *testing.T) {
	if !IsReferenceOnly(ReferenceOnlyBit | 5) {
		t.Fatal("IsReferenceOnly false for a high-bit-marked ID")
	}
	if IsReferenceOnly(5) {
		t.Fatal("IsReferenceOnly true for an ordinary ID")
	}
}

func TestRepositoryClassIDsAndTypeGUIDsSorted(t *testing.T) {
	a := arena.New(4096, 0)
	repo := NewRepository(a)
	repo.Insert(&Object{ClassID: 3, TypeGUID: guid.New(9, 0)})
	repo.Insert(&Object{ClassID: 1, TypeGUID: guid.New(1, 0)})
	repo.Insert(&Object{ClassID: 2, TypeGUID: guid.New(5, 0)})
	repo.Insert(&Object{ClassID: 1, TypeGUID: guid.New(1, 0)})

	classIDs := repo.ClassIDs()
	want := []uint32{1, 2, 3}
	if len(classIDs) != len(want) {
		t.Fatalf("ClassIDs() = %v, want %v", classIDs, want)
	}
	for i, id := range want {
		if classIDs[i] != id {
			t.Fatalf("ClassIDs() = %v, want %v", classIDs, want)
		}
	}

	guids := repo.TypeGUIDs()
	if len(guids) != 3 {
		t.Fatalf("TypeGUIDs() = %v, want 3 distinct GUIDs", guids)
	}
	for i := 1; i < len(guids); i++ {
		if !guid.Less(guids[i-1], guids[i]) {
			t.Fatalf("TypeGUIDs() not sorted ascending: %v", guids)
		}
	}

	if got := repo.IndexedObjectCount(); got != repo.Len() {
		t.Fatalf("IndexedObjectCount() = %d, want %d (Len())", got, repo.Len())
	}
}

func TestAddChild(t *testing.T) {
	parent := &Object{Name: "parent"}
	child := &Object{Name: "child"}
	parent.AddChild(child)
	if child.Parent != parent {
		t.Fatal("AddChild did not set Parent")
	}
	if len(parent.Children) != 1 || parent.Children[0] != child {
		t.Fatal("AddChild did not record child")
	}
}
