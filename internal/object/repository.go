package object

import (
	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// Repository is the ordered list of every object in a session, plus indexes
// by runtime ID, name, class ID and type GUID. Every object reachable from
// an index is also in the list; IDs are unique; indexes are rebuildable
// from the list alone (Rebuild).
type Repository struct {
	arena *arena.Arena

	list []*Object

	byID       *arena.Map[uint32, *Object]
	byName     *arena.Map[string, []*Object]
	byClass    *arena.Map[uint32, []*Object]
	byTypeGUID *arena.Map[guid.GUID, []*Object]

	nextRuntimeID uint32
}

// NewRepository returns an empty Repository backed by a.
func NewRepository(a *arena.Arena) *Repository {
	return &Repository{
		arena:         a,
		byID:          arena.NewMap[uint32, *Object](a),
		byName:        arena.NewMap[string, []*Object](a),
		byClass:       arena.NewMap[uint32, []*Object](a),
		byTypeGUID:    arena.NewMap[guid.GUID, []*Object](a),
		nextRuntimeID: 1,
	}
}

// Insert assigns obj a monotonic runtime ID (if it doesn't already have a
// nonzero one) and adds it to the list and every index.
func (r *Repository) Insert(obj *Object) {
	if obj.ID == 0 {
		obj.ID = r.nextRuntimeID
	}
	if obj.ID >= r.nextRuntimeID {
		r.nextRuntimeID = obj.ID + 1
	}
	r.list = append(r.list, obj)
	r.indexOne(obj)
}

func (r *Repository) indexOne(obj *Object) {
	r.byID.Put(obj.ID, obj)
	if obj.Name != "" {
		existing, _ := r.byName.Get(obj.Name)
		r.byName.Put(obj.Name, append(existing, obj))
	}
	existingClass, _ := r.byClass.Get(obj.ClassID)
	r.byClass.Put(obj.ClassID, append(existingClass, obj))
	if !obj.TypeGUID.IsNil() {
		existingGUID, _ := r.byTypeGUID.Get(obj.TypeGUID)
		r.byTypeGUID.Put(obj.TypeGUID, append(existingGUID, obj))
	}
}

// List returns every object in insertion order.
func (r *Repository) List() []*Object { return r.list }

// Len returns the object count.
func (r *Repository) Len() int { return len(r.list) }

// FindByID returns the object with the given runtime ID, if any.
func (r *Repository) FindByID(id uint32) (*Object, bool) { return r.byID.Get(id) }

// FindByName returns objects named name, optionally filtered to classFilter
// (0 means "any class").
func (r *Repository) FindByName(name string, classFilter uint32) []*Object {
	all, _ := r.byName.Get(name)
	if classFilter == 0 {
		return all
	}
	var out []*Object
	for _, o := range all {
		if o.ClassID == classFilter {
			out = append(out, o)
		}
	}
	return out
}

// FindByGUID returns objects whose TypeGUID matches g.
func (r *Repository) FindByGUID(g guid.GUID) []*Object {
	out, _ := r.byTypeGUID.Get(g)
	return out
}

// GetByClass returns every object with the given class ID.
func (r *Repository) GetByClass(classID uint32) []*Object {
	out, _ := r.byClass.Get(classID)
	return out
}

// Rebuild clears and re-indexes every object from the list, used after bulk
// loads or removals.
func (r *Repository) Rebuild() {
	r.byID.Clear()
	r.byName.Clear()
	r.byClass.Clear()
	r.byTypeGUID.Clear()
	for _, obj := range r.list {
		r.indexOne(obj)
	}
}

// Remove deletes obj from the list and every index; returns NotFound if obj
// is not present.
func (r *Repository) Remove(id uint32) error {
	idx := -1
	for i, o := range r.list {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nmoerr.New(nmoerr.NotFound, "no object with runtime ID %d", id)
	}
	r.list = append(r.list[:idx], r.list[idx+1:]...)
	r.Rebuild()
	return nil
}

// IndexStats summarizes index sizes for diagnostics.
type IndexStats struct {
	Objects             int
	NameBuckets         int
	ClassBuckets        int
	GUIDBuckets         int
	ClassIndexedObjects int
	ArenaBytes          int
	ArenaCapacity       int
}

// Stats exports index/memory diagnostics.
func (r *Repository) Stats() IndexStats {
	return IndexStats{
		Objects:             len(r.list),
		NameBuckets:         r.byName.Len(),
		ClassBuckets:        r.byClass.Len(),
		GUIDBuckets:         r.byTypeGUID.Len(),
		ClassIndexedObjects: r.IndexedObjectCount(),
		ArenaBytes:          r.arena.BytesUsed(),
		ArenaCapacity:       r.arena.TotalAllocated(),
	}
}

// IndexedObjectCount sums every class-index bucket's size, a cross-check
// against Len(): Insert puts every object into exactly one class bucket, so
// the two disagree only if the list and the class index fall out of step.
func (r *Repository) IndexedObjectCount() int {
	n := 0
	for _, bucket := range r.byClass.Values() {
		n += len(bucket)
	}
	return n
}

// ClassIDs returns every distinct class ID currently indexed, sorted
// ascending for deterministic diagnostics output.
func (r *Repository) ClassIDs() []uint32 {
	set := arena.NewSet[uint32](r.arena)
	for _, id := range r.byClass.Keys() {
		set.Add(id)
	}
	return arena.Sorted(set, func(a, b uint32) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
}

// TypeGUIDs returns every distinct type GUID currently indexed, sorted by
// guid.Less for deterministic diagnostics output.
func (r *Repository) TypeGUIDs() []guid.GUID {
	set := arena.NewSet[guid.GUID](r.arena)
	for _, g := range r.byTypeGUID.Keys() {
		set.Add(g)
	}
	return arena.Sorted(set, func(a, b guid.GUID) int {
		switch {
		case guid.Less(a, b):
			return -1
		case guid.Less(b, a):
			return 1
		default:
			return 0
		}
	})
}
