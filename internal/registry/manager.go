// Package registry implements the manager and plugin registries (J): two
// ID->instance maps, keyed secondarily by GUID, with duplicate rejection,
// plus the plugin-dependency list assembly used when building Header1.
package registry

import (
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// ManagerHooks is the fixed capability set a manager implements; the
// registry dispatches to these instead of a class hierarchy of manager
// types (dynamic dispatch -> sum type, per the format's design notes).
type ManagerHooks interface {
	OnPreLoad() error
	OnPostLoad() error
	OnPreSave() error
	OnPostSave() error
}

// NopHooks is a ManagerHooks implementation that does nothing, usable as an
// embeddable default for managers that only care about one or two phases.
type NopHooks struct{}

func (NopHooks) OnPreLoad() error  { return nil }
func (NopHooks) OnPostLoad() error { return nil }
func (NopHooks) OnPreSave() error  { return nil }
func (NopHooks) OnPostSave() error { return nil }

// ManagerEntry is one registered manager.
type ManagerEntry struct {
	ID    uint32
	GUID  guid.GUID
	Hooks ManagerHooks
}

// ManagerRegistry is a read-mostly ID->ManagerEntry map with a GUID secondary
// index; registrations happen during setup, reads during load/save (§5).
type ManagerRegistry struct {
	byID   map[uint32]*ManagerEntry
	byGUID map[guid.GUID]*ManagerEntry
	order  []*ManagerEntry
}

func NewManagerRegistry() *ManagerRegistry {
	return &ManagerRegistry{
		byID:   make(map[uint32]*ManagerEntry),
		byGUID: make(map[guid.GUID]*ManagerEntry),
	}
}

// Register adds a manager, rejecting duplicate IDs or GUIDs.
func (r *ManagerRegistry) Register(e *ManagerEntry) error {
	if _, exists := r.byID[e.ID]; exists {
		return nmoerr.New(nmoerr.AlreadyExists, "manager ID %d already registered", e.ID)
	}
	if _, exists := r.byGUID[e.GUID]; exists {
		return nmoerr.New(nmoerr.AlreadyExists, "manager GUID %s already registered", e.GUID)
	}
	r.byID[e.ID] = e
	r.byGUID[e.GUID] = e
	r.order = append(r.order, e)
	return nil
}

func (r *ManagerRegistry) ByID(id uint32) (*ManagerEntry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

func (r *ManagerRegistry) ByGUID(g guid.GUID) (*ManagerEntry, bool) {
	e, ok := r.byGUID[g]
	return e, ok
}

// All returns every registered manager in registration order.
func (r *ManagerRegistry) All() []*ManagerEntry { return r.order }
