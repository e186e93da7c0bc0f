// Package object implements the arena-owned object record, the object
// repository with its identity indexes, and index-rebuild/diagnostics
// support (component I).
package object

import (
	"github.com/nmoscene/nmofile/internal/chunk"
	"github.com/nmoscene/nmofile/internal/guid"
)

// Object is an arena-owned scene entity. Parent/child links are borrow-only
// (they never extend the object's lifetime beyond the arena/session that
// owns it); Name is arena-interned via Arena.InternString.
type Object struct {
	ID       uint32
	ClassID  uint32
	Name     string
	Parent   *Object
	Children []*Object
	TypeGUID guid.GUID
	Flags    uint32
	Chunk    *chunk.Chunk
}

// ReferenceOnlyBit marks an object descriptor with no payload (spec data
// model: "the high bit (0x80000000) marks a reference-only object
// descriptor").
const ReferenceOnlyBit = 0x80000000

// IsReferenceOnly reports whether id carries the reference-only high bit.
func IsReferenceOnly(id uint32) bool { return id&ReferenceOnlyBit != 0 }

// AddChild links child under o, both ways; this does not transfer ownership,
// it only records the borrow-only relationship.
func (o *Object) AddChild(child *Object) {
	child.Parent = o
	o.Children = append(o.Children, child)
}
