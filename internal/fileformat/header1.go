package fileformat

import (
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/registry"
)

// ObjectDescriptor is one entry of Header1's object descriptor array: just
// enough per-object metadata to size and locate the matching chunk in the
// Data section without parsing it.
type ObjectDescriptor struct {
	ClassID      uint32
	ObjectID     uint32
	Name         string
	Flags        uint32
	PositionHint uint32 // byte offset of this object's chunk within the inflated Data section
}

// IncludedFile is one entry of Header1's included-file index (embedded
// textures, sounds, etc. carried alongside the scene).
type IncludedFile struct {
	Name string
	Size uint32
}

// Header1 is the decoded metadata block: object descriptors, the plugin
// dependency list, and the included-file index.
type Header1 struct {
	Objects       []ObjectDescriptor
	PluginDeps    []registry.PluginDependency
	IncludedFiles []IncludedFile
}

// EncodeHeader1 serializes h into its flat, DWORD-aligned wire form (pre
// compression).
func EncodeHeader1(h *Header1) []byte {
	b := &builder{}

	b.putU32(uint32(len(h.Objects)))
	for _, o := range h.Objects {
		b.putU32(o.ClassID)
		b.putU32(o.ObjectID)
		b.putStr(o.Name)
		b.putU32(o.Flags)
		b.putU32(o.PositionHint)
	}

	b.putU32(uint32(len(h.PluginDeps)))
	for _, d := range h.PluginDeps {
		b.putGUID(d.GUID)
		b.putU32(d.Category)
		b.putStr(d.Version)
	}

	b.putU32(uint32(len(h.IncludedFiles)))
	for _, f := range h.IncludedFiles {
		b.putStr(f.Name)
		b.putU32(f.Size)
	}

	return b.bytes()
}

// DecodeHeader1 parses the flat wire form produced by EncodeHeader1.
func DecodeHeader1(data []byte) (*Header1, error) {
	c := newCursor(data)
	h := &Header1{}

	objCount, err := c.u32()
	if err != nil {
		return nil, err
	}
	h.Objects = make([]ObjectDescriptor, 0, objCount)
	for i := uint32(0); i < objCount; i++ {
		var o ObjectDescriptor
		if o.ClassID, err = c.u32(); err != nil {
			return nil, err
		}
		if o.ObjectID, err = c.u32(); err != nil {
			return nil, err
		}
		if o.Name, err = c.str(); err != nil {
			return nil, err
		}
		if o.Flags, err = c.u32(); err != nil {
			return nil, err
		}
		if o.PositionHint, err = c.u32(); err != nil {
			return nil, err
		}
		h.Objects = append(h.Objects, o)
	}

	depCount, err := c.u32()
	if err != nil {
		return nil, err
	}
	h.PluginDeps = make([]registry.PluginDependency, 0, depCount)
	for i := uint32(0); i < depCount; i++ {
		var d registry.PluginDependency
		var g guid.GUID
		if g, err = c.guid(); err != nil {
			return nil, err
		}
		d.GUID = g
		if d.Category, err = c.u32(); err != nil {
			return nil, err
		}
		if d.Version, err = c.str(); err != nil {
			return nil, err
		}
		h.PluginDeps = append(h.PluginDeps, d)
	}

	fileCount, err := c.u32()
	if err != nil {
		return nil, err
	}
	h.IncludedFiles = make([]IncludedFile, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		var f IncludedFile
		if f.Name, err = c.str(); err != nil {
			return nil, err
		}
		if f.Size, err = c.u32(); err != nil {
			return nil, err
		}
		h.IncludedFiles = append(h.IncludedFiles, f)
	}

	return h, nil
}
