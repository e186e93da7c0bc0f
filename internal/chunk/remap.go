package chunk

import (
	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

// IDRemapper is the read-side lookup a chunk needs to translate its
// citations from file-ID space back to runtime-ID space (load phase 13).
// idremap.Remap satisfies this structurally.
type IDRemapper interface {
	ToRuntime(fileID uint32) (uint32, bool)
}

// RemapCitations rewrites every object-ID citation in c from file space to
// runtime space using r, descending into sub-chunks via ChunkRefs (spec
// §4.6: "sub-chunk citations are recursively remapped via chunk_refs").
// A chunk with the FILE option unset is returned unchanged: it was never
// given file-ID citations to begin with. On success the FILE option is
// cleared and the RawBytes cache is invalidated, since the DWORD payload
// has changed even though its length has not.
func RemapCitations(c *Chunk, r IDRemapper, strict bool) (resolved int, err error) {
	if c.OptionFlags&OptFILE == 0 {
		return 0, nil
	}

	resolved, err = remapIDs(c.Data, c.IDs, r, strict)
	if err != nil {
		return resolved, err
	}

	// A bit set guards against chunk_refs entries that repeat the same
	// offset: a malformed (or maliciously crafted) file could list the same
	// sub-chunk many times over, and without this each repeat would decode
	// and re-remap the identical bytes again.
	seen := arena.NewBitArray(arena.New(0, 0), len(c.Data))
	for _, off := range c.ChunkRefs {
		if int(off) >= len(c.Data) {
			return resolved, invalidOffset("chunk_refs", off, uint32(len(c.Data)))
		}
		if seen.Get(int(off)) {
			continue
		}
		seen.Set(int(off))
		child, consumed, err := decodeDwords(c.Data[off:])
		if err != nil {
			return resolved, nmoerr.Wrap(nmoerr.InvalidData, err, "decoding sub-chunk at offset %d for remap", off)
		}
		n, err := RemapCitations(child, r, strict)
		resolved += n
		if err != nil {
			return resolved, err
		}
		copy(c.Data[int(off):int(off)+consumed], encodeDwords(child))
	}

	c.OptionFlags &^= OptFILE
	c.RawBytes = nil
	return resolved, nil
}

// FileIDAssigner is the write-side counterpart of IDRemapper: the lookup a
// chunk needs to translate its citations from runtime-ID space to file-ID
// space before serialization (save phase 5).
type FileIDAssigner interface {
	ToFile(runtimeID uint32) (uint32, bool)
}

// PrepareForFileWrite is RemapCitations' mirror image: it rewrites c's
// object-ID citations (and its sub-chunks', recursively) from runtime space
// to file space and sets the FILE option, so the resulting bytes are ready
// for the Data section. Citations with no file-ID mapping (e.g. a reference
// to an object excluded from this save) are left as-is rather than zeroed,
// since a stale runtime ID is diagnosable while a silently dropped
// reference is not.
func PrepareForFileWrite(c *Chunk, r FileIDAssigner) (remapped int, err error) {
	remapped, err = assignFileIDs(c.Data, c.IDs, r)
	if err != nil {
		return remapped, err
	}

	seen := arena.NewBitArray(arena.New(0, 0), len(c.Data))
	for _, off := range c.ChunkRefs {
		if int(off) >= len(c.Data) {
			return remapped, invalidOffset("chunk_refs", off, uint32(len(c.Data)))
		}
		if seen.Get(int(off)) {
			continue
		}
		seen.Set(int(off))
		child, consumed, err := decodeDwords(c.Data[off:])
		if err != nil {
			return remapped, nmoerr.Wrap(nmoerr.InvalidData, err, "decoding sub-chunk at offset %d for file-ID assignment", off)
		}
		n, err := PrepareForFileWrite(child, r)
		remapped += n
		if err != nil {
			return remapped, err
		}
		copy(c.Data[int(off):int(off)+consumed], encodeDwords(child))
	}

	c.OptionFlags |= OptFILE
	c.RawBytes = nil
	return remapped, nil
}

func assignFileIDs(data []uint32, ids []uint32, r FileIDAssigner) (int, error) {
	remapped := 0
	skipNext := false
	for _, off := range ids {
		if skipNext {
			skipNext = false
			continue
		}
		if off == SeqSentinel {
			skipNext = true
			continue
		}
		if int(off) >= len(data) {
			return remapped, invalidOffset("ids", off, uint32(len(data)))
		}
		rid := data[off]
		if rid == 0 {
			continue
		}
		if fid, ok := r.ToFile(rid); ok {
			data[off] = fid
			remapped++
		}
	}
	return remapped, nil
}

func remapIDs(data []uint32, ids []uint32, r IDRemapper, strict bool) (int, error) {
	resolved := 0
	skipNext := false
	for _, off := range ids {
		if skipNext {
			skipNext = false
			continue
		}
		if off == SeqSentinel {
			skipNext = true
			continue
		}
		if int(off) >= len(data) {
			return resolved, invalidOffset("ids", off, uint32(len(data)))
		}
		fid := data[off]
		if fid == 0 {
			continue
		}
		rid, ok := r.ToRuntime(fid)
		if !ok {
			if strict {
				return resolved, nmoerr.New(nmoerr.ReferenceUnresolved, "no runtime mapping for file object %d", fid)
			}
			continue
		}
		data[off] = rid
		resolved++
	}
	return resolved, nil
}
